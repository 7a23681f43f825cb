package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
)

// PostgresClientRepository implements the ClientRepository interface
type PostgresClientRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(config *RepositoryConfig) repositories.ClientRepository {
	return &PostgresClientRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const clientColumns = `id, architect_id, name, email, phone, cpf_cnpj, address, notes, status,
	invite_token, invite_sent_at, registered_at, user_id, created_at, updated_at`

func scanClient(row pgx.Row, c *models.Client) error {
	return row.Scan(
		&c.ID,
		&c.ArchitectID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.CPFCNPJ,
		&c.Address,
		&c.Notes,
		&c.Status,
		&c.InviteToken,
		&c.InviteSentAt,
		&c.RegisteredAt,
		&c.UserID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// Create inserts a client. An architect cannot hold two clients with the same email.
func (r *PostgresClientRepository) Create(ctx context.Context, client *models.Client) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (architect_id, name, email, phone, cpf_cnpj, address, notes, status,
		                invite_token, invite_sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, r.tables.Clients)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		client.ArchitectID,
		client.Name,
		client.Email,
		client.Phone,
		client.CPFCNPJ,
		client.Address,
		client.Notes,
		client.Status,
		client.InviteToken,
		client.InviteSentAt,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("client with email '%s' already exists", client.Email),
				ResourceType: "client",
				ResourceID:   r.existingClientID(ctx, client.ArchitectID, client.Email),
			}
		}
		return fmt.Errorf("create client: %w", err)
	}

	return nil
}

func (r *PostgresClientRepository) existingClientID(ctx context.Context, architectID, email string) string {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE architect_id = $1 AND email = $2`, r.tables.Clients)

	var id string
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, architectID, email).Scan(&id); err != nil {
		r.logger.Debug("existing client lookup failed", "error", err)
	}
	return id
}

// GetByID retrieves a client owned by the architect
func (r *PostgresClientRepository) GetByID(ctx context.Context, id, architectID string) (*models.Client, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND architect_id = $2`, clientColumns, r.tables.Clients)

	var c models.Client
	if err := scanClient(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, architectID), &c); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// GetByInviteToken retrieves a pending client by invite token
func (r *PostgresClientRepository) GetByInviteToken(ctx context.Context, token string) (*models.Client, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE invite_token = $1 AND status = $2
	`, clientColumns, r.tables.Clients)

	var c models.Client
	if err := scanClient(GetExecutor(ctx, r.pool).QueryRow(ctx, query, token, models.ClientPending), &c); err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.ErrInvalidInvite
		}
		return nil, fmt.Errorf("get client by invite: %w", err)
	}
	return &c, nil
}

// GetByUserID retrieves the client record bound to a registered auth user
func (r *PostgresClientRepository) GetByUserID(ctx context.Context, userID string) (*models.Client, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1`, clientColumns, r.tables.Clients)

	var c models.Client
	if err := scanClient(GetExecutor(ctx, r.pool).QueryRow(ctx, query, userID), &c); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("client for user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get client by user: %w", err)
	}
	return &c, nil
}

// List retrieves all clients of an architect, newest first
func (r *PostgresClientRepository) List(ctx context.Context, architectID string) ([]models.Client, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE architect_id = $1
		ORDER BY created_at DESC
	`, clientColumns, r.tables.Clients)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, architectID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := scanClient(rows, &c); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	return clients, nil
}

// Update writes every mutable column of the client
func (r *PostgresClientRepository) Update(ctx context.Context, client *models.Client) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, email = $2, phone = $3, cpf_cnpj = $4, address = $5, notes = $6,
		    status = $7, invite_token = $8, invite_sent_at = $9, registered_at = $10,
		    user_id = $11, updated_at = NOW()
		WHERE id = $12 AND architect_id = $13
		RETURNING updated_at
	`, r.tables.Clients)

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		client.Name,
		client.Email,
		client.Phone,
		client.CPFCNPJ,
		client.Address,
		client.Notes,
		client.Status,
		client.InviteToken,
		client.InviteSentAt,
		client.RegisteredAt,
		client.UserID,
		client.ID,
		client.ArchitectID,
	).Scan(&client.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("client %s: %w", client.ID, domain.ErrNotFound)
		}
		if IsPgDuplicateError(err) {
			return fmt.Errorf("client with email '%s': %w", client.Email, domain.ErrConflict)
		}
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

// Delete removes a client; shares cascade in the schema
func (r *PostgresClientRepository) Delete(ctx context.Context, id, architectID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND architect_id = $2`, r.tables.Clients)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id, architectID)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CountByStatus groups an architect's clients by status
func (r *PostgresClientRepository) CountByStatus(ctx context.Context, architectID string) (map[models.ClientStatus]int, error) {
	query := fmt.Sprintf(`
		SELECT status, COUNT(*) FROM %s
		WHERE architect_id = $1
		GROUP BY status
	`, r.tables.Clients)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, architectID)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ClientStatus]int)
	for rows.Next() {
		var status models.ClientStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan client count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
