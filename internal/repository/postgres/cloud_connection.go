package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
)

// PostgresCloudConnectionRepository implements the CloudConnectionRepository interface
type PostgresCloudConnectionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewCloudConnectionRepository creates a new cloud connection repository
func NewCloudConnectionRepository(config *RepositoryConfig) repositories.CloudConnectionRepository {
	return &PostgresCloudConnectionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get retrieves the cached token row for a user and provider
func (r *PostgresCloudConnectionRepository) Get(ctx context.Context, userID string, provider models.CloudProvider) (*models.CloudConnection, error) {
	query := fmt.Sprintf(`
		SELECT user_id, provider, access_token, refresh_token, token_type, expires_at,
		       keep_connected, account_name, account_email, created_at, updated_at
		FROM %s
		WHERE user_id = $1 AND provider = $2
	`, r.tables.CloudConnections)

	var conn models.CloudConnection
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID, provider).Scan(
		&conn.UserID,
		&conn.Provider,
		&conn.AccessToken,
		&conn.RefreshToken,
		&conn.TokenType,
		&conn.ExpiresAt,
		&conn.KeepConnected,
		&conn.AccountName,
		&conn.AccountEmail,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("%s connection: %w", provider, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get cloud connection: %w", err)
	}

	return &conn, nil
}

// Upsert creates or replaces the row keyed by (user_id, provider)
func (r *PostgresCloudConnectionRepository) Upsert(ctx context.Context, conn *models.CloudConnection) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, provider, access_token, refresh_token, token_type, expires_at,
		                keep_connected, account_name, account_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN %s.refresh_token ELSE EXCLUDED.refresh_token END,
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			keep_connected = EXCLUDED.keep_connected,
			account_name = EXCLUDED.account_name,
			account_email = EXCLUDED.account_email,
			updated_at = NOW()
		RETURNING refresh_token, created_at, updated_at
	`, r.tables.CloudConnections, r.tables.CloudConnections)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		conn.UserID,
		conn.Provider,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenType,
		conn.ExpiresAt,
		conn.KeepConnected,
		conn.AccountName,
		conn.AccountEmail,
	).Scan(&conn.RefreshToken, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert cloud connection: %w", err)
	}

	r.logger.Debug("cloud connection saved", "user_id", conn.UserID, "provider", conn.Provider)
	return nil
}

// UpdateToken stores a rotated token
func (r *PostgresCloudConnectionRepository) UpdateToken(ctx context.Context, conn *models.CloudConnection) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET access_token = $1,
		    refresh_token = COALESCE(NULLIF($2::text, ''), refresh_token),
		    token_type = $3,
		    expires_at = $4,
		    updated_at = NOW()
		WHERE user_id = $5 AND provider = $6
	`, r.tables.CloudConnections)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenType,
		conn.ExpiresAt,
		conn.UserID,
		conn.Provider,
	)
	if err != nil {
		return fmt.Errorf("update cloud token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s connection: %w", conn.Provider, domain.ErrNotFound)
	}
	return nil
}

// SetKeepConnected updates the auto-reconnect preference
func (r *PostgresCloudConnectionRepository) SetKeepConnected(ctx context.Context, userID string, provider models.CloudProvider, keep bool) error {
	query := fmt.Sprintf(`
		UPDATE %s SET keep_connected = $1, updated_at = NOW()
		WHERE user_id = $2 AND provider = $3
	`, r.tables.CloudConnections)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, keep, userID, provider)
	if err != nil {
		return fmt.Errorf("set keep connected: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s connection: %w", provider, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the row. Deleting a missing row is not an error.
func (r *PostgresCloudConnectionRepository) Delete(ctx context.Context, userID string, provider models.CloudProvider) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND provider = $2`, r.tables.CloudConnections)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, userID, provider); err != nil {
		return fmt.Errorf("delete cloud connection: %w", err)
	}
	return nil
}
