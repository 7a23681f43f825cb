package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
)

// PostgresSharedFileRepository implements the SharedFileRepository interface
type PostgresSharedFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewSharedFileRepository creates a new shared file repository
func NewSharedFileRepository(config *RepositoryConfig) repositories.SharedFileRepository {
	return &PostgresSharedFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const sharedFileColumns = `id, architect_id, client_id, cloud_provider, cloud_file_id, file_name, file_type,
	mime_type, file_path, file_size, permission, web_view_link, file_url, thumbnail_url, icon_link, shared_at`

func scanSharedFile(row pgx.Row, s *models.SharedFile) error {
	return row.Scan(
		&s.ID,
		&s.ArchitectID,
		&s.ClientID,
		&s.CloudProvider,
		&s.CloudFileID,
		&s.FileName,
		&s.FileType,
		&s.MimeType,
		&s.FilePath,
		&s.FileSize,
		&s.Permission,
		&s.WebViewLink,
		&s.FileURL,
		&s.ThumbnailURL,
		&s.IconLink,
		&s.SharedAt,
	)
}

func (r *PostgresSharedFileRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.SharedFile, error) {
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shared files: %w", err)
	}
	defer rows.Close()

	shares := []models.SharedFile{}
	for rows.Next() {
		var s models.SharedFile
		if err := scanSharedFile(rows, &s); err != nil {
			return nil, fmt.Errorf("scan shared file: %w", err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shared files: %w", err)
	}
	return shares, nil
}

// Create inserts a share. Unique on (client_id, cloud_provider, cloud_file_id).
func (r *PostgresSharedFileRepository) Create(ctx context.Context, share *models.SharedFile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (architect_id, client_id, cloud_provider, cloud_file_id, file_name, file_type,
		                mime_type, file_path, file_size, permission, web_view_link, file_url,
		                thumbnail_url, icon_link, shared_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		RETURNING id, shared_at
	`, r.tables.SharedFiles)

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		share.ArchitectID,
		share.ClientID,
		share.CloudProvider,
		share.CloudFileID,
		share.FileName,
		share.FileType,
		share.MimeType,
		share.FilePath,
		share.FileSize,
		share.Permission,
		share.WebViewLink,
		share.FileURL,
		share.ThumbnailURL,
		share.IconLink,
	).Scan(&share.ID, &share.SharedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("'%s' is already shared with this client", share.FileName),
				ResourceType: "share",
				ResourceID:   share.CloudFileID,
			}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("client %s: %w", share.ClientID, domain.ErrNotFound)
		}
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// GetByID retrieves a share owned by the architect
func (r *PostgresSharedFileRepository) GetByID(ctx context.Context, id, architectID string) (*models.SharedFile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND architect_id = $2`, sharedFileColumns, r.tables.SharedFiles)

	var s models.SharedFile
	if err := scanSharedFile(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, architectID), &s); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get share: %w", err)
	}
	return &s, nil
}

// Delete removes a share by id
func (r *PostgresSharedFileRepository) Delete(ctx context.Context, id, architectID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND architect_id = $2`, r.tables.SharedFiles)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id, architectID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteForClient removes the share of one file with one client
func (r *PostgresSharedFileRepository) DeleteForClient(ctx context.Context, architectID, clientID, cloudFileID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE architect_id = $1 AND client_id = $2 AND cloud_file_id = $3
	`, r.tables.SharedFiles)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, architectID, clientID, cloudFileID)
	if err != nil {
		return fmt.Errorf("unshare file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("share of %s: %w", cloudFileID, domain.ErrNotFound)
	}
	return nil
}

// ListByArchitect returns every share the architect created, newest first
func (r *PostgresSharedFileRepository) ListByArchitect(ctx context.Context, architectID string) ([]models.SharedFile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE architect_id = $1
		ORDER BY shared_at DESC
	`, sharedFileColumns, r.tables.SharedFiles)
	return r.list(ctx, query, architectID)
}

// ListForClient returns the files shared with a client, newest first
func (r *PostgresSharedFileRepository) ListForClient(ctx context.Context, clientID string) ([]models.SharedFile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE client_id = $1
		ORDER BY shared_at DESC
	`, sharedFileColumns, r.tables.SharedFiles)
	return r.list(ctx, query, clientID)
}

// ClientsForFile returns the client ids a file is shared with
func (r *PostgresSharedFileRepository) ClientsForFile(ctx context.Context, architectID, cloudFileID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT client_id FROM %s
		WHERE architect_id = $1 AND cloud_file_id = $2
		ORDER BY shared_at
	`, r.tables.SharedFiles)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, architectID, cloudFileID)
	if err != nil {
		return nil, fmt.Errorf("list file clients: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan file clients: %w", err)
	}
	return ids, nil
}

// SharedWithMap resolves client ids for many files in one query
func (r *PostgresSharedFileRepository) SharedWithMap(ctx context.Context, architectID string, cloudFileIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(cloudFileIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT cloud_file_id, client_id FROM %s
		WHERE architect_id = $1 AND cloud_file_id = ANY($2)
		ORDER BY shared_at
	`, r.tables.SharedFiles)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, architectID, cloudFileIDs)
	if err != nil {
		return nil, fmt.Errorf("shared-with map: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileID, clientID string
		if err := rows.Scan(&fileID, &clientID); err != nil {
			return nil, fmt.Errorf("scan shared-with: %w", err)
		}
		result[fileID] = append(result[fileID], clientID)
	}
	return result, rows.Err()
}

// Exists reports whether the file is shared with the client
func (r *PostgresSharedFileRepository) Exists(ctx context.Context, clientID, cloudFileID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM %s WHERE client_id = $1 AND cloud_file_id = $2)
	`, r.tables.SharedFiles)

	var exists bool
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, clientID, cloudFileID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check share: %w", err)
	}
	return exists, nil
}

// UpdatePermission changes the permission of a share and returns it
func (r *PostgresSharedFileRepository) UpdatePermission(ctx context.Context, id, architectID string, permission models.SharePermission) (*models.SharedFile, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET permission = $1
		WHERE id = $2 AND architect_id = $3
		RETURNING %s
	`, r.tables.SharedFiles, sharedFileColumns)

	var s models.SharedFile
	if err := scanSharedFile(GetExecutor(ctx, r.pool).QueryRow(ctx, query, permission, id, architectID), &s); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update share permission: %w", err)
	}
	return &s, nil
}
