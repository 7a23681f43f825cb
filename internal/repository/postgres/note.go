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

// PostgresFileRegistryRepository implements the FileRegistryRepository interface
type PostgresFileRegistryRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFileRegistryRepository creates a new file registry repository
func NewFileRegistryRepository(config *RepositoryConfig) repositories.FileRegistryRepository {
	return &PostgresFileRegistryRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const registryColumns = `id, architect_id, file_name, file_path, cloud_provider, cloud_file_id, mime_type, created_at, updated_at`

func scanRegistry(row pgx.Row, reg *models.FileRegistry) error {
	return row.Scan(
		&reg.ID,
		&reg.ArchitectID,
		&reg.FileName,
		&reg.FilePath,
		&reg.CloudProvider,
		&reg.CloudFileID,
		&reg.MimeType,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
}

// GetByCloudID finds the registry row of an architect's file
func (r *PostgresFileRegistryRepository) GetByCloudID(ctx context.Context, architectID, cloudFileID string) (*models.FileRegistry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE architect_id = $1 AND cloud_file_id = $2
	`, registryColumns, r.tables.FileRegistry)

	var reg models.FileRegistry
	if err := scanRegistry(GetExecutor(ctx, r.pool).QueryRow(ctx, query, architectID, cloudFileID), &reg); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("registry for %s: %w", cloudFileID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file registry: %w", err)
	}
	return &reg, nil
}

// GetByID retrieves a registry row by id
func (r *PostgresFileRegistryRepository) GetByID(ctx context.Context, id string) (*models.FileRegistry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, registryColumns, r.tables.FileRegistry)

	var reg models.FileRegistry
	if err := scanRegistry(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id), &reg); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("registry %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file registry: %w", err)
	}
	return &reg, nil
}

// GetOrCreate inserts the row if it is missing. The no-op update keeps
// RETURNING populated when the row already exists.
func (r *PostgresFileRegistryRepository) GetOrCreate(ctx context.Context, reg *models.FileRegistry) (*models.FileRegistry, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (architect_id, file_name, file_path, cloud_provider, cloud_file_id, mime_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (architect_id, cloud_file_id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			updated_at = %s.updated_at
		RETURNING %s
	`, r.tables.FileRegistry, r.tables.FileRegistry, registryColumns)

	var stored models.FileRegistry
	err := scanRegistry(GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		reg.ArchitectID,
		reg.FileName,
		reg.FilePath,
		reg.CloudProvider,
		reg.CloudFileID,
		reg.MimeType,
	), &stored)
	if err != nil {
		return nil, fmt.Errorf("get or create file registry: %w", err)
	}
	return &stored, nil
}

// PostgresNoteRepository implements the NoteRepository interface
type PostgresNoteRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(config *RepositoryConfig) repositories.NoteRepository {
	return &PostgresNoteRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// noteSelect joins the author's profile name; authors without a profile
// are reported as models.UnknownAuthor.
func (r *PostgresNoteRepository) noteSelect() string {
	return fmt.Sprintf(`
		SELECT n.id, n.file_registry_id, n.author_id,
		       COALESCE(NULLIF(p.display_name, ''), p.name, '%s'),
		       n.content, n.is_read, n.created_at, n.updated_at
		FROM %s n
		LEFT JOIN %s p ON p.id = n.author_id
	`, models.UnknownAuthor, r.tables.FileNotes, r.tables.Profiles)
}

func scanNote(row pgx.Row, n *models.Note) error {
	return row.Scan(
		&n.ID,
		&n.FileRegistryID,
		&n.AuthorID,
		&n.AuthorName,
		&n.Content,
		&n.IsRead,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
}

// Create inserts an unread note
func (r *PostgresNoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_registry_id, author_id, content, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, false, NOW(), NOW())
		RETURNING id, is_read, created_at, updated_at
	`, r.tables.FileNotes)

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		note.FileRegistryID,
		note.AuthorID,
		note.Content,
	).Scan(&note.ID, &note.IsRead, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("registry %s: %w", note.FileRegistryID, domain.ErrNotFound)
		}
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// GetByID retrieves a note with its author name
func (r *PostgresNoteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := r.noteSelect() + ` WHERE n.id = $1`

	var n models.Note
	if err := scanNote(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id), &n); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}

// ListByRegistry returns a file's notes oldest first
func (r *PostgresNoteRepository) ListByRegistry(ctx context.Context, registryID string) ([]models.Note, error) {
	query := r.noteSelect() + ` WHERE n.file_registry_id = $1 ORDER BY n.created_at ASC`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, registryID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := scanNote(rows, &n); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// MarkRead sets the read flag. Marking a read note again is a no-op.
func (r *PostgresNoteRepository) MarkRead(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET is_read = true WHERE id = $1`, r.tables.FileNotes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark note read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkAllRead flips every unread note of a file and returns how many changed
func (r *PostgresNoteRepository) MarkAllRead(ctx context.Context, registryID string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET is_read = true
		WHERE file_registry_id = $1 AND is_read = false
	`, r.tables.FileNotes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, registryID)
	if err != nil {
		return 0, fmt.Errorf("mark all notes read: %w", err)
	}
	return result.RowsAffected(), nil
}

// UnreadCount counts a file's unread notes written by someone other than the viewer
func (r *PostgresNoteRepository) UnreadCount(ctx context.Context, registryID, viewerID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE file_registry_id = $1 AND is_read = false AND author_id <> $2
	`, r.tables.FileNotes)

	var n int
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, registryID, viewerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notes: %w", err)
	}
	return n, nil
}

// UnreadCountMap counts unread notes per cloud file id across an architect's registry
func (r *PostgresNoteRepository) UnreadCountMap(ctx context.Context, architectID, viewerID string) (map[string]int, error) {
	query := fmt.Sprintf(`
		SELECT fr.cloud_file_id, COUNT(n.id)
		FROM %s fr
		JOIN %s n ON n.file_registry_id = fr.id
		WHERE fr.architect_id = $1 AND n.is_read = false AND n.author_id <> $2
		GROUP BY fr.cloud_file_id
	`, r.tables.FileRegistry, r.tables.FileNotes)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, architectID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("unread map: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var fileID string
		var n int
		if err := rows.Scan(&fileID, &n); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[fileID] = n
	}
	return counts, rows.Err()
}

// UpdateContent replaces a note's text
func (r *PostgresNoteRepository) UpdateContent(ctx context.Context, id, content string) (*models.Note, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET content = $1, updated_at = NOW()
		WHERE id = $2
	`, r.tables.FileNotes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, content, id)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a note
func (r *PostgresNoteRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.FileNotes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
