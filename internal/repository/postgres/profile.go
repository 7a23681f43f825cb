package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
)

// PostgresProfileRepository implements the ProfileRepository interface
type PostgresProfileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(config *RepositoryConfig) repositories.ProfileRepository {
	return &PostgresProfileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetByID retrieves a profile by user ID
func (r *PostgresProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, name, display_name, avatar_url, role, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Profiles)

	var p models.Profile
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.DisplayName,
		&p.AvatarURL,
		&p.Role,
		&p.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

// Upsert creates the profile or updates its name and role
func (r *PostgresProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, display_name, avatar_url, role, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			display_name = COALESCE(EXCLUDED.display_name, %s.display_name),
			avatar_url = COALESCE(EXCLUDED.avatar_url, %s.avatar_url),
			role = EXCLUDED.role
		RETURNING created_at
	`, r.tables.Profiles, r.tables.Profiles, r.tables.Profiles)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		profile.ID,
		profile.Name,
		profile.DisplayName,
		profile.AvatarURL,
		profile.Role,
	).Scan(&profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
