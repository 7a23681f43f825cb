package repositories

import (
	"context"

	"linkarbox/internal/domain/models"
)

// ProfileRepository reads and writes user profiles
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}
