package ports

import (
	"context"

	"github.com/samirrijal/snapmap/internal/core/domain"
)

// PostRepository persists posts and their locations.
type PostRepository interface {
	Upsert(ctx context.Context, post *domain.Post) error
	UpdateLocation(ctx context.Context, id string, loc domain.Coordinate) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	FindNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.Post, error)
}
