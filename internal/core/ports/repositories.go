package ports

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// MarkRepository persists marks on the mark service.
type MarkRepository interface {
	Create(ctx context.Context, mark *domain.Mark) error
	GetByKey(ctx context.Context, key string) (*domain.Mark, error)
	// List returns every mark, oldest first.
	List(ctx context.Context) ([]domain.Mark, error)
	FindInBounds(ctx context.Context, bounds domain.Bounds, limit int) ([]domain.Mark, error)
	// FindNearest returns up to limit marks inside bounds, nearest to center first.
	FindNearest(ctx context.Context, center domain.Coordinate, bounds domain.Bounds, limit int) ([]domain.Mark, error)
	Count(ctx context.Context) (int, error)
}
