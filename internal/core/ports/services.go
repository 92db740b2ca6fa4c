package ports

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// MarkRemote is the remote mark service as seen from the screen.
type MarkRemote interface {
	FetchMarks(ctx context.Context) ([]domain.Mark, error)
	SubmitMark(ctx context.Context, coordinate domain.Coordinate, message string) error
}

// Geolocator is the device location collaborator.
// RequestPermission may fail with domain.ErrPlatformUnsupported.
type Geolocator interface {
	RequestPermission(ctx context.Context) (granted bool, err error)
	CurrentPosition(ctx context.Context) (domain.Coordinate, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishMarkCreated(ctx context.Context, mark *domain.Mark) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
