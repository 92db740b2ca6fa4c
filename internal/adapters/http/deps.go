package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinmap/internal/core/usecases"
)

// Pinger is a backing service the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
// Optional backends are left nil when unavailable.
type Dependencies struct {
	Marks *usecases.MarkService
	NATS  *nats.Conn
	DB    Pinger
	Cache Pinger
}
