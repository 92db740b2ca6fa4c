package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/pkg/geospatial"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

const marksCacheKey = "marks:all"

// MarkService handles mark storage on the mark service side.
type MarkService struct {
	marks     ports.MarkRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewMarkService creates a new MarkService. cache and publisher may be nil.
func NewMarkService(marks ports.MarkRepository, cache ports.CacheService, publisher ports.EventPublisher) *MarkService {
	return &MarkService{marks: marks, cache: cache, publisher: publisher}
}

// List returns every mark, oldest first.
func (s *MarkService) List(ctx context.Context) ([]domain.Mark, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMarkList)
	defer span.End()

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, marksCacheKey); err == nil {
			var marks []domain.Mark
			if err := json.Unmarshal(data, &marks); err == nil {
				span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true), attribute.Int(telemetry.AttrMarkCount, len(marks)))
				return marks, nil
			}
		}
	}

	marks, err := s.marks.List(ctx)
	if err != nil {
		err = fmt.Errorf("list marks: %w", err)
		telemetry.Fail(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, false), attribute.Int(telemetry.AttrMarkCount, len(marks)))

	// Short TTL; Create invalidates anyway
	if s.cache != nil {
		if data, err := json.Marshal(marks); err == nil {
			_ = s.cache.Set(ctx, marksCacheKey, data, 30)
		}
	}

	return marks, nil
}

// Create validates and stores a new mark, then announces it.
func (s *MarkService) Create(ctx context.Context, c domain.Coordinate, message string) (*domain.Mark, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMarkCreate)
	defer span.End()

	if !c.Valid() {
		return nil, fmt.Errorf("%w: latitude must be in [-90,90] and longitude in [-180,180]", domain.ErrInvalidCoordinate)
	}
	if utf8.RuneCountInString(message) > domain.MaxMessageLength {
		return nil, fmt.Errorf("%w: max %d characters", domain.ErrMessageTooLong, domain.MaxMessageLength)
	}

	mark := &domain.Mark{
		Key:        uuid.NewString(),
		Coordinate: c,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	span.SetAttributes(attribute.String(telemetry.AttrMarkKey, mark.Key))
	if err := s.marks.Create(ctx, mark); err != nil {
		err = fmt.Errorf("create mark: %w", err)
		telemetry.Fail(span, err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, marksCacheKey); err != nil {
			slog.WarnContext(ctx, "invalidate marks cache", "error", err)
		}
	}

	// Broadcast to WebSocket clients (best-effort)
	if s.publisher != nil {
		if err := s.publisher.PublishMarkCreated(ctx, mark); err != nil {
			slog.WarnContext(ctx, "publish mark created", "key", mark.Key, "error", err)
		}
	}

	return mark, nil
}

// GetByKey returns a single mark.
func (s *MarkService) GetByKey(ctx context.Context, key string) (*domain.Mark, error) {
	if _, err := uuid.Parse(key); err != nil {
		return nil, domain.ErrMarkNotFound
	}
	return s.marks.GetByKey(ctx, key)
}

// Nearby returns marks within radiusMeters of center, nearest first.
func (s *MarkService) Nearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.Mark, error) {
	if !center.Valid() {
		return nil, domain.ErrInvalidCoordinate
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	// The box is a superset of the circle; the repo ranks candidates nearest
	// first, the real distance trims and re-sorts them below.
	candidates, err := s.marks.FindNearest(ctx, center, geospatial.BoundingBox(center, radiusMeters), limit*4)
	if err != nil {
		return nil, fmt.Errorf("find marks in bounds: %w", err)
	}

	out := make([]domain.Mark, 0, len(candidates))
	for _, m := range candidates {
		d := geospatial.Distance(center, m.Coordinate)
		if d > radiusMeters {
			continue
		}
		m.Distance = &d
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InRegion returns marks visible in the given region.
func (s *MarkService) InRegion(ctx context.Context, r domain.Region, limit int) ([]domain.Mark, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	return s.marks.FindInBounds(ctx, r.Bounds(), limit)
}

// Count returns the number of stored marks.
func (s *MarkService) Count(ctx context.Context) (int, error) {
	return s.marks.Count(ctx)
}
