package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/pkg/geospatial"
)

// --- Mock MarkRepository ---

type mockMarkRepo struct {
	created        []domain.Mark
	listFn         func(ctx context.Context) ([]domain.Mark, error)
	findInBoundsFn func(ctx context.Context, b domain.Bounds, limit int) ([]domain.Mark, error)
	findNearestFn  func(ctx context.Context, center domain.Coordinate, b domain.Bounds, limit int) ([]domain.Mark, error)
	createFn       func(ctx context.Context, m *domain.Mark) error
}

func (m *mockMarkRepo) Create(ctx context.Context, mark *domain.Mark) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, mark); err != nil {
			return err
		}
	}
	m.created = append(m.created, *mark)
	return nil
}

func (m *mockMarkRepo) GetByKey(ctx context.Context, key string) (*domain.Mark, error) {
	for _, c := range m.created {
		if c.Key == key {
			return &c, nil
		}
	}
	return nil, domain.ErrMarkNotFound
}

func (m *mockMarkRepo) List(ctx context.Context) ([]domain.Mark, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return m.created, nil
}

func (m *mockMarkRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.Mark, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, b, limit)
	}
	return nil, nil
}

func (m *mockMarkRepo) FindNearest(ctx context.Context, center domain.Coordinate, b domain.Bounds, limit int) ([]domain.Mark, error) {
	if m.findNearestFn != nil {
		return m.findNearestFn(ctx, center, b, limit)
	}
	return nil, nil
}

func (m *mockMarkRepo) Count(ctx context.Context) (int, error) { return len(m.created), nil }

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	deletes []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (c *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("valkey nil message")
}

func (c *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.data[key] = value
	return nil
}

func (c *mockCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	c.deletes = append(c.deletes, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	published []domain.Mark
	err       error
}

func (p *mockPublisher) PublishMarkCreated(ctx context.Context, m *domain.Mark) error {
	p.published = append(p.published, *m)
	return p.err
}

// --- Tests ---

func TestMarkService_Create(t *testing.T) {
	repo := &mockMarkRepo{}
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewMarkService(repo, cache, pub)

	mark, err := svc.Create(context.Background(), domain.Coordinate{Latitude: 1, Longitude: 2}, "note")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mark.Key == "" {
		t.Error("expected a generated key")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 stored mark, got %d", len(repo.created))
	}
	if len(cache.deletes) != 1 {
		t.Errorf("expected cache invalidation, got %v", cache.deletes)
	}
	if len(pub.published) != 1 || pub.published[0].Key != mark.Key {
		t.Errorf("expected mark to be published, got %+v", pub.published)
	}
}

func TestMarkService_Create_PublishFailureIsNotFatal(t *testing.T) {
	svc := usecases.NewMarkService(&mockMarkRepo{}, nil, &mockPublisher{err: errors.New("nats down")})
	if _, err := svc.Create(context.Background(), domain.Coordinate{Latitude: 1, Longitude: 2}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkService_Create_Validation(t *testing.T) {
	svc := usecases.NewMarkService(&mockMarkRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), domain.Coordinate{Latitude: 100, Longitude: 0}, "x")
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}

	long := strings.Repeat("é", domain.MaxMessageLength+1)
	_, err = svc.Create(context.Background(), domain.Coordinate{Latitude: 1, Longitude: 2}, long)
	if !errors.Is(err, domain.ErrMessageTooLong) {
		t.Errorf("expected ErrMessageTooLong, got %v", err)
	}

	exact := strings.Repeat("é", domain.MaxMessageLength)
	if _, err := svc.Create(context.Background(), domain.Coordinate{Latitude: 1, Longitude: 2}, exact); err != nil {
		t.Errorf("message at the limit rejected: %v", err)
	}
}

func TestMarkService_List_UsesCache(t *testing.T) {
	calls := 0
	repo := &mockMarkRepo{
		listFn: func(ctx context.Context) ([]domain.Mark, error) {
			calls++
			return []domain.Mark{{Key: "a", Message: "hi"}}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewMarkService(repo, cache, nil)

	for i := 0; i < 3; i++ {
		marks, err := svc.List(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(marks) != 1 || marks[0].Key != "a" {
			t.Fatalf("unexpected marks %+v", marks)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repository call, got %d", calls)
	}

	var cached []domain.Mark
	if err := json.Unmarshal(cache.data["marks:all"], &cached); err != nil || len(cached) != 1 {
		t.Errorf("expected marks cached, got %s", cache.data["marks:all"])
	}
}

func TestMarkService_Nearby_FiltersAndSorts(t *testing.T) {
	center := domain.Coordinate{Latitude: 43.263, Longitude: -2.935}
	repo := &mockMarkRepo{
		findNearestFn: func(ctx context.Context, c domain.Coordinate, b domain.Bounds, limit int) ([]domain.Mark, error) {
			if !b.Contains(center) {
				t.Errorf("bounds %+v do not contain center", b)
			}
			return []domain.Mark{
				{Key: "far", Coordinate: domain.Coordinate{Latitude: 43.271, Longitude: -2.935}},  // ~890m
				{Key: "near", Coordinate: domain.Coordinate{Latitude: 43.264, Longitude: -2.935}}, // ~111m
				{Key: "corner", Coordinate: domain.Coordinate{Latitude: 43.271, Longitude: -2.924}},
			}, nil
		},
	}
	svc := usecases.NewMarkService(repo, nil, nil)

	marks, err := svc.Nearby(context.Background(), center, 1000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(marks) != 2 {
		t.Fatalf("expected 2 marks inside the radius, got %d", len(marks))
	}
	if marks[0].Key != "near" || marks[1].Key != "far" {
		t.Errorf("expected near before far, got %s, %s", marks[0].Key, marks[1].Key)
	}
	if marks[0].Distance == nil || *marks[0].Distance > 200 {
		t.Errorf("unexpected distance %v", marks[0].Distance)
	}
}

func TestMarkService_Nearby_PrefersNearestOverOldest(t *testing.T) {
	center := domain.Coordinate{Latitude: 43.263, Longitude: -2.935}
	// Four older marks ~400m north, then a newer one on the center.
	stored := []domain.Mark{
		{Key: "a", Coordinate: domain.Coordinate{Latitude: 43.2666, Longitude: -2.935}},
		{Key: "b", Coordinate: domain.Coordinate{Latitude: 43.2666, Longitude: -2.9351}},
		{Key: "c", Coordinate: domain.Coordinate{Latitude: 43.2666, Longitude: -2.9349}},
		{Key: "d", Coordinate: domain.Coordinate{Latitude: 43.2666, Longitude: -2.9352}},
		{Key: "center", Coordinate: center},
	}
	inBox := func(b domain.Bounds, limit int) []domain.Mark {
		var out []domain.Mark
		for _, m := range stored {
			if b.Contains(m.Coordinate) && len(out) < limit {
				out = append(out, m)
			}
		}
		return out
	}
	repo := &mockMarkRepo{
		findInBoundsFn: func(ctx context.Context, b domain.Bounds, limit int) ([]domain.Mark, error) {
			return inBox(b, limit), nil
		},
		findNearestFn: func(ctx context.Context, c domain.Coordinate, b domain.Bounds, limit int) ([]domain.Mark, error) {
			all := inBox(b, len(stored))
			sort.SliceStable(all, func(i, j int) bool {
				return geospatial.Distance(c, all[i].Coordinate) < geospatial.Distance(c, all[j].Coordinate)
			})
			if len(all) > limit {
				all = all[:limit]
			}
			return all, nil
		},
	}
	svc := usecases.NewMarkService(repo, nil, nil)

	marks, err := svc.Nearby(context.Background(), center, 500, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(marks) != 1 || marks[0].Key != "center" {
		t.Fatalf("expected the mark on the center, got %+v", marks)
	}
	if *marks[0].Distance != 0 {
		t.Errorf("expected distance 0, got %v", *marks[0].Distance)
	}
}

func TestMarkService_GetByKey_RejectsMalformedKey(t *testing.T) {
	svc := usecases.NewMarkService(&mockMarkRepo{}, nil, nil)
	if _, err := svc.GetByKey(context.Background(), "not-a-uuid"); !errors.Is(err, domain.ErrMarkNotFound) {
		t.Errorf("expected ErrMarkNotFound, got %v", err)
	}
}
