package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
)

type memRepo struct {
	mu      sync.Mutex
	marks   []domain.Mark
	listErr error
}

func (r *memRepo) Create(_ context.Context, m *domain.Mark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = append(r.marks, *m)
	return nil
}

func (r *memRepo) GetByKey(context.Context, string) (*domain.Mark, error) {
	return nil, domain.ErrMarkNotFound
}

func (r *memRepo) List(context.Context) ([]domain.Mark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Mark(nil), r.marks...), r.listErr
}

func (r *memRepo) FindInBounds(context.Context, domain.Bounds, int) ([]domain.Mark, error) {
	return nil, nil
}

func (r *memRepo) FindNearest(context.Context, domain.Coordinate, domain.Bounds, int) ([]domain.Mark, error) {
	return nil, nil
}

func (r *memRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.marks), nil
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

const wireList = `{"message":[
	{"key":"a","coordinate":"{\"latitude\":1,\"longitude\":2}","message":"hi"},
	{"key":"b","coordinate":"{\"latitude\":3,\"longitude\":4}","message":"there"}
]}`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marks.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImporter_FileAndRemote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/marks/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"message":[{"key":"c","coordinate":"{\"latitude\":5,\"longitude\":6}","message":"remote"}]}`))
	}))
	defer ts.Close()

	repo := &memRepo{}
	imp := &Importer{Marks: usecases.NewMarkService(repo, nil, nil)}

	results, err := imp.Run(context.Background(), []Source{
		{Name: "file", File: writeFile(t, wireList)},
		{Name: "remote", URL: ts.URL},
	})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Created != 2 || results[1].Created != 1 {
		t.Errorf("unexpected results: %+v", results)
	}
	if n, _ := repo.Count(context.Background()); n != 3 {
		t.Errorf("expected 3 stored marks, got %d", n)
	}
}

func TestImporter_SkipsExisting(t *testing.T) {
	repo := &memRepo{marks: []domain.Mark{
		{Key: "x", Coordinate: domain.Coordinate{Latitude: 1, Longitude: 2}, Message: "hi"},
	}}
	imp := &Importer{Marks: usecases.NewMarkService(repo, nil, nil)}
	path := writeFile(t, wireList)

	// The same file twice: the second copy is entirely duplicate.
	results, err := imp.Run(context.Background(), []Source{
		{Name: "one", File: path},
		{Name: "two", File: path},
	})
	if err != nil {
		t.Fatal(err)
	}
	created := results[0].Created + results[1].Created
	skipped := results[0].Skipped + results[1].Skipped
	if created != 1 || skipped != 3 {
		t.Errorf("created=%d skipped=%d, want 1 and 3", created, skipped)
	}
}

func TestImporter_InvalidMarksSkipped(t *testing.T) {
	repo := &memRepo{}
	imp := &Importer{Marks: usecases.NewMarkService(repo, nil, nil)}
	path := writeFile(t, `{"message":[{"key":"a","coordinate":"{\"latitude\":95,\"longitude\":2}","message":"off the map"}]}`)

	results, err := imp.Run(context.Background(), []Source{{Name: "bad", File: path}})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Err != nil || results[0].Skipped != 1 || results[0].Created != 0 {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestImporter_SourceErrors(t *testing.T) {
	repo := &memRepo{}
	imp := &Importer{Marks: usecases.NewMarkService(repo, nil, nil)}

	results, err := imp.Run(context.Background(), []Source{
		{Name: "empty"},
		{Name: "both", URL: "http://example.invalid", File: "x.json"},
		{Name: "missing", File: filepath.Join(t.TempDir(), "nope.json")},
		{Name: "garbage", File: writeFile(t, `not json`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Err == nil {
			t.Errorf("%s: expected error", r.Source)
		}
	}
	if !errors.Is(results[3].Err, domain.ErrDecode) {
		t.Errorf("garbage: expected ErrDecode, got %v", results[3].Err)
	}
}

func TestImporter_LocalStoreFailureAborts(t *testing.T) {
	repo := &memRepo{listErr: errors.New("db down")}
	imp := &Importer{Marks: usecases.NewMarkService(repo, nil, nil)}

	if _, err := imp.Run(context.Background(), []Source{{Name: "x", File: "y"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestManifest_Filter(t *testing.T) {
	m := Manifest{Sources: []Source{{Name: "a"}, {Name: "b"}, {Name: "c"}}}

	if got := m.filter(nil); len(got) != 3 {
		t.Errorf("no filter: got %d", len(got))
	}
	got := m.filter([]string{"c", "a"})
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("filter keeps manifest order: got %+v", got)
	}
}

func TestImporter_InvalidatesCachedList(t *testing.T) {
	repo := &memRepo{}
	cache := &memCache{}
	imp := &Importer{Marks: usecases.NewMarkService(repo, cache, nil)}

	// A screen listed marks before the import, so the list is cached.
	if _, err := imp.Marks.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := imp.Run(context.Background(), []Source{{Name: "file", File: writeFile(t, wireList)}}); err != nil {
		t.Fatal(err)
	}

	cache.mu.Lock()
	_, cached := cache.data["marks:all"]
	deleted := len(cache.deleted)
	cache.mu.Unlock()
	if cached || deleted == 0 {
		t.Errorf("expected the cached list invalidated, cached=%v deletes=%d", cached, deleted)
	}

	marks, err := imp.Marks.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(marks) != 2 {
		t.Errorf("expected imported marks listed, got %d", len(marks))
	}
}
