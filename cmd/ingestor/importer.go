package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/samirrijal/pinmap/internal/adapters/markapi"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/pkg/markwire"
)

// Manifest lists the mark sources to import.
type Manifest struct {
	Sources []Source `json:"sources"`
}

// Source is either another mark service (URL) or a file holding a
// GET /api/marks/ response body (File).
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	File string `json:"file,omitempty"`
}

func (m Manifest) filter(names []string) []Source {
	if len(names) == 0 {
		return m.Sources
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Source
	for _, s := range m.Sources {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

// Result summarizes one source.
type Result struct {
	Source  string
	Created int
	Skipped int
	Err     error
}

// Importer copies marks from sources into the local mark store.
// A mark whose coordinate and message already exist locally is skipped,
// so re-running a manifest is harmless.
type Importer struct {
	Marks       *usecases.MarkService
	Timeout     time.Duration
	Concurrency int

	mu   sync.Mutex
	seen map[markIdentity]bool
}

type markIdentity struct {
	coordinate domain.Coordinate
	message    string
}

// Run imports every source. Per-source failures are reported in the
// results; only a failure to read the local store aborts the run.
func (imp *Importer) Run(ctx context.Context, sources []Source) ([]Result, error) {
	existing, err := imp.Marks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local marks: %w", err)
	}
	imp.seen = make(map[markIdentity]bool, len(existing))
	for _, m := range existing {
		imp.seen[markIdentity{m.Coordinate, m.Message}] = true
	}

	n := imp.Concurrency
	if n <= 0 {
		n = 4
	}
	sem := make(chan struct{}, n)
	results := make([]Result, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = imp.importSource(ctx, src)
			if results[i].Err != nil {
				slog.ErrorContext(ctx, "import source", "source", src.Name, "error", results[i].Err)
			}
		}(i, src)
	}
	wg.Wait()

	return results, nil
}

func (imp *Importer) importSource(ctx context.Context, src Source) Result {
	res := Result{Source: src.Name}

	marks, err := imp.load(ctx, src)
	if err != nil {
		res.Err = err
		return res
	}
	slog.InfoContext(ctx, "source loaded", "source", src.Name, "marks", len(marks))

	for _, m := range marks {
		if !imp.claim(m) {
			res.Skipped++
			continue
		}
		if _, err := imp.Marks.Create(ctx, m.Coordinate, m.Message); err != nil {
			if errors.Is(err, domain.ErrInvalidCoordinate) || errors.Is(err, domain.ErrMessageTooLong) {
				slog.WarnContext(ctx, "skipping invalid mark", "source", src.Name, "key", m.Key, "error", err)
				res.Skipped++
				continue
			}
			res.Err = fmt.Errorf("store mark %s: %w", m.Key, err)
			return res
		}
		res.Created++
	}

	slog.InfoContext(ctx, "source done", "source", src.Name, "created", res.Created, "skipped", res.Skipped)
	return res
}

func (imp *Importer) load(ctx context.Context, src Source) ([]domain.Mark, error) {
	switch {
	case src.URL != "" && src.File != "":
		return nil, fmt.Errorf("source %q: url and file are mutually exclusive", src.Name)
	case src.URL != "":
		var opts []markapi.Option
		if imp.Timeout > 0 {
			opts = append(opts, markapi.WithTimeout(imp.Timeout))
		}
		return markapi.NewClient(src.URL, opts...).FetchMarks(ctx)
	case src.File != "":
		body, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src.File, err)
		}
		marks, err := markwire.DecodeList(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, src.File, err)
		}
		return marks, nil
	default:
		return nil, fmt.Errorf("source %q: no url or file", src.Name)
	}
}

// claim reports whether m is new and reserves it for this run.
func (imp *Importer) claim(m domain.Mark) bool {
	id := markIdentity{m.Coordinate, m.Message}
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.seen[id] {
		return false
	}
	imp.seen[id] = true
	return true
}
