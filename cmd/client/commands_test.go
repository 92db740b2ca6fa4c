package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

type hit struct {
	method, path, body string
}

// markServer is a minimal mark service keeping marks in wire form.
type markServer struct {
	mu     sync.Mutex
	hits   []hit
	marks  []map[string]string
	failGE bool
}

func (s *markServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, hit{r.Method, r.URL.Path, string(body)})

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/marks/":
		if s.failGE {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": s.marks})
	case r.Method == http.MethodPost && r.URL.Path == "/api/mark/":
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		req["key"] = "k" + string(rune('0'+len(s.marks)))
		s.marks = append(s.marks, req)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": req})
	default:
		http.NotFound(w, r)
	}
}

func (s *markServer) recorded() []hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]hit(nil), s.hits...)
}

func runClient(t *testing.T, srv *markServer, args ...string) (stateView, error) {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Setenv("PINMAP_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--base-url", ts.URL, "--compact"}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	runErr := root.Execute()

	var view stateView
	if out.Len() > 0 {
		if err := json.Unmarshal(out.Bytes(), &view); err != nil {
			t.Fatalf("output is not a screen state: %v\n%s", err, out.String())
		}
	}
	return view, runErr
}

func TestMarks_MountFetchesOnce(t *testing.T) {
	srv := &markServer{marks: []map[string]string{
		{"key": "a", "coordinate": `{"latitude":37.79,"longitude":-122.43}`, "message": "near"},
		{"key": "b", "coordinate": `{"latitude":1,"longitude":2}`, "message": "far"},
	}}

	view, err := runClient(t, srv, "marks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits := srv.recorded(); len(hits) != 1 {
		t.Errorf("expected a single GET, got %+v", hits)
	}
	if view.Region.Latitude != 37.78825 || view.Region.Longitude != -122.4324 {
		t.Errorf("expected region at the configured position, got %+v", view.Region)
	}
	if len(view.Marks) != 2 {
		t.Fatalf("expected 2 marks, got %d", len(view.Marks))
	}
	if len(view.Visible) != 1 || view.Visible[0].Key != "a" {
		t.Errorf("expected only the nearby mark visible, got %+v", view.Visible)
	}
}

func TestAdd_PostThenRefetch(t *testing.T) {
	srv := &markServer{}

	view, err := runClient(t, srv, "add", "1", "2", "note")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits := srv.recorded()
	if len(hits) != 3 {
		t.Fatalf("expected mount GET, POST, GET; got %+v", hits)
	}
	post := hits[1]
	if post.method != http.MethodPost || post.path != "/api/mark/" {
		t.Fatalf("second request: %+v", post)
	}
	want := `{"coordinate":"{\"latitude\":1,\"longitude\":2}","message":"note"}`
	if post.body != want {
		t.Errorf("body:\n got %s\nwant %s", post.body, want)
	}
	if hits[2].method != http.MethodGet || hits[2].path != "/api/marks/" {
		t.Errorf("third request: %+v", hits[2])
	}

	if view.DialogOpen || view.Pending != nil {
		t.Error("dialog must be closed after submit")
	}
	if len(view.Marks) != 1 || view.Marks[0].Coordinate != (domain.Coordinate{Latitude: 1, Longitude: 2}) {
		t.Errorf("unexpected marks: %+v", view.Marks)
	}
}

func TestAdd_MultiWordMessage(t *testing.T) {
	srv := &markServer{}

	if _, err := runClient(t, srv, "add", "1", "2", "best", "pintxos", "here"); err != nil {
		t.Fatal(err)
	}
	hits := srv.recorded()
	want := `{"coordinate":"{\"latitude\":1,\"longitude\":2}","message":"best pintxos here"}`
	if len(hits) < 2 || hits[1].body != want {
		t.Errorf("unexpected requests: %+v", hits)
	}
}

func TestAdd_BadCoordinate(t *testing.T) {
	srv := &markServer{}

	if _, err := runClient(t, srv, "add", "north", "2", "x"); err == nil {
		t.Fatal("expected error")
	}
	if hits := srv.recorded(); len(hits) != 0 {
		t.Errorf("expected no requests, got %+v", hits)
	}
}

func TestMarks_PermissionDenied(t *testing.T) {
	t.Setenv("PINMAP_GEOLOCATION_PERMISSION", "false")
	srv := &markServer{}

	view, err := runClient(t, srv, "marks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ErrorMessage != domain.MsgPermissionDenied {
		t.Errorf("error message: got %q", view.ErrorMessage)
	}
	if hits := srv.recorded(); len(hits) != 1 {
		t.Errorf("expected the marks command to fetch once, got %+v", hits)
	}
}

func TestMarks_Emulator(t *testing.T) {
	t.Setenv("PINMAP_GEOLOCATION_EMULATOR", "true")
	srv := &markServer{}

	view, err := runClient(t, srv, "marks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ErrorMessage != domain.MsgPlatformUnsupported {
		t.Errorf("error message: got %q", view.ErrorMessage)
	}
}

func TestMarks_ServerErrorStillPrintsState(t *testing.T) {
	srv := &markServer{failGE: true}

	view, err := runClient(t, srv, "marks")
	if err == nil {
		t.Fatal("expected error from a failing service")
	}
	if len(view.Marks) != 0 || view.Region.LatitudeDelta == 0 {
		t.Errorf("expected an empty but valid screen, got %+v", view)
	}
	if hits := srv.recorded(); len(hits) != 1 {
		t.Errorf("expected no retry, got %+v", hits)
	}
}

func TestZoom_ClampsAtMinimum(t *testing.T) {
	srv := &markServer{}

	view, err := runClient(t, srv, "zoom", "in", "5")
	if err != nil {
		t.Fatal(err)
	}
	// 0.0922 - 3*0.03; a fourth step would go negative
	if math.Abs(view.Region.LatitudeDelta-0.0022) > 1e-9 {
		t.Errorf("latitudeDelta: got %v", view.Region.LatitudeDelta)
	}
	aspect := 1080.0 / 1920.0
	if math.Abs(view.Region.LongitudeDelta-view.Region.LatitudeDelta*aspect) > 1e-12 {
		t.Errorf("longitudeDelta %v does not follow aspect", view.Region.LongitudeDelta)
	}
}

func TestZoom_BadArgs(t *testing.T) {
	for _, args := range [][]string{
		{"zoom", "sideways"},
		{"zoom", "in", "0"},
		{"zoom", "out", "many"},
	} {
		if _, err := runClient(t, &markServer{}, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}
