package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avielr/paperqa/internal/pipeline"
)

// fakePinger reports a fixed result under a fixed name.
type fakePinger struct {
	name string
	err  error
}

func (p *fakePinger) Name() string                 { return p.name }
func (p *fakePinger) Ping(_ context.Context) error { return p.err }

func newReadyServer(t *testing.T, pingers ...Pinger) *Server {
	t.Helper()
	s, err := New(&fakeAnswerer{answer: &pipeline.Answer{}}, &Config{
		Pingers:  pingers,
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func getReady(t *testing.T, s *Server) (*httptest.ResponseRecorder, readyResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode ready response: %v", err)
	}
	return rec, resp
}

func Test_HandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newReadyServer(t,
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "ollama"},
	)

	rec, resp := getReady(t, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !resp.Ready {
		t.Error("ready = false")
	}
	if len(resp.Dependencies) != 2 {
		t.Fatalf("dependencies = %d, want 2", len(resp.Dependencies))
	}
	for _, d := range resp.Dependencies {
		if !d.Healthy || d.Detail != "" {
			t.Errorf("dependency %q: healthy=%v detail=%q", d.Name, d.Healthy, d.Detail)
		}
	}
}

func Test_HandleReady_FailingDependency(t *testing.T) {
	t.Parallel()

	s := newReadyServer(t,
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "ollama", err: errors.New("connection refused")},
	)

	rec, resp := getReady(t, s)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp.Ready {
		t.Error("ready = true with a failing dependency")
	}

	var failed *dependencyStatus
	for i := range resp.Dependencies {
		if resp.Dependencies[i].Name == "ollama" {
			failed = &resp.Dependencies[i]
		}
	}
	if failed == nil {
		t.Fatal("no status for failing dependency")
	}
	if failed.Healthy || failed.Detail == "" {
		t.Errorf("failing dependency = %+v", failed)
	}
	// The healthy dependency is still probed and reported.
	if !resp.Dependencies[0].Healthy {
		t.Errorf("healthy dependency = %+v", resp.Dependencies[0])
	}
}

func Test_HandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newReadyServer(t)

	rec, resp := getReady(t, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !resp.Ready {
		t.Error("ready = false with no dependencies")
	}
}
