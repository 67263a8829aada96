package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avielr/paperqa/internal/pipeline"
)

func Test_RateLimit_BurstExhaustion(t *testing.T) {
	t.Parallel()

	s, err := New(&fakeAnswerer{answer: &pipeline.Answer{Text: "ok"}}, &Config{
		RateLimit: 1,
		RateBurst: 2,
		Registry:  prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/answer", strings.NewReader(`{"query":"q"}`))
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	// Burst of 2 allowed, third request in the same instant is rejected.
	for i := 0; i < 2; i++ {
		if rec := send(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func Test_RateLimit_PerIPIsolation(t *testing.T) {
	t.Parallel()

	s, err := New(&fakeAnswerer{answer: &pipeline.Answer{Text: "ok"}}, &Config{
		RateLimit: 1,
		RateBurst: 1,
		Registry:  prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/answer", strings.NewReader(`{"query":"q"}`))
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1000"); code != http.StatusOK {
		t.Fatalf("first IP: status = %d, want 200", code)
	}
	if code := send("10.0.0.1:1001"); code != http.StatusTooManyRequests {
		t.Fatalf("first IP second request: status = %d, want 429", code)
	}
	// A different IP has its own bucket.
	if code := send("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("second IP: status = %d, want 200", code)
	}
}

func Test_ClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want string
	}{
		{"10.0.0.1:8080", "10.0.0.1"},
		{"[::1]:8080", "[::1]"},
		{"noport", "noport"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.addr
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
