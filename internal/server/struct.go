package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avielr/paperqa/internal/pipeline"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Must
	// exceed the generation timeout or slow answers get cut off mid-write.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 5 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 10 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil a private
	// registry is created; tests pass a fresh one to stay hermetic.
	Registry *prometheus.Registry
}

// answerer is the interface handleAnswer calls to run one query.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, query string, topK int, debug bool) (*pipeline.Answer, error)
}

// Server is the HTTP server that exposes the answer pipeline.
type Server struct {
	// answerer runs one query through the pipeline.
	answerer answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// answerRequest is the JSON body for POST /api/answer.
type answerRequest struct {
	// Query is the user's natural language question.
	Query string `json:"query"`
	// TopK is the candidate count; zero means the server default, and
	// out-of-range values are clamped.
	TopK int `json:"top_k"`
	// Debug requests the assembled context and score trace in the response.
	Debug bool `json:"debug"`
}

// answerResponse is the JSON response for POST /api/answer.
type answerResponse struct {
	// Answer is the validated answer text.
	Answer string `json:"answer"`
	// Citations lists the context documents the answer cites.
	Citations []pipeline.Citation `json:"citations"`
	// Grounded is false when the answer cited nothing over a non-empty context.
	Grounded bool `json:"grounded"`
	// InvalidCitations lists markers the model emitted that resolve to nothing.
	InvalidCitations []int `json:"invalid_citations,omitempty"`
	// Context is the assembled context; debug only.
	Context []contextEntry `json:"context,omitempty"`
	// Trace holds intermediate scores and raw output; debug only.
	Trace *pipeline.Trace `json:"trace,omitempty"`
}

// contextEntry is one context document in a debug response.
type contextEntry struct {
	Marker  int    `json:"marker"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// errorBody is the structured error payload: failures always surface as
// {"error": {"kind": ..., "message": ...}}, never a raw stack trace.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
