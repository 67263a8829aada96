package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/avielr/paperqa/internal/logging"
)

// probeTimeout bounds each dependency probe during a readiness check. A
// local model that takes longer than this to answer a one-word prompt is
// not ready to serve answers anyway.
const probeTimeout = 5 * time.Second

// Pinger is a dependency that can report its own reachability: the Qdrant
// index, the embedding backend, the generation backend. Implementations
// return nil when healthy and must be safe for concurrent use.
type Pinger interface {
	// Ping checks the dependency within the given context.
	Ping(ctx context.Context) error

	// Name labels the dependency in readiness responses (e.g. "qdrant").
	Name() string
}

// dependencyStatus is one probe result in the readiness response.
type dependencyStatus struct {
	// Name is the dependency label.
	Name string `json:"name"`
	// Healthy is true when the probe succeeded.
	Healthy bool `json:"healthy"`
	// Detail carries the failure reason when Healthy is false.
	Detail string `json:"detail,omitempty"`
}

// readyResponse is the JSON body returned by GET /api/ready.
type readyResponse struct {
	// Ready is true only when every dependency probe succeeded.
	Ready bool `json:"ready"`
	// Dependencies holds the per-dependency probe results.
	Dependencies []dependencyStatus `json:"dependencies"`
}

// handleReady handles GET /api/ready. It probes every registered dependency
// and returns 200 when all are reachable, 503 otherwise. Unlike /api/health
// (liveness), this reflects whether an answer request could actually
// succeed right now.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	deps, allHealthy := s.probeDependencies(r.Context(), log)

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(readyResponse{Ready: allHealthy, Dependencies: deps}); err != nil {
		log.Error("ready encode error", slog.Any("error", err))
	}
}

// probeDependencies runs every pinger with its own timeout and reports the
// per-dependency results plus the combined verdict. A failing dependency
// does not stop the remaining probes, so operators get the full picture in
// one call.
func (s *Server) probeDependencies(ctx context.Context, log *slog.Logger) ([]dependencyStatus, bool) {
	deps := make([]dependencyStatus, 0, len(s.pingers))
	allHealthy := true

	for _, p := range s.pingers {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.Ping(probeCtx)
		cancel()

		st := dependencyStatus{Name: p.Name(), Healthy: err == nil}
		if err != nil {
			st.Detail = err.Error()
			allHealthy = false
			log.Warn("readiness probe failed",
				slog.String("dependency", p.Name()),
				slog.Any("error", err),
			)
		}
		deps = append(deps, st)
	}

	return deps, allHealthy
}
