package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avielr/paperqa/internal/logging"
	"github.com/avielr/paperqa/internal/pipeline"
)

// handleAnswer handles POST /api/answer: validate, run the pipeline, and
// render either the answer or a structured error body.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query must not be empty")
		return
	}

	s.metrics.answerActiveGenerations.Inc()
	start := time.Now()
	ans, err := s.answerer.Answer(r.Context(), req.Query, req.TopK, req.Debug)
	elapsed := time.Since(start)
	s.metrics.answerActiveGenerations.Dec()

	if err != nil {
		kind, status := classify(err)
		s.metrics.observeAnswer(string(kind), elapsed)
		log.Error("answer failed",
			slog.String("kind", string(kind)),
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)
		writeError(w, status, string(kind), publicMessage(kind))
		return
	}

	s.metrics.observeAnswer("ok", elapsed)
	log.Info("answer completed",
		slog.Int("citations", len(ans.Citations)),
		slog.Bool("grounded", ans.Grounded),
		slog.Duration("duration", elapsed),
	)

	resp := answerResponse{
		Answer:           ans.Text,
		Citations:        ans.Citations,
		Grounded:         ans.Grounded,
		InvalidCitations: ans.Invalid,
	}
	if req.Debug {
		resp.Trace = ans.Trace
		if ans.Context != nil {
			resp.Context = make([]contextEntry, len(ans.Context.Entries))
			for i, e := range ans.Context.Entries {
				resp.Context[i] = contextEntry{
					Marker:  e.Marker,
					ID:      e.Document.ID,
					Title:   e.Document.Title,
					Excerpt: e.Excerpt,
				}
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("answer encode error", slog.Any("error", err))
	}
}

// classify maps a pipeline error to its kind label and HTTP status.
// Generation failures are the backend's fault, hence 502; upstream stage
// failures read as the service being degraded, hence 503.
func classify(err error) (pipeline.Kind, int) {
	kind := pipeline.KindOf(err)
	switch kind {
	case pipeline.KindGeneration:
		return kind, http.StatusBadGateway
	case pipeline.KindEmbedding, pipeline.KindRetrieval, pipeline.KindRerank:
		return kind, http.StatusServiceUnavailable
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

// publicMessage is the human-readable error text sent to clients. Internal
// error detail stays in the logs.
func publicMessage(kind pipeline.Kind) string {
	switch kind {
	case pipeline.KindEmbedding:
		return "the embedding backend failed to process the query"
	case pipeline.KindRetrieval:
		return "the document index is unavailable"
	case pipeline.KindRerank:
		return "the rerank scoring model is unavailable"
	case pipeline.KindGeneration:
		return "the language model failed to produce an answer"
	default:
		return "internal error"
	}
}

// writeError renders the structured error body with the given status.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Kind: kind, Message: message}})
}
