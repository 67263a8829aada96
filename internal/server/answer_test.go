package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avielr/paperqa/internal/pipeline"
)

// fakeAnswerer returns a canned answer or error and records the call.
type fakeAnswerer struct {
	answer *pipeline.Answer
	err    error

	gotQuery string
	gotTopK  int
	gotDebug bool
}

func (f *fakeAnswerer) Answer(_ context.Context, query string, topK int, debug bool) (*pipeline.Answer, error) {
	f.gotQuery, f.gotTopK, f.gotDebug = query, topK, debug
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

// newTestServer builds a Server over the fake with a hermetic registry and
// a rate limit high enough to stay out of the way.
func newTestServer(t *testing.T, f *fakeAnswerer, apiKey string) *Server {
	t.Helper()
	s, err := New(f, &Config{
		APIKey:    apiKey,
		RateLimit: 1000,
		RateBurst: 1000,
		Registry:  prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func postAnswer(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/answer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func Test_HandleAnswer_OK(t *testing.T) {
	t.Parallel()

	f := &fakeAnswerer{answer: &pipeline.Answer{
		Text:      "RAG retrieves before generating [1].",
		Citations: []pipeline.Citation{{Marker: 1, ID: "d1", Title: "T", URL: "https://example.org/d1"}},
		Invalid:   []int{},
		Grounded:  true,
	}}
	s := newTestServer(t, f, "")

	rec := postAnswer(t, s, `{"query":"What is RAG?","top_k":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp answerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != f.answer.Text {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].ID != "d1" {
		t.Errorf("citations = %+v", resp.Citations)
	}
	if !resp.Grounded {
		t.Error("grounded = false")
	}
	if resp.Context != nil || resp.Trace != nil {
		t.Error("debug fields present without debug=true")
	}
	if f.gotQuery != "What is RAG?" || f.gotTopK != 5 || f.gotDebug {
		t.Errorf("pipeline called with %q/%d/%v", f.gotQuery, f.gotTopK, f.gotDebug)
	}
}

func Test_HandleAnswer_DebugIncludesContextAndTrace(t *testing.T) {
	t.Parallel()

	f := &fakeAnswerer{answer: &pipeline.Answer{
		Text:      "Answer [1].",
		Citations: []pipeline.Citation{{Marker: 1, ID: "d1"}},
		Grounded:  true,
		Context: &pipeline.ContextBlock{Entries: []pipeline.ContextEntry{
			{Marker: 1, Excerpt: "Excerpt."},
		}},
		Trace: &pipeline.Trace{TopK: 5, Scorer: "lexical", RawAnswer: "Answer [1]."},
	}}
	s := newTestServer(t, f, "")

	rec := postAnswer(t, s, `{"query":"q","debug":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp answerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Context) != 1 || resp.Context[0].Marker != 1 {
		t.Errorf("context = %+v", resp.Context)
	}
	if resp.Trace == nil || resp.Trace.Scorer != "lexical" {
		t.Errorf("trace = %+v", resp.Trace)
	}
}

func Test_HandleAnswer_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query":""}`},
		{"whitespace query", `{"query":"   "}`},
		{"malformed JSON", `{"query":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, &fakeAnswerer{answer: &pipeline.Answer{}}, "")
			rec := postAnswer(t, s, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body not structured JSON: %v", err)
			}
			if body.Error.Kind != "invalid_request" {
				t.Errorf("kind = %q", body.Error.Kind)
			}
		})
	}
}

func Test_HandleAnswer_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "generation failure is a bad gateway",
			err:        &pipeline.StageError{Kind: pipeline.KindGeneration, Err: errors.New("model down")},
			wantStatus: http.StatusBadGateway,
			wantKind:   "generation_error",
		},
		{
			name:       "embedding failure is service unavailable",
			err:        &pipeline.StageError{Kind: pipeline.KindEmbedding, Err: errors.New("embedder down")},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "embedding_error",
		},
		{
			name:       "retrieval failure is service unavailable",
			err:        &pipeline.StageError{Kind: pipeline.KindRetrieval, Err: errors.New("qdrant down")},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "retrieval_error",
		},
		{
			name:       "unclassified failure is internal",
			err:        errors.New("surprise"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, &fakeAnswerer{err: tt.err}, "")
			rec := postAnswer(t, s, `{"query":"q"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body not structured JSON: %v", err)
			}
			if body.Error.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", body.Error.Kind, tt.wantKind)
			}
			if body.Error.Message == "" {
				t.Error("message is empty")
			}
			// Internal detail stays out of the response.
			if strings.Contains(body.Error.Message, "down") || strings.Contains(body.Error.Message, "surprise") {
				t.Errorf("message leaks internals: %q", body.Error.Message)
			}
		})
	}
}

func Test_HandleHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnswerer{answer: &pipeline.Answer{}}, "")
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
