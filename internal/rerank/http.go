package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPScorer calls a cross-encoder rerank service over HTTP. The wire format
// is the one shared by Text-Embeddings-Inference, Jina and Cohere-style
// servers: POST /rerank with the query and document list, response carries
// (index, relevance_score) pairs. It is safe for concurrent use.
type HTTPScorer struct {
	// endpoint is the service base URL (e.g. "http://localhost:8787").
	endpoint string
	// model is the rerank model name sent with each request.
	model string
	// apiKey is the optional Bearer token.
	apiKey string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// HTTPConfig holds the settings for constructing an HTTPScorer.
type HTTPConfig struct {
	// Endpoint is the rerank service base URL.
	Endpoint string
	// Model is the rerank model name (e.g. "bge-reranker-base").
	Model string
	// APIKey is an optional Bearer token.
	APIKey string
	// Timeout bounds each rerank request. Defaults to 30s if zero.
	Timeout time.Duration
}

// NewHTTPScorer constructs an HTTPScorer from the given config.
func NewHTTPScorer(cfg *HTTPConfig) *HTTPScorer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPScorer{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name identifies the scorer in logs and debug traces.
func (s *HTTPScorer) Name() string { return "cross-encoder:" + s.model }

// rerankRequest is the JSON body sent to the /rerank endpoint.
type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

// rerankResponse is the JSON body returned from the /rerank endpoint.
type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

// Score sends the query and all candidate texts to the rerank service in a
// single request and returns the scores re-ordered to match the input.
func (s *HTTPScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(rerankRequest{Model: s.model, Query: query, Documents: texts})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("rerank: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return nil, fmt.Errorf("rerank: %s", msg)
	}

	if len(result.Results) != len(texts) {
		return nil, fmt.Errorf("rerank: expected %d scores, got %d", len(texts), len(result.Results))
	}

	// The service returns results sorted by score; place back by index.
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range result.Results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("rerank: index %d out of range [0, %d)", r.Index, len(texts))
		}
		if seen[r.Index] {
			return nil, fmt.Errorf("rerank: duplicate index %d in response", r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.RelevanceScore
	}

	return scores, nil
}
