// Package cohere implements domain.Reranker against the Cohere rerank API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"paperpulse/internal/domain"
)

// Reranker scores candidates with a Cohere cross-encoder model.
type Reranker struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

func NewReranker(baseURL, apiKey, model string, client *http.Client, logger *slog.Logger) *Reranker {
	if baseURL == "" {
		baseURL = "https://api.cohere.com"
	}
	if model == "" {
		model = "rerank-v3.5"
	}
	return &Reranker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Client:  client,
		logger:  logger,
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float32 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores candidates against the query. Results come back sorted by
// score descending and truncated to topN.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate, topN int) ([]domain.RerankResult, error) {
	if len(candidates) == 0 {
		return []domain.RerankResult{}, nil
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	start := time.Now()
	r.logger.Info("reranking_started",
		slog.String("query", truncate(query, 100)),
		slog.Int("candidate_count", len(candidates)),
		slog.Int("top_n", topN),
		slog.String("model", r.Model))

	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = cand.Content
	}

	jsonData, err := json.Marshal(rerankRequest{
		Model:     r.Model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v2/rerank", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.APIKey)

	resp, err := r.Client.Do(req)
	if err != nil {
		r.logger.Warn("reranking_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("failed to call rerank endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Warn("reranking_failed",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", truncate(string(body), 500)),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("rerank endpoint returned %d", resp.StatusCode)
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	results := make([]domain.RerankResult, len(rerankResp.Results))
	for i, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			return nil, fmt.Errorf("invalid result index %d for %d candidates", res.Index, len(candidates))
		}
		results[i] = domain.RerankResult{
			ID:    candidates[res.Index].ID,
			Score: res.RelevanceScore,
		}
	}

	r.logger.Info("reranking_completed",
		slog.Int("result_count", len(results)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return results, nil
}

func (r *Reranker) ModelName() string {
	return r.Model
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ domain.Reranker = (*Reranker)(nil)
