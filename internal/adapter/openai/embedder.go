// Package openai adapts the OpenAI REST API to the domain's Embedder and
// CompletionClient interfaces.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Embedder generates embeddings via the OpenAI embeddings endpoint.
type Embedder struct {
	BaseURL    string
	APIKey     string
	model      string
	Dimensions int
	Client     *http.Client
	logger     *slog.Logger
}

func NewEmbedder(baseURL, apiKey, model string, dimensions int, client *http.Client, logger *slog.Logger) *Embedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-large"
	}
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &Embedder{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		model:      model,
		Dimensions: dimensions,
		Client:     client,
		logger:     logger,
	}
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds texts in one call. The API may return vectors out of
// order; results are restored to input order by index before returning.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	e.logger.Info("embed_batch_started",
		slog.Int("text_count", len(texts)),
		slog.String("model", e.model))

	clean := make([]string, len(texts))
	for i, t := range texts {
		clean[i] = strings.ReplaceAll(t, "\n", " ")
	}

	reqBody := embedRequest{
		Model:      e.model,
		Input:      clean,
		Dimensions: e.Dimensions,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		e.logger.Error("embed_batch_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("failed to call embeddings endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		e.logger.Error("embed_batch_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(respBody.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(respBody.Data))
	}

	sort.Slice(respBody.Data, func(i, j int) bool {
		return respBody.Data[i].Index < respBody.Data[j].Index
	})
	vectors := make([][]float32, len(respBody.Data))
	for i, d := range respBody.Data {
		vectors[i] = d.Embedding
	}

	e.logger.Info("embed_batch_completed",
		slog.Int("embedding_count", len(vectors)),
		slog.Duration("elapsed", time.Since(start)))
	return vectors, nil
}

func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) Model() string {
	return e.model
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
