package domain

import "context"

// Embedder generates fixed-dimensionality embeddings. EmbedBatch preserves
// input order in its result even if the backing service reorders
// internally.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Model() string
}
