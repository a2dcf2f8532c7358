package domain

import "context"

// RerankCandidate is one document offered for cross-encoder scoring.
type RerankCandidate struct {
	ID      string
	Content string
}

// RerankResult carries a candidate's relevance score, sorted descending by
// the reranker.
type RerankResult struct {
	ID    string
	Score float32
}

// Reranker scores candidates against a query with a cross-encoder model.
// On error, callers must fall back to original input order truncated to
// topN; a missing or failing reranker never fails a request.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate, topN int) ([]RerankResult, error)
	ModelName() string
}
