package domain

import "context"

// FetchRequest describes one provider query on behalf of one user.
type FetchRequest struct {
	Domains       []string
	MaxResults    int
	SearchQueries []string // optional optimized queries; empty means broad recency fetch
	CategoryHints []string // optional provider-specific category codes (e.g. arXiv cs.LG)
}

// SourceProvider adapts one external paper catalog. Implementations map
// domain tags to their own taxonomy, enforce their own rate limit and
// retry transient failures internally. A failing provider returns an
// error; orchestrators degrade it to an empty contribution.
type SourceProvider interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) ([]CandidatePaper, error)
}
