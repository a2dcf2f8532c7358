package domain

import "context"

// CitationLinks holds the canonical IDs a paper cites (references) and
// the IDs of papers citing it back.
type CitationLinks struct {
	References []string
	Citations  []string
}

// Empty reports whether the lookup found no edges in either direction.
func (l CitationLinks) Empty() bool {
	return len(l.References) == 0 && len(l.Citations) == 0
}

// RelatedPaper is one graph-traversal neighbor of a paper, scored by how
// many signals (shared concepts, citation hops, co-authors) connect them.
type RelatedPaper struct {
	PaperID   string
	Title     string
	URL       string
	Source    string
	Relevance int64
}

// CitationFetcher resolves a paper's citation edges from an external
// catalog, best-effort. Papers the catalog cannot map return empty links.
type CitationFetcher interface {
	FetchCitations(ctx context.Context, paper Paper) (CitationLinks, error)
}

// GraphStore is the citation/concept graph collaborator. It is an
// enrichment-only, non-fatal dependency: any failure yields empty output
// and never blocks ingestion or retrieval.
type GraphStore interface {
	// UpsertPapers mirrors enriched papers (with authors) into the graph.
	UpsertPapers(ctx context.Context, papers []Paper) error

	// UpsertConcepts links LLM-extracted concepts to a paper node.
	UpsertConcepts(ctx context.Context, paperID string, concepts []string) error

	// UpsertCitations records CITES edges in both directions for a paper.
	UpsertCitations(ctx context.Context, paperID string, links CitationLinks) error

	// RelatedPapers traverses shared concepts, citation neighbors and
	// co-authors to find papers related to the given one.
	RelatedPapers(ctx context.Context, paperID string, limit int) ([]RelatedPaper, error)

	// ContextForPapers returns contextual text (shared concepts, citation
	// links) for a set of paper IDs, or "" when unavailable.
	ContextForPapers(ctx context.Context, paperIDs []string) (string, error)

	Close(ctx context.Context) error
}

// FullTextExtractor retrieves a paper's full text from a retrievable
// document, best-effort. A failed extraction returns "", nil.
type FullTextExtractor interface {
	Extract(ctx context.Context, paper CandidatePaper) (string, error)
}
