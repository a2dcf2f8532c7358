package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// CandidatePaper is a normalized paper as returned by a source provider,
// before enrichment. Immutable once created.
type CandidatePaper struct {
	CanonicalID   string
	Title         string
	Authors       []string
	PublishedDate time.Time
	Abstract      string
	URL           string
	Source        string
	DOI           string
}

// Paper is a persisted, enriched paper. Created exactly once per canonical
// ID by the enrichment stage; read-only afterwards except for full-text
// backfill.
type Paper struct {
	CanonicalID   string
	Title         string
	Authors       []string
	PublishedDate time.Time
	Abstract      string
	Summary       string
	URL           string
	Source        string
	DOI           string
	FullText      string
	Embedding     pgvector.Vector
	CreatedAt     time.Time
}

// PaperChunk is a token-bounded passage of a paper's full text, embedded
// independently for sub-document retrieval.
type PaperChunk struct {
	PaperID    string
	ChunkIndex int
	ChunkText  string
	Embedding  pgvector.Vector
	CreatedAt  time.Time
}

// FeedItem links a ranked paper to a user's feed. Unique per
// (user_id, paper_id); inserts are idempotent.
type FeedItem struct {
	ID             uuid.UUID
	UserID         string
	PaperID        string
	RelevanceScore float64
	IsSaved        bool
	CreatedAt      time.Time
}

// QueryProfile is a user's cached set of optimized search terms, generated
// once at onboarding and reused by every pipeline run until refreshed.
type QueryProfile struct {
	SearchQueries   []string `json:"search_queries"`
	Keywords        []string `json:"keywords"`
	ArxivCategories []string `json:"arxiv_categories"`
}

// IsEmpty reports whether the profile carries no usable search queries.
func (p *QueryProfile) IsEmpty() bool {
	return p == nil || len(p.SearchQueries) == 0
}

// RerankQuery joins the profile's search queries into the single query
// string used for relevance ranking. Falls back to the given interest text.
func (p *QueryProfile) RerankQuery(interestText string) string {
	if p.IsEmpty() {
		if interestText != "" {
			return interestText
		}
		return "recent research"
	}
	query := ""
	for i, q := range p.SearchQueries {
		if i > 0 {
			query += " "
		}
		query += q
	}
	return query
}

// User is a registered user with their research interests.
type User struct {
	ID           string
	Email        string
	Domains      []string
	InterestText string
	Profile      *QueryProfile
	CreatedAt    time.Time
}

// ContextEntry is one paper's contribution to a retrieval context.
type ContextEntry struct {
	PaperID   string
	Title     string
	Abstract  string
	Summary   string
	URL       string
	Text      string // assembled text: full text, chunk concatenation, or abstract
	Score     float32
	FromTitle bool // matched by the title pass rather than vector search
}

// RetrievalContext is the transient, ordered, deduplicated set of context
// entries assembled for a single question. Never persisted.
type RetrievalContext struct {
	Entries      []ContextEntry
	GraphContext string
}
