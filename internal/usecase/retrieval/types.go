// Package retrieval implements the hybrid retrieval stages that assemble
// question-answering context: exact title matching, chunk-level vector
// search, paper-level fallback, and the final ordered merge.
package retrieval

import (
	"time"

	"paperpulse/internal/domain"
)

// Config holds the retrieval stage parameters.
type Config struct {
	TitleMatchKeep  int
	ChunkCandidates int
	ChunkKeep       int
	PaperCandidates int
	PaperKeep       int
	RerankTimeout   time.Duration
}

// DefaultConfig returns the standard stage budgets.
func DefaultConfig() Config {
	return Config{
		TitleMatchKeep:  3,
		ChunkCandidates: 40,
		ChunkKeep:       20,
		PaperCandidates: 50,
		PaperKeep:       25,
		RerankTimeout:   20 * time.Second,
	}
}

// StageContext carries data between retrieval stages for one question.
// Each request gets its own instance; stages share nothing across
// requests.
type StageContext struct {
	// Input
	RetrievalID       string
	UserID            string
	Question          string
	QuestionEmbedding []float32 // empty when embedding failed; vector stages skip

	// Stage outputs
	TitleMatches []domain.ContextEntry
	ChunkEntries []domain.ContextEntry
	PaperEntries []domain.ContextEntry

	// Final output
	Merged []domain.ContextEntry
}
