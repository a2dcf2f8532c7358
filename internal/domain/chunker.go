package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultChunkSizeTokens is the target token budget per chunk.
	DefaultChunkSizeTokens = 512
	// DefaultChunkOverlapTokens is the trailing overlap carried into the
	// next chunk.
	DefaultChunkOverlapTokens = 50
	// DefaultMinChunkTokens is the floor below which chunks are discarded.
	DefaultMinChunkTokens = 50
)

// Chunker splits a paper's full text into overlapping, token-bounded
// passages ready for embedding.
type Chunker interface {
	Chunk(fullText, paperID, title string) []PaperChunk
}

// ChunkerConfig tunes the chunking budgets. Zero values fall back to the
// defaults; a negative overlap disables overlapping entirely.
type ChunkerConfig struct {
	ChunkSizeTokens    int
	ChunkOverlapTokens int
	MinChunkTokens     int
}

type tokenChunker struct {
	counter   TokenCounter
	chunkSize int
	overlap   int
	minTokens int
}

// NewChunker creates the default token-aware Chunker.
func NewChunker(counter TokenCounter, cfg ChunkerConfig) Chunker {
	c := &tokenChunker{
		counter:   counter,
		chunkSize: cfg.ChunkSizeTokens,
		overlap:   cfg.ChunkOverlapTokens,
		minTokens: cfg.MinChunkTokens,
	}
	if c.chunkSize <= 0 {
		c.chunkSize = DefaultChunkSizeTokens
	}
	switch {
	case c.overlap == 0:
		c.overlap = DefaultChunkOverlapTokens
	case c.overlap < 0:
		c.overlap = 0
	}
	if c.minTokens <= 0 {
		c.minTokens = DefaultMinChunkTokens
	}
	return c
}

var paragraphSplit = regexp.MustCompile(`\n\n+`)

// Chunk splits fullText on paragraph boundaries, greedily accumulates
// paragraphs up to the token budget, and seeds each new chunk with a
// trailing overlap from the previous one. Each chunk's text is prefixed
// with the paper title for embedding context. Returns nil when the source
// text is below the minimum floor.
func (c *tokenChunker) Chunk(fullText, paperID, title string) []PaperChunk {
	if fullText == "" || c.counter.Count(fullText) < c.minTokens {
		return nil
	}

	paragraphs := c.splitIntoParagraphs(fullText)
	raw := c.mergeIntoChunks(paragraphs)

	var kept []string
	for _, text := range raw {
		if c.counter.Count(text) >= c.minTokens {
			kept = append(kept, text)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	titlePrefix := ""
	if title != "" {
		titlePrefix = fmt.Sprintf("[%s] ", title)
	}

	chunks := make([]PaperChunk, 0, len(kept))
	for idx, text := range kept {
		chunks = append(chunks, PaperChunk{
			PaperID:    paperID,
			ChunkIndex: idx,
			ChunkText:  titlePrefix + text,
		})
	}
	return chunks
}

// splitIntoParagraphs splits on double newlines; paragraphs over twice the
// chunk budget are further split on single newlines.
func (c *tokenChunker) splitIntoParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var result []string
	for _, para := range paragraphSplit.Split(normalized, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if c.counter.Count(para) > c.chunkSize*2 {
			for _, line := range strings.Split(para, "\n") {
				line = strings.TrimSpace(line)
				if line != "" {
					result = append(result, line)
				}
			}
		} else {
			result = append(result, para)
		}
	}
	return result
}

func (c *tokenChunker) mergeIntoChunks(paragraphs []string) []string {
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var parts []string
	tokens := 0

	flush := func(sep string) {
		chunks = append(chunks, strings.Join(parts, sep))
		parts = c.overlapParts(parts)
		tokens = 0
		for _, p := range parts {
			tokens += c.counter.Count(p)
		}
	}

	for _, para := range paragraphs {
		paraTokens := c.counter.Count(para)

		// A single paragraph over the budget is force-split by sentence.
		if paraTokens > c.chunkSize {
			if len(parts) > 0 {
				flush("\n\n")
			}
			for _, sent := range splitSentences(para) {
				sentTokens := c.counter.Count(sent)
				if tokens+sentTokens > c.chunkSize && len(parts) > 0 {
					flush(" ")
				}
				parts = append(parts, sent)
				tokens += sentTokens
			}
			continue
		}

		if tokens+paraTokens > c.chunkSize && len(parts) > 0 {
			flush("\n\n")
		}
		parts = append(parts, para)
		tokens += paraTokens
	}

	if len(parts) > 0 {
		chunks = append(chunks, strings.Join(parts, "\n\n"))
	}
	return chunks
}

// overlapParts returns the trailing parts totalling about the overlap
// budget, used to seed the next chunk.
func (c *tokenChunker) overlapParts(parts []string) []string {
	if c.overlap <= 0 {
		return nil
	}
	var overlap []string
	tokens := 0
	for i := len(parts) - 1; i >= 0; i-- {
		pt := c.counter.Count(parts[i])
		if tokens+pt > c.overlap && len(overlap) > 0 {
			break
		}
		overlap = append([]string{parts[i]}, overlap...)
		tokens += pt
	}
	return overlap
}

var sentenceEnd = regexp.MustCompile(`(?:[.!?])\s+`)

// splitSentences splits text at ". ", "! ", "? " boundaries, keeping the
// terminator with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	rest := text
	for {
		loc := sentenceEnd.FindStringIndex(rest)
		if loc == nil {
			break
		}
		// loc[0] is the terminator itself; keep it with the sentence.
		sentence := strings.TrimSpace(rest[:loc[0]+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		rest = rest[loc[1]:]
	}
	if trimmed := strings.TrimSpace(rest); trimmed != "" {
		sentences = append(sentences, trimmed)
	}
	return sentences
}
