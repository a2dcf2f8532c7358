package domain_test

import (
	"strings"
	"testing"

	"paperpulse/internal/domain"

	"github.com/stretchr/testify/assert"
)

// wordCounter counts whitespace-separated words so chunking tests are
// deterministic and need no encoding data.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func para(words int, word string) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func TestChunker_Chunk(t *testing.T) {
	chunker := domain.NewChunker(wordCounter{}, domain.ChunkerConfig{
		ChunkSizeTokens:    100,
		ChunkOverlapTokens: 10,
		MinChunkTokens:     10,
	})

	t.Run("Returns nil below the minimum floor", func(t *testing.T) {
		assert.Nil(t, chunker.Chunk("too short", "p1", "Title"))
		assert.Nil(t, chunker.Chunk("", "p1", "Title"))
	})

	t.Run("Single chunk for text within the budget", func(t *testing.T) {
		text := para(40, "alpha") + "\n\n" + para(40, "beta")
		chunks := chunker.Chunk(text, "p1", "My Paper")

		assert.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].ChunkIndex)
		assert.Equal(t, "p1", chunks[0].PaperID)
		assert.True(t, strings.HasPrefix(chunks[0].ChunkText, "[My Paper] "))
	})

	t.Run("Contiguous indices with overlap seeding", func(t *testing.T) {
		var paras []string
		for i := 0; i < 8; i++ {
			paras = append(paras, para(40, "w"))
		}
		text := strings.Join(paras, "\n\n")

		chunks := chunker.Chunk(text, "p1", "")

		assert.Greater(t, len(chunks), 1)
		for i, c := range chunks {
			assert.Equal(t, i, c.ChunkIndex)
		}
	})

	t.Run("Oversized paragraph split by sentence", func(t *testing.T) {
		var sentences []string
		for i := 0; i < 10; i++ {
			sentences = append(sentences, para(30, "x")+".")
		}
		text := strings.Join(sentences, " ")

		chunks := chunker.Chunk(text, "p1", "")

		assert.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			// budget plus one trailing unit of slack
			assert.LessOrEqual(t, len(strings.Fields(c.ChunkText)), 140)
		}
	})

	t.Run("Overlap carries across an oversized paragraph boundary", func(t *testing.T) {
		var sentences []string
		for i := 0; i < 8; i++ {
			sentences = append(sentences, para(30, "x")+".")
		}
		text := para(12, "alpha") + "\n\n" + strings.Join(sentences, " ")

		chunks := chunker.Chunk(text, "p1", "")

		assert.Greater(t, len(chunks), 1)
		assert.Contains(t, chunks[0].ChunkText, "alpha")
		// the chunk closed ahead of the forced split seeds the next one
		assert.Contains(t, chunks[1].ChunkText, "alpha")
		assert.Contains(t, chunks[1].ChunkText, "x")
	})

	t.Run("Tiny trailing chunks are discarded", func(t *testing.T) {
		noOverlap := domain.NewChunker(wordCounter{}, domain.ChunkerConfig{
			ChunkSizeTokens:    60,
			ChunkOverlapTokens: -1, // treated as zero overlap by config validation
			MinChunkTokens:     50,
		})
		text := para(55, "main") + "\n\n" + "tiny bit of trailing text"
		chunks := noOverlap.Chunk(text, "p1", "")

		assert.Len(t, chunks, 1)
		assert.NotContains(t, chunks[0].ChunkText, "tiny")
	})

	t.Run("Content preserved across chunks in order", func(t *testing.T) {
		text := para(60, "one") + "\n\n" + para(60, "two") + "\n\n" + para(60, "three")
		chunks := chunker.Chunk(text, "p1", "")

		joined := ""
		for _, c := range chunks {
			joined += c.ChunkText + " "
		}
		assert.Contains(t, joined, "one")
		assert.Contains(t, joined, "two")
		assert.Contains(t, joined, "three")
		// original order preserved
		assert.Less(t, strings.Index(joined, "one"), strings.Index(joined, "three"))
	})
}
