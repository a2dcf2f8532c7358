package domain_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"paperpulse/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicator_Merge(t *testing.T) {
	dedup := domain.NewDeduplicator()

	t.Run("Drops duplicate canonical IDs, first seen wins", func(t *testing.T) {
		arxiv := []domain.CandidatePaper{
			{CanonicalID: "2401.00001", Title: "Paper A", Source: "arxiv"},
		}
		s2 := []domain.CandidatePaper{
			{CanonicalID: "2401.00001", Title: "Paper A (v2)", Source: "semantic_scholar"},
			{CanonicalID: "S2:abc", Title: "Paper B", Source: "semantic_scholar"},
		}

		merged := dedup.Merge([][]domain.CandidatePaper{arxiv, s2})

		assert.Len(t, merged, 2)
		assert.Equal(t, "arxiv", merged[0].Source)
		assert.Equal(t, "S2:abc", merged[1].CanonicalID)
	})

	t.Run("Drops same title indexed under different IDs", func(t *testing.T) {
		lists := [][]domain.CandidatePaper{
			{{CanonicalID: "2401.00002", Title: "Attention Is All You Need"}},
			{{CanonicalID: "DOI:10.1/xyz", Title: "  attention   is all you NEED "}},
		}

		merged := dedup.Merge(lists)

		assert.Len(t, merged, 1)
		assert.Equal(t, "2401.00002", merged[0].CanonicalID)
	})

	t.Run("Keeps papers with empty IDs and distinct titles", func(t *testing.T) {
		lists := [][]domain.CandidatePaper{
			{{CanonicalID: "", Title: "First"}, {CanonicalID: "", Title: "Second"}},
		}

		merged := dedup.Merge(lists)

		assert.Len(t, merged, 2)
	})

	t.Run("Empty input", func(t *testing.T) {
		assert.Empty(t, dedup.Merge(nil))
		assert.Empty(t, dedup.Merge([][]domain.CandidatePaper{{}}))
	})
}

func TestTitleKey(t *testing.T) {
	t.Run("Normalizes case and whitespace", func(t *testing.T) {
		assert.Equal(t, "deep learning", domain.TitleKey("  Deep\t Learning "))
	})

	t.Run("Truncates long titles", func(t *testing.T) {
		long := ""
		for i := 0; i < 30; i++ {
			long += "verylongword "
		}
		key := domain.TitleKey(long)
		assert.LessOrEqual(t, len(key), 100)
	})

	t.Run("Truncates long non-ASCII titles on a rune boundary", func(t *testing.T) {
		// 120 three-byte runes; a byte-oriented cut at 100 would land
		// mid-rune and leave an invalid trailing byte.
		long := strings.Repeat("注", 120)
		key := domain.TitleKey(long)

		assert.True(t, utf8.ValidString(key))
		assert.Equal(t, 100, utf8.RuneCountInString(key))
	})

	t.Run("Long non-ASCII titles sharing a prefix still collide", func(t *testing.T) {
		prefix := strings.Repeat("注", 110)
		assert.Equal(t, domain.TitleKey(prefix+"甲"), domain.TitleKey(prefix+"乙"))
	})
}
