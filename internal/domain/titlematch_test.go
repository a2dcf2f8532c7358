package domain_test

import (
	"testing"

	"paperpulse/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSignificantWords(t *testing.T) {
	t.Run("Strips punctuation and lowers case", func(t *testing.T) {
		words := domain.SignificantWords("Attention Is All You Need!")
		assert.Equal(t, []string{"attention", "all", "need"}, words)
	})

	t.Run("Drops short words and stop words", func(t *testing.T) {
		words := domain.SignificantWords("what is the GNN for molecules")
		assert.Equal(t, []string{"gnn", "molecules"}, words)
	})
}

func TestMatchTitles(t *testing.T) {
	titles := map[string]string{
		"1706.03762": "Attention Is All You Need",
		"2401.00001": "Graph Neural Networks for Molecular Property Prediction",
	}

	t.Run("Finds an explicitly named paper", func(t *testing.T) {
		matches := domain.MatchTitles("explain attention is all you need to me", titles, 3)

		assert.Len(t, matches, 1)
		assert.Equal(t, "1706.03762", matches[0].PaperID)
		assert.GreaterOrEqual(t, matches[0].Overlap, 3)
		assert.GreaterOrEqual(t, matches[0].Ratio, 0.4)
	})

	t.Run("Unrelated question matches nothing", func(t *testing.T) {
		assert.Empty(t, domain.MatchTitles("what's 2+2", titles, 3))
	})

	t.Run("Partial overlap below threshold matches nothing", func(t *testing.T) {
		// one significant shared word ("attention") is not enough
		assert.Empty(t, domain.MatchTitles("does attention help training", titles, 3))
	})

	t.Run("Ranked by ratio then overlap and truncated", func(t *testing.T) {
		many := map[string]string{
			"a": "graph neural networks molecules",
			"b": "graph neural networks for molecular property prediction tasks benchmark",
		}
		matches := domain.MatchTitles("graph neural networks for molecules", many, 1)

		assert.Len(t, matches, 1)
		// "a" has the higher overlap/title-length ratio
		assert.Equal(t, "a", matches[0].PaperID)
	})
}
