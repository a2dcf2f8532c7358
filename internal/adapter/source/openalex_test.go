package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconstructAbstract(t *testing.T) {
	t.Run("Restores word order from the inverted index", func(t *testing.T) {
		inverted := map[string][]int{
			"the":   {0, 3},
			"quick": {1},
			"fox":   {2},
			"lazy":  {4},
			"dog":   {5},
			"jumps": {6},
		}
		assert.Equal(t, "the quick fox the lazy dog jumps", ReconstructAbstract(inverted))
	})

	t.Run("Empty index yields an empty string", func(t *testing.T) {
		assert.Equal(t, "", ReconstructAbstract(nil))
		assert.Equal(t, "", ReconstructAbstract(map[string][]int{}))
	})
}

func TestParseOpenAlexWork(t *testing.T) {
	longAbstract := func() map[string][]int {
		inverted := make(map[string][]int)
		words := strings.Fields("this work presents a comprehensive study of graph neural networks applied to molecular property prediction with extensive benchmarks")
		for i, w := range words {
			inverted[w] = append(inverted[w], i)
		}
		return inverted
	}

	t.Run("Prefers the arXiv ID from locations", func(t *testing.T) {
		work := openalexWork{
			ID:                    "https://openalex.org/W123",
			Title:                 "A Paper",
			PublicationDate:       "2024-03-15",
			AbstractInvertedIndex: longAbstract(),
		}
		work.Locations = []struct {
			LandingPageURL string `json:"landing_page_url"`
		}{{LandingPageURL: "https://arxiv.org/abs/2403.01234v2"}}

		paper, ok := parseOpenAlexWork(work)

		assert.True(t, ok)
		assert.Equal(t, "2403.01234", paper.CanonicalID)
		assert.Equal(t, "https://arxiv.org/abs/2403.01234", paper.URL)
		assert.Equal(t, "openalex", paper.Source)
	})

	t.Run("Falls back to DOI then OpenAlex ID", func(t *testing.T) {
		work := openalexWork{
			ID:                    "https://openalex.org/W456",
			Title:                 "A Paper",
			DOI:                   "https://doi.org/10.1000/xyz",
			AbstractInvertedIndex: longAbstract(),
		}
		paper, ok := parseOpenAlexWork(work)
		assert.True(t, ok)
		assert.Equal(t, "DOI:10.1000/xyz", paper.CanonicalID)

		work.DOI = ""
		paper, ok = parseOpenAlexWork(work)
		assert.True(t, ok)
		assert.Equal(t, "OA:W456", paper.CanonicalID)
	})

	t.Run("Skips works with a short abstract", func(t *testing.T) {
		work := openalexWork{
			ID:                    "https://openalex.org/W789",
			Title:                 "A Paper",
			AbstractInvertedIndex: map[string][]int{"short": {0}},
		}
		_, ok := parseOpenAlexWork(work)
		assert.False(t, ok)
	})
}
