package source

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperpulse/internal/domain"
)

const sampleReferences = `{
  "data": [
    {"citedPaper": {"paperId": "a1", "title": "Neural Machine Translation",
      "externalIds": {"ArXiv": "1409.0473"}}},
    {"citedPaper": {"paperId": "a2", "title": "No ArXiv Mapping",
      "externalIds": {"DOI": "10.1/xyz"}}},
    {"citedPaper": {"paperId": "a1", "title": "Duplicate Edge",
      "externalIds": {"ArXiv": "1409.0473"}}},
    {"citingPaper": {"paperId": "b1", "title": "BERT",
      "externalIds": {"ArXiv": "1810.04805"}}}
  ]
}`

func TestArxivNeighborIDs(t *testing.T) {
	var resp s2CitationResponse
	require.NoError(t, json.Unmarshal([]byte(sampleReferences), &resp))

	ids := arxivNeighborIDs(resp.Data)

	// unmappable and duplicate edges drop; both edge directions parse
	assert.Equal(t, []string{"1409.0473", "1810.04805"}, ids)
}

func TestIsArxivID(t *testing.T) {
	assert.True(t, isArxivID("1706.03762"))
	assert.True(t, isArxivID("hep-th/9901001"))
	assert.False(t, isArxivID(""))
	assert.False(t, isArxivID("S2:abc123"))
	assert.False(t, isArxivID("PMID:12345"))
	assert.False(t, isArxivID("DOI:10.1000/xyz"))
}

func TestFetchCitations_SkipsNonArxivPapers(t *testing.T) {
	f := &SemanticScholarCitationFetcher{logger: slog.Default()}

	links, err := f.FetchCitations(context.Background(), domain.Paper{CanonicalID: "PMID:12345"})

	assert.NoError(t, err)
	assert.True(t, links.Empty())
}
