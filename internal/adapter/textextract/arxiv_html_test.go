package textextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"paperpulse/internal/domain"
)

func TestExtractPaperText(t *testing.T) {
	t.Run("Plain text passes through", func(t *testing.T) {
		assert.Equal(t, "already plain", ExtractPaperText("already plain"))
	})

	t.Run("Empty input yields empty output", func(t *testing.T) {
		assert.Equal(t, "", ExtractPaperText("   "))
	})

	t.Run("Strips page chrome and keeps body paragraphs", func(t *testing.T) {
		html := `<html><head><title>chrome</title></head><body>
			<header class="ltx_page_header">arXiv nav</header>
			<h2>1 Introduction</h2>
			<p>Transformers process sequences in parallel.</p>
			<p>Attention replaces recurrence entirely.</p>
			<footer class="ltx_page_footer">generated by LaTeXML</footer>
		</body></html>`

		text := ExtractPaperText(html)

		assert.Contains(t, text, "1 Introduction")
		assert.Contains(t, text, "Transformers process sequences in parallel.")
		assert.NotContains(t, text, "arXiv nav")
		assert.NotContains(t, text, "generated by LaTeXML")
		// headings and paragraphs stay on separate paragraphs
		assert.True(t, strings.Contains(text, "\n\n"))
	})
}

func TestArxivIDOf(t *testing.T) {
	t.Run("ArXiv papers use the canonical ID", func(t *testing.T) {
		paper := domain.CandidatePaper{CanonicalID: "1706.03762", Source: "arxiv"}
		assert.Equal(t, "1706.03762", arxivIDOf(paper))
	})

	t.Run("Cross-source papers fall back to the abs URL", func(t *testing.T) {
		paper := domain.CandidatePaper{
			CanonicalID: "S2:abc123",
			Source:      "semantic_scholar",
			URL:         "https://arxiv.org/abs/2403.01234",
		}
		assert.Equal(t, "2403.01234", arxivIDOf(paper))
	})

	t.Run("Non-arXiv papers yield no ID", func(t *testing.T) {
		paper := domain.CandidatePaper{
			CanonicalID: "PMID:123",
			Source:      "pubmed",
			URL:         "https://pubmed.ncbi.nlm.nih.gov/123/",
		}
		assert.Equal(t, "", arxivIDOf(paper))
	})
}
