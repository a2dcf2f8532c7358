// Package textextract retrieves full paper text from the arXiv HTML
// renderings, falling back to readability extraction when the rendered
// layout changes.
package textextract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"paperpulse/internal/domain"
)

const (
	// minExtractedChars guards against extractions that caught only the
	// title block or a "no HTML available" placeholder.
	minExtractedChars = 500
	maxDownloadBytes  = 16 << 20
)

// ArxivHTMLExtractor fetches https://arxiv.org/html/{id} and converts the
// rendered paper into plain text paragraphs.
type ArxivHTMLExtractor struct {
	BaseURL string
	Client  *http.Client
	logger  *slog.Logger
}

func NewArxivHTMLExtractor(client *http.Client, logger *slog.Logger) *ArxivHTMLExtractor {
	return &ArxivHTMLExtractor{
		BaseURL: "https://arxiv.org/html",
		Client:  client,
		logger:  logger,
	}
}

// Extract downloads and converts the paper's HTML rendering. Papers from
// other sources, or arXiv papers without an HTML rendering, yield ("", nil)
// so enrichment continues on the abstract alone.
func (e *ArxivHTMLExtractor) Extract(ctx context.Context, paper domain.CandidatePaper) (string, error) {
	if paper.Source != "arxiv" && !strings.Contains(paper.URL, "arxiv.org") {
		return "", nil
	}
	arxivID := arxivIDOf(paper)
	if arxivID == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+"/"+arxivID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		e.logger.Warn("fulltext_fetch_failed",
			slog.String("paper_id", paper.CanonicalID),
			slog.String("error", err.Error()))
		return "", nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Older papers have no HTML rendering; not an error.
		e.logger.Info("fulltext_unavailable",
			slog.String("paper_id", paper.CanonicalID),
			slog.Int("status", resp.StatusCode))
		return "", nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", nil
	}

	text := ExtractPaperText(string(raw))
	if len(text) < minExtractedChars {
		e.logger.Info("fulltext_too_short",
			slog.String("paper_id", paper.CanonicalID),
			slog.Int("char_count", len(text)))
		return "", nil
	}

	e.logger.Info("fulltext_extracted",
		slog.String("paper_id", paper.CanonicalID),
		slog.Int("char_count", len(text)))
	return text, nil
}

func arxivIDOf(paper domain.CandidatePaper) string {
	if paper.Source == "arxiv" {
		return paper.CanonicalID
	}
	if parts := strings.SplitN(paper.URL, "/abs/", 2); len(parts) == 2 {
		return parts[1]
	}
	return ""
}

// ExtractPaperText converts rendered paper HTML into plain text with
// paragraphs separated by blank lines. It strips navigation and reference
// chrome first, then runs readability, then falls back to walking block
// elements directly.
func ExtractPaperText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "<") {
		return trimmed
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed)); err == nil {
		doc.Find("head, script, style, noscript, nav, header, footer, aside").Remove()
		// LaTeXML chrome around the rendered paper body
		doc.Find(".ltx_page_header, .ltx_page_footer, .ltx_bibliography, .ltx_appendix_toc, .ltx_TOC").Remove()
		doc.Find("[class*='authornotes'], [class*='keywords']").Remove()

		if html, err := doc.Html(); err == nil && html != "" {
			trimmed = html
		}
	}

	if article, err := readability.FromReader(strings.NewReader(trimmed), nil); err == nil {
		var buf strings.Builder
		if err := article.RenderText(&buf); err == nil {
			if text := strings.TrimSpace(buf.String()); len(text) >= minExtractedChars {
				return text
			}
		}
	}

	return extractParagraphs(trimmed)
}

// extractParagraphs walks headings and paragraphs in document order.
func extractParagraphs(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(html))
	}

	var paragraphs []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return strings.Join(strings.Fields(bluemonday.StrictPolicy().Sanitize(html)), " ")
	}
	return strings.Join(paragraphs, "\n\n")
}

var _ domain.FullTextExtractor = (*ArxivHTMLExtractor)(nil)
