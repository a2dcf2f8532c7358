package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"paperpulse/internal/domain"
)

const citationFields = "externalIds,title"

// SemanticScholarCitationFetcher resolves a paper's references and
// citations through the Semantic Scholar graph API. Only papers with an
// arXiv canonical ID can be looked up; everything else returns empty
// links, as does any edge whose neighbor carries no arXiv mapping.
type SemanticScholarCitationFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewSemanticScholarCitationFetcher(client *http.Client, apiKey string, logger *slog.Logger) *SemanticScholarCitationFetcher {
	return &SemanticScholarCitationFetcher{
		BaseURL: "https://api.semanticscholar.org/graph/v1",
		APIKey:  apiKey,
		Client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

type s2CitationEdge struct {
	CitedPaper  *s2Paper `json:"citedPaper"`
	CitingPaper *s2Paper `json:"citingPaper"`
}

type s2CitationResponse struct {
	Data []s2CitationEdge `json:"data"`
}

// FetchCitations returns both edge directions for an arXiv paper. A
// failure on one direction still returns the other.
func (f *SemanticScholarCitationFetcher) FetchCitations(ctx context.Context, paper domain.Paper) (domain.CitationLinks, error) {
	id := strings.TrimSpace(paper.CanonicalID)
	if !isArxivID(id) {
		return domain.CitationLinks{}, nil
	}

	var links domain.CitationLinks

	refs, err := f.fetchEdges(ctx, id, "references")
	if err != nil {
		f.logger.Warn("citation_references_failed",
			slog.String("paper_id", id),
			slog.String("error", err.Error()))
	} else {
		links.References = refs
	}

	cites, err := f.fetchEdges(ctx, id, "citations")
	if err != nil {
		f.logger.Warn("citation_citations_failed",
			slog.String("paper_id", id),
			slog.String("error", err.Error()))
	} else {
		links.Citations = cites
	}

	return links, nil
}

func (f *SemanticScholarCitationFetcher) fetchEdges(ctx context.Context, arxivID, direction string) ([]string, error) {
	fullURL := fmt.Sprintf("%s/paper/ARXIV:%s/%s?fields=%s&limit=100",
		f.BaseURL, arxivID, direction, citationFields)

	header := http.Header{"Accept": []string{"application/json"}}
	if f.APIKey != "" {
		header.Set("x-api-key", f.APIKey)
	}

	body, err := getWithRetry(ctx, f.Client, f.limiter, fullURL, header, f.logger, "semantic_scholar")
	if err != nil {
		return nil, err
	}

	var resp s2CitationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse citation response: %w", err)
	}
	return arxivNeighborIDs(resp.Data), nil
}

// arxivNeighborIDs extracts arXiv IDs from either edge direction; only
// one of citedPaper/citingPaper is set per response.
func arxivNeighborIDs(edges []s2CitationEdge) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, edge := range edges {
		neighbor := edge.CitedPaper
		if neighbor == nil {
			neighbor = edge.CitingPaper
		}
		if neighbor == nil {
			continue
		}
		id := neighbor.ExternalIDs.ArXiv
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// isArxivID reports whether a canonical ID is a bare arXiv ID. All other
// catalogs prefix their IDs with a scheme (S2:, PMID:, DOI:, ...).
func isArxivID(id string) bool {
	return id != "" && !strings.Contains(id, ":")
}

var _ domain.CitationFetcher = (*SemanticScholarCitationFetcher)(nil)
