package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"paperpulse/internal/domain"
)

// arXiv asks for no more than one request every 3 seconds.
const arxivInterval = 3 * time.Second

// broadArxivDomains are the top-level archives that accept a cat:x.*
// wildcard.
var broadArxivDomains = map[string]bool{
	"cs": true, "math": true, "physics": true, "q-bio": true,
	"q-fin": true, "stat": true, "eess": true, "econ": true, "nlin": true,
}

// ArxivProvider fetches papers from the arXiv Atom API.
type ArxivProvider struct {
	BaseURL string
	Client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewArxivProvider(client *http.Client, logger *slog.Logger) *ArxivProvider {
	return &ArxivProvider{
		BaseURL: "http://export.arxiv.org/api/query",
		Client:  client,
		limiter: rate.NewLimiter(rate.Every(arxivInterval), 1),
		logger:  logger,
	}
}

func (p *ArxivProvider) Name() string { return "arxiv" }

// Fetch runs each optimized query (crossed with the category filter)
// separately and merges per-provider by canonical ID; without queries it
// falls back to a broad category fetch sorted by submission date.
func (p *ArxivProvider) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CandidatePaper, error) {
	if len(req.Domains) == 0 {
		return nil, nil
	}

	catPart := p.categoryQuery(req)

	if len(req.SearchQueries) > 0 {
		return p.fetchWithQueries(ctx, catPart, req)
	}
	return p.fetchByCategory(ctx, catPart, req.MaxResults)
}

func (p *ArxivProvider) categoryQuery(req domain.FetchRequest) string {
	var cats []string
	if len(req.CategoryHints) > 0 {
		for _, cat := range req.CategoryHints {
			cats = append(cats, "cat:"+cat)
		}
	} else {
		for _, d := range req.Domains {
			if broadArxivDomains[d] {
				cats = append(cats, "cat:"+d+".*")
			} else {
				cats = append(cats, "cat:"+d)
			}
		}
	}
	return "(" + strings.Join(cats, " OR ") + ")"
}

func (p *ArxivProvider) fetchWithQueries(ctx context.Context, catPart string, req domain.FetchRequest) ([]domain.CandidatePaper, error) {
	perQuery := req.MaxResults / len(req.SearchQueries)
	if perQuery < 10 {
		perQuery = 10
	}

	seen := make(map[string]bool)
	var papers []domain.CandidatePaper

	for _, queryText := range req.SearchQueries {
		params := url.Values{}
		params.Set("search_query", fmt.Sprintf("%s AND all:%q", catPart, queryText))
		params.Set("sortBy", "relevance")
		params.Set("sortOrder", "descending")
		params.Set("start", "0")
		params.Set("max_results", fmt.Sprintf("%d", perQuery))

		entries, err := p.query(ctx, params)
		if err != nil {
			p.logger.Warn("arxiv_query_failed",
				slog.String("query", queryText),
				slog.String("error", err.Error()))
			continue
		}
		for _, e := range entries {
			paper, ok := p.parseEntry(e)
			if ok && !seen[paper.CanonicalID] {
				seen[paper.CanonicalID] = true
				papers = append(papers, paper)
			}
		}
	}

	if len(papers) > req.MaxResults {
		papers = papers[:req.MaxResults]
	}
	p.logger.Info("arxiv_fetch_completed",
		slog.Int("paper_count", len(papers)),
		slog.Int("query_count", len(req.SearchQueries)))
	return papers, nil
}

func (p *ArxivProvider) fetchByCategory(ctx context.Context, catPart string, maxResults int) ([]domain.CandidatePaper, error) {
	params := url.Values{}
	params.Set("search_query", catPart)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))

	entries, err := p.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var papers []domain.CandidatePaper
	for _, e := range entries {
		if paper, ok := p.parseEntry(e); ok {
			papers = append(papers, paper)
		}
	}
	p.logger.Info("arxiv_fetch_completed", slog.Int("paper_count", len(papers)))
	return papers, nil
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

func (p *ArxivProvider) query(ctx context.Context, params url.Values) ([]atomEntry, error) {
	fullURL := p.BaseURL + "?" + params.Encode()
	body, err := getWithRetry(ctx, p.Client, p.limiter, fullURL, nil, p.logger, p.Name())
	if err != nil {
		return nil, err
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse atom feed: %w", err)
	}
	return feed.Entries, nil
}

// parseEntry converts one Atom entry; a malformed entry is skipped with a
// log line so the rest of the batch proceeds.
func (p *ArxivProvider) parseEntry(e atomEntry) (domain.CandidatePaper, bool) {
	id := arxivIDFromURL(e.ID)
	title := strings.TrimSpace(strings.ReplaceAll(e.Title, "\n", " "))
	abstract := strings.TrimSpace(strings.ReplaceAll(e.Summary, "\n", " "))

	if id == "" || title == "" || abstract == "" {
		p.logger.Warn("arxiv_entry_skipped", slog.String("entry_id", e.ID))
		return domain.CandidatePaper{}, false
	}

	published, err := time.Parse("2006-01-02T15:04:05Z", e.Published)
	if err != nil {
		published = time.Now().UTC()
	}

	var authors []string
	for _, a := range e.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	return domain.CandidatePaper{
		CanonicalID:   id,
		Title:         title,
		Authors:       authors,
		PublishedDate: published,
		Abstract:      abstract,
		URL:           e.ID,
		Source:        "arxiv",
	}, true
}

// arxivIDFromURL extracts the bare ID from an abs URL, dropping the
// version suffix so revisions dedup to one paper.
func arxivIDFromURL(absURL string) string {
	idx := strings.Index(absURL, "/abs/")
	if idx < 0 {
		return ""
	}
	id := absURL[idx+len("/abs/"):]
	if v := strings.LastIndex(id, "v"); v > 0 {
		allDigits := true
		for _, r := range id[v+1:] {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits && v+1 < len(id) {
			id = id[:v]
		}
	}
	return id
}
