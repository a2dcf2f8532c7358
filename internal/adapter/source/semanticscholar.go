package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"paperpulse/internal/domain"
)

const s2Fields = "paperId,title,abstract,authors,year,url,publicationDate,externalIds"

// domainToS2Field maps domain tags to Semantic Scholar fieldsOfStudy
// filter values. Unmapped domains are skipped.
var domainToS2Field = map[string]string{
	"cs": "Computer Science", "math": "Mathematics", "physics": "Physics",
	"q-bio": "Biology", "q-fin": "Economics", "stat": "Mathematics",
	"eess": "Engineering", "econ": "Economics",
	"astro-ph": "Physics", "cond-mat": "Physics", "gr-qc": "Physics",
	"hep-ex": "Physics", "hep-lat": "Physics", "hep-ph": "Physics",
	"hep-th": "Physics", "math-ph": "Physics", "nlin": "Physics",
	"nucl-ex": "Physics", "nucl-th": "Physics", "quant-ph": "Physics",
	"med": "Medicine", "bio": "Biology", "chem": "Chemistry",
	"env": "Environmental Science", "mat-sci": "Materials Science",
	"psych": "Psychology", "geo": "Geology", "soc": "Sociology",
	"poli-sci": "Political Science", "phil": "Philosophy",
	"hist": "History", "ling": "Linguistics", "art": "Art",
	"bus": "Business", "agri": "Agricultural and Food Sciences",
	"educ": "Education", "law": "Law",
}

// SemanticScholarProvider fetches papers from the Semantic Scholar graph
// API. Without an API key the shared pool allows roughly one request per
// second.
type SemanticScholarProvider struct {
	BaseURL  string
	APIKey   string
	DaysBack int
	Client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewSemanticScholarProvider(client *http.Client, apiKey string, daysBack int, logger *slog.Logger) *SemanticScholarProvider {
	if daysBack <= 0 {
		daysBack = 3
	}
	return &SemanticScholarProvider{
		BaseURL:  "https://api.semanticscholar.org/graph/v1",
		APIKey:   apiKey,
		DaysBack: daysBack,
		Client:   client,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		logger:   logger,
	}
}

func (p *SemanticScholarProvider) Name() string { return "semantic_scholar" }

type s2SearchResponse struct {
	Data []s2Paper `json:"data"`
}

type s2Paper struct {
	PaperID         string     `json:"paperId"`
	Title           string     `json:"title"`
	Abstract        string     `json:"abstract"`
	Authors         []s2Author `json:"authors"`
	Year            int        `json:"year"`
	URL             string     `json:"url"`
	PublicationDate string     `json:"publicationDate"`
	ExternalIDs     struct {
		ArXiv string `json:"ArXiv"`
		DOI   string `json:"DOI"`
	} `json:"externalIds"`
}

type s2Author struct {
	Name string `json:"name"`
}

// Fetch runs a relevance search per (query, field-of-study) pair; without
// optimized queries the field name itself serves as the query.
func (p *SemanticScholarProvider) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CandidatePaper, error) {
	fields := p.fieldsFor(req.Domains)
	if len(fields) == 0 {
		p.logger.Info("s2_no_field_mapping", slog.Any("domains", req.Domains))
		return nil, nil
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -p.DaysBack)
	yearFilter := fmt.Sprintf("%d-%d", start.Year(), end.Year())

	type pair struct{ query, field string }
	var pairs []pair
	if len(req.SearchQueries) > 0 {
		for _, q := range req.SearchQueries {
			for _, f := range fields {
				pairs = append(pairs, pair{q, f})
			}
		}
	} else {
		for _, f := range fields {
			pairs = append(pairs, pair{f, f})
		}
	}

	perPair := req.MaxResults / len(pairs)
	if perPair < 10 {
		perPair = 10
	}
	if perPair > 100 {
		perPair = 100
	}

	seen := make(map[string]bool)
	var papers []domain.CandidatePaper

	for _, pr := range pairs {
		if len(papers) >= req.MaxResults {
			break
		}

		params := url.Values{}
		params.Set("query", pr.query)
		params.Set("fields", s2Fields)
		params.Set("limit", fmt.Sprintf("%d", perPair))
		params.Set("offset", "0")
		params.Set("year", yearFilter)
		params.Set("fieldsOfStudy", pr.field)

		fullURL := p.BaseURL + "/paper/search?" + params.Encode()
		header := http.Header{"Accept": []string{"application/json"}}
		if p.APIKey != "" {
			header.Set("x-api-key", p.APIKey)
		}

		body, err := getWithRetry(ctx, p.Client, p.limiter, fullURL, header, p.logger, p.Name())
		if err != nil {
			p.logger.Warn("s2_query_failed",
				slog.String("query", pr.query),
				slog.String("error", err.Error()))
			continue
		}

		var resp s2SearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			p.logger.Warn("s2_parse_failed", slog.String("error", err.Error()))
			continue
		}

		for _, raw := range resp.Data {
			paper, ok := p.parsePaper(raw)
			if ok && !seen[paper.CanonicalID] {
				seen[paper.CanonicalID] = true
				papers = append(papers, paper)
			}
		}
	}

	if len(papers) > req.MaxResults {
		papers = papers[:req.MaxResults]
	}
	p.logger.Info("s2_fetch_completed",
		slog.Int("paper_count", len(papers)),
		slog.Any("fields", fields))
	return papers, nil
}

func (p *SemanticScholarProvider) fieldsFor(domains []string) []string {
	set := make(map[string]bool)
	for _, d := range domains {
		if f, ok := domainToS2Field[d]; ok {
			set[f] = true
		}
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// parsePaper normalizes one result. Papers missing a title or abstract
// carry nothing to embed and are skipped. An arXiv external ID takes over
// as the canonical ID so the same paper dedups across sources.
func (p *SemanticScholarProvider) parsePaper(raw s2Paper) (domain.CandidatePaper, bool) {
	if raw.Title == "" || raw.Abstract == "" {
		return domain.CandidatePaper{}, false
	}

	var authors []string
	for _, a := range raw.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	published := time.Now().UTC()
	if raw.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", raw.PublicationDate); err == nil {
			published = t
		}
	} else if raw.Year > 0 {
		published = time.Date(raw.Year, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	canonicalID := "S2:" + raw.PaperID
	pageURL := raw.URL
	if raw.ExternalIDs.ArXiv != "" {
		canonicalID = raw.ExternalIDs.ArXiv
		pageURL = "https://arxiv.org/abs/" + raw.ExternalIDs.ArXiv
	} else if pageURL == "" {
		pageURL = "https://www.semanticscholar.org/paper/" + raw.PaperID
	}

	return domain.CandidatePaper{
		CanonicalID:   canonicalID,
		Title:         raw.Title,
		Authors:       authors,
		PublishedDate: published,
		Abstract:      raw.Abstract,
		URL:           pageURL,
		Source:        "semantic_scholar",
		DOI:           raw.ExternalIDs.DOI,
	}, true
}
