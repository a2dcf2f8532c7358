package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"paperpulse/internal/domain"
)

const (
	openalexMinAbstractLen = 50
	openalexMaxAuthors     = 10
	openalexPageSize       = 50
)

// domainToConcept maps domain tags to OpenAlex concept IDs. Physics
// sub-archives all map to the Physics concept.
var domainToConcept = map[string]string{
	"cs": "C41008148", "math": "C33923547", "physics": "C121332964",
	"q-bio": "C86803240", "q-fin": "C162324750", "stat": "C105795698",
	"eess": "C127413603", "econ": "C162324750",
	"med": "C71924100", "bio": "C86803240", "chem": "C185592680",
	"env": "C39432304", "mat-sci": "C192562407", "psych": "C15744967",
	"geo": "C127313418", "soc": "C144024400", "poli-sci": "C17744445",
	"phil": "C138885662", "hist": "C95457728", "ling": "C41895202",
	"art": "C142362112", "bus": "C144133560", "agri": "C118552586",
	"educ": "C185592680", "law": "C138885662",
	"astro-ph": "C121332964", "cond-mat": "C121332964", "gr-qc": "C121332964",
	"hep-ex": "C121332964", "hep-lat": "C121332964", "hep-ph": "C121332964",
	"hep-th": "C121332964", "math-ph": "C121332964", "nlin": "C121332964",
	"nucl-ex": "C121332964", "nucl-th": "C121332964", "quant-ph": "C121332964",
}

// OpenAlexProvider fetches scholarly works from the OpenAlex API.
// Setting MailTo joins the polite pool for better rate limits.
type OpenAlexProvider struct {
	BaseURL  string
	MailTo   string
	DaysBack int
	Client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewOpenAlexProvider(client *http.Client, mailTo string, daysBack int, logger *slog.Logger) *OpenAlexProvider {
	if daysBack <= 0 {
		daysBack = 3
	}
	return &OpenAlexProvider{
		BaseURL:  "https://api.openalex.org",
		MailTo:   mailTo,
		DaysBack: daysBack,
		Client:   client,
		limiter:  rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		logger:   logger,
	}
}

func (p *OpenAlexProvider) Name() string { return "openalex" }

type openalexResponse struct {
	Results []openalexWork `json:"results"`
}

type openalexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	PublicationDate       string           `json:"publication_date"`
	DOI                   string           `json:"doi"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	Authorships           []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	Locations []struct {
		LandingPageURL string `json:"landing_page_url"`
	} `json:"locations"`
}

// Fetch queries /works filtered by concept and publication window. With
// optimized queries OpenAlex sorts by relevance; the broad path sorts by
// publication date instead.
func (p *OpenAlexProvider) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CandidatePaper, error) {
	concepts := p.conceptsFor(req.Domains)
	if len(concepts) == 0 {
		p.logger.Info("openalex_no_concept_mapping", slog.Any("domains", req.Domains))
		return nil, nil
	}

	fromDate := time.Now().UTC().AddDate(0, 0, -p.DaysBack).Format("2006-01-02")
	seen := make(map[string]bool)
	var papers []domain.CandidatePaper

	collect := func(params url.Values) {
		body, err := getWithRetry(ctx, p.Client, p.limiter, p.BaseURL+"/works?"+params.Encode(), nil, p.logger, p.Name())
		if err != nil {
			p.logger.Warn("openalex_query_failed", slog.String("error", err.Error()))
			return
		}
		var resp openalexResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			p.logger.Warn("openalex_parse_failed", slog.String("error", err.Error()))
			return
		}
		for _, raw := range resp.Results {
			paper, ok := parseOpenAlexWork(raw)
			if ok && !seen[paper.CanonicalID] {
				seen[paper.CanonicalID] = true
				papers = append(papers, paper)
			}
		}
	}

	if len(req.SearchQueries) > 0 {
		perQuery := req.MaxResults / len(req.SearchQueries)
		if perQuery < 10 {
			perQuery = 10
		}
		if perQuery > openalexPageSize {
			perQuery = openalexPageSize
		}
		for _, queryText := range req.SearchQueries {
			if len(papers) >= req.MaxResults {
				break
			}
			for _, concept := range concepts {
				if len(papers) >= req.MaxResults {
					break
				}
				params := p.baseParams()
				params.Set("filter", fmt.Sprintf("concepts.id:%s,from_publication_date:%s,has_abstract:true", concept, fromDate))
				params.Set("search", queryText)
				params.Set("per_page", fmt.Sprintf("%d", perQuery))
				params.Set("page", "1")
				collect(params)
			}
		}
	} else {
		perConcept := req.MaxResults / len(concepts)
		if perConcept < openalexPageSize {
			perConcept = openalexPageSize
		}
		if perConcept > openalexPageSize {
			perConcept = openalexPageSize
		}
		for _, concept := range concepts {
			if len(papers) >= req.MaxResults {
				break
			}
			params := p.baseParams()
			params.Set("filter", fmt.Sprintf("concepts.id:%s,from_publication_date:%s,has_abstract:true", concept, fromDate))
			params.Set("sort", "publication_date:desc")
			params.Set("per_page", fmt.Sprintf("%d", perConcept))
			params.Set("page", "1")
			collect(params)
		}
	}

	if len(papers) > req.MaxResults {
		papers = papers[:req.MaxResults]
	}
	p.logger.Info("openalex_fetch_completed",
		slog.Int("paper_count", len(papers)),
		slog.Int("concept_count", len(concepts)))
	return papers, nil
}

func (p *OpenAlexProvider) conceptsFor(domains []string) []string {
	set := make(map[string]bool)
	for _, d := range domains {
		if cid, ok := domainToConcept[d]; ok {
			set[cid] = true
		}
	}
	concepts := make([]string, 0, len(set))
	for c := range set {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)
	return concepts
}

func (p *OpenAlexProvider) baseParams() url.Values {
	params := url.Values{}
	if p.MailTo != "" {
		params.Set("mailto", p.MailTo)
	}
	return params
}

// parseOpenAlexWork normalizes one work. The canonical ID prefers an
// arXiv ID found in the locations, then the DOI, then the OpenAlex ID.
func parseOpenAlexWork(raw openalexWork) (domain.CandidatePaper, bool) {
	title := strings.TrimSpace(raw.Title)
	abstract := ReconstructAbstract(raw.AbstractInvertedIndex)
	if title == "" || len(abstract) < openalexMinAbstractLen {
		return domain.CandidatePaper{}, false
	}

	var authors []string
	for _, a := range raw.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}
	if len(authors) > openalexMaxAuthors {
		authors = authors[:openalexMaxAuthors]
	}

	published := time.Now().UTC()
	if raw.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", raw.PublicationDate); err == nil {
			published = t
		}
	}

	arxivID := ""
	for _, loc := range raw.Locations {
		if strings.Contains(loc.LandingPageURL, "arxiv.org") {
			if parts := strings.SplitN(loc.LandingPageURL, "/abs/", 2); len(parts) == 2 {
				arxivID = strings.SplitN(parts[1], "v", 2)[0]
				break
			}
		}
	}

	doi := strings.TrimPrefix(raw.DOI, "https://doi.org/")

	var canonicalID, pageURL string
	switch {
	case arxivID != "":
		canonicalID = arxivID
		pageURL = "https://arxiv.org/abs/" + arxivID
	case doi != "":
		canonicalID = "DOI:" + doi
		pageURL = "https://doi.org/" + doi
	default:
		canonicalID = "OA:" + raw.ID[strings.LastIndex(raw.ID, "/")+1:]
		pageURL = raw.ID
	}

	return domain.CandidatePaper{
		CanonicalID:   canonicalID,
		Title:         title,
		Authors:       authors,
		PublishedDate: published,
		Abstract:      abstract,
		URL:           pageURL,
		Source:        "openalex",
		DOI:           doi,
	}, true
}

// ReconstructAbstract rebuilds plain text from OpenAlex's inverted index,
// which maps each word to its positions in the original abstract.
func ReconstructAbstract(inverted map[string][]int) string {
	if len(inverted) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range inverted {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos, word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, pw := range pairs {
		words[i] = pw.word
	}
	return strings.Join(words, " ")
}
