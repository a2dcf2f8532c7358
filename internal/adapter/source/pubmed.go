package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"paperpulse/internal/domain"
)

// NCBI allows 3 requests/second without an API key, 10 with one.
const (
	pubmedMinAbstractLen = 50
	pubmedFetchBatchSize = 50
	pubmedMaxAuthors     = 10
)

// domainToMeSH maps domain tags to PubMed MeSH search terms. Domains
// without a biomedical angle have no mapping and the provider skips them.
var domainToMeSH = map[string][]string{
	"q-bio":   {"Computational Biology", "Quantitative Biology"},
	"bio":     {"Biology"},
	"med":     {"Medicine", "Clinical Medicine"},
	"chem":    {"Chemistry", "Biochemistry"},
	"psych":   {"Psychology", "Neurosciences"},
	"agri":    {"Agriculture", "Food Science"},
	"env":     {"Environmental Health", "Ecology"},
	"physics": {"Biophysics"},
	"cs":      {"Medical Informatics", "Artificial Intelligence"},
	"stat":    {"Biostatistics", "Statistics as Topic"},
	"mat-sci": {"Biocompatible Materials"},
}

var pubmedMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// PubMedProvider fetches papers through the NCBI E-utilities pair:
// esearch to find PMIDs, efetch to pull article details.
type PubMedProvider struct {
	BaseURL  string
	APIKey   string
	DaysBack int
	Client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewPubMedProvider(client *http.Client, apiKey string, daysBack int, logger *slog.Logger) *PubMedProvider {
	if daysBack <= 0 {
		daysBack = 7
	}
	interval := 350 * time.Millisecond
	if apiKey != "" {
		interval = 110 * time.Millisecond
	}
	return &PubMedProvider{
		BaseURL:  "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
		APIKey:   apiKey,
		DaysBack: daysBack,
		Client:   client,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		logger:   logger,
	}
}

func (p *PubMedProvider) Name() string { return "pubmed" }

// Fetch searches each MeSH term mapped from the requested domains. With
// optimized queries it crosses each query with each term and sorts by
// relevance; without them it runs MeSH-only searches sorted by date.
func (p *PubMedProvider) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CandidatePaper, error) {
	terms := p.meshTermsFor(req.Domains)
	if len(terms) == 0 {
		p.logger.Info("pubmed_no_mesh_mapping", slog.Any("domains", req.Domains))
		return nil, nil
	}

	perTerm := req.MaxResults / len(terms)
	if perTerm < 20 {
		perTerm = 20
	}

	seen := make(map[string]bool)
	var papers []domain.CandidatePaper

	collect := func(query, sortMode string) {
		pmids, err := p.searchPMIDs(ctx, query, perTerm, sortMode)
		if err != nil {
			p.logger.Warn("pubmed_search_failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
			return
		}
		details, err := p.fetchDetails(ctx, pmids)
		if err != nil {
			p.logger.Warn("pubmed_fetch_failed", slog.String("error", err.Error()))
			return
		}
		for _, paper := range details {
			if !seen[paper.CanonicalID] {
				seen[paper.CanonicalID] = true
				papers = append(papers, paper)
			}
		}
	}

	for _, term := range terms {
		if len(papers) >= req.MaxResults {
			break
		}
		if len(req.SearchQueries) > 0 {
			for _, sq := range req.SearchQueries {
				if len(papers) >= req.MaxResults {
					break
				}
				collect(fmt.Sprintf("(%s) AND (%q[MeSH Terms])", sq, term), "relevance")
			}
		} else {
			collect(fmt.Sprintf("%q[MeSH Terms]", term), "date")
		}
	}

	if len(papers) > req.MaxResults {
		papers = papers[:req.MaxResults]
	}
	p.logger.Info("pubmed_fetch_completed",
		slog.Int("paper_count", len(papers)),
		slog.Int("mesh_term_count", len(terms)))
	return papers, nil
}

func (p *PubMedProvider) meshTermsFor(domains []string) []string {
	set := make(map[string]bool)
	for _, d := range domains {
		for _, term := range domainToMeSH[d] {
			set[term] = true
		}
	}
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (p *PubMedProvider) searchPMIDs(ctx context.Context, query string, maxResults int, sortMode string) ([]string, error) {
	params := p.baseParams()
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("sort", sortMode)
	params.Set("datetype", "edat")
	params.Set("reldate", strconv.Itoa(p.DaysBack))
	params.Set("retmode", "json")

	body, err := getWithRetry(ctx, p.Client, p.limiter, p.BaseURL+"/esearch.fcgi?"+params.Encode(), nil, p.logger, p.Name())
	if err != nil {
		return nil, err
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse esearch response: %w", err)
	}
	return resp.Result.IDList, nil
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Medline struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Sections []pubmedAbstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []struct {
				LastName string `xml:"LastName"`
				ForeName string `xml:"ForeName"`
			} `xml:"AuthorList>Author"`
			Journal struct {
				PubDate struct {
					Year  string `xml:"Year"`
					Month string `xml:"Month"`
					Day   string `xml:"Day"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	ArticleIDs []struct {
		IDType string `xml:"IdType,attr"`
		Value  string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedAbstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

func (p *PubMedProvider) fetchDetails(ctx context.Context, pmids []string) ([]domain.CandidatePaper, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	var papers []domain.CandidatePaper
	for start := 0; start < len(pmids); start += pubmedFetchBatchSize {
		end := start + pubmedFetchBatchSize
		if end > len(pmids) {
			end = len(pmids)
		}

		params := p.baseParams()
		params.Set("db", "pubmed")
		params.Set("id", strings.Join(pmids[start:end], ","))
		params.Set("retmode", "xml")

		body, err := getWithRetry(ctx, p.Client, p.limiter, p.BaseURL+"/efetch.fcgi?"+params.Encode(), nil, p.logger, p.Name())
		if err != nil {
			return papers, err
		}

		var set pubmedArticleSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return papers, fmt.Errorf("failed to parse efetch response: %w", err)
		}

		for _, article := range set.Articles {
			if paper, ok := p.parseArticle(article); ok {
				papers = append(papers, paper)
			}
		}
	}
	return papers, nil
}

// parseArticle normalizes one PubmedArticle. Articles with no title or
// with an abstract under 50 characters are skipped.
func (p *PubMedProvider) parseArticle(a pubmedArticle) (domain.CandidatePaper, bool) {
	pmid := strings.TrimSpace(a.Medline.PMID)
	title := strings.TrimSpace(a.Medline.Article.Title)
	abstract := joinAbstract(a.Medline.Article.Abstract.Sections)

	if pmid == "" || title == "" || len(abstract) < pubmedMinAbstractLen {
		return domain.CandidatePaper{}, false
	}

	var authors []string
	for _, author := range a.Medline.Article.Authors {
		var parts []string
		if author.ForeName != "" {
			parts = append(parts, author.ForeName)
		}
		if author.LastName != "" {
			parts = append(parts, author.LastName)
		}
		if len(parts) > 0 {
			authors = append(authors, strings.Join(parts, " "))
		}
	}
	if len(authors) > pubmedMaxAuthors {
		authors = authors[:pubmedMaxAuthors]
	}

	doi := ""
	for _, id := range a.ArticleIDs {
		if id.IDType == "doi" && id.Value != "" {
			doi = id.Value
			break
		}
	}

	return domain.CandidatePaper{
		CanonicalID:   "PMID:" + pmid,
		Title:         title,
		Authors:       authors,
		PublishedDate: parsePubDate(a.Medline.Article.Journal.PubDate.Year, a.Medline.Article.Journal.PubDate.Month, a.Medline.Article.Journal.PubDate.Day),
		Abstract:      abstract,
		URL:           "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		Source:        "pubmed",
		DOI:           doi,
	}, true
}

// joinAbstract concatenates structured abstract sections, keeping their
// labels ("BACKGROUND: ...", "METHODS: ...").
func joinAbstract(sections []pubmedAbstractText) string {
	var parts []string
	for _, s := range sections {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Label != "" {
			parts = append(parts, s.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// parsePubDate handles PubMed's mix of numeric and abbreviated months.
func parsePubDate(year, month, day string) time.Time {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Now().UTC()
	}

	m := time.January
	if month != "" {
		if n, err := strconv.Atoi(month); err == nil && n >= 1 && n <= 12 {
			m = time.Month(n)
		} else if len(month) >= 3 {
			if mapped, ok := pubmedMonths[strings.ToLower(month[:3])]; ok {
				m = mapped
			}
		}
	}

	d := 1
	if n, err := strconv.Atoi(day); err == nil && n >= 1 && n <= 31 {
		d = n
	}

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p *PubMedProvider) baseParams() url.Values {
	params := url.Values{}
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}
	return params
}
