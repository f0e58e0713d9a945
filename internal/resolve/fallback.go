// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-assistant/internal/httputil"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

// fallbackResults is how many title matches each fallback considers.
const fallbackResults = 3

// maxSemanticQuery is the longest title, in characters, sent as a query.
const maxSemanticQuery = 100

// TitleSimilarity is the Jaccard overlap of the lowercase whitespace token
// sets of a and b. Two empty titles score 0.
func TitleSimilarity(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		set[f] = true
	}
	return set
}

// arxivTitleMatch searches arXiv by exact title and returns the PDF link of
// the first result whose title similarity reaches threshold.
func (r *Resolver) arxivTitleMatch(ctx context.Context, title string, threshold float64) (string, error) {
	params := url.Values{
		"search_query": {fmt.Sprintf("ti:%q", title)},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", fallbackResults)},
		"sortBy":       {"relevance"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.api.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return "", fmt.Errorf("parsing arXiv response: %w", err)
	}
	for _, e := range feed.Entries {
		if TitleSimilarity(title, e.Title) < threshold {
			continue
		}
		if link := e.pdfLink(); link != "" {
			return link, nil
		}
	}
	return "", nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID    string      `xml:"id"`
	Title string      `xml:"title"`
	Links []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// pdfLink returns the entry's PDF link, deriving it from the abs URL when
// the feed omits one.
func (e arxivEntry) pdfLink() string {
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	if strings.Contains(e.ID, "/abs/") {
		return strings.Replace(e.ID, "/abs/", "/pdf/", 1)
	}
	return ""
}

// semanticTitleMatch searches Semantic Scholar and returns the open-access
// PDF of the first result whose title similarity reaches threshold and
// whose link passes the probe.
func (r *Resolver) semanticTitleMatch(ctx context.Context, title string, threshold float64) (string, error) {
	q := title
	if runes := []rune(q); len(runes) > maxSemanticQuery {
		q = string(runes[:maxSemanticQuery])
	}
	params := url.Values{
		"query":  {q},
		"limit":  {fmt.Sprintf("%d", fallbackResults)},
		"fields": {"openAccessPdf,title"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if r.SemanticScholarAPIKey != "" {
		req.Header.Set("x-api-key", r.SemanticScholarAPIKey)
	}

	resp, err := r.api.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	for _, p := range sr.Data {
		if p.Title == "" || p.OpenAccessPDF == nil || p.OpenAccessPDF.URL == "" {
			continue
		}
		if TitleSimilarity(title, p.Title) < threshold {
			continue
		}
		if r.prober.IsPDF(ctx, p.OpenAccessPDF.URL) {
			return p.OpenAccessPDF.URL, nil
		}
	}
	return "", nil
}

type semanticResponse struct {
	Data []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

// landingPagePDF fetches an HTML landing page and returns the absolute URL
// in its citation_pdf_url meta tag.
func landingPagePDF(ctx context.Context, c *httputil.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fetching landing page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("landing page returned HTTP %d", resp.StatusCode)
	}
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); ct != "" && !strings.Contains(ct, "html") {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}
	href, ok := doc.Find(`meta[name="citation_pdf_url"]`).First().Attr("content")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return href, nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", nil
	}
	return base.ResolveReference(ref).String(), nil
}
