// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source lists works from the OpenAlex works API by concept and
// converts them into paper records.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/httputil"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// maxPerPage is the largest page the works endpoint serves.
const maxPerPage = 200

// conceptURLPrefix is how the API spells concept ids inside work records.
const conceptURLPrefix = "https://openalex.org/"

// Query selects works for one concept.
type Query struct {
	ConceptID string

	// MinCitations adds a cited_by_count:>N filter when positive.
	MinCitations int

	// WindowDays adds a publication_date:>cutoff filter when positive.
	WindowDays int

	// Limit caps the number of works returned across pages.
	Limit int
}

// OpenAlex is a client for the works endpoint.
type OpenAlex struct {
	BaseURL string
	Mailto  string
	Client  *httputil.Client
	Logger  *zap.Logger

	// Now returns the current time; tests pin it.
	Now func() time.Time
}

// NewOpenAlex builds a paced client from cfg.
func NewOpenAlex(cfg types.SourceConfig, log *zap.Logger) *OpenAlex {
	if log == nil {
		log = zap.NewNop()
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	return &OpenAlex{
		BaseURL: cfg.BaseURL,
		Mailto:  cfg.Mailto,
		Client:  httputil.NewClient(hc, cfg.RequestsPerSecond, cfg.UserAgent, log),
		Logger:  log,
		Now:     time.Now,
	}
}

// ListWorks returns up to q.Limit works sorted newest first, following
// pages until the limit is reached or a page comes back empty. Works are
// returned in API order; duplicates across pages are left to the caller.
func (o *OpenAlex) ListWorks(ctx context.Context, q Query) ([]Work, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 25
	}
	perPage := limit
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	var works []Work
	for page := 1; len(works) < limit; page++ {
		batch, err := o.fetchPage(ctx, q, perPage, page)
		if err != nil {
			return works, err
		}
		if len(batch) == 0 {
			break
		}
		remaining := limit - len(works)
		if len(batch) > remaining {
			batch = batch[:remaining]
		}
		works = append(works, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return works, nil
}

func (o *OpenAlex) fetchPage(ctx context.Context, q Query, perPage, page int) ([]Work, error) {
	params := url.Values{
		"filter":   {o.filter(q)},
		"sort":     {"publication_date:desc"},
		"per-page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
	}
	if o.Mailto != "" {
		params.Set("mailto", o.Mailto)
	}
	reqURL := o.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var wr worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	o.Logger.Debug("fetched works page",
		zap.String("concept", q.ConceptID),
		zap.Int("page", page),
		zap.Int("results", len(wr.Results)))
	return wr.Results, nil
}

func (o *OpenAlex) filter(q Query) string {
	parts := []string{"concepts.id:" + q.ConceptID}
	if q.MinCitations > 0 {
		parts = append(parts, fmt.Sprintf("cited_by_count:>%d", q.MinCitations))
	}
	if q.WindowDays > 0 {
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		cutoff := now().AddDate(0, 0, -q.WindowDays)
		parts = append(parts, "publication_date:>"+cutoff.Format(types.DateLayout))
	}
	return strings.Join(parts, ",")
}

type worksResponse struct {
	Meta struct {
		Count   int `json:"count"`
		PerPage int `json:"per_page"`
		Page    int `json:"page"`
	} `json:"meta"`
	Results []Work `json:"results"`
}

// Work is one record from the works endpoint.
type Work struct {
	ID                    string           `json:"id"`
	DisplayName           string           `json:"display_name"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationDate       string           `json:"publication_date"`
	CitedByCount          int              `json:"cited_by_count"`
	Authorships           []Authorship     `json:"authorships"`
	Concepts              []Concept        `json:"concepts"`
	OpenAccess            OpenAccess       `json:"open_access"`
	BestOALocation        *Location        `json:"best_oa_location"`
	Locations             []Location       `json:"locations"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

type Authorship struct {
	Author struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type Concept struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

type OpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}

// Location is one place a work is hosted.
type Location struct {
	IsOA           bool   `json:"is_oa"`
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
}

// SourceID returns the id suffix after the last slash (e.g. "W4391234567").
func (w Work) SourceID() string {
	if i := strings.LastIndex(w.ID, "/"); i >= 0 {
		return w.ID[i+1:]
	}
	return w.ID
}

// DisplayTitle prefers the title field and falls back to display_name.
func (w Work) DisplayTitle() string {
	if w.Title != "" {
		return w.Title
	}
	return w.DisplayName
}

// IsPrimaryConcept reports whether the work's score for conceptID exceeds
// threshold. A work that does not list the concept is not primary.
func (w Work) IsPrimaryConcept(conceptID string, threshold float64) bool {
	want := conceptID
	if !strings.HasPrefix(want, conceptURLPrefix) {
		want = conceptURLPrefix + conceptID
	}
	for _, c := range w.Concepts {
		if c.ID == want {
			return c.Score > threshold
		}
	}
	return false
}

// Abstract rebuilds the plain-text abstract from the inverted index.
func (w Work) Abstract() string {
	return reconstructAbstract(w.AbstractInvertedIndex)
}

// ToRecord converts the work into a PaperRecord tagged with domain. An
// unparseable publication date is left zero.
func (w Work) ToRecord(domain types.Domain) types.PaperRecord {
	title := w.DisplayName
	if title == "" {
		title = w.Title
	}
	rec := types.PaperRecord{
		SourceID:      w.SourceID(),
		Title:         title,
		DOI:           w.DOI,
		CitationCount: w.CitedByCount,
		Authors:       []string{},
		Domain:        domain,
		Name:          SafeName(title),
		Abstract:      w.Abstract(),
	}
	if d, err := types.ParseDate(w.PublicationDate); err == nil {
		rec.DatePublished = d
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			rec.Authors = append(rec.Authors, a.Author.DisplayName)
		}
	}
	return rec
}

var unsafeNameChars = regexp.MustCompile(`[^\w\-. ]`)

// SafeName turns a title into a filesystem-safe slug.
func SafeName(title string) string {
	if title == "" {
		return "unnamed_paper"
	}
	return strings.ReplaceAll(unsafeNameChars.ReplaceAllString(title, "_"), " ", "_")
}

// maxAbstractWords bounds the slice built from an inverted index.
const maxAbstractWords = 5000

// reconstructAbstract lays each word of an abstract_inverted_index at its
// positions and joins them. Gaps and out-of-range positions are dropped.
func reconstructAbstract(index map[string][]int) string {
	last := -1
	for _, positions := range index {
		for _, p := range positions {
			if p > last && p < maxAbstractWords {
				last = p
			}
		}
	}
	if last < 0 {
		return ""
	}

	slots := make([]string, last+1)
	for word, positions := range index {
		for _, p := range positions {
			if p >= 0 && p <= last {
				slots[p] = word
			}
		}
	}
	return strings.Join(strings.Fields(strings.Join(slots, " ")), " ")
}
