// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve finds a downloadable PDF URL for a work. It probes the
// work's own location URLs (with host-specific rewrites) and then falls
// back to the landing page meta tag, an arXiv title search, and a Semantic
// Scholar title search. Finding no URL is a normal outcome.
package resolve

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/httputil"
	"github.com/pdiddy/paper-assistant/internal/metrics"
	"github.com/pdiddy/paper-assistant/internal/source"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Method names which step produced a URL.
type Method string

const (
	MethodCandidate       Method = "candidate"
	MethodLandingPage     Method = "landing_page"
	MethodArxiv           Method = "arxiv"
	MethodSemanticScholar Method = "semantic_scholar"
	MethodNone            Method = ""
)

// Resolver locates PDFs for works.
type Resolver struct {
	MaxCandidates            int
	ArxivThreshold           float64
	SemanticScholarThreshold float64
	SemanticScholarAPIKey    string
	LandingPageScan          bool

	prober *Prober
	api    *httputil.Client
	pages  *httputil.Client
	log    *zap.Logger
}

// New builds a Resolver from cfg. Title-search APIs are paced at one
// request per second.
func New(cfg types.ResolveConfig, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	return &Resolver{
		MaxCandidates:            cfg.MaxCandidates,
		ArxivThreshold:           cfg.ArxivThreshold,
		SemanticScholarThreshold: cfg.SemanticScholarThreshold,
		SemanticScholarAPIKey:    cfg.SemanticScholarAPIKey,
		LandingPageScan:          cfg.LandingPageScan,
		prober:                   &Prober{Client: hc, UserAgent: cfg.UserAgent},
		api:                      httputil.NewClient(hc, 1, cfg.UserAgent, log),
		pages:                    httputil.NewClient(hc, 0, cfg.UserAgent, log),
		log:                      log,
	}
}

// Resolve returns the first URL that serves a PDF, or false when none does.
func (r *Resolver) Resolve(ctx context.Context, w source.Work) (string, bool) {
	u, m := r.ResolveWithMethod(ctx, w)
	label := string(m)
	if m == MethodNone {
		label = "none"
	}
	metrics.ResolveTotal.WithLabelValues(label).Inc()
	return u, m != MethodNone
}

// ResolveWithMethod is Resolve that also reports which step succeeded.
func (r *Resolver) ResolveWithMethod(ctx context.Context, w source.Work) (string, Method) {
	log := r.log.With(zap.String("source_id", w.SourceID()))

	cands := Candidates(w)
	if r.MaxCandidates > 0 && len(cands) > r.MaxCandidates {
		cands = cands[:r.MaxCandidates]
	}
	for _, u := range cands {
		if r.prober.IsPDF(ctx, u) {
			return u, MethodCandidate
		}
	}

	if r.LandingPageScan && w.BestOALocation != nil && w.BestOALocation.LandingPageURL != "" {
		u, err := landingPagePDF(ctx, r.pages, w.BestOALocation.LandingPageURL)
		if err != nil {
			log.Debug("landing page scan failed", zap.Error(err))
		} else if u != "" && r.prober.IsPDF(ctx, u) {
			return u, MethodLandingPage
		}
	}

	title := w.DisplayTitle()
	if title == "" {
		return "", MethodNone
	}

	if u, err := r.arxivTitleMatch(ctx, title, r.ArxivThreshold); err != nil {
		log.Debug("arXiv title search failed", zap.Error(err))
	} else if u != "" {
		return u, MethodArxiv
	}

	if u, err := r.semanticTitleMatch(ctx, title, r.SemanticScholarThreshold); err != nil {
		log.Debug("Semantic Scholar title search failed", zap.Error(err))
	} else if u != "" {
		return u, MethodSemanticScholar
	}

	return "", MethodNone
}
