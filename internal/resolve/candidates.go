// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/paper-assistant/internal/source"
)

// Candidates lists the URLs worth probing for a work, in priority order:
// the open-access URL, the best OA location, then every location with
// open-access ones first. Each URL is preceded by its host-specific PDF
// rewrite when one applies. Duplicates keep their first position.
func Candidates(w source.Work) []string {
	var raw []string
	raw = append(raw, w.OpenAccess.OAURL)
	if w.BestOALocation != nil {
		raw = append(raw, w.BestOALocation.PDFURL, w.BestOALocation.LandingPageURL)
	}

	locs := append([]source.Location(nil), w.Locations...)
	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].IsOA && !locs[j].IsOA
	})
	for _, loc := range locs {
		raw = append(raw, loc.PDFURL, loc.LandingPageURL)
	}

	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	for _, u := range raw {
		if u == "" {
			continue
		}
		if r, ok := Rewrite(u); ok {
			add(r)
		}
		add(u)
	}
	return out
}

// Rewrite maps a landing-page URL on a known host to its direct PDF URL.
// The first matching rule wins.
func Rewrite(u string) (string, bool) {
	switch {
	case strings.Contains(u, "arxiv.org/abs/"):
		return strings.Replace(u, "arxiv.org/abs/", "arxiv.org/pdf/", 1) + ".pdf", true

	case strings.Contains(u, "ncbi.nlm.nih.gov/pmc/articles/") && !strings.HasSuffix(u, ".pdf"):
		parts := strings.Split(strings.TrimRight(u, "/"), "/")
		id := parts[len(parts)-1]
		if !strings.HasPrefix(id, "PMC") {
			return "", false
		}
		return "https://www.ncbi.nlm.nih.gov/pmc/articles/" + id + "/pdf/", true

	case strings.Contains(u, "mdpi.com") && !strings.HasSuffix(u, ".pdf"):
		return u + "/pdf", true

	case strings.Contains(u, "openaccess.thecvf.com"):
		if strings.HasSuffix(u, ".html") {
			return strings.TrimSuffix(u, ".html") + ".pdf", true
		}
		if !strings.HasSuffix(u, ".pdf") {
			return u + ".pdf", true
		}
		return "", false

	case strings.Contains(u, "openreview.net") && strings.Contains(u, "/forum?id="):
		parsed, err := url.Parse(u)
		if err != nil {
			return "", false
		}
		id := parsed.Query().Get("id")
		if id == "" {
			return "", false
		}
		return "https://openreview.net/pdf?id=" + id, true

	case strings.Contains(u, "proceedings.mlr.press") && !strings.HasSuffix(u, ".pdf"):
		return u + ".pdf", true
	}
	return "", false
}
