// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportPaper summarises one paper in the corpus.
type ExportPaper struct {
	SourceID         string   `json:"source_id" yaml:"source_id"`
	Title            string   `json:"title" yaml:"title"`
	Authors          []string `json:"authors" yaml:"authors"`
	DOI              string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	PaperDomain      string   `json:"paper_domain" yaml:"paper_domain"`
	DatePublished    string   `json:"date_published" yaml:"date_published"`
	DatePublishedInt int      `json:"date_published_int" yaml:"date_published_int"`
	CitationCount    int      `json:"citation_count" yaml:"citation_count"`
	Chunks           int      `json:"chunks" yaml:"chunks"`
}

// Export writes one record per paper matching f to w as "yaml" or "json".
// Papers appear newest first.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, f Filter) error {
	papers, err := s.exportPapers(ctx, f)
	if err != nil {
		return err
	}

	switch format {
	case "yaml", "":
		data, err := yaml.Marshal(papers)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(papers, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func (s *Store) exportPapers(ctx context.Context, f Filter) ([]ExportPaper, error) {
	entries, err := s.Get(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	papers := []ExportPaper{}
	index := map[string]int{}
	for _, e := range entries {
		i, ok := index[e.SourceID]
		if !ok {
			authors := e.Metadata.Authors
			if authors == nil {
				authors = []string{}
			}
			papers = append(papers, ExportPaper{
				SourceID:         e.SourceID,
				Authors:          authors,
				DOI:              e.Metadata.DOI,
				PaperDomain:      string(e.PaperDomain),
				DatePublished:    e.DatePublished.String(),
				DatePublishedInt: e.DatePublishedInt,
				CitationCount:    e.CitationCount,
			})
			i = len(papers) - 1
			index[e.SourceID] = i
		}
		if papers[i].Title == "" {
			papers[i].Title = e.Metadata.Title
		}
		papers[i].Chunks++
	}
	return papers, nil
}
