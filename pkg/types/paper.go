// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used in manifests and the source API.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component. It serializes as
// YYYY-MM-DD and compares in the store as a YYYYMMDD integer.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{t}, nil
}

// DateInt converts a calendar date to its YYYYMMDD integer form.
func DateInt(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Int returns the YYYYMMDD form, or 0 for the zero Date.
func (d Date) Int() int {
	if d.IsZero() {
		return 0
	}
	return DateInt(d.Time)
}

// String returns the YYYY-MM-DD form, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON writes the date as a YYYY-MM-DD string, or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a YYYY-MM-DD string or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the date as a YYYY-MM-DD string.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// PaperRecord holds metadata for one paper accepted into a corpus partition.
// SourceID is unique within a corpus.
type PaperRecord struct {
	// SourceID is the work identifier suffix from the source API (e.g. "W4391234567").
	SourceID string `json:"source_id" yaml:"source_id"`

	Title string `json:"title" yaml:"title"`

	// DOI is optional; an empty string means the source had none.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	DatePublished Date `json:"date_published" yaml:"date_published"`

	CitationCount int `json:"citation_count" yaml:"citation_count"`

	Authors []string `json:"authors" yaml:"authors"`

	// Domain is the configured domain label of the concept that matched.
	Domain Domain `json:"domain" yaml:"domain"`

	// Name is a filesystem-safe slug of the title.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Abstract is the source's abstract, used when the PDF yields none.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
}

// ChunkMetadata carries the paper fields copied onto every chunk.
type ChunkMetadata struct {
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
	DOI     string   `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// Chunk is a contiguous span of paper text with inherited paper metadata.
// Chunk 0 of each paper is title plus abstract and has IsAbstract set.
type Chunk struct {
	ID            string        `json:"id" yaml:"id"`
	SourceID      string        `json:"source_id" yaml:"source_id"`
	Domain        Domain        `json:"domain" yaml:"domain"`
	CitationCount int           `json:"citation_count" yaml:"citation_count"`
	DatePublished Date          `json:"date_published" yaml:"date_published"`
	ChunkIndex    int           `json:"chunk_index" yaml:"chunk_index"`
	Text          string        `json:"text_chunk" yaml:"text_chunk"`
	Metadata      ChunkMetadata `json:"metadata" yaml:"metadata"`
	IsAbstract    bool          `json:"is_abstract" yaml:"is_abstract"`
}

// ChunkID builds the stable chunk identifier "<source_id>_chunk_<index>".
func ChunkID(sourceID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", sourceID, index)
}

// CorpusEntry is a chunk as stored in the vector store. PaperDomain is
// classified once per source and shared by all of its chunks.
type CorpusEntry struct {
	Chunk            `yaml:",inline"`
	PaperDomain      Domain `json:"paper_domain" yaml:"paper_domain"`
	DatePublishedInt int    `json:"date_published_int" yaml:"date_published_int"`
}

// ScoredEntry pairs a corpus entry with its similarity to a query.
type ScoredEntry struct {
	CorpusEntry `yaml:",inline"`
	Score       float64 `json:"score" yaml:"score"`
}
