// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package preprocess turns downloaded PDFs into chunks: chunk 0 holds the
// title and extracted abstract, chunks 1..N hold sentence-aligned body
// text with word overlap.
package preprocess

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Chunker builds chunks for accepted papers.
type Chunker struct {
	Extractor Extractor
	MaxWords  int
	Overlap   int
	Logger    *zap.Logger
}

// NewChunker returns a Chunker using the PDF extractor.
func NewChunker(maxWords, overlap int, log *zap.Logger) *Chunker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chunker{Extractor: PDFExtractor{}, MaxWords: maxWords, Overlap: overlap, Logger: log}
}

// Paper chunks one paper. Chunk 0 is title plus abstract, taken from the PDF
// or else from rec.Abstract. It is emitted even when the PDF yields no text,
// so every accepted paper stays reachable by abstract search.
func (c *Chunker) Paper(rec types.PaperRecord, pdfPath string) []types.Chunk {
	text, abstract := c.Extractor.Extract(pdfPath)
	if text == "" {
		c.Logger.Warn("no text extracted", zap.String("source_id", rec.SourceID), zap.String("path", pdfPath))
	}

	if abstract == "" {
		abstract = strings.TrimSpace(rec.Abstract)
	}
	head := strings.TrimSpace(rec.Title)
	if abstract != "" {
		head += "\n\n" + abstract
	}

	chunks := []types.Chunk{c.newChunk(rec, 0, head, true)}
	body := ChunkSentences(Sentences(Clean(text)), c.MaxWords, c.Overlap)
	for i, b := range body {
		chunks = append(chunks, c.newChunk(rec, i+1, b, false))
	}
	return chunks
}

// Manifest chunks every record whose PDF exists at pdfPath(source_id).
// Records without a PDF are skipped.
func (c *Chunker) Manifest(recs []types.PaperRecord, pdfPath func(sourceID string) string) []types.Chunk {
	var out []types.Chunk
	for _, rec := range recs {
		path := pdfPath(rec.SourceID)
		if _, err := os.Stat(path); err != nil {
			c.Logger.Debug("pdf missing, skipping", zap.String("source_id", rec.SourceID))
			continue
		}
		out = append(out, c.Paper(rec, path)...)
	}
	return out
}

func (c *Chunker) newChunk(rec types.PaperRecord, index int, text string, isAbstract bool) types.Chunk {
	authors := rec.Authors
	if authors == nil {
		authors = []string{}
	}
	return types.Chunk{
		ID:            types.ChunkID(rec.SourceID, index),
		SourceID:      rec.SourceID,
		Domain:        rec.Domain,
		CitationCount: rec.CitationCount,
		DatePublished: rec.DatePublished,
		ChunkIndex:    index,
		Text:          text,
		Metadata: types.ChunkMetadata{
			Title:   rec.Title,
			Authors: authors,
			DOI:     rec.DOI,
		},
		IsAbstract: isAbstract,
	}
}
