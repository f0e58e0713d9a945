// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/paper-assistant/internal/embedding"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Index pairs a Store with an Embedder so callers work in text.
type Index struct {
	Store    *Store
	Embedder embedding.Embedder
}

// NewIndex returns an Index over s using e for queries and inserts.
func NewIndex(s *Store, e embedding.Embedder) *Index {
	return &Index{Store: s, Embedder: e}
}

// Add embeds the entry texts and upserts them.
func (ix *Index) Add(ctx context.Context, entries []types.CorpusEntry) error {
	if len(entries) == 0 {
		return nil
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	vecs, err := ix.Embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding entries: %w", err)
	}
	return ix.Store.Upsert(ctx, entries, vecs)
}

// Search embeds text and returns the n most similar entries matching f.
func (ix *Index) Search(ctx context.Context, text string, n int, f Filter) ([]types.ScoredEntry, error) {
	vec, err := embedding.EmbedOne(ctx, ix.Embedder, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.Store.Query(ctx, vec, n, f)
}

// Get returns every entry matching f.
func (ix *Index) Get(ctx context.Context, f Filter) ([]types.CorpusEntry, error) {
	return ix.Store.Get(ctx, f)
}

// Delete removes every entry matching f.
func (ix *Index) Delete(ctx context.Context, f Filter) (int, error) {
	return ix.Store.Delete(ctx, f)
}
