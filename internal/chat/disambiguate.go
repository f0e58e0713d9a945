// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/llm"
	"github.com/pdiddy/paper-assistant/internal/store"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

const snippetWords = 80

// Disambiguator maps a free-text paper description to a corpus source id.
type Disambiguator struct {
	Model      llm.Model
	Retriever  Retriever
	Candidates int
	Logger     *zap.Logger
}

type candidate struct {
	ID      string
	Title   string
	Snippet string
}

type matchReply struct {
	PaperTitle *string `json:"paper_title"`
	PaperID    *string `json:"paper_id"`
}

// Resolve searches abstract chunks for description and asks the model to
// pick one. It returns nil, nil when there are no candidates, the reply
// cannot be parsed, the model declines, or the chosen id is not a
// candidate.
func (d *Disambiguator) Resolve(ctx context.Context, description string) (title, id *string) {
	n := d.Candidates
	if n <= 0 {
		n = 4
	}
	hits, err := d.Retriever.Search(ctx, description, n, store.AbstractsOnly())
	if err != nil {
		d.logger().Warn("candidate search failed", zap.String("description", description), zap.Error(err))
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	cands := make([]candidate, 0, len(hits))
	byID := map[string]candidate{}
	for _, h := range hits {
		c := candidate{ID: h.SourceID, Title: entryTitle(h.CorpusEntry), Snippet: firstWords(h.Text, snippetWords)}
		cands = append(cands, c)
		byID[c.ID] = c
	}

	prompt, err := render(disambiguatePromptTmpl, map[string]any{
		"Description": description,
		"Candidates":  cands,
	})
	if err != nil {
		d.logger().Error("disambiguation prompt", zap.Error(err))
		return nil, nil
	}

	reply, err := d.Model.Complete(ctx, prompt)
	if err != nil {
		d.logger().Warn("disambiguation failed", zap.Error(err))
		return nil, nil
	}

	var m matchReply
	if err := llm.DecodeJSON(reply, &m); err != nil {
		d.logger().Debug("unparseable disambiguation reply", zap.String("reply", reply))
		return nil, nil
	}
	if m.PaperID == nil {
		return nil, nil
	}
	chosen, ok := byID[strings.TrimSpace(*m.PaperID)]
	if !ok {
		d.logger().Debug("disambiguation chose no candidate", zap.String("paper_id", *m.PaperID))
		return nil, nil
	}

	t, i := chosen.Title, chosen.ID
	return &t, &i
}

func (d *Disambiguator) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// entryTitle falls back to the source id for chunks stored without a title.
func entryTitle(e types.CorpusEntry) string {
	if e.Metadata.Title != "" {
		return e.Metadata.Title
	}
	return e.SourceID
}
