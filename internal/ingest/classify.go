// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"strings"
	"text/template"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/llm"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

var classifyPromptTmpl = template.Must(template.New("classify").Parse(`You are an expert researcher.
Given this research paper abstract, classify the paper into exactly one of:
- NLP (Natural Language Processing)
- CV (Computer Vision)
- ML (Machine Learning other than CV/NLP)
- DL (Deep Learning generic)
- MM (Multimodal, combining CV and NLP)

Respond with only the category name.

Abstract:
{{.Abstract}}
`))

// DomainClassifier labels each paper once from the text of its first
// chunk. Results are cached by source id for the life of the classifier.
type DomainClassifier struct {
	Model  llm.Model
	Words  int
	Logger *zap.Logger

	cache map[string]types.Domain
}

// NewDomainClassifier returns a classifier that feeds the first words of
// each abstract chunk to m.
func NewDomainClassifier(m llm.Model, words int, log *zap.Logger) *DomainClassifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &DomainClassifier{Model: m, Words: words, Logger: log, cache: map[string]types.Domain{}}
}

// Classify returns the cached domain for sourceID, or asks the model.
// Model failures and answers outside the taxonomy yield DomainUnknown.
func (c *DomainClassifier) Classify(ctx context.Context, sourceID, text string) types.Domain {
	if c.cache == nil {
		c.cache = map[string]types.Domain{}
	}
	if d, ok := c.cache[sourceID]; ok {
		return d
	}

	d := c.ask(ctx, sourceID, text)
	c.cache[sourceID] = d
	return d
}

func (c *DomainClassifier) ask(ctx context.Context, sourceID, text string) types.Domain {
	var buf bytes.Buffer
	if err := classifyPromptTmpl.Execute(&buf, struct{ Abstract string }{firstWords(text, c.Words)}); err != nil {
		return types.DomainUnknown
	}

	out, err := c.Model.Complete(ctx, buf.String())
	if err != nil {
		c.Logger.Warn("domain classification failed", zap.String("source_id", sourceID), zap.Error(err))
		return types.DomainUnknown
	}
	if d, ok := parseDomainAnswer(out); ok {
		return d
	}
	c.Logger.Debug("unrecognised domain answer", zap.String("source_id", sourceID), zap.String("answer", out))
	return types.DomainUnknown
}

// parseDomainAnswer accepts "NLP", "nlp.", or "NLP (Natural Language Processing)".
func parseDomainAnswer(out string) (types.Domain, bool) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", false
	}
	token := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return types.ParseDomain(token)
}

// firstWords returns at most n whitespace-separated words of s; n <= 0 keeps all.
func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
