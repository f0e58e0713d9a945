// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// OpenAI embeds text through an OpenAI-compatible embeddings endpoint.
type OpenAI struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAI builds an OpenAI embedder. cfg.BaseURL points it at any
// compatible server.
func NewOpenAI(cfg types.EmbeddingConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAI{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed sends texts in one request and orders the vectors by input index.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if o.dimensions > 0 && len(d.Embedding) != o.dimensions {
			return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(d.Embedding), o.dimensions)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
