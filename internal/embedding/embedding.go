// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding turns text into fixed-dimension vectors. Providers are
// an OpenAI-compatible endpoint or a local Ollama server, optionally
// fronted by a redis cache.
package embedding

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Embedder embeds a batch of texts. The result has one vector per input,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding returned %d vectors for 1 input", len(vecs))
	}
	return vecs[0], nil
}

// Close releases what e holds open, such as the cache's connection pool.
// It is a no-op for embedders that hold nothing.
func Close(e Embedder) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// New builds the configured provider and wraps it with the redis cache
// when cacheCfg.Addr is set.
func New(cfg types.EmbeddingConfig, cacheCfg types.CacheConfig, log *zap.Logger) (Embedder, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var e Embedder
	switch cfg.Provider {
	case "openai":
		e = NewOpenAI(cfg)
	case "ollama":
		opts := []OllamaOption{
			WithModel(cfg.Model),
			WithDimensions(cfg.Dimensions),
			WithTimeout(cfg.Timeout),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		e = NewOllamaProvider(opts...)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cacheCfg.Addr == "" {
		return e, nil
	}
	cache, err := NewRedisCache(cacheCfg)
	if err != nil {
		log.Warn("embedding cache unavailable, continuing without it", zap.Error(err))
		return e, nil
	}
	log.Info("embedding cache enabled", zap.String("addr", cacheCfg.Addr))
	return NewCached(e, cache, cfg.Model, log), nil
}

// defaultTimeout bounds a provider call when the config leaves it unset.
const defaultTimeout = 60 * time.Second
