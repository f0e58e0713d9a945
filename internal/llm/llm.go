// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the chat language model behind a single prompt-in,
// text-out interface. Backends are an OpenAI-compatible chat completions
// endpoint (Groq by default) and the Claude Messages API. Every backend is
// wrapped with retry and a circuit breaker.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// ErrNoJSON is returned when a model reply contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in model reply")

// Model completes a prompt. Implementations may fail or return text that
// does not follow the requested format; callers substitute defaults.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Model.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New builds the configured backend wrapped with retry and a breaker.
func New(cfg types.LLMConfig, log *zap.Logger) (Model, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var base Model
	switch cfg.Provider {
	case "openai", "groq":
		base = NewOpenAIChat(cfg)
	case "claude":
		base = NewClaudeBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	breaker := NewBreaker(cfg.Provider, base, log)
	return &Retrying{Model: breaker, MaxRetries: cfg.MaxRetries, Logger: log}, nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Retrying retries failed completions with exponential backoff. An open
// breaker stops retries immediately.
type Retrying struct {
	Model      Model
	MaxRetries int
	Logger     *zap.Logger
}

// Complete calls the wrapped model up to MaxRetries+1 times.
func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := r.Model.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || ctx.Err() != nil {
			break
		}
		if r.Logger != nil {
			r.Logger.Debug("llm call failed", zap.Int("attempt", attempt), zap.Error(err))
		}
	}
	return "", fmt.Errorf("llm completion: %w", lastErr)
}

// ExtractJSONObject returns the first balanced {...} object in s. Braces
// inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoJSON
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

// DecodeJSON extracts the first JSON object from reply and unmarshals it into v.
func DecodeJSON(reply string, v any) error {
	obj, err := ExtractJSONObject(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("parsing model JSON: %w", err)
	}
	return nil
}
