// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/metrics"
)

// breakerFailures is the number of consecutive failures that opens the breaker.
const breakerFailures = 5

// Breaker fails fast while the wrapped backend keeps failing.
type Breaker struct {
	name  string
	model Model
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps model. The breaker opens after five consecutive
// failures and half-opens after 30 seconds.
func NewBreaker(name string, model Model, log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{
		name:  name,
		model: model,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm-" + name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			},
		}),
	}
}

// Complete runs the wrapped call through the breaker and records metrics.
func (b *Breaker) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.model.Complete(ctx, prompt)
	})
	metrics.LLMDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCalls.WithLabelValues(b.name, "error").Inc()
		return "", err
	}
	metrics.LLMCalls.WithLabelValues(b.name, "ok").Inc()
	return out.(string), nil
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
