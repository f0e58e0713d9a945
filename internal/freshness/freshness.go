// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package freshness decides when the recent partition is stale and evicts
// stored entries older than the retention horizon. Dates compare as
// YYYYMMDD integers.
package freshness

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/metrics"
	"github.com/pdiddy/paper-assistant/internal/store"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Cutoff returns the YYYYMMDD integer of the calendar date days before today.
func Cutoff(today time.Time, days int) int {
	return types.DateInt(today.AddDate(0, 0, -days))
}

// IsStale reports whether newest is more than stalenessDays calendar days
// before today. A zero newest is stale.
func IsStale(newest types.Date, today time.Time, stalenessDays int) bool {
	if newest.IsZero() {
		return true
	}
	horizon := types.NewDate(today).AddDate(0, 0, -stalenessDays)
	return newest.Before(horizon)
}

// Deleter removes entries matching a filter.
type Deleter interface {
	Delete(ctx context.Context, f store.Filter) (int, error)
}

// Evictor removes stored entries older than a retention horizon.
type Evictor struct {
	Store  Deleter
	Now    func() time.Time
	Logger *zap.Logger
}

// NewEvictor returns an Evictor over s using the wall clock.
func NewEvictor(s Deleter, log *zap.Logger) *Evictor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evictor{Store: s, Now: time.Now, Logger: log}
}

// Evict deletes every entry whose date_published_int is strictly less than
// the horizon today-retentionDays and returns how many were removed.
func (e *Evictor) Evict(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention days must not be negative, got %d", retentionDays)
	}
	horizon := Cutoff(e.Now(), retentionDays)

	n, err := e.Store.Delete(ctx, store.Filter{BeforeDateInt: horizon})
	if err != nil {
		return 0, fmt.Errorf("evicting entries before %d: %w", horizon, err)
	}
	metrics.EntriesEvicted.Add(float64(n))
	e.Logger.Info("evicted stale entries",
		zap.Int("horizon", horizon),
		zap.Int("retention_days", retentionDays),
		zap.Int("removed", n))
	return n, nil
}
