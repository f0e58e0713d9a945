// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for ingestion, eviction,
// the chat router and language-model calls.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	PapersProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_assistant_ingest_papers_total",
			Help: "Works considered during ingestion, by partition and outcome",
		},
		[]string{"partition", "outcome"},
	)

	ResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_assistant_resolve_total",
			Help: "PDF resolution attempts by method (empty method means unresolved)",
		},
		[]string{"method"},
	)

	DownloadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_assistant_download_total",
			Help: "Guarded downloads by outcome",
		},
		[]string{"outcome"},
	)

	ChunksIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_assistant_chunks_indexed_total",
			Help: "Chunks embedded and upserted into the vector store",
		},
		[]string{"partition"},
	)

	EntriesEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paper_assistant_entries_evicted_total",
			Help: "Vector store entries removed by the freshness evictor",
		},
	)

	ChatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_assistant_chat_turns_total",
			Help: "Conversation turns by routed intent",
		},
		[]string{"intent"},
	)

	ChatErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paper_assistant_chat_errors_total",
			Help: "Conversation turns that ended with the error indicator set",
		},
	)

	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_assistant_llm_calls_total",
			Help: "Language model calls by backend and status",
		},
		[]string{"backend", "status"},
	)

	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paper_assistant_llm_duration_seconds",
			Help:    "Language model call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"backend"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paper_assistant_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)
)

// Registry holds every collector above. It is separate from the default
// registry so tests and embedding programs do not collide.
var Registry = prometheus.NewRegistry()

var registerOnce sync.Once

// Init registers the collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		Registry.MustRegister(
			PapersProcessed,
			ResolveTotal,
			DownloadTotal,
			ChunksIndexed,
			EntriesEvicted,
			ChatTurns,
			ChatErrors,
			LLMCalls,
			LLMDuration,
			BreakerState,
		)
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
