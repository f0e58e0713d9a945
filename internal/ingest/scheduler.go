// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest builds the baseline and recent corpus partitions: it
// decides whether a partition needs rebuilding, then runs fetch, resolve,
// download, chunk, classify, embed and upsert for the works of each
// configured concept.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/acquire"
	"github.com/pdiddy/paper-assistant/internal/corpus"
	"github.com/pdiddy/paper-assistant/internal/dedup"
	"github.com/pdiddy/paper-assistant/internal/freshness"
	"github.com/pdiddy/paper-assistant/internal/metrics"
	"github.com/pdiddy/paper-assistant/internal/source"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// WorkSource lists works for a concept.
type WorkSource interface {
	ListWorks(ctx context.Context, q source.Query) ([]source.Work, error)
}

// Resolver finds a downloadable PDF URL for a work.
type Resolver interface {
	Resolve(ctx context.Context, w source.Work) (string, bool)
}

// Downloader saves a URL to a local path within resource bounds.
type Downloader interface {
	Download(ctx context.Context, url, dest string) acquire.Outcome
}

// Chunker turns accepted records into chunks.
type Chunker interface {
	Manifest(recs []types.PaperRecord, pdfPath func(sourceID string) string) []types.Chunk
}

// Indexer embeds and stores corpus entries.
type Indexer interface {
	Add(ctx context.Context, entries []types.CorpusEntry) error
}

// Evictor drops stored entries past the retention horizon.
type Evictor interface {
	Evict(ctx context.Context, retentionDays int) (int, error)
}

// Classifier labels a paper from the text of its first chunk.
type Classifier interface {
	Classify(ctx context.Context, sourceID, text string) types.Domain
}

// Reason explains a Plan decision.
type Reason string

const (
	ReasonMissing Reason = "missing"
	ReasonStale   Reason = "stale"
	ReasonFresh   Reason = "fresh"
	ReasonForced  Reason = "forced"
)

// Decision is the outcome of Plan for one partition.
type Decision struct {
	Rebuild bool
	Reason  Reason

	// Newest is the latest publication date in the existing manifest, if any.
	Newest types.Date
}

// PartitionSummary holds counts from building one partition.
type PartitionSummary struct {
	Kind     corpus.Kind
	Decision Decision
	Accepted int
	Chunks   int
	Indexed  int
	Evicted  int
}

// Scheduler orchestrates partition rebuilds.
type Scheduler struct {
	Source     WorkSource
	Resolver   Resolver
	Downloader Downloader
	Chunker    Chunker
	Index      Indexer
	Evictor    Evictor

	// Classifier may be nil, in which case entries keep the concept domain.
	Classifier Classifier

	Concepts            []types.ConceptConfig
	PrimaryConceptScore float64
	Freshness           types.FreshnessConfig
	BatchSize           int

	Now    func() time.Time
	Out    io.Writer
	Logger *zap.Logger
}

// Plan decides whether p must be rebuilt. It reads only local files.
// Baseline rebuilds only when an artifact is missing; recent also rebuilds
// when its newest paper is older than the staleness horizon.
func (s *Scheduler) Plan(p corpus.Partition) Decision {
	if !p.Exists() {
		return Decision{Rebuild: true, Reason: ReasonMissing}
	}
	if p.Kind != corpus.Recent {
		return Decision{Reason: ReasonFresh}
	}

	recs, err := corpus.ReadManifest(p.ManifestPath())
	if err != nil {
		s.logger().Warn("unreadable manifest, rebuilding", zap.String("path", p.ManifestPath()), zap.Error(err))
		return Decision{Rebuild: true, Reason: ReasonMissing}
	}
	newest, _ := corpus.NewestPublished(recs)
	if freshness.IsStale(newest, s.now(), s.Freshness.StalenessDays) {
		return Decision{Rebuild: true, Reason: ReasonStale, Newest: newest}
	}
	return Decision{Reason: ReasonFresh, Newest: newest}
}

// Run plans and, where needed, rebuilds each partition in order. force
// rebuilds regardless of the plan. One dedup set spans the whole run and
// is seeded from the manifests of partitions that are kept.
func (s *Scheduler) Run(ctx context.Context, parts []corpus.Partition, force bool) ([]PartitionSummary, error) {
	seen := dedup.New()
	var summaries []PartitionSummary

	for _, p := range parts {
		d := s.Plan(p)
		if force && !d.Rebuild {
			d.Rebuild, d.Reason = true, ReasonForced
		}
		sum := PartitionSummary{Kind: p.Kind, Decision: d}

		if !d.Rebuild {
			fmt.Fprintf(s.out(), "partition %s is up to date (newest %s)\n", p.Kind, d.Newest)
			s.seed(p, seen)
			summaries = append(summaries, sum)
			continue
		}

		fmt.Fprintf(s.out(), "rebuilding partition %s (%s)\n", p.Kind, d.Reason)
		if p.Kind == corpus.Recent && (d.Reason == ReasonStale || d.Reason == ReasonForced) && s.Evictor != nil {
			n, err := s.Evictor.Evict(ctx, s.Freshness.RetentionDays)
			if err != nil {
				return summaries, fmt.Errorf("evicting before rebuild: %w", err)
			}
			sum.Evicted = n
			fmt.Fprintf(s.out(), "evicted %d entries older than %d days\n", n, s.Freshness.RetentionDays)
		}
		if err := p.Remove(); err != nil {
			return summaries, fmt.Errorf("clearing partition %s: %w", p.Kind, err)
		}

		if err := s.Build(ctx, p, seen, &sum); err != nil {
			return summaries, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Build collects, chunks and indexes one partition, writing its manifest
// and chunk file.
func (s *Scheduler) Build(ctx context.Context, p corpus.Partition, seen *dedup.Set, sum *PartitionSummary) error {
	recs, err := s.Collect(ctx, p, seen)
	if err != nil {
		return err
	}
	sum.Accepted = len(recs)

	if err := corpus.WriteManifest(p.ManifestPath(), recs); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	chunks := s.Chunker.Manifest(recs, p.PDFPath)
	sum.Chunks = len(chunks)
	if err := corpus.WriteChunks(p.ChunksPath(), chunks); err != nil {
		return fmt.Errorf("writing chunks: %w", err)
	}

	n, err := s.IndexChunks(ctx, p.Kind, chunks)
	sum.Indexed = n
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out(), "\n%s: accepted %d papers, %d chunks, indexed %d\n", p.Kind, sum.Accepted, sum.Chunks, sum.Indexed)
	return nil
}

// Collect walks concepts in configured order and works in API order,
// accepting a work only when it is new to this run, primarily about the
// concept, resolvable, and downloaded. Source errors for one concept are
// reported and the next concept is tried.
func (s *Scheduler) Collect(ctx context.Context, p corpus.Partition, seen *dedup.Set) ([]types.PaperRecord, error) {
	recs := []types.PaperRecord{}
	partition := string(p.Kind)

	for _, c := range s.Concepts {
		works, err := s.Source.ListWorks(ctx, source.Query{
			ConceptID:    c.ID,
			MinCitations: p.MinCitations,
			WindowDays:   p.WindowDays,
			Limit:        p.MaxResults,
		})
		if err != nil {
			fmt.Fprintf(s.out(), "failed  concept %s: %v\n", c.ID, err)
			s.logger().Warn("listing works failed", zap.String("concept", c.ID), zap.Error(err))
		}

		for _, w := range works {
			if err := ctx.Err(); err != nil {
				return recs, err
			}

			id := w.SourceID()
			switch {
			case id == "":
				continue
			case seen.Seen(id):
				s.count(partition, "duplicate")
				continue
			case !w.IsPrimaryConcept(c.ID, s.PrimaryConceptScore):
				s.count(partition, "not_primary")
				continue
			}

			url, ok := s.Resolver.Resolve(ctx, w)
			if !ok {
				fmt.Fprintf(s.out(), "skipped %s: no PDF found\n", id)
				s.count(partition, "unresolved")
				continue
			}

			outcome := s.Downloader.Download(ctx, url, p.PDFPath(id))
			if outcome != acquire.Saved {
				fmt.Fprintf(s.out(), "skipped %s: %s\n", id, outcome)
				s.count(partition, string(outcome))
				continue
			}

			seen.Mark(id)
			recs = append(recs, w.ToRecord(c.Domain))
			s.count(partition, string(acquire.Saved))
			fmt.Fprintf(s.out(), "saved   %s %s\n", id, w.DisplayTitle())
		}
	}
	return recs, nil
}

// IndexChunks classifies, embeds and upserts chunks in batches. A failed
// batch is reported and skipped.
func (s *Scheduler) IndexChunks(ctx context.Context, kind corpus.Kind, chunks []types.Chunk) (int, error) {
	size := s.BatchSize
	if size <= 0 {
		size = 50
	}

	indexed := 0
	for start := 0; start < len(chunks); start += size {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}

		entries := make([]types.CorpusEntry, 0, end-start)
		for _, c := range chunks[start:end] {
			entries = append(entries, types.CorpusEntry{
				Chunk:            c,
				PaperDomain:      s.paperDomain(ctx, c),
				DatePublishedInt: c.DatePublished.Int(),
			})
		}

		if err := s.Index.Add(ctx, entries); err != nil {
			fmt.Fprintf(s.out(), "failed  batch %d-%d: %v\n", start, end-1, err)
			s.logger().Warn("indexing batch failed", zap.Int("start", start), zap.Error(err))
			continue
		}
		indexed += len(entries)
		metrics.ChunksIndexed.WithLabelValues(string(kind)).Add(float64(len(entries)))
	}
	return indexed, nil
}

func (s *Scheduler) paperDomain(ctx context.Context, c types.Chunk) types.Domain {
	if s.Classifier == nil {
		return c.Domain
	}
	return s.Classifier.Classify(ctx, c.SourceID, c.Text)
}

// seed marks every record of a kept partition so the next partition does
// not ingest the same paper twice.
func (s *Scheduler) seed(p corpus.Partition, seen *dedup.Set) {
	recs, err := corpus.ReadManifest(p.ManifestPath())
	if err != nil {
		return
	}
	for _, r := range recs {
		seen.Mark(r.SourceID)
	}
}

func (s *Scheduler) count(partition, outcome string) {
	metrics.PapersProcessed.WithLabelValues(partition, outcome).Inc()
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) out() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return io.Discard
}

func (s *Scheduler) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
