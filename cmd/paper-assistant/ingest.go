// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-assistant/internal/acquire"
	"github.com/pdiddy/paper-assistant/internal/corpus"
	"github.com/pdiddy/paper-assistant/internal/embedding"
	"github.com/pdiddy/paper-assistant/internal/freshness"
	"github.com/pdiddy/paper-assistant/internal/ingest"
	"github.com/pdiddy/paper-assistant/internal/llm"
	"github.com/pdiddy/paper-assistant/internal/preprocess"
	"github.com/pdiddy/paper-assistant/internal/resolve"
	"github.com/pdiddy/paper-assistant/internal/source"
	"github.com/pdiddy/paper-assistant/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build or refresh the baseline and recent corpus partitions",
	Long: `Ingest fetches works from OpenAlex for each configured concept, resolves
and downloads their PDFs, chunks them, classifies each paper's domain, and
upserts the embedded chunks into the vector store.

A partition is rebuilt only when its manifest or chunk file is missing, or,
for the recent partition, when its newest paper is older than the staleness
horizon. Use --force to rebuild regardless.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("partition", "", "only this partition: baseline or recent (default both)")
	ingestCmd.Flags().Bool("force", false, "rebuild partitions even when they are fresh")
	ingestCmd.Flags().Bool("no-classify", false, "keep the concept domain instead of asking the language model")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	only, _ := cmd.Flags().GetString("partition")
	force, _ := cmd.Flags().GetBool("force")
	noClassify, _ := cmd.Flags().GetBool("no-classify")

	parts, err := selectPartitions(corpus.Partitions(cfg.Ingest), only)
	if err != nil {
		return err
	}

	embedder, err := embedding.New(cfg.Embedding, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer embedding.Close(embedder)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := &ingest.Scheduler{
		Source:              source.NewOpenAlex(cfg.Source, logger),
		Resolver:            resolve.New(cfg.Resolve, logger),
		Downloader:          acquire.NewGuard(cfg.Download, logger),
		Chunker:             preprocess.NewChunker(cfg.Ingest.ChunkWords, cfg.Ingest.ChunkOverlap, logger),
		Index:               store.NewIndex(st, embedder),
		Evictor:             freshness.NewEvictor(st, logger),
		Concepts:            cfg.Source.Concepts,
		PrimaryConceptScore: cfg.Source.PrimaryConceptScore,
		Freshness:           cfg.Freshness,
		BatchSize:           cfg.Ingest.BatchSize,
		Out:                 os.Stdout,
		Logger:              logger,
	}
	if !noClassify {
		model, err := llm.New(cfg.LLM, logger)
		if err != nil {
			return err
		}
		sched.Classifier = ingest.NewDomainClassifier(model, cfg.Ingest.ClassifyWords, logger)
	}

	sums, err := sched.Run(cmd.Context(), parts, force)
	if err != nil {
		return err
	}

	total, err := st.Count(cmd.Context(), store.Filter{})
	if err != nil {
		return err
	}
	for _, s := range sums {
		fmt.Printf("%-8s %-7s accepted=%d chunks=%d indexed=%d evicted=%d\n",
			s.Kind, s.Decision.Reason, s.Accepted, s.Chunks, s.Indexed, s.Evicted)
	}
	fmt.Printf("store %s holds %d entries\n", st.Path(), total)
	return nil
}

func selectPartitions(all []corpus.Partition, only string) ([]corpus.Partition, error) {
	if only == "" {
		return all, nil
	}
	for _, p := range all {
		if string(p.Kind) == only {
			return []corpus.Partition{p}, nil
		}
	}
	return nil, fmt.Errorf("unknown partition %q (want baseline or recent)", only)
}
