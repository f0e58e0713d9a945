// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-assistant/internal/store"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect the vector store",
}

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored papers as YAML or JSON",
	Long: `Export groups stored chunks by paper and writes one record per paper,
newest first. Use --abstracts to omit body chunks.`,
	RunE: runCorpusExport,
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entry counts per domain",
	RunE:  runCorpusStats,
}

func init() {
	corpusExportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	corpusExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	corpusExportCmd.Flags().String("domain", "", "only papers classified in this domain")
	corpusExportCmd.Flags().Bool("abstracts", false, "only export abstract chunks")

	corpusCmd.AddCommand(corpusExportCmd)
	corpusCmd.AddCommand(corpusStatsCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	domain, _ := cmd.Flags().GetString("domain")
	abstracts, _ := cmd.Flags().GetBool("abstracts")

	var f store.Filter
	if abstracts {
		f = store.AbstractsOnly()
	}
	if domain != "" {
		d, ok := types.ParseDomain(domain)
		if !ok {
			return fmt.Errorf("unknown domain %q", domain)
		}
		f.PaperDomains = []types.Domain{d}
	}

	st, err := store.OpenExisting(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer file.Close()
		w = file
	}
	return st.Export(cmd.Context(), w, format, f)
}

func runCorpusStats(cmd *cobra.Command, args []string) error {
	st, err := store.OpenExisting(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	total, err := st.Count(ctx, store.Filter{})
	if err != nil {
		return err
	}
	papers, err := st.Count(ctx, store.AbstractsOnly())
	if err != nil {
		return err
	}
	fmt.Printf("%-8s %8s %8s\n", "domain", "papers", "chunks")
	for _, d := range append(types.Domains, types.DomainUnknown) {
		dom := []types.Domain{d}
		chunks, err := st.Count(ctx, store.Filter{PaperDomains: dom})
		if err != nil {
			return err
		}
		abs, err := st.Count(ctx, store.Filter{PaperDomains: dom, IsAbstract: []bool{true}})
		if err != nil {
			return err
		}
		fmt.Printf("%-8s %8d %8d\n", d, abs, chunks)
	}
	fmt.Printf("%-8s %8d %8d\n", "total", papers, total)
	return nil
}
