// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-assistant/internal/freshness"
	"github.com/pdiddy/paper-assistant/internal/store"
)

var evictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Delete stored entries published before the retention horizon",
	Long: `Evict removes every vector store entry whose publication date is more
than the retention horizon before today. Running it twice is harmless.`,
	RunE: runEvict,
}

func init() {
	evictCmd.Flags().Int("days", 0, "retention horizon in days (default freshness.retention_days)")

	rootCmd.AddCommand(evictCmd)
}

func runEvict(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	if days == 0 {
		days = cfg.Freshness.RetentionDays
	}

	st, err := store.OpenExisting(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := freshness.NewEvictor(st, logger).Evict(cmd.Context(), days)
	if err != nil {
		return err
	}
	fmt.Printf("evicted %d entries older than %d days\n", n, days)
	return nil
}
