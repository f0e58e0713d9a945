// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-assistant CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/config"
	"github.com/pdiddy/paper-assistant/internal/logging"
	"github.com/pdiddy/paper-assistant/internal/metrics"
	"github.com/pdiddy/paper-assistant/internal/secrets"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root PersistentPreRunE.
var (
	cfg    *types.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paper-assistant",
	Short: "Conversational assistant over a local corpus of research papers",
	Long: `paper-assistant ingests recent and highly cited papers from OpenAlex into a
local vector store and answers questions about them in a chat loop.

Run "ingest" to build or refresh the corpus, then "chat" to talk to it.
The recent partition is rebuilt automatically when it goes stale; "evict"
drops entries past the retention horizon.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		s, err := secrets.Gather(".secrets/", ".env")
		if err != nil {
			return err
		}
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Names())
		}

		c, err := config.Load(viper.GetViper(), s)
		if err != nil {
			return err
		}
		cfg = c

		log, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = log

		if cfg.Metrics.Addr != "" {
			metrics.Init()
			go func() {
				if err := metrics.Serve(cmd.Context(), cfg.Metrics.Addr, logger); err != nil {
					logger.Error("metrics server", zap.Error(err))
				}
			}()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-assistant.yaml or ~/.config/paper-assistant/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("metrics.addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-assistant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-assistant"))
		}
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
