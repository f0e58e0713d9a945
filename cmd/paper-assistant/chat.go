// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/chat"
	"github.com/pdiddy/paper-assistant/internal/embedding"
	"github.com/pdiddy/paper-assistant/internal/llm"
	"github.com/pdiddy/paper-assistant/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the indexed papers",
	Long: `Chat reads one question per line from stdin and prints one answer per
turn. It can summarise recent papers by domain, answer topic questions from
the corpus, and answer questions about a specific paper. Type "exit" to quit.

The vector store must already exist; run "ingest" first.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	st, err := store.OpenExisting(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := embedding.New(cfg.Embedding, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer embedding.Close(embedder)
	model, err := llm.New(cfg.LLM, logger)
	if err != nil {
		return err
	}

	machine := chat.NewMachine(model, store.NewIndex(st, embedder), cfg.Chat, logger)
	session := chat.NewSession(machine, cfg.Chat.HistoryWindow)
	logger.Info("chat session started", zap.String("session", session.ID), zap.String("store", st.Path()))

	return session.Loop(cmd.Context(), os.Stdin, os.Stdout, cfg.Chat.ExitToken)
}
