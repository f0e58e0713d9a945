// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(), nil)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Ingest.Baseline.MinCitations)
	assert.Equal(t, 30, cfg.Ingest.Baseline.MaxResults)
	assert.Equal(t, 0, cfg.Ingest.Recent.MinCitations)
	assert.Equal(t, 50, cfg.Ingest.Recent.MaxResults)
	assert.Equal(t, 7, cfg.Ingest.Recent.WindowDays)
	assert.Equal(t, "metadata_recent.json", cfg.Ingest.Recent.Manifest)
	assert.Equal(t, int64(15*1024*1024), cfg.Download.MaxBytes)
	assert.Equal(t, 7*time.Second, cfg.Download.MaxDuration)
	assert.Equal(t, 3, cfg.Freshness.StalenessDays)
	assert.Equal(t, 15, cfg.Freshness.RetentionDays)
	assert.Equal(t, 10, cfg.Resolve.MaxCandidates)
	assert.InDelta(t, 0.45, cfg.Source.PrimaryConceptScore, 1e-9)
	assert.Equal(t, 3, cfg.Chat.HistoryWindow)
	assert.Equal(t, "exit", cfg.Chat.ExitToken)
	require.Len(t, cfg.Source.Concepts, len(DefaultConcepts))
	assert.Equal(t, types.DomainCV, cfg.Source.Concepts[0].Domain)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper-assistant.yaml")
	yaml := `
freshness:
  staleness_days: 2
  retention_days: 10
download:
  max_duration: 3s
source:
  concepts:
    - id: C1
      domain: NLP
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Freshness.StalenessDays)
	assert.Equal(t, 10, cfg.Freshness.RetentionDays)
	assert.Equal(t, 3*time.Second, cfg.Download.MaxDuration)
	require.Len(t, cfg.Source.Concepts, 1)
	assert.Equal(t, "C1", cfg.Source.Concepts[0].ID)
}

func TestLoad_RetentionShorterThanStalenessRejected(t *testing.T) {
	v := newViper()
	v.Set("freshness.staleness_days", 10)
	v.Set("freshness.retention_days", 5)

	_, err := Load(v, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retentiondays")
}

func TestLoad_InvalidConceptDomain(t *testing.T) {
	v := newViper()
	v.Set("source.concepts", []map[string]interface{}{{"id": "C1", "domain": "BIO"}})

	_, err := Load(v, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestApplySecrets(t *testing.T) {
	secrets := map[string]string{
		"groq-api-key":             "gsk-test",
		"openai-api-key":           "sk-test",
		"semantic-scholar-api-key": "s2-test",
		"openalex-email":           "me@example.org",
	}

	cfg, err := Load(newViper(), secrets)
	require.NoError(t, err)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "s2-test", cfg.Resolve.SemanticScholarAPIKey)
	assert.Equal(t, "me@example.org", cfg.Source.Mailto)
}

func TestApplySecrets_ConfigWins(t *testing.T) {
	v := newViper()
	v.Set("llm.api_key", "from-config")

	cfg, err := Load(v, map[string]string{"groq-api-key": "from-secret"})
	require.NoError(t, err)
	assert.Equal(t, "from-config", cfg.LLM.APIKey)
}

func TestApplySecrets_Claude(t *testing.T) {
	v := newViper()
	v.Set("llm.provider", "claude")

	cfg, err := Load(v, map[string]string{"anthropic-api-key": "ak", "groq-api-key": "gk"})
	require.NoError(t, err)
	assert.Equal(t, "ak", cfg.LLM.APIKey)
	assert.Empty(t, cfg.LLM.BaseURL, "groq endpoint is not carried over to claude")
}
