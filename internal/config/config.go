// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config layers defaults, the YAML config file, environment
// variables and secrets into a validated types.Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// EnvPrefix is prepended to environment overrides (e.g. PAPER_ASSISTANT_LLM_MODEL).
const EnvPrefix = "PAPER_ASSISTANT"

// GroqBaseURL is the default OpenAI-compatible chat endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

var validate = validator.New()

// DefaultConcepts maps the default OpenAlex concepts to domains. MM has no
// dedicated concept and is only reached through classification.
var DefaultConcepts = []types.ConceptConfig{
	{ID: "C31972630", Domain: types.DomainCV},
	{ID: "C204321447", Domain: types.DomainNLP},
	{ID: "C119857082", Domain: types.DomainML},
	{ID: "C108583219", Domain: types.DomainDL},
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://api.openalex.org/works")
	v.SetDefault("source.timeout", 20*time.Second)
	v.SetDefault("source.user_agent", "paper-assistant/0.1")
	v.SetDefault("source.requests_per_second", 5.0)
	v.SetDefault("source.primary_concept_score", 0.45)
	v.SetDefault("source.concepts", conceptMaps(DefaultConcepts))

	v.SetDefault("resolve.timeout", 8*time.Second)
	v.SetDefault("resolve.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("resolve.max_candidates", 10)
	v.SetDefault("resolve.arxiv_threshold", 0.7)
	v.SetDefault("resolve.semantic_scholar_threshold", 0.6)
	v.SetDefault("resolve.landing_page_scan", true)

	v.SetDefault("download.timeout", 5*time.Second)
	v.SetDefault("download.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("download.max_bytes", int64(15*1024*1024))
	v.SetDefault("download.max_duration", 7*time.Second)

	v.SetDefault("ingest.processed_dir", "data/processed")
	v.SetDefault("ingest.baseline.min_citations", 5000)
	v.SetDefault("ingest.baseline.max_results", 30)
	v.SetDefault("ingest.baseline.window_days", 0)
	v.SetDefault("ingest.baseline.raw_dir", "data/raw")
	v.SetDefault("ingest.baseline.manifest", "metadata.json")
	v.SetDefault("ingest.baseline.chunks", "chunks.jsonl")
	v.SetDefault("ingest.recent.min_citations", 0)
	v.SetDefault("ingest.recent.max_results", 50)
	v.SetDefault("ingest.recent.window_days", 7)
	v.SetDefault("ingest.recent.raw_dir", "data/raw_recent")
	v.SetDefault("ingest.recent.manifest", "metadata_recent.json")
	v.SetDefault("ingest.recent.chunks", "chunks_recent.jsonl")
	v.SetDefault("ingest.chunk_words", 350)
	v.SetDefault("ingest.chunk_overlap", 50)
	v.SetDefault("ingest.batch_size", 50)
	v.SetDefault("ingest.classify_words", 150)

	v.SetDefault("freshness.staleness_days", 3)
	v.SetDefault("freshness.retention_days", 15)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.base_url", GroqBaseURL)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.timeout", 60*time.Second)
	v.SetDefault("embedding.dimensions", 1536)

	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("store.path", "data/vector_store/corpus.db")

	v.SetDefault("chat.history_window", 3)
	v.SetDefault("chat.default_period_days", 7)
	v.SetDefault("chat.topic_chunks", 5)
	v.SetDefault("chat.paper_chunks", 4)
	v.SetDefault("chat.candidates", 4)
	v.SetDefault("chat.max_summary_papers", 10)
	v.SetDefault("chat.exit_token", "exit")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
}

func conceptMaps(cs []types.ConceptConfig) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(cs))
	for _, c := range cs {
		out = append(out, map[string]interface{}{"id": c.ID, "domain": string(c.Domain)})
	}
	return out
}

// Load decodes v into a Config, fills API keys from secrets where the
// config leaves them empty, and validates the result. v must already have
// defaults registered and any config file read.
func Load(v *viper.Viper, secrets map[string]string) (*types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.LLM.Provider == "claude" && cfg.LLM.BaseURL == GroqBaseURL {
		cfg.LLM.BaseURL = ""
	}
	ApplySecrets(&cfg, secrets)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplySecrets copies secret values into empty credential fields.
func ApplySecrets(cfg *types.Config, secrets map[string]string) {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if s := secrets[k]; s != "" {
				*dst = s
				return
			}
		}
	}
	switch cfg.LLM.Provider {
	case "claude":
		fill(&cfg.LLM.APIKey, "anthropic-api-key")
	default:
		fill(&cfg.LLM.APIKey, "groq-api-key", "openai-api-key")
	}
	if cfg.Embedding.Provider == "openai" {
		fill(&cfg.Embedding.APIKey, "openai-api-key")
	}
	fill(&cfg.Resolve.SemanticScholarAPIKey, "semantic-scholar-api-key")
	fill(&cfg.Source.Mailto, "openalex-email")
}

// Validate checks cfg against its struct tags and returns one error
// listing every failing field.
func Validate(cfg *types.Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gtefield":
		return fmt.Sprintf("%s must be at least %s", field, strings.ToLower(e.Param()))
	case "ltfield":
		return fmt.Sprintf("%s must be less than %s", field, strings.ToLower(e.Param()))
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
