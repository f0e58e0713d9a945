package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-assistant/0.1").
	UserAgent string `mapstructure:"user_agent" json:"user_agent" yaml:"user_agent"`
}

// ConceptConfig maps a source-API concept to a domain label.
type ConceptConfig struct {
	// ID is the concept identifier without the URL prefix (e.g. "C31972630").
	ID     string `mapstructure:"id" json:"id" yaml:"id" validate:"required"`
	Domain Domain `mapstructure:"domain" json:"domain" yaml:"domain" validate:"required,oneof=CV DL MM NLP ML"`
}

// SourceConfig holds settings for the OpenAlex works client.
type SourceConfig struct {
	HTTPConfig `mapstructure:",squash" yaml:",inline"`

	// BaseURL is the works endpoint (default "https://api.openalex.org/works").
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"required,url"`

	// Mailto identifies the caller for the polite pool.
	Mailto string `mapstructure:"mailto" json:"mailto,omitempty" yaml:"mailto,omitempty"`

	// RequestsPerSecond paces calls to the API.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second" validate:"gt=0"`

	// PrimaryConceptScore is the score a work's concept must exceed to count as primary (default 0.45).
	PrimaryConceptScore float64 `mapstructure:"primary_concept_score" json:"primary_concept_score" yaml:"primary_concept_score" validate:"gte=0,lte=1"`

	Concepts []ConceptConfig `mapstructure:"concepts" json:"concepts" yaml:"concepts" validate:"dive"`
}

// ResolveConfig holds settings for locating a downloadable PDF.
type ResolveConfig struct {
	HTTPConfig `mapstructure:",squash" yaml:",inline"`

	// MaxCandidates bounds how many candidate URLs are probed (default 10).
	MaxCandidates int `mapstructure:"max_candidates" json:"max_candidates" yaml:"max_candidates" validate:"gt=0"`

	// ArxivThreshold is the title similarity an arXiv match must reach (default 0.7).
	ArxivThreshold float64 `mapstructure:"arxiv_threshold" json:"arxiv_threshold" yaml:"arxiv_threshold" validate:"gte=0,lte=1"`

	// SemanticScholarThreshold is the title similarity a Semantic Scholar match must reach (default 0.6).
	SemanticScholarThreshold float64 `mapstructure:"semantic_scholar_threshold" json:"semantic_scholar_threshold" yaml:"semantic_scholar_threshold" validate:"gte=0,lte=1"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `mapstructure:"semantic_scholar_api_key" json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// LandingPageScan enables the citation_pdf_url meta tag lookup.
	LandingPageScan bool `mapstructure:"landing_page_scan" json:"landing_page_scan" yaml:"landing_page_scan"`
}

// DownloadConfig bounds a single PDF download.
type DownloadConfig struct {
	HTTPConfig `mapstructure:",squash" yaml:",inline"`

	// MaxBytes is the size ceiling (default 15 MiB).
	MaxBytes int64 `mapstructure:"max_bytes" json:"max_bytes" yaml:"max_bytes" validate:"gt=0"`

	// MaxDuration is the wall-time ceiling for the transfer (default 7s).
	MaxDuration time.Duration `mapstructure:"max_duration" json:"max_duration" yaml:"max_duration" validate:"gt=0"`
}

// PartitionConfig describes one corpus partition.
type PartitionConfig struct {
	// MinCitations filters works by citation count; 0 disables the filter.
	MinCitations int `mapstructure:"min_citations" json:"min_citations" yaml:"min_citations" validate:"gte=0"`

	// MaxResults is the number of works requested per concept.
	MaxResults int `mapstructure:"max_results" json:"max_results" yaml:"max_results" validate:"gt=0,lte=200"`

	// WindowDays restricts works to those published within the window; 0 disables it.
	WindowDays int `mapstructure:"window_days" json:"window_days" yaml:"window_days" validate:"gte=0"`

	// RawDir receives downloaded PDFs.
	RawDir string `mapstructure:"raw_dir" json:"raw_dir" yaml:"raw_dir" validate:"required"`

	// Manifest is the metadata file name under the processed directory.
	Manifest string `mapstructure:"manifest" json:"manifest" yaml:"manifest" validate:"required"`

	// Chunks is the chunk file name under the processed directory.
	Chunks string `mapstructure:"chunks" json:"chunks" yaml:"chunks" validate:"required"`
}

// IngestConfig holds settings for corpus ingestion.
type IngestConfig struct {
	// ProcessedDir holds manifests and chunk files (default "data/processed").
	ProcessedDir string `mapstructure:"processed_dir" json:"processed_dir" yaml:"processed_dir" validate:"required"`

	Baseline PartitionConfig `mapstructure:"baseline" json:"baseline" yaml:"baseline"`
	Recent   PartitionConfig `mapstructure:"recent" json:"recent" yaml:"recent"`

	// ChunkWords and ChunkOverlap control body chunking (default 350/50).
	ChunkWords   int `mapstructure:"chunk_words" json:"chunk_words" yaml:"chunk_words" validate:"gt=0"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap" yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkWords"`

	// BatchSize is the number of entries embedded and upserted per call (default 50).
	BatchSize int `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size" validate:"gt=0"`

	// ClassifyWords is how many leading words of chunk 0 feed domain classification (default 150).
	ClassifyWords int `mapstructure:"classify_words" json:"classify_words" yaml:"classify_words" validate:"gt=0"`
}

// FreshnessConfig holds the staleness and retention horizons.
type FreshnessConfig struct {
	// StalenessDays is how old the newest recent paper may be before a rebuild (default 3).
	StalenessDays int `mapstructure:"staleness_days" json:"staleness_days" yaml:"staleness_days" validate:"gt=0"`

	// RetentionDays is the eviction horizon for stored entries (default 15).
	RetentionDays int `mapstructure:"retention_days" json:"retention_days" yaml:"retention_days" validate:"gtefield=StalenessDays"`
}

// AIConfig holds shared settings for services that call a Generative AI API.
type AIConfig struct {
	// Provider selects the backend: "openai" (any OpenAI-compatible endpoint),
	// "claude", or "ollama" for embeddings.
	Provider string `mapstructure:"provider" json:"provider" yaml:"provider" validate:"required"`

	// Model is the model identifier (e.g. "llama-3.3-70b-versatile").
	Model string `mapstructure:"model" json:"model" yaml:"model" validate:"required"`

	// APIKey is the authentication key for the API.
	APIKey string `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries" validate:"gte=0"`

	// Timeout bounds each API call.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
}

// LLMConfig holds settings for the chat language model.
type LLMConfig struct {
	AIConfig `mapstructure:",squash" yaml:",inline"`

	Temperature float32 `mapstructure:"temperature" json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens" validate:"gt=0"`
}

// EmbeddingConfig holds settings for the embedding service.
type EmbeddingConfig struct {
	AIConfig `mapstructure:",squash" yaml:",inline"`

	// Dimensions is the expected vector length.
	Dimensions int `mapstructure:"dimensions" json:"dimensions" yaml:"dimensions" validate:"gt=0"`
}

// CacheConfig configures the optional redis embedding cache. An empty Addr disables it.
type CacheConfig struct {
	Addr     string        `mapstructure:"addr" json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string        `mapstructure:"password" json:"password,omitempty" yaml:"password,omitempty"`
	DB       int           `mapstructure:"db" json:"db" yaml:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl" validate:"gte=0"`
}

// StoreConfig locates the vector store database.
type StoreConfig struct {
	Path string `mapstructure:"path" json:"path" yaml:"path" validate:"required"`
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	// HistoryWindow is the number of history entries kept between turns (default 3).
	HistoryWindow int `mapstructure:"history_window" json:"history_window" yaml:"history_window" validate:"gt=0"`

	// DefaultPeriodDays is the trend look-back when no period is given (default 7).
	DefaultPeriodDays int `mapstructure:"default_period_days" json:"default_period_days" yaml:"default_period_days" validate:"gt=0"`

	TopicChunks      int `mapstructure:"topic_chunks" json:"topic_chunks" yaml:"topic_chunks" validate:"gt=0"`
	PaperChunks      int `mapstructure:"paper_chunks" json:"paper_chunks" yaml:"paper_chunks" validate:"gt=0"`
	Candidates       int `mapstructure:"candidates" json:"candidates" yaml:"candidates" validate:"gt=0"`
	MaxSummaryPapers int `mapstructure:"max_summary_papers" json:"max_summary_papers" yaml:"max_summary_papers" validate:"gt=0"`

	// ExitToken ends the interactive loop (default "exit").
	ExitToken string `mapstructure:"exit_token" json:"exit_token" yaml:"exit_token" validate:"required"`
}

// LogConfig selects the zap logger setup.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" json:"format" yaml:"format" validate:"oneof=console json"`
	Output string `mapstructure:"output" json:"output" yaml:"output" validate:"required"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Config groups all component configurations.
type Config struct {
	Source    SourceConfig    `mapstructure:"source" json:"source" yaml:"source"`
	Resolve   ResolveConfig   `mapstructure:"resolve" json:"resolve" yaml:"resolve"`
	Download  DownloadConfig  `mapstructure:"download" json:"download" yaml:"download"`
	Ingest    IngestConfig    `mapstructure:"ingest" json:"ingest" yaml:"ingest"`
	Freshness FreshnessConfig `mapstructure:"freshness" json:"freshness" yaml:"freshness"`
	LLM       LLMConfig       `mapstructure:"llm" json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" json:"embedding" yaml:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache" json:"cache" yaml:"cache"`
	Store     StoreConfig     `mapstructure:"store" json:"store" yaml:"store"`
	Chat      ChatConfig      `mapstructure:"chat" json:"chat" yaml:"chat"`
	Log       LogConfig       `mapstructure:"log" json:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}
