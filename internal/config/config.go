package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiEmbedderConfig holds configuration for the Gemini embedder.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	TaskType  string `yaml:"task_type"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	Size              int    `yaml:"size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// StoreConfig locates the persisted vector store snapshot.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RetryConfig bounds retries of rate-limited embedding calls. An explicit
// max_retries of 0 disables retrying; leaving it out uses the default.
type RetryConfig struct {
	MaxRetries *int `yaml:"max_retries"`
	BaseSecs   int  `yaml:"base_secs"`
}

// Retries returns the configured retry count, never negative.
func (r RetryConfig) Retries() int {
	if r.MaxRetries == nil || *r.MaxRetries < 0 {
		return 0
	}
	return *r.MaxRetries
}

// Base returns the backoff unit as a duration.
func (r RetryConfig) Base() time.Duration { return time.Duration(r.BaseSecs) * time.Second }

// IngestConfig configures the ingestion pipeline. inter_chunk_delay_ms: 0
// turns the pause off; leaving it out uses the default.
type IngestConfig struct {
	CheckpointEvery   int         `yaml:"checkpoint_every"`
	InterChunkDelayMS *int        `yaml:"inter_chunk_delay_ms"`
	Retry             RetryConfig `yaml:"retry"`
}

// InterChunkDelay returns the pause between embedding calls.
func (c IngestConfig) InterChunkDelay() time.Duration {
	if c.InterChunkDelayMS == nil || *c.InterChunkDelayMS < 0 {
		return 0
	}
	return time.Duration(*c.InterChunkDelayMS) * time.Millisecond
}

// CacheConfig sizes the query embedding cache. Size 0 disables it.
type CacheConfig struct {
	Size    int `yaml:"size"`
	TTLSecs int `yaml:"ttl_secs"`
}

// QueryConfig configures the interactive query path.
type QueryConfig struct {
	TopK  int         `yaml:"top_k"`
	Retry RetryConfig `yaml:"retry"`
	Cache CacheConfig `yaml:"cache"`
}

// LogConfig configures the process-wide logger.
type LogConfig struct {
	File      string `yaml:"file"`
	Level     string `yaml:"level"`
	FileCount int    `yaml:"file_count"`
	FileSize  int    `yaml:"file_size"`
	KeepDays  int    `yaml:"keep_days"`
	Console   bool   `yaml:"console"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Store    StoreConfig    `yaml:"store"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Query    QueryConfig    `yaml:"query"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/docrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{
				BaseURL:   "https://api.mistral.ai/v1",
				APIKeyEnv: "MISTRAL_API_KEY",
				Model:     "mistral-embed",
			}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Embedder.Gemini.Model == "" {
			cfg.Embedder.Gemini.Model = "text-embedding-004"
		}
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "window"
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
		if cfg.Chunker.OverlapSentences == 0 {
			cfg.Chunker.OverlapSentences = 1
		}
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./vector_store.json"
	}
	if cfg.Ingest.CheckpointEvery == 0 {
		cfg.Ingest.CheckpointEvery = 10
	}
	if cfg.Ingest.InterChunkDelayMS == nil {
		cfg.Ingest.InterChunkDelayMS = intPtr(500)
	}
	applyRetryDefaults(&cfg.Ingest.Retry, 30)
	applyRetryDefaults(&cfg.Query.Retry, 20)
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Query.Cache.Size == 0 {
		cfg.Query.Cache.Size = 256
	}
	if cfg.Query.Cache.TTLSecs == 0 {
		cfg.Query.Cache.TTLSecs = 600
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyRetryDefaults(r *RetryConfig, baseSecs int) {
	if r.MaxRetries == nil {
		r.MaxRetries = intPtr(3)
	}
	if r.BaseSecs == 0 {
		r.BaseSecs = baseSecs
	}
}

func intPtr(v int) *int { return &v }
