package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"knowledge-rag/internal/domain"
)

// PathsConfig locates the document source and every persisted artifact.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir" toml:"data_dir"`
	CacheDir string `yaml:"cache_dir" toml:"cache_dir"`
	Index    string `yaml:"index" toml:"index"`
	Mapping  string `yaml:"mapping" toml:"mapping"`
	Catalog  string `yaml:"catalog" toml:"catalog"`
}

// ChunkerConfig configures the word-window chunker.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size" toml:"chunk_size"`
	Overlap   int `yaml:"overlap" toml:"overlap"`
}

// OllamaEmbedderConfig holds configuration for embeddings served by Ollama.
type OllamaEmbedderConfig struct {
	BaseURL       string `yaml:"base_url" toml:"base_url"`
	Model         string `yaml:"model" toml:"model"`
	TimeoutSecs   int    `yaml:"timeout_secs" toml:"timeout_secs"`
	KeepAliveMins int    `yaml:"keep_alive_mins" toml:"keep_alive_mins"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// HashingEmbedderConfig configures the offline feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension" toml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                 `yaml:"type" toml:"type"`
	BatchSize int                    `yaml:"batch_size" toml:"batch_size"`
	Workers   int                    `yaml:"workers" toml:"workers"`
	Ollama    *OllamaEmbedderConfig  `yaml:"ollama,omitempty" toml:"ollama,omitempty"`
	OpenAI    *OpenAIEmbedderConfig  `yaml:"openai,omitempty" toml:"openai,omitempty"`
	Hashing   *HashingEmbedderConfig `yaml:"hashing,omitempty" toml:"hashing,omitempty"`
}

// TEIConfig contains connection details for a cross-encoder rerank server.
type TEIConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// RerankerConfig selects the pairwise relevance scorer.
type RerankerConfig struct {
	Type string     `yaml:"type" toml:"type"`
	TEI  *TEIConfig `yaml:"tei,omitempty" toml:"tei,omitempty"`
}

// OllamaGeneratorConfig configures answer generation through Ollama.
type OllamaGeneratorConfig struct {
	BaseURL     string   `yaml:"base_url" toml:"base_url"`
	Model       string   `yaml:"model" toml:"model"`
	TimeoutSecs int      `yaml:"timeout_secs" toml:"timeout_secs"`
	Temperature *float64 `yaml:"temperature,omitempty" toml:"temperature,omitempty"`
}

// GeneratorConfig selects the answer generator. Type "none" disables it.
type GeneratorConfig struct {
	Type   string                 `yaml:"type" toml:"type"`
	Ollama *OllamaGeneratorConfig `yaml:"ollama,omitempty" toml:"ollama,omitempty"`
}

// RetrievalConfig holds the query-time knobs.
type RetrievalConfig struct {
	K                int `yaml:"k" toml:"k"`
	RerankTop        int `yaml:"rerank_top" toml:"rerank_top"`
	QueryTimeoutSecs int `yaml:"query_timeout_secs" toml:"query_timeout_secs"`
}

// SummarizerConfig configures the extractive summarizer.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences" toml:"max_sentences"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths      PathsConfig      `yaml:"paths" toml:"paths"`
	Chunker    ChunkerConfig    `yaml:"chunker" toml:"chunker"`
	Embedder   EmbedderConfig   `yaml:"embedder" toml:"embedder"`
	Reranker   RerankerConfig   `yaml:"reranker" toml:"reranker"`
	Generator  GeneratorConfig  `yaml:"generator" toml:"generator"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" toml:"retrieval"`
	Summarizer SummarizerConfig `yaml:"summarizer" toml:"summarizer"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// QueryTimeout returns the per-query deadline, 0 meaning none.
func (c *AppConfig) QueryTimeout() time.Duration {
	return time.Duration(c.Retrieval.QueryTimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
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
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values the pipeline cannot execute.
func (c *AppConfig) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...))
	}
	if c.Chunker.ChunkSize <= 0 {
		bad("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
		bad("chunker.overlap must be in [0, chunk_size), got %d", c.Chunker.Overlap)
	}
	if c.Retrieval.K <= 0 {
		bad("retrieval.k must be positive, got %d", c.Retrieval.K)
	}
	if c.Retrieval.RerankTop <= 0 {
		bad("retrieval.rerank_top must be positive, got %d", c.Retrieval.RerankTop)
	}
	if c.Retrieval.QueryTimeoutSecs < 0 {
		bad("retrieval.query_timeout_secs must not be negative")
	}
	switch c.Embedder.Type {
	case "ollama", "openai", "hashing":
	default:
		bad("unknown embedder type %q", c.Embedder.Type)
	}
	switch c.Reranker.Type {
	case "lexical", "tei":
	default:
		bad("unknown reranker type %q", c.Reranker.Type)
	}
	switch c.Generator.Type {
	case "ollama", "none":
	default:
		bad("unknown generator type %q", c.Generator.Type)
	}
	if c.Paths.Index == "" || c.Paths.Mapping == "" || c.Paths.Index == c.Paths.Mapping {
		bad("paths.index and paths.mapping must be distinct and non-empty")
	}
	return errors.Join(errs...)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

// ollamaHost returns OLLAMA_HOST as a base URL, or "" when unset.
func ollamaHost() string {
	host := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

func applyConfigDefaults(cfg *AppConfig) {
	p := &cfg.Paths
	if p.DataDir == "" {
		p.DataDir = "data"
	}
	if p.CacheDir == "" {
		p.CacheDir = "processed"
	}
	if p.Index == "" {
		p.Index = "index.bin"
	}
	if p.Mapping == "" {
		p.Mapping = "mapping.json"
	}
	if p.Catalog == "" {
		p.Catalog = "catalog.db"
	}

	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 50
		}
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Workers == 0 {
		cfg.Embedder.Workers = 4
	}
	switch cfg.Embedder.Type {
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
		}
		o := cfg.Embedder.Ollama
		if o.BaseURL == "" {
			o.BaseURL = ollamaHost()
		}
		if o.BaseURL == "" {
			o.BaseURL = "http://localhost:11434"
		}
		if o.Model == "" {
			o.Model = "all-minilm"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 60
		}
		if o.KeepAliveMins == 0 {
			o.KeepAliveMins = 60
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	case "hashing":
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 384
		}
	}

	if cfg.Reranker.Type == "" {
		cfg.Reranker.Type = "lexical"
	}
	if cfg.Reranker.Type == "tei" {
		if cfg.Reranker.TEI == nil {
			cfg.Reranker.TEI = &TEIConfig{}
		}
		if cfg.Reranker.TEI.BaseURL == "" {
			cfg.Reranker.TEI.BaseURL = "http://localhost:8080"
		}
		if cfg.Reranker.TEI.TimeoutSecs == 0 {
			cfg.Reranker.TEI.TimeoutSecs = 30
		}
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "ollama"
	}
	if cfg.Generator.Type == "ollama" {
		if cfg.Generator.Ollama == nil {
			cfg.Generator.Ollama = &OllamaGeneratorConfig{}
		}
		o := cfg.Generator.Ollama
		if o.BaseURL == "" {
			o.BaseURL = ollamaHost()
		}
		if o.BaseURL == "" {
			o.BaseURL = "http://localhost:11434"
		}
		if o.Model == "" {
			o.Model = "mistral"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 120
		}
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 10
	}
	if cfg.Retrieval.RerankTop == 0 {
		cfg.Retrieval.RerankTop = 3
	}
	if cfg.Retrieval.QueryTimeoutSecs == 0 {
		cfg.Retrieval.QueryTimeoutSecs = 180
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
