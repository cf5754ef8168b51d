package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PathsConfig locates the extraction directory, the persisted index and the
// two source files. Empty file names are discovered by suffix.
type PathsConfig struct {
	ExtractionDir string `yaml:"extraction_dir"`
	IndexLocation string `yaml:"index_location"`
	HeaderFile    string `yaml:"header_file"`
	ItemsFile     string `yaml:"items_file"`
}

// SourceConfig describes how the exported files are encoded.
type SourceConfig struct {
	Encoding  string `yaml:"encoding"`
	Delimiter string `yaml:"delimiter"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// FastEmbedConfig configures the local ONNX embedder.
type FastEmbedConfig struct {
	Model     string `yaml:"model"`
	CacheDir  string `yaml:"cache_dir"`
	MaxLength int    `yaml:"max_length"`
	BatchSize int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	FastEmbed *FastEmbedConfig      `yaml:"fastembed,omitempty"`
}

// ChromemConfig configures the embedded chromem-go index.
type ChromemConfig struct {
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	APIKey           string `yaml:"api_key"`
	UseTLS           bool   `yaml:"use_tls"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type    string         `yaml:"type"`
	Chromem *ChromemConfig `yaml:"chromem,omitempty"`
	Qdrant  *QdrantConfig  `yaml:"qdrant,omitempty"`
}

// QueryConfig tunes query routing.
type QueryConfig struct {
	SemanticTopK int `yaml:"semantic_top_k"`
}

// RebuildConfig bounds the knowledge base rebuild.
type RebuildConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths       PathsConfig       `yaml:"paths"`
	Source      SourceConfig      `yaml:"source"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Query       QueryConfig       `yaml:"query"`
	Rebuild     RebuildConfig     `yaml:"rebuild"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// RebuildTimeout returns the rebuild bound, or zero when unbounded.
func (c *AppConfig) RebuildTimeout() time.Duration {
	return time.Duration(c.Rebuild.TimeoutSecs) * time.Second
}

// Delimiter returns the configured source delimiter, or zero for detection.
func (c *AppConfig) Delimiter() rune {
	switch c.Source.Delimiter {
	case "", "auto":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	return []rune(c.Source.Delimiter)[0]
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
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

// LoadDefault tries ./config.yaml first, then ~/.config/nfe/config.yaml.
// If neither exists, it writes defaults to ~/.config/nfe/config.yaml and returns them.
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
	cfg := Default()
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
	return filepath.Join(home, ".config", "nfe", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{
		Paths: PathsConfig{
			ExtractionDir: "NFs_Extraidas",
			IndexLocation: "nfe_db",
		},
		Source:      SourceConfig{Encoding: "latin1"},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "chromem"},
		Query:       QueryConfig{SemanticTopK: 3},
		Rebuild:     RebuildConfig{TimeoutSecs: 600},
		Logging:     LoggingConfig{Level: "info", Format: "console"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Paths.ExtractionDir == "" {
		cfg.Paths.ExtractionDir = "NFs_Extraidas"
	}
	if cfg.Paths.IndexLocation == "" {
		cfg.Paths.IndexLocation = "nfe_db"
	}
	if cfg.Source.Encoding == "" {
		cfg.Source.Encoding = "latin1"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chromem"
	}
	if cfg.Query.SemanticTopK <= 0 {
		cfg.Query.SemanticTopK = 3
	}
	if cfg.Rebuild.TimeoutSecs <= 0 {
		cfg.Rebuild.TimeoutSecs = 600
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
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
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 5
		}
	}
	if cfg.Embedder.Type == "fastembed" {
		if cfg.Embedder.FastEmbed == nil {
			cfg.Embedder.FastEmbed = &FastEmbedConfig{}
		}
		if cfg.Embedder.FastEmbed.MaxLength == 0 {
			cfg.Embedder.FastEmbed.MaxLength = 512
		}
		if cfg.Embedder.FastEmbed.BatchSize == 0 {
			cfg.Embedder.FastEmbed.BatchSize = 256
		}
	}
	if cfg.VectorStore.Type == "chromem" {
		if cfg.VectorStore.Chromem == nil {
			cfg.VectorStore.Chromem = &ChromemConfig{}
		}
		if cfg.VectorStore.Chromem.Collection == "" {
			cfg.VectorStore.Chromem.Collection = "nfe"
		}
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.Host == "" {
			cfg.VectorStore.Qdrant.Host = "localhost"
		}
		if cfg.VectorStore.Qdrant.Port == 0 {
			cfg.VectorStore.Qdrant.Port = 6334
		}
		if cfg.VectorStore.Qdrant.CollectionPrefix == "" {
			cfg.VectorStore.Qdrant.CollectionPrefix = "nfe"
		}
	}
}
