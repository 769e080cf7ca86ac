package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the medscribe API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
// WriteTimeoutSec bounds a whole streamed response, so it must outlast pipeline.generation_timeout_sec.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout and index settings for case documents.
type StorageConfig struct {
	KeyPrefix        string   `yaml:"key_prefix"`
	IndexName        string   `yaml:"index_name"`
	FilterableFields []string `yaml:"filterable_fields"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, hashing (default: hashing)
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Cache      bool   `yaml:"cache"`
	// CacheTTLSec bounds cached vector lifetime; 0 keeps them until evicted by the store.
	CacheTTLSec int `yaml:"cache_ttl_sec"`
}

// GenerationConfig holds the generation backend registry settings.
type GenerationConfig struct {
	Backends BackendsConfig `yaml:"backends"`
}

// BackendsConfig lists every known backend. An empty credential or endpoint leaves it unconfigured.
type BackendsConfig struct {
	OpenAI   HostedBackendConfig `yaml:"openai"`
	DeepSeek HostedBackendConfig `yaml:"deepseek"`
	Local    LocalBackendConfig  `yaml:"local"`
	Ollama   OllamaBackendConfig `yaml:"ollama"`
}

// HostedBackendConfig configures an OpenAI-compatible hosted API.
type HostedBackendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LocalBackendConfig configures an LM Studio server on a loopback endpoint.
type LocalBackendConfig struct {
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	ProbeTimeoutSec   int    `yaml:"probe_timeout_sec"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	MaxAttempts       int    `yaml:"max_attempts"`
	BackoffMs         int    `yaml:"backoff_ms"`
}

// OllamaBackendConfig configures an Ollama server.
type OllamaBackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// PipelineConfig holds orchestrator stage bounds.
type PipelineConfig struct {
	RetrievalTimeoutSec  int `yaml:"retrieval_timeout_sec"`
	GenerationTimeoutSec int `yaml:"generation_timeout_sec"`
	DefaultTopK          int `yaml:"default_top_k"`
	EventBuffer          int `yaml:"event_buffer"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.applyStorageDefaults()
	c.applyEmbeddingDefaults()
	c.applyBackendDefaults()
	c.applyPipelineDefaults()
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = c.Pipeline.RetrievalTimeoutSec + c.Pipeline.GenerationTimeoutSec + 30
	}
}

func (c *Config) applyStorageDefaults() {
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "medscribe:"
	}
	if c.Storage.IndexName == "" {
		c.Storage.IndexName = "medscribe:docs:idx"
	}
	if len(c.Storage.FilterableFields) == 0 {
		c.Storage.FilterableFields = []string{"specialty", "document_type", "date", "diagnoses", "tags"}
	}
	if c.Storage.HNSWM <= 0 {
		c.Storage.HNSWM = 16
	}
	if c.Storage.HNSWEFConstruct <= 0 {
		c.Storage.HNSWEFConstruct = 200
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "hashing"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.Provider == "openai" && c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Provider == "hashing" && c.Embedding.Model == "" {
		c.Embedding.Model = "xxhash-trigram"
	}
}

func (c *Config) applyBackendDefaults() {
	b := &c.Generation.Backends
	if b.OpenAI.Model == "" {
		b.OpenAI.Model = "gpt-4o-2024-11-20"
	}
	if b.DeepSeek.BaseURL == "" {
		b.DeepSeek.BaseURL = "https://api.deepseek.com/v1"
	}
	if b.DeepSeek.Model == "" {
		b.DeepSeek.Model = "deepseek-chat"
	}
	if b.Local.BaseURL == "" {
		b.Local.BaseURL = "http://localhost:1234/v1"
	}
	if b.Local.Model == "" {
		b.Local.Model = "local-model"
	}
	if b.Local.ProbeTimeoutSec <= 0 {
		b.Local.ProbeTimeoutSec = 10
	}
	if b.Local.RequestTimeoutSec <= 0 {
		b.Local.RequestTimeoutSec = 180
	}
	if b.Local.MaxAttempts <= 0 {
		b.Local.MaxAttempts = 3
	}
	if b.Local.BackoffMs <= 0 {
		b.Local.BackoffMs = 1000
	}
	if b.Ollama.Model == "" {
		b.Ollama.Model = "llama3.2"
	}
}

func (c *Config) applyPipelineDefaults() {
	if c.Pipeline.RetrievalTimeoutSec <= 0 {
		c.Pipeline.RetrievalTimeoutSec = 30
	}
	if c.Pipeline.GenerationTimeoutSec <= 0 {
		c.Pipeline.GenerationTimeoutSec = 600
	}
	if c.Pipeline.DefaultTopK <= 0 {
		c.Pipeline.DefaultTopK = 3
	}
	if c.Pipeline.EventBuffer <= 0 {
		c.Pipeline.EventBuffer = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\", \"valkey\" or \"memory\", got %q", c.Database.Driver)
	}
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for provider \"openai\"")
		}
	case "hashing":
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"hashing\", got %q", c.Embedding.Provider)
	}
	if c.Pipeline.DefaultTopK > 10 {
		return fmt.Errorf("pipeline.default_top_k must be between 1 and 10, got %d", c.Pipeline.DefaultTopK)
	}
	if c.HTTP.WriteTimeoutSec < c.Pipeline.GenerationTimeoutSec {
		return fmt.Errorf(
			"http.write_timeout_sec (%d) must not be shorter than pipeline.generation_timeout_sec (%d)",
			c.HTTP.WriteTimeoutSec, c.Pipeline.GenerationTimeoutSec,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
