package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the vecdemo configuration. Built once at startup and passed into constructors.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Search       SearchConfig       `yaml:"search"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // empty disables export
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"` // 0..1
	Insecure     bool    `yaml:"insecure"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EmbeddingConfig holds both embedding services.
type EmbeddingConfig struct {
	Text  TextEmbeddingConfig  `yaml:"text"`
	Image ImageEmbeddingConfig `yaml:"image"`
}

// TextEmbeddingConfig holds the Azure OpenAI deployment settings.
type TextEmbeddingConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
}

// ImageEmbeddingConfig holds the Azure AI Vision settings. Empty endpoint disables image search.
type ImageEmbeddingConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIVersion   string `yaml:"api_version"`
	ModelVersion string `yaml:"model_version"`
	APIKey       string `yaml:"api_key"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// Timeout returns the per-request timeout of the Vision client.
func (c ImageEmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Enabled reports whether image vectorization is configured.
func (c ImageEmbeddingConfig) Enabled() bool { return c.Endpoint != "" }

// SearchConfig holds the search service settings.
type SearchConfig struct {
	Endpoint   string           `yaml:"endpoint"`
	APIKey     string           `yaml:"api_key"`
	APIVersion string           `yaml:"api_version"`
	TimeoutSec int              `yaml:"timeout_sec"`
	Text       TextIndexConfig  `yaml:"text"`
	Image      ImageIndexConfig `yaml:"image"`
}

// Timeout returns the per-request timeout of the search client.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// TextIndexConfig describes the text index.
type TextIndexConfig struct {
	Index                 string `yaml:"index"`
	VectorField           string `yaml:"vector_field"`
	Select                string `yaml:"select"`
	SemanticConfiguration string `yaml:"semantic_configuration"`
	QueryLanguage         string `yaml:"query_language"`
	// DefaultFilter is used by the filtered approach when a request carries no filter.
	DefaultFilter string `yaml:"default_filter"`
}

// ImageIndexConfig describes the image index.
type ImageIndexConfig struct {
	Index       string `yaml:"index"`
	VectorField string `yaml:"vector_field"`
	Select      string `yaml:"select"`
}

// OrchestratorConfig holds invocation settings.
type OrchestratorConfig struct {
	TimeoutSec int `yaml:"timeout_sec"` // 0 after defaults means 30s; negative disables
}

// Timeout returns the invocation timeout, zero when disabled.
func (c OrchestratorConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
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
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "vecdemo"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 1
	}
	if c.Embedding.Text.APIVersion == "" {
		c.Embedding.Text.APIVersion = "2023-05-15"
	}
	if c.Embedding.Image.APIVersion == "" {
		c.Embedding.Image.APIVersion = "2023-02-01-preview"
	}
	if c.Embedding.Image.TimeoutSec <= 0 {
		c.Embedding.Image.TimeoutSec = 10
	}
	if c.Search.APIVersion == "" {
		c.Search.APIVersion = "2023-07-01-Preview"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 10
	}
	if c.Search.Text.VectorField == "" {
		c.Search.Text.VectorField = "contentVector"
	}
	if c.Search.Text.SemanticConfiguration == "" {
		c.Search.Text.SemanticConfiguration = "my-semantic-config"
	}
	if c.Search.Text.QueryLanguage == "" {
		c.Search.Text.QueryLanguage = "en-us"
	}
	if c.Search.Image.VectorField == "" {
		c.Search.Image.VectorField = "imageVector"
	}
	if c.Search.Image.Select == "" {
		c.Search.Image.Select = "title,imageUrl"
	}
	if c.Orchestrator.TimeoutSec == 0 {
		c.Orchestrator.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1, got %g", c.Tracing.SampleRate)
	}

	var errs []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require("embedding.text.endpoint", c.Embedding.Text.Endpoint)
	require("embedding.text.deployment", c.Embedding.Text.Deployment)
	require("embedding.text.api_key", c.Embedding.Text.APIKey)
	require("search.endpoint", c.Search.Endpoint)
	require("search.api_key", c.Search.APIKey)
	require("search.text.index", c.Search.Text.Index)
	if c.Embedding.Image.Enabled() {
		require("embedding.image.api_key", c.Embedding.Image.APIKey)
		require("search.image.index", c.Search.Image.Index)
	}
	return errors.Join(errs...)
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
