package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{
			Text: TextEmbeddingConfig{
				Endpoint:   "https://example.openai.azure.com",
				Deployment: "embedding",
				APIKey:     "text-key",
			},
		},
		Search: SearchConfig{
			Endpoint: "https://example.search.windows.net",
			APIKey:   "search-key",
			Text:     TextIndexConfig{Index: "docs"},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	expected := "http.port must be between 1 and 65535, got 0"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing endpoints")
	}
	for _, field := range []string{
		"embedding.text.endpoint", "embedding.text.deployment", "embedding.text.api_key",
		"search.endpoint", "search.api_key", "search.text.index",
	} {
		if !strings.Contains(err.Error(), field+" is required") {
			t.Errorf("expected %s in error, got %q", field, err.Error())
		}
	}
}

func TestValidate_ImageRequiresKeyAndIndex(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Image.Endpoint = "https://example.cognitiveservices.azure.com"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for image endpoint without key")
	}
	if !strings.Contains(err.Error(), "embedding.image.api_key is required") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "search.image.index is required") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Embedding.Image.APIKey = "vision-key"
	cfg.Search.Image.Index = "images"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_SampleRate(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for sample rate above 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Embedding.Text.APIVersion != "2023-05-15" {
		t.Errorf("unexpected text api version %q", cfg.Embedding.Text.APIVersion)
	}
	if cfg.Search.APIVersion != "2023-07-01-Preview" {
		t.Errorf("unexpected search api version %q", cfg.Search.APIVersion)
	}
	if cfg.Search.Text.VectorField != "contentVector" {
		t.Errorf("unexpected text vector field %q", cfg.Search.Text.VectorField)
	}
	if cfg.Search.Text.SemanticConfiguration != "my-semantic-config" {
		t.Errorf("unexpected semantic configuration %q", cfg.Search.Text.SemanticConfiguration)
	}
	if cfg.Search.Image.VectorField != "imageVector" || cfg.Search.Image.Select != "title,imageUrl" {
		t.Errorf("unexpected image defaults: %+v", cfg.Search.Image)
	}
	if cfg.Embedding.Image.Timeout() != 10*time.Second {
		t.Errorf("expected image embedding timeout 10s, got %v", cfg.Embedding.Image.Timeout())
	}
	if cfg.Orchestrator.Timeout() != 30*time.Second {
		t.Errorf("expected orchestrator timeout 30s, got %v", cfg.Orchestrator.Timeout())
	}
	if cfg.Tracing.SampleRate != 1 || cfg.Tracing.ServiceName != "vecdemo" {
		t.Errorf("unexpected tracing defaults: %+v", cfg.Tracing)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:         HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 90, ShutdownSec: 5},
		Search:       SearchConfig{APIVersion: "2023-10-01-Preview", Text: TextIndexConfig{VectorField: "embedding"}},
		Orchestrator: OrchestratorConfig{TimeoutSec: -1},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 90 {
		t.Errorf("expected WriteTimeoutSec=90, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Search.APIVersion != "2023-10-01-Preview" {
		t.Errorf("expected api version kept, got %q", cfg.Search.APIVersion)
	}
	if cfg.Search.Text.VectorField != "embedding" {
		t.Errorf("expected vector field kept, got %q", cfg.Search.Text.VectorField)
	}
	if cfg.Orchestrator.Timeout() != 0 {
		t.Errorf("expected disabled timeout, got %v", cfg.Orchestrator.Timeout())
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("VECDEMO_TEST_SEARCH_KEY", "from-env")

	data := []byte(`
http:
  port: ${VECDEMO_TEST_PORT:-9090}
embedding:
  text:
    endpoint: https://example.openai.azure.com
    deployment: embedding
    api_key: text-key
search:
  endpoint: https://example.search.windows.net
  api_key: ${VECDEMO_TEST_SEARCH_KEY}
  text:
    index: docs
    default_filter: "category eq 'Tools'"
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port from default, got %d", cfg.HTTP.Port)
	}
	if cfg.Search.APIKey != "from-env" {
		t.Errorf("expected search key from env, got %q", cfg.Search.APIKey)
	}
	if cfg.Search.Text.DefaultFilter != "category eq 'Tools'" {
		t.Errorf("unexpected default filter %q", cfg.Search.Text.DefaultFilter)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("expected port from local config")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("expected local, got %q", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("expected prod, got %q", GetEnv())
	}
}
