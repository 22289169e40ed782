package vecdemo

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type textEmbeddingConfig struct {
	endpoint   string
	deployment string
	apiKey     string
	apiVersion string
}

type imageEmbeddingConfig struct {
	endpoint     string
	apiKey       string
	apiVersion   string
	modelVersion string
}

type clientConfig struct {
	text  textEmbeddingConfig
	image imageEmbeddingConfig

	searchEndpoint   string
	searchAPIKey     string
	searchAPIVersion string

	textIndex        string
	textVectorField  string
	imageIndex       string
	imageVectorField string
	defaultFilter    string

	timeout    time.Duration
	httpClient *http.Client

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithTextEmbedding configures the Azure OpenAI deployment that vectorizes text queries.
// Required.
func WithTextEmbedding(endpoint, deployment, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.text.endpoint = endpoint
		c.text.deployment = deployment
		c.text.apiKey = apiKey
	})
}

// WithTextEmbeddingAPIVersion overrides the Azure OpenAI api-version (default 2023-05-15).
func WithTextEmbeddingAPIVersion(v string) Option {
	return optionFunc(func(c *clientConfig) {
		c.text.apiVersion = v
	})
}

// WithImageEmbedding configures the Azure AI Vision resource that vectorizes queries
// into the image embedding space. Without it SearchImage returns ErrImageSearchDisabled.
func WithImageEmbedding(endpoint, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.image.endpoint = endpoint
		c.image.apiKey = apiKey
	})
}

// WithImageModelVersion pins the Vision retrieval model-version.
func WithImageModelVersion(v string) Option {
	return optionFunc(func(c *clientConfig) {
		c.image.modelVersion = v
	})
}

// WithSearchService configures the Azure AI Search service. Required.
func WithSearchService(endpoint, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchEndpoint = endpoint
		c.searchAPIKey = apiKey
	})
}

// WithSearchAPIVersion overrides the search api-version (default 2023-07-01-Preview).
func WithSearchAPIVersion(v string) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchAPIVersion = v
	})
}

// WithTextIndex sets the text index. Required.
func WithTextIndex(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.textIndex = name
	})
}

// WithImageIndex sets the image index searched by SearchImage.
func WithImageIndex(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.imageIndex = name
	})
}

// WithVectorFields overrides the vector field names (defaults contentVector and imageVector).
// Empty values keep the default.
func WithVectorFields(text, image string) Option {
	return optionFunc(func(c *clientConfig) {
		if text != "" {
			c.textVectorField = text
		}
		if image != "" {
			c.imageVectorField = image
		}
	})
}

// WithDefaultFilter sets the filter used by ApproachVectorFilter when SearchOptions.Filter is empty.
func WithDefaultFilter(expr string) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultFilter = expr
	})
}

// WithTimeout bounds each invocation. Default: 30s. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHTTPClient sets the HTTP client used for Vision and Search calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
