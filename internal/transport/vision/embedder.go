// Package vision implements text-to-image-space vectorization against the
// Azure AI Vision retrieval API (computervision/retrieval:vectorizeText).
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
)

// DefaultAPIVersion is the retrieval API version used when none is configured.
const DefaultAPIVersion = "2023-02-01-preview"

// DefaultTimeout bounds a vectorize call when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

const (
	vectorizePath = "/computervision/retrieval:vectorizeText"
	apiKeyHeader  = "Ocp-Apim-Subscription-Key"
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Config holds the Vision embedding settings.
type Config struct {
	Endpoint     string
	APIVersion   string
	ModelVersion string
	APIKey       string
	Provider     string
	Timeout      time.Duration // ignored when HTTPClient is set
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Embedder vectorizes text into the image embedding space.
type Embedder struct {
	url      string
	apiKey   string
	model    string
	provider string
	client   *http.Client
	logger   *zap.Logger
}

// NewEmbedder creates a Vision embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	q := url.Values{}
	q.Set("api-version", apiVersion)
	if cfg.ModelVersion != "" {
		q.Set("model-version", cfg.ModelVersion)
	}

	model := cfg.ModelVersion
	if model == "" {
		model = "default"
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "azure-vision"
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		url:      strings.TrimRight(cfg.Endpoint, "/") + vectorizePath + "?" + q.Encode(),
		apiKey:   cfg.APIKey,
		model:    model,
		provider: provider,
		client:   client,
		logger:   logger,
	}
}

type vectorizeRequest struct {
	Text string `json:"text"`
}

type vectorizeResponse struct {
	ModelVersion string    `json:"modelVersion"`
	Vector       []float32 `json:"vector"`
}

type errorEnvelope struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	vec, err := e.vectorize(ctx, text)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, errorType(err)).Inc()
		e.logger.Debug("vectorize request failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(duration.Seconds())

	return domain.EmbeddingResult{Embedding: vec}, nil
}

func (e *Embedder) vectorize(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(vectorizeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, domain.NewRemoteServiceError(domain.ServiceEmbedding, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewRemoteServiceError(domain.ServiceEmbedding, resp.StatusCode, readErrorMessage(resp))
	}

	var out vectorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode vectorize response: %w: %w", domain.ErrMalformedResponse,
			domain.NewRemoteServiceError(domain.ServiceEmbedding, resp.StatusCode, err.Error()))
	}
	if len(out.Vector) == 0 {
		return nil, fmt.Errorf("empty vector: %w",
			domain.NewRemoteServiceError(domain.ServiceEmbedding, resp.StatusCode, "response contained no vector"))
	}
	return out.Vector, nil
}

// readErrorMessage extracts error.message from the body, falling back to the raw body or status text.
func readErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env errorEnvelope
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}

func errorType(err error) string {
	var rse *domain.RemoteServiceError
	if errors.As(err, &rse) && rse.Status == 0 {
		return "unreachable"
	}
	return "api_error"
}
