// Package azsearch is a minimal Azure AI Search data-plane client:
// document search with vector, hybrid and semantic payloads, and index health.
package azsearch

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
	"github.com/kailas-cloud/vecdemo/internal/domain/search/payload"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
)

// DefaultAPIVersion is the first data-plane version accepting the single "vector" query block.
const DefaultAPIVersion = "2023-07-01-Preview"

const (
	apiKeyHeader = "api-key"
	maxErrorBody = 64 << 10
)

// Config holds the search service settings.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	// Timeout bounds each request; zero means no client-side limit beyond the context.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to one search service.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	client     *http.Client
	logger     *zap.Logger
}

// New creates a search client.
func New(cfg *Config) *Client {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: apiVersion,
		client:     client,
		logger:     logger,
	}
}

type wireCaption struct {
	Text       string `json:"text"`
	Highlights string `json:"highlights"`
}

type wireDocument struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	Category      string        `json:"category"`
	ImageURL      string        `json:"imageUrl"`
	Score         float64       `json:"@search.score"`
	RerankerScore *float64      `json:"@search.rerankerScore"`
	Captions      []wireCaption `json:"@search.captions"`
}

type wireAnswer struct {
	Key        string  `json:"key"`
	Text       string  `json:"text"`
	Highlights string  `json:"highlights"`
	Score      float64 `json:"score"`
}

type wireResponse struct {
	Value   *[]wireDocument `json:"value"`
	Answers []wireAnswer    `json:"@search.answers"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search posts the payload to the index and decodes the matched documents.
func (c *Client) Search(ctx context.Context, index string, p payload.Payload) (result.Response, error) {
	approachKey := p.Approach().Key()
	start := time.Now()

	resp, err := c.search(ctx, index, p)

	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
		c.logger.Debug("search request failed",
			zap.String("index", index),
			zap.String("approach", approachKey),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}
	metrics.SearchRequestsTotal.WithLabelValues(index, approachKey, status).Inc()
	metrics.SearchRequestDuration.WithLabelValues(index, approachKey).Observe(duration.Seconds())

	return resp, err
}

func (c *Client) search(ctx context.Context, index string, p payload.Payload) (result.Response, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return result.Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(index, "/docs/search"), bytes.NewReader(body))
	if err != nil {
		return result.Response{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	httpResp, err := c.client.Do(req)
	if err != nil {
		return result.Response{}, domain.NewRemoteServiceError(domain.ServiceSearch, 0, err.Error())
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return result.Response{}, domain.NewRemoteServiceError(domain.ServiceSearch,
			httpResp.StatusCode, readErrorMessage(httpResp))
	}

	var wire wireResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&wire); err != nil {
		return result.Response{}, malformed(httpResp.StatusCode, err.Error())
	}
	if wire.Value == nil {
		return result.Response{}, malformed(httpResp.StatusCode, `response has no "value" array`)
	}

	return toResponse(wire), nil
}

// HealthCheck verifies the index answers a document count query.
func (c *Client) HealthCheck(ctx context.Context, index string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(index, "/docs/$count"), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewRemoteServiceError(domain.ServiceSearch, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewRemoteServiceError(domain.ServiceSearch, resp.StatusCode, readErrorMessage(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// IndexChecker binds HealthCheck to one index.
func (c *Client) IndexChecker(index string) domain.HealthChecker {
	return indexChecker{client: c, index: index}
}

type indexChecker struct {
	client *Client
	index  string
}

func (i indexChecker) HealthCheck(ctx context.Context) error {
	return i.client.HealthCheck(ctx, i.index)
}

func (c *Client) url(index, suffix string) string {
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	return c.endpoint + "/indexes/" + url.PathEscape(index) + suffix + "?" + q.Encode()
}

func toResponse(wire wireResponse) result.Response {
	docs := make([]result.Document, 0, len(*wire.Value))
	for _, d := range *wire.Value {
		var captions []result.Caption
		for _, c := range d.Captions {
			captions = append(captions, result.Caption{Text: c.Text, Highlights: c.Highlights})
		}
		docs = append(docs, result.NewDocument(result.DocumentFields{
			ID:            d.ID,
			Title:         d.Title,
			Content:       d.Content,
			ImageURL:      d.ImageURL,
			Category:      d.Category,
			Score:         d.Score,
			RerankerScore: d.RerankerScore,
			Captions:      captions,
		}))
	}

	var answers []result.SemanticAnswer
	for _, a := range wire.Answers {
		answers = append(answers, result.SemanticAnswer{
			Key:        a.Key,
			Text:       a.Text,
			Highlights: a.Highlights,
			Score:      a.Score,
		})
	}
	return result.Response{Documents: docs, Answers: answers}
}

func malformed(status int, detail string) error {
	return fmt.Errorf("%w: %w", domain.ErrMalformedResponse,
		domain.NewRemoteServiceError(domain.ServiceSearch, status, detail))
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

// IsNotFound reports whether err is a 404 from the search service (missing index).
func IsNotFound(err error) bool {
	var rse *domain.RemoteServiceError
	return errors.As(err, &rse) && rse.Service == domain.ServiceSearch && rse.Status == http.StatusNotFound
}
