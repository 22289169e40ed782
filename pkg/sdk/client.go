package vecdemo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/payload"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/request"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/transport/azsearch"
	openaiEmb "github.com/kailas-cloud/vecdemo/internal/transport/openai"
	"github.com/kailas-cloud/vecdemo/internal/transport/vision"
	embeddinguc "github.com/kailas-cloud/vecdemo/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecdemo/internal/usecase/health"
	"github.com/kailas-cloud/vecdemo/internal/usecase/invocation"
	searchuc "github.com/kailas-cloud/vecdemo/internal/usecase/search"
)

const defaultTimeout = 30 * time.Second

// Internal interfaces, swapped out in tests.
type searchRunner interface {
	Run(ctx context.Context, req *request.Request) (result.Outcome, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the vecdemo SDK entry point. Safe for concurrent use.
type Client struct {
	text          searchRunner
	image         searchRunner // nil when image search is not configured
	healthSvc     healthUseCase
	registry      *invocation.Registry
	defaultFilter string
	obs           *observer
}

// New creates a Client. No network call is made until the first search.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		textVectorField:  "contentVector",
		imageVectorField: "imageVector",
		timeout:          defaultTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return wireClient(cfg, obs), nil
}

func (c *clientConfig) validate() error {
	var errs []error
	require := func(value, msg string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, errors.New(msg))
		}
	}
	require(c.text.endpoint, "vecdemo: text embedding endpoint required (use WithTextEmbedding)")
	require(c.text.deployment, "vecdemo: text embedding deployment required (use WithTextEmbedding)")
	require(c.text.apiKey, "vecdemo: text embedding api key required (use WithTextEmbedding)")
	require(c.searchEndpoint, "vecdemo: search endpoint required (use WithSearchService)")
	require(c.searchAPIKey, "vecdemo: search api key required (use WithSearchService)")
	require(c.textIndex, "vecdemo: text index required (use WithTextIndex)")
	if c.image.endpoint != "" {
		require(c.image.apiKey, "vecdemo: image embedding api key required (use WithImageEmbedding)")
		require(c.imageIndex, "vecdemo: image index required (use WithImageIndex)")
	}
	return errors.Join(errs...)
}

func wireClient(cfg *clientConfig, obs *observer) *Client {
	// Internal layers log with zap; the SDK reports through its own slog observer.
	nop := zap.NewNop()

	searchClient := azsearch.New(&azsearch.Config{
		Endpoint:   cfg.searchEndpoint,
		APIKey:     cfg.searchAPIKey,
		APIVersion: cfg.searchAPIVersion,
		HTTPClient: cfg.httpClient,
		Logger:     nop,
	})

	textBase := openaiEmb.NewEmbedder(&openaiEmb.Config{
		Endpoint:   cfg.text.endpoint,
		Deployment: cfg.text.deployment,
		APIVersion: cfg.text.apiVersion,
		APIKey:     cfg.text.apiKey,
		HTTPClient: cfg.httpClient,
		Logger:     nop,
	})
	textEmb := embeddinguc.NewInstrumentedEmbedder(textBase, "azure-openai", cfg.text.deployment, nop)

	c := &Client{
		text: searchuc.New(textEmb, searchClient, searchuc.Config{
			Profile: payload.TextProfile(cfg.textIndex, cfg.textVectorField),
			Timeout: cfg.timeout,
			Logger:  nop,
		}),
		registry:      invocation.NewRegistry(),
		defaultFilter: strings.TrimSpace(cfg.defaultFilter),
		obs:           obs,
	}

	checkers := []healthuc.Named{
		{Name: "embedding", Checker: textBase},
		{Name: "search", Checker: searchClient.IndexChecker(cfg.textIndex)},
	}

	if cfg.image.endpoint != "" {
		imageBase := vision.NewEmbedder(&vision.Config{
			Endpoint:     cfg.image.endpoint,
			APIVersion:   cfg.image.apiVersion,
			ModelVersion: cfg.image.modelVersion,
			APIKey:       cfg.image.apiKey,
			HTTPClient:   cfg.httpClient,
			Logger:       nop,
		})
		imageEmb := embeddinguc.NewInstrumentedEmbedder(imageBase, "azure-vision", cfg.image.modelVersion, nop)
		c.image = searchuc.New(imageEmb, searchClient, searchuc.Config{
			Profile: payload.ImageProfile(cfg.imageIndex, cfg.imageVectorField),
			Timeout: cfg.timeout,
			Logger:  nop,
		})
		checkers = append(checkers, healthuc.Named{Name: "image_index", Checker: searchClient.IndexChecker(cfg.imageIndex)})
	}

	c.healthSvc = healthuc.New(checkers...)
	return c
}

// SearchText runs query through the selected approaches against the text index.
// Per-approach failures are returned in Result.Errors with a nil error.
func (c *Client) SearchText(ctx context.Context, query string, opts SearchOptions) (Result, error) {
	return c.search(ctx, "", "search.text", query, opts)
}

// SearchImage runs query against the image index. Approaches default to ApproachVector.
func (c *Client) SearchImage(ctx context.Context, query string, opts SearchOptions) (Result, error) {
	return c.search(ctx, "", "search.image", query, opts)
}

// Session returns a latest-wins handle: starting an invocation cancels the
// previous unfinished one of the same id with ErrSuperseded.
func (c *Client) Session(id string) *Session {
	return &Session{client: c, id: id}
}

// Health checks the embedding service and the configured indexes.
func (c *Client) Health(ctx context.Context) (report HealthReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, 0, err) }()

	r := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(r.Checks))
	for name, res := range r.Checks {
		checks[name] = string(res)
	}
	report = HealthReport{Status: string(r.Status), Checks: checks}
	if r.Status != healthuc.Healthy {
		err = fmt.Errorf("vecdemo: health %s", r.Status)
	}
	return report, err
}

// Ping reports whether every remote dependency answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}

func (c *Client) search(ctx context.Context, session, op, query string, opts SearchOptions) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe(op, start, len(res.Errors), err) }()

	runner := c.text
	keys := approachKeys(opts.Approaches)
	filter := strings.TrimSpace(opts.Filter)
	if op == "search.image" {
		if c.image == nil {
			return Result{}, ErrImageSearchDisabled
		}
		runner = c.image
		if len(keys) == 0 {
			keys = []string{approach.VectorOnly.Key()}
		}
	} else if filter == "" && slices.Contains(keys, approach.VectorWithFilter.Key()) {
		filter = c.defaultFilter
	}

	req, err := request.New(query, keys, request.Options{
		Filter:        filter,
		Captions:      opts.Captions,
		IncludeVector: opts.IncludeVector,
	})
	if err != nil {
		return Result{}, err
	}

	ctx, ticket := c.registry.Begin(ctx, session)
	defer ticket.Done()

	out, err := runner.Run(ctx, &req)
	if err != nil {
		return Result{}, err
	}
	return resultFromOutcome(&out), nil
}

func approachKeys(as []Approach) []string {
	keys := make([]string, len(as))
	for i, a := range as {
		keys[i] = string(a)
	}
	return keys
}

// Session groups invocations of one interactive caller. Safe for concurrent use.
type Session struct {
	client *Client
	id     string
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SearchText is Client.SearchText under latest-wins semantics.
func (s *Session) SearchText(ctx context.Context, query string, opts SearchOptions) (Result, error) {
	return s.client.search(ctx, s.id, "search.text", query, opts)
}

// SearchImage is Client.SearchImage under latest-wins semantics.
func (s *Session) SearchImage(ctx context.Context, query string, opts SearchOptions) (Result, error) {
	return s.client.search(ctx, s.id, "search.image", query, opts)
}
