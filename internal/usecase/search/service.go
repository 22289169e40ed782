package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/payload"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/request"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/logger"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
	"github.com/kailas-cloud/vecdemo/internal/usecase/invocation"
)

const tracerName = "github.com/kailas-cloud/vecdemo/internal/usecase/search"

// Config tunes one orchestrator instance.
type Config struct {
	Profile payload.Profile
	// Timeout bounds a whole invocation; zero disables it.
	Timeout time.Duration
	Tracer  trace.Tracer
	Logger  *zap.Logger
}

// Service runs one query through several retrieval approaches against a single index.
type Service struct {
	embed   Embedder
	search  Searcher
	profile payload.Profile
	timeout time.Duration
	tracer  trace.Tracer
	logger  *zap.Logger
}

// New creates a multi-approach search service.
func New(embed Embedder, search Searcher, cfg Config) *Service {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		embed:   embed,
		search:  search,
		profile: cfg.Profile,
		timeout: cfg.Timeout,
		tracer:  tracer,
		logger:  log,
	}
}

// Profile returns the index profile the service searches.
func (s *Service) Profile() payload.Profile { return s.profile }

// Run executes the invocation with a no-op monitor.
func (s *Service) Run(ctx context.Context, req *request.Request) (result.Outcome, error) {
	return s.RunWithMonitor(ctx, req, nil)
}

// RunWithMonitor embeds the query once, then fans out one search per selected approach.
// A failed approach is reported in Outcome.Errors and never aborts its siblings.
// An embedding failure aborts the invocation before any search is issued.
func (s *Service) RunWithMonitor(
	ctx context.Context, req *request.Request, monitor Monitor,
) (result.Outcome, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	id, ok := invocation.IDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
	}
	monitor.Start(id, req.Query())

	if req.IsEmpty() {
		out := result.Empty(id)
		s.record(metrics.OutcomeEmpty, 0)
		monitor.Aggregated(out)
		return out, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "search.invocation", trace.WithAttributes(
		attribute.String("invocation.id", id),
		attribute.String("search.profile", s.profile.Name),
		attribute.String("search.index", s.profile.Index),
		attribute.Int("search.approaches", len(req.Approaches())),
	))
	defer span.End()

	log := logger.FromContext(ctx, s.logger).With(
		zap.String("invocation_id", id),
		zap.String("profile", s.profile.Name),
	)
	start := time.Now()

	monitor.EmbeddingStarted()
	vector, err := s.vectorize(ctx, req.Query())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vectorize query")
		if superseded(ctx) {
			s.record(metrics.OutcomeSuperseded, len(req.Approaches()))
			return result.Outcome{}, fmt.Errorf("invocation %s: %w", id, domain.ErrSuperseded)
		}
		s.record(metrics.OutcomeFailed, len(req.Approaches()))
		log.Warn("query vectorization failed", zap.Error(err))
		return result.Outcome{}, fmt.Errorf("vectorize query: %w", err)
	}

	approaches := req.Approaches()
	monitor.SearchesStarted(approaches)
	slots := s.fanOut(ctx, req, vector, approaches, monitor)

	out := result.Outcome{
		InvocationID: id,
		Query:        req.Query(),
		Cards:        make([]result.Card, 0, len(slots)),
		Errors:       []string{},
	}
	if req.IncludeVector() {
		out.Vector = vector
	}
	for i, sl := range slots {
		if sl.err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s search failed: %s", approaches[i].Label(), sl.err))
			continue
		}
		out.Cards = append(out.Cards, result.NewCard(approaches[i], sl.resp))
	}

	monitor.Aggregated(out)

	if superseded(ctx) {
		s.record(metrics.OutcomeSuperseded, len(approaches))
		return out, fmt.Errorf("invocation %s: %w", id, domain.ErrSuperseded)
	}

	status := outcomeStatus(out)
	s.record(status, len(approaches))
	if len(out.Errors) > 0 {
		span.SetStatus(codes.Error, strings.Join(out.Errors, "; "))
	}

	log.Info("search invocation completed",
		zap.String("outcome", status),
		zap.Int("cards", len(out.Cards)),
		zap.Int("errors", len(out.Errors)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

type slot struct {
	resp result.Response
	err  error
}

// fanOut runs one search per approach in parallel. Each goroutine only writes its own slot.
func (s *Service) fanOut(
	ctx context.Context, req *request.Request, vector []float32,
	approaches []approach.Approach, monitor Monitor,
) []slot {
	slots := make([]slot, len(approaches))

	var g errgroup.Group
	g.SetLimit(min(len(approaches), approach.MaxSelected))
	for i, a := range approaches {
		g.Go(func() error {
			resp, err := s.searchOne(ctx, req, vector, a)
			slots[i] = slot{resp: resp, err: err}
			monitor.ApproachFinished(a, err)
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

func (s *Service) searchOne(
	ctx context.Context, req *request.Request, vector []float32, a approach.Approach,
) (result.Response, error) {
	ctx, span := s.tracer.Start(ctx, "search.approach", trace.WithAttributes(
		attribute.String("search.approach", a.Key()),
		attribute.String("search.index", s.profile.Index),
	))
	defer span.End()

	p, err := payload.Build(a, s.profile, vector, req.Query(), payload.Options{
		Filter:   req.Filter(),
		Captions: req.Captions(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build payload")
		return result.Response{}, fmt.Errorf("build payload: %w", err)
	}

	resp, err := s.search.Search(ctx, s.profile.Index, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search")
		return result.Response{}, err
	}
	span.SetAttributes(attribute.Int("search.documents", len(resp.Documents)))
	return resp, nil
}

func (s *Service) vectorize(ctx context.Context, query string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "search.embed")
	defer span.End()

	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("embedding.dimensions", len(res.Embedding)))
	return res.Embedding, nil
}

func (s *Service) record(outcome string, approaches int) {
	metrics.SearchInvocationsTotal.WithLabelValues(s.profile.Name, outcome).Inc()
	if approaches > 0 {
		metrics.SearchApproachesPerInvocation.WithLabelValues(s.profile.Name).Observe(float64(approaches))
	}
}

func superseded(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), domain.ErrSuperseded)
}

func outcomeStatus(out result.Outcome) string {
	switch {
	case len(out.Errors) == 0:
		return metrics.OutcomeOK
	case len(out.Cards) == 0:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomePartial
	}
}
