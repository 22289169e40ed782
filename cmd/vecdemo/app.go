package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecdemo/internal/config"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/payload"
	logpkg "github.com/kailas-cloud/vecdemo/internal/logger"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
	"github.com/kailas-cloud/vecdemo/internal/tracing"
	"github.com/kailas-cloud/vecdemo/internal/transport/azsearch"
	openaiEmb "github.com/kailas-cloud/vecdemo/internal/transport/openai"
	"github.com/kailas-cloud/vecdemo/internal/transport/vision"
	"github.com/kailas-cloud/vecdemo/internal/version"
	embeddinguc "github.com/kailas-cloud/vecdemo/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecdemo/internal/usecase/health"
	"github.com/kailas-cloud/vecdemo/internal/usecase/invocation"
	searchuc "github.com/kailas-cloud/vecdemo/internal/usecase/search"
)

// app is the assembled service graph shared by serve and search.
type app struct {
	env      string
	cfg      config.Config
	logger   *zap.Logger
	tracing  *tracing.Provider
	search   *azsearch.Client
	text     *searchuc.Service
	image    *searchuc.Service // nil when image search is not configured
	registry *invocation.Registry
	health   *healthuc.Service
}

// loadConfig reads an explicit file when path is set, else config/<env>.yaml.
func loadConfig(env, path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(env)
}

// buildApp is the composition root.
func buildApp(ctx context.Context, env, configPath string) (*app, error) {
	cfg, err := loadConfig(env, configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	tp, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.Version,
		Environment:    env,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	searchClient := azsearch.New(&azsearch.Config{
		Endpoint:   cfg.Search.Endpoint,
		APIKey:     cfg.Search.APIKey,
		APIVersion: cfg.Search.APIVersion,
		Timeout:    cfg.Search.Timeout(),
		Logger:     logger,
	})

	textTC := cfg.Embedding.Text
	textBase := openaiEmb.NewEmbedder(&openaiEmb.Config{
		Endpoint:   textTC.Endpoint,
		Deployment: textTC.Deployment,
		APIVersion: textTC.APIVersion,
		APIKey:     textTC.APIKey,
		Model:      textTC.Model,
		Logger:     logger,
	})
	textEmbedder := embeddinguc.NewInstrumentedEmbedder(textBase, "azure-openai", textTC.Deployment, logger)

	textProfile := payload.TextProfile(cfg.Search.Text.Index, cfg.Search.Text.VectorField)
	textProfile.Select = cfg.Search.Text.Select
	textProfile.SemanticConfiguration = cfg.Search.Text.SemanticConfiguration
	textProfile.QueryLanguage = cfg.Search.Text.QueryLanguage

	a := &app{
		env:      env,
		cfg:      cfg,
		logger:   logger,
		tracing:  tp,
		search:   searchClient,
		registry: invocation.NewRegistry(),
	}
	a.text = searchuc.New(textEmbedder, searchClient, searchuc.Config{
		Profile: textProfile,
		Timeout: cfg.Orchestrator.Timeout(),
		Tracer:  tp.Tracer(),
		Logger:  logger,
	})

	checkers := []healthuc.Named{
		{Name: "embedding", Checker: textBase},
		{Name: "search", Checker: searchClient.IndexChecker(cfg.Search.Text.Index)},
	}

	if cfg.Embedding.Image.Enabled() {
		imgCfg := cfg.Embedding.Image
		imageBase := vision.NewEmbedder(&vision.Config{
			Endpoint:     imgCfg.Endpoint,
			APIVersion:   imgCfg.APIVersion,
			ModelVersion: imgCfg.ModelVersion,
			APIKey:       imgCfg.APIKey,
			Timeout:      imgCfg.Timeout(),
			Logger:       logger,
		})
		imageEmbedder := embeddinguc.NewInstrumentedEmbedder(imageBase, "azure-vision", imgCfg.ModelVersion, logger)

		imageProfile := payload.ImageProfile(cfg.Search.Image.Index, cfg.Search.Image.VectorField)
		imageProfile.Select = cfg.Search.Image.Select
		a.image = searchuc.New(imageEmbedder, searchClient, searchuc.Config{
			Profile: imageProfile,
			Timeout: cfg.Orchestrator.Timeout(),
			Tracer:  tp.Tracer(),
			Logger:  logger,
		})
		checkers = append(checkers, healthuc.Named{
			Name:    "image_index",
			Checker: searchClient.IndexChecker(cfg.Search.Image.Index),
		})
	}

	a.health = healthuc.New(checkers...)
	return a, nil
}

// checkIndexes warns about configured indexes the search service does not know.
func (a *app) checkIndexes(ctx context.Context) {
	indexes := []string{a.cfg.Search.Text.Index}
	if a.image != nil {
		indexes = append(indexes, a.cfg.Search.Image.Index)
	}
	for _, idx := range indexes {
		err := a.search.HealthCheck(ctx, idx)
		switch {
		case err == nil:
		case azsearch.IsNotFound(err):
			a.logger.Warn("Search index not found, searches against it will fail", zap.String("index", idx))
		default:
			a.logger.Warn("Search index check failed", zap.String("index", idx), zap.Error(err))
		}
	}
}

func (a *app) close(ctx context.Context) {
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Error("Tracing shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
