package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/archivist/internal/chunker"
	"github.com/kailas-cloud/archivist/internal/config"
	dbredis "github.com/kailas-cloud/archivist/internal/db/redis"
	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/metrics"
	"github.com/kailas-cloud/archivist/internal/parser"
	"github.com/kailas-cloud/archivist/internal/repository/embcache"
	"github.com/kailas-cloud/archivist/internal/repository/index"
	"github.com/kailas-cloud/archivist/internal/repository/journal"
	"github.com/kailas-cloud/archivist/internal/retry"
	openaiEmb "github.com/kailas-cloud/archivist/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/archivist/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/archivist/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/archivist/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/archivist/internal/usecase/search"
)

// Indexer runs indexing passes.
type Indexer interface {
	Sources() []domain.Source
	IndexSource(ctx context.Context, src domain.Source) (run.Report, error)
	IndexAll(ctx context.Context) ([]run.Report, error)
}

// Searcher answers queries and summarizes the index.
type Searcher interface {
	Search(ctx context.Context, query string, k int, source *domain.Source) ([]searchuc.Result, error)
	Stats(ctx context.Context) (searchuc.Stats, error)
}

// Health reports component availability.
type Health interface {
	Check(ctx context.Context) healthuc.Report
}

// History lists recent runs.
type History interface {
	Recent(ctx context.Context, n int) ([]run.Report, error)
}

// App is the assembled runtime the commands operate on.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Indexer  Indexer
	Searcher Searcher
	Health   Health
	History  History // nil when the journal is disabled
	Readers  []parser.Reader

	closers []func()
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Builder assembles an App from configuration.
type Builder func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error)

// Build is the composition root: store, provider chain, repositories and services.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	flavor, err := dbredis.ParseFlavor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
		Flavor:   flavor,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	app.closers = append(app.closers, store.Close)

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		app.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}
	logger.Debug("Connected to store",
		zap.String("flavor", string(store.Flavor())),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	metrics.RegisterProviderMetrics()
	metrics.RegisterIndexingMetrics()

	base, summarizer := buildProviders(cfg, logger)

	cached := embcache.New(base, store, embcache.Options{
		Namespace: cfg.Embedding.Model,
		TTL:       time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, logger)
	embedder := embeddinguc.NewInstrumentedEmbedder(
		cached, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.MaxBatchSize, logger,
	)

	repo := index.New(store, index.Config{
		Name:       cfg.Index.Name,
		KeyPrefix:  cfg.Index.KeyPrefix,
		Dimensions: cfg.Embedding.Dimensions,
		HNSW:       index.HNSWConfig{M: cfg.Index.HNSWM, EFConstruct: cfg.Index.HNSWEFConstruct},
	})

	// A nil *journal.Journal must not reach the interfaces below.
	var runJournal indexinguc.Journal
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = j.Close() })
		runJournal = j
		app.History = j
	}

	app.Readers = Readers(cfg.Sources)
	chunks := chunker.New(summarizer, chunker.Options{
		Short:        cfg.Chunking.Short,
		DisplayLimit: cfg.Chunking.DisplayLimit,
	})

	app.Indexer = indexinguc.New(app.Readers, chunks, embedder, repo, runJournal, logger)
	searchSvc := searchuc.New(repo, embedder, searchuc.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		ExcerptLen:   cfg.Search.ExcerptLen,
	}, logger)
	app.Searcher = searchSvc
	app.Health = healthuc.New(store, base, searchSvc)

	return app, nil
}

// buildProviders creates the OpenAI-compatible embedder and summarizer.
// Both share one limiter and one retry policy.
func buildProviders(cfg config.Config, logger *zap.Logger) (*openaiEmb.Embedder, *openaiEmb.Summarizer) {
	var limiter *rate.Limiter
	if cfg.RateLimit.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSec), cfg.RateLimit.Burst)
	}
	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     retry.Linear(time.Duration(cfg.Retry.StepSec) * time.Second),
		Retryable:   openaiEmb.IsRetryable,
	}

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		ClientConfig: openaiEmb.ClientConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Limiter: limiter,
			Retry:   policy,
		},
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	summarizer := openaiEmb.NewSummarizer(&openaiEmb.SummarizerConfig{
		ClientConfig: openaiEmb.ClientConfig{
			APIKey:  cfg.Summarizer.APIKey,
			BaseURL: cfg.Summarizer.BaseURL,
			Limiter: limiter,
			Retry:   policy,
		},
		Model:       cfg.Summarizer.Model,
		Temperature: cfg.Summarizer.Temperature,
		MaxTokens:   cfg.Summarizer.MaxTokens,
		Provider:    cfg.Embedding.Provider,
		Logger:      logger,
	})
	return embedder, summarizer
}

// Readers creates a reader for every configured source, in indexing order.
func Readers(src config.SourcesConfig) []parser.Reader {
	var out []parser.Reader
	if src.Catalog != "" {
		out = append(out, parser.NewCatalogReader(src.Catalog))
	}
	if src.Diary != "" {
		out = append(out, parser.NewDiaryReader(src.Diary))
	}
	if src.Poetry != "" {
		out = append(out, parser.NewPoetryReader(src.Poetry))
	}
	if src.Chat != "" {
		out = append(out, parser.NewChatReader(src.Chat))
	}
	return out
}
