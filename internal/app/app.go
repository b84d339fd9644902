// Package app wires the guidance service together: configuration, database
// pool, migrations, embedder selection and the answering engine. Wiring is
// explicit constructor calls; the dependency graph is small enough to read
// top to bottom.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/sima-platform/guidance/db"
	"github.com/sima-platform/guidance/internal/config"
	"github.com/sima-platform/guidance/internal/guideline"
	"github.com/sima-platform/guidance/internal/log"
	"github.com/sima-platform/guidance/internal/rag"
)

// App holds the assembled service components.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool       *pgxpool.Pool
	Guidelines *guideline.Store
	Chunks     *rag.ChunkStore
	Recorder   *rag.Recorder
	Engine     *rag.Engine
}

// Setup builds the application: runs migrations, connects the pool, probes
// the pgvector capability, selects the embedding strategy and assembles the
// engine. Call Close when done.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	vectorCapable, err := probeVectorCapability(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if !vectorCapable {
		logger.Warn("pgvector extension not available, retrieval degrades to lexical scoring")
	} else {
		declared, err := rag.VectorColumnDimension(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if declared != cfg.EmbedDimension {
			pool.Close()
			return nil, fmt.Errorf(
				"embed_dimension %d does not match the vector column dimension %d; change embed_dimension or migrate the schema",
				cfg.EmbedDimension, declared)
		}
	}

	embedder, err := provideEmbedder(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	chunks := rag.NewChunkStore(pool, vectorCapable, cfg.EmbedDimension, logger)
	guidelines := guideline.NewStore(pool, logger)
	recorder := rag.NewRecorder(pool, logger)

	reranker := rag.NewReranker(rag.Weights{
		Sim:  cfg.RerankWeightSim,
		BM25: cfg.RerankWeightBM25,
		Fuzz: cfg.RerankWeightFuzz,
	}, cfg.BM25Enabled, cfg.FuzzyEnabled)

	engine := rag.NewEngine(guidelines, chunks, embedder, reranker, recorder, rag.Params{
		ChunkMaxChars:      cfg.ChunkMaxChars,
		ChunkOverlap:       cfg.ChunkOverlap,
		RetrieveCandidates: cfg.RetrieveCandidates,
		RerankTopK:         cfg.RerankTopK,
		AnswerChunks:       cfg.AnswerChunks,
		AnswerPreviewChars: cfg.AnswerPreviewChars,
		EmbedProvider:      cfg.EmbedProvider,
	}, logger)

	logger.Info("application ready",
		"embed_provider", cfg.EmbedProvider,
		"embed_dimension", cfg.EmbedDimension,
		"vector_enabled", vectorCapable)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Pool:       pool,
		Guidelines: guidelines,
		Chunks:     chunks,
		Recorder:   recorder,
		Engine:     engine,
	}, nil
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func providePool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	// Register the pgvector codec on every connection. Fails when the
	// extension is absent, which the capability probe handles; the
	// connection itself is still usable for the lexical path.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			logger.Debug("pgvector types not registered", "error", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// probeVectorCapability checks once at startup whether the vector extension
// is installed. The flag is fixed for the process lifetime.
func probeVectorCapability(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var enabled bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`,
	).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("probing pgvector capability: %w", err)
	}
	return enabled, nil
}

// provideEmbedder selects the embedding strategy. The local hash embedder is
// always the fallback; the OpenAI provider is wrapped so provider outages
// degrade instead of failing requests.
func provideEmbedder(cfg *config.Config, logger log.Logger) (rag.Embedder, error) {
	local := rag.NewHashEmbedder(cfg.EmbedDimension)

	switch cfg.EmbedProvider {
	case config.ProviderOpenAI:
		primary, err := rag.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.EmbedDimension, cfg.EmbedTimeout)
		if err != nil {
			return nil, fmt.Errorf("creating openai embedder: %w", err)
		}
		return rag.NewFallbackEmbedder(primary, local, logger)
	default:
		return local, nil
	}
}
