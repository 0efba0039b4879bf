// Package app wires the application together: configuration, database,
// Genkit, the ingestion pipeline, and the chat orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/dvega/askme/db"
	"github.com/dvega/askme/internal/chat"
	"github.com/dvega/askme/internal/config"
	"github.com/dvega/askme/internal/document"
	"github.com/dvega/askme/internal/knowledge"
	"github.com/dvega/askme/internal/log"
	"github.com/dvega/askme/internal/session"
)

// App is the application container. Setup builds it top to bottom; Close
// releases everything it owns.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Store        *knowledge.Store
	Retriever    *knowledge.Retriever
	Populator    *knowledge.Populator
	Ingestor     *Ingestor
	Sessions     *session.Store
	Orchestrator *chat.Orchestrator
}

// Setup initializes the application. On failure everything already
// initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	if err := db.Migrate(cfg.ConnString(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	a.Genkit = g

	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Store = knowledge.NewStore(pool, a.Embedder, logger)
	a.Populator = knowledge.NewPopulator(a.Store, cfg.BatchSize, logger)
	a.Retriever = knowledge.NewRetriever(a.Store, cfg.TopK, logger)

	loader := document.NewLoader(logger)
	chunker := document.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	a.Ingestor = NewIngestor(loader, chunker, a.Populator, cfg.DocsDir, logger)

	a.Sessions = session.NewStore()

	orch, err := chat.New(chat.Config{
		Genkit:          g,
		ModelName:       cfg.FullModelName(),
		Bootstrap:       a.Ingestor,
		Retriever:       a.Retriever,
		Sessions:        a.Sessions,
		MinPassageChars: cfg.MinPassageChars,
		// Gemini free-tier friendly: 10 rps sustained, bursts of 30.
		Limiter: rate.NewLimiter(10, 30),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch

	logger.Info("application initialized",
		"model", cfg.FullModelName(), "embedder", cfg.EmbedderModel, "docs_dir", cfg.DocsDir)
	return a, nil
}

// Close releases the resources the App owns. Safe to call on a partially
// initialized App.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}
	if a.Logger != nil {
		a.Logger.Debug("application shut down")
	}
}

// providePool builds the pgx pool with pgvector types registered on
// every connection.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
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
