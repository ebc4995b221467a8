package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/vibecoding/mcp-server/internal/auth"
	"github.com/vibecoding/mcp-server/internal/chunker"
	"github.com/vibecoding/mcp-server/internal/config"
	"github.com/vibecoding/mcp-server/internal/contextsvc"
	"github.com/vibecoding/mcp-server/internal/db"
	"github.com/vibecoding/mcp-server/internal/embeddings"
	"github.com/vibecoding/mcp-server/internal/retrieval"
	"github.com/vibecoding/mcp-server/internal/sources"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

// services bundles the wired application components shared by the serve,
// mcp and bootstrap commands.
type services struct {
	cfg        *config.Config
	db         *db.DB
	auth       *auth.Service
	aggregator *contextsvc.Aggregator
	pipeline   *chunker.Pipeline
	store      *vectordb.ChromemStore
	retriever  *retrieval.Orchestrator
}

func (s *services) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// buildServices loads the config and wires the full retrieval stack. Source
// clients read their credentials from the environment; unconfigured sources
// are still wired and simply contribute nothing.
func buildServices() (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewFromConfig(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := vectordb.NewChromemStore(cfg.DataDir, embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "vibemcp.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	userStore, err := auth.NewStore(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating user store: %w", err)
	}

	aggregator := contextsvc.New(
		sources.NewGmailClientFromEnv(),
		sources.NewZoomClientFromEnv(),
		sources.NewNotionClientFromEnv(),
		sources.NewSalesforceClientFromEnv(),
	)
	pipeline := chunker.NewPipeline(store, cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	retriever := retrieval.New(aggregator, pipeline, store, retrieval.BootstrapParams{
		DaysBack: cfg.Index.BootstrapDaysBack,
		Limit:    cfg.Index.BootstrapLimit,
	})

	return &services{
		cfg:        cfg,
		db:         database,
		auth:       auth.NewService(userStore, cfg.Auth.Secret, cfg.Auth.TokenExpiryMinutes),
		aggregator: aggregator,
		pipeline:   pipeline,
		store:      store,
		retriever:  retriever,
	}, nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `vibemcp init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
