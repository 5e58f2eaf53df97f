package app

import (
	"context"
	"fmt"

	"github.com/saclay-assistant/backend/config"
	"github.com/saclay-assistant/backend/middleware"
	"github.com/saclay-assistant/backend/repositories"
	"github.com/saclay-assistant/backend/repositories/postgres"
	"github.com/saclay-assistant/backend/services/ask"
	"github.com/saclay-assistant/backend/services/embedding"
	"github.com/saclay-assistant/backend/services/generation"
	"github.com/saclay-assistant/backend/services/generation/huggingface"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Chunks repositories.ChunkRepository

	// Inference clients
	Embedder  *embedding.Client
	Generator *generation.Orchestrator

	// Services
	Ask *ask.Service

	// Auth. Nil when no JWT secret is configured; routes stay open.
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initInference(cfg)
	deps.initServices()
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, bootstraps the corpus
// schema, and builds the chunk repository.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	d.DB = db

	if err := db.InitSchema(ctx, cfg.HuggingFace.EmbedDimension); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Chunks = postgres.NewChunkRepository(db.DB, d.Logger)

	d.Logger.Info("repositories initialized")
	return nil
}

// initInference builds the embedding client and the generation orchestrator.
func (d *Dependencies) initInference(cfg *config.Config) {
	d.Embedder = embedding.NewClient(embedding.Config{
		Token:     cfg.HuggingFace.Token,
		BaseURL:   cfg.HuggingFace.BaseURL,
		Model:     cfg.HuggingFace.EmbedModel,
		Dimension: cfg.HuggingFace.EmbedDimension,
		Timeout:   cfg.HuggingFace.Timeout,
	}, d.Logger)

	backend := huggingface.NewClient(huggingface.Config{
		Token:   cfg.HuggingFace.Token,
		BaseURL: cfg.HuggingFace.BaseURL,
		Model:   cfg.HuggingFace.GenModel,
		Timeout: cfg.HuggingFace.Timeout,
	}, d.Logger)

	d.Generator = generation.NewOrchestrator(backend, generation.DefaultParams(), d.Logger)

	d.Logger.Info("inference clients initialized",
		zap.String("embed_model", cfg.HuggingFace.EmbedModel),
		zap.String("gen_model", cfg.HuggingFace.GenModel))
}

// initServices wires the answer pipeline.
func (d *Dependencies) initServices() {
	d.Ask = ask.NewService(d.Embedder, d.Chunks, d.Generator, d.Logger)
}

// initAuth configures JWT authentication when a secret is present.
func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT secret not configured, API endpoints are unauthenticated")
		return
	}
	validator := middleware.NewJWTValidator(cfg.Auth.JWTSecret)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("JWT authentication enabled")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
