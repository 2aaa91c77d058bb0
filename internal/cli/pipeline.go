package cli

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/statusdigest/internal/config"
	"github.com/cloo-solutions/statusdigest/internal/database"
	"github.com/cloo-solutions/statusdigest/internal/extract"
	"github.com/cloo-solutions/statusdigest/internal/kb"
	"github.com/cloo-solutions/statusdigest/internal/openai"
	"github.com/cloo-solutions/statusdigest/internal/repository"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pipeline is the extraction and import stack built from config. Database
// backed members are nil when no DATABASE_URL is configured.
type Pipeline struct {
	Config *config.Config
	Logger *zap.Logger

	Pool      *pgxpool.Pool
	Knowledge *kb.Provider
	Engine    *extract.Engine

	Projects   *service.ProjectService
	Importer   *service.ImportService
	ImportJobs *service.ImportJobService
	JobRepo    *repository.ImportJobRepository
}

// PipelineOptions adjusts NewPipeline
type PipelineOptions struct {
	// RequireDatabase fails when no DATABASE_URL is configured
	RequireDatabase bool
	// Store archives uploaded documents; nil disables archiving
	Store service.DocumentStore
	Pool  database.PoolOptions
}

// NewPipeline connects to the database when configured and wires the
// knowledge base, extractors and services on top of it
func NewPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts PipelineOptions) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{Config: cfg, Logger: logger}

	if !cfg.HasDatabase() && opts.RequireDatabase {
		return nil, fmt.Errorf("DIGEST_DATABASE_URL is required for this command")
	}

	var primary kb.Source
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, opts.Pool)
		if err != nil {
			return nil, err
		}
		p.Pool = pool
		primary = repository.NewProjectRepository(pool)
	}

	var fallback kb.Source
	if cfg.ProjectCSVPath != "" {
		fallback = kb.NewCSVSource(cfg.ProjectCSVPath)
	}
	p.Knowledge = kb.NewProvider(primary, fallback, logger.Named("kb"))

	deterministic := extract.NewDeterministic(p.Knowledge, cfg.NearMergeMinGap, cfg.AliasBatchSize, logger.Named("deterministic"))
	var llm extract.Extractor
	if cfg.HasLLM() {
		client, err := openai.NewClientFromConfig(cfg)
		if err != nil {
			p.Close()
			return nil, err
		}
		llmExtractor, err := extract.NewLLMExtractor(client, p.Knowledge, extract.OptionsFromConfig(cfg), logger.Named("llm"))
		if err != nil {
			p.Close()
			return nil, err
		}
		llm = llmExtractor
		logger.Info("llm extraction enabled", zap.String("model", client.Model()))
	}
	p.Engine = extract.NewEngine(deterministic, llm)

	if p.Pool != nil {
		projects := repository.NewProjectRepository(p.Pool)
		uploads := repository.NewUploadRepository(p.Pool)
		history := repository.NewHistoryRepository(p.Pool)
		p.JobRepo = repository.NewImportJobRepository(p.Pool)

		p.Projects = service.NewProjectService(projects, history, p.Knowledge, logger.Named("projects"))
		p.Importer = service.NewImportService(
			repository.NewTxRunner(p.Pool),
			uploads,
			history,
			p.Engine,
			opts.Store,
			p.Knowledge,
			logger.Named("import"),
		)
		p.ImportJobs = service.NewImportJobService(p.Importer, p.JobRepo)
	}

	return p, nil
}

// Close releases the database pool
func (p *Pipeline) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
