// Package admin implements the digestd commands: the HTTP daemon with its
// background workers, and schema migrations.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/api/handlers"
	"github.com/cloo-solutions/statusdigest/internal/api/middleware"
	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/config"
	"github.com/cloo-solutions/statusdigest/internal/database"
	"github.com/cloo-solutions/statusdigest/internal/jobs"
	"github.com/cloo-solutions/statusdigest/internal/server"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/cloo-solutions/statusdigest/internal/storage"
	"github.com/cloo-solutions/statusdigest/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout  = 30 * time.Second
	cleanupInterval  = time.Hour
	readHeaderWindow = 10 * time.Second
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and import worker",
		Long:  "Start the digestd HTTP API on the specified port together with the background import worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides DIGEST_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := cli.Bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flushTelemetry := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Debug:       cfg.Debug,
	}, logger)
	defer flushTelemetry()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	if !cfg.HasDatabase() {
		return fmt.Errorf("DIGEST_DATABASE_URL is required to serve")
	}

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		if _, err := database.Migrate(cfg.DatabaseURL, source, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, localDir, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	p, err := cli.NewPipeline(ctx, cfg, logger, cli.PipelineOptions{
		RequireDatabase: true,
		Store:           store,
	})
	if err != nil {
		return err
	}
	defer p.Close()
	logger.Info("connected to database")

	if _, err := p.Knowledge.Load(ctx); err != nil {
		logger.Warn("knowledge base not loaded at startup", zap.Error(err))
	}

	importWorker := jobs.NewWorker("import", jobs.NewImportWorker(p.JobRepo, p.Importer, logger), cfg.ImportPollInterval, logger)
	go importWorker.Start(ctx)

	var cleanerWorker *jobs.Worker
	if localDir != "" && cfg.UploadRetentionTime > 0 {
		cleanerWorker = jobs.NewWorker("tmp-cleanup", jobs.NewTmpCleaner(localDir, cfg.UploadRetentionTime, logger), cleanupInterval, logger)
		go cleanerWorker.Start(ctx)
	}

	var validator middleware.AuthValidator
	if cfg.APIKey != "" {
		validator = middleware.StaticKeyValidator{Key: cfg.APIKey}
	} else {
		logger.Warn("DIGEST_API_KEY is not set, the API is open")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:  validator,
		Logger:         logger,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		ReportHandler:  handlers.NewReportHandler(p.ImportJobs, p.Engine),
		JobHandler:     handlers.NewJobHandler(p.ImportJobs),
		ProjectHandler: handlers.NewProjectHandler(p.Projects),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderWindow,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port), zap.Bool("llm", p.Engine.HasLLM()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case listenErr = <-serveErr:
	}

	importWorker.Stop()
	if cleanerWorker != nil {
		cleanerWorker.Stop()
	}
	if listenErr != nil {
		return fmt.Errorf("server failed: %w", listenErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// openStore picks the document archive: the S3 bucket when configured,
// else a local staging directory. localDir is set only in the second case.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.DocumentStore, string, error) {
	if cfg.HasS3() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, "", fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info("document archive: s3", zap.String("bucket", cfg.S3Bucket))
		return s3Store, "", nil
	}

	local, err := storage.NewLocalStore(cfg.UploadTmpDir)
	if err != nil {
		return nil, "", err
	}
	logger.Info("document archive: local", zap.String("dir", local.Dir()))
	return local, local.Dir(), nil
}
