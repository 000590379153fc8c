// The apiserver binary serves the job submission, status and report API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/patentlens/patentlens/internal/application/jobs"
	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/database/postgres"
	"github.com/patentlens/patentlens/internal/infrastructure/database/postgres/repositories"
	"github.com/patentlens/patentlens/internal/infrastructure/messaging/kafka"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	miniostore "github.com/patentlens/patentlens/internal/infrastructure/storage/minio"
	httpiface "github.com/patentlens/patentlens/internal/interfaces/http"
	"github.com/patentlens/patentlens/internal/interfaces/http/handlers"
)

const version = "dev"

func main() {
	configPath := flag.String("config", "", "config file path (default: environment only)")
	flag.Parse()

	// Local development convenience; absent .env is not an error.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")

	if err := run(cfg, logger); err != nil {
		logger.Fatal("apiserver exited", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger) error {
	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Database.MigrationPath != "" {
		if err := pg.RunMigrations(cfg.Database.MigrationPath); err != nil {
			return err
		}
	}

	docs, err := miniostore.NewDocumentStore(cfg.MinIO, logger)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka, "patentlens-apiserver", logger)
	defer producer.Close()

	svc, err := jobs.NewService(jobs.Deps{
		Repo:    repositories.NewJobRepository(pg.DB()),
		Files:   docs,
		Trigger: producer,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	router := httpiface.NewRouter(httpiface.RouterConfig{
		Jobs:   handlers.NewJobHandler(svc, docs, logger),
		Health: handlers.NewHealthHandler(version, handlers.Probe{Name: "postgres", Check: pg.HealthCheck}),
		Mode:   cfg.Server.Mode,
		Logger: logger,
	})
	server := httpiface.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(ctx)
}
