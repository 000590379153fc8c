// The worker binary consumes payment-confirmed events and runs the analysis
// pipeline for each paid job, reporting terminal outcomes back to Kafka.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/patentlens/patentlens/internal/application/analysis"
	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/domain/job"
	"github.com/patentlens/patentlens/internal/infrastructure/database/postgres"
	"github.com/patentlens/patentlens/internal/infrastructure/database/postgres/repositories"
	redisdb "github.com/patentlens/patentlens/internal/infrastructure/database/redis"
	"github.com/patentlens/patentlens/internal/infrastructure/messaging/kafka"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/prometheus"
	"github.com/patentlens/patentlens/internal/infrastructure/search/milvus"
	miniostore "github.com/patentlens/patentlens/internal/infrastructure/storage/minio"
	"github.com/patentlens/patentlens/internal/intelligence/embedding"
	"github.com/patentlens/patentlens/internal/intelligence/llm"
	"github.com/patentlens/patentlens/internal/intelligence/textextract"
)

const defaultHealthPort = 8081

func main() {
	configPath := flag.String("config", "", "config file path (default: environment only)")
	healthPort := flag.Int("health-port", defaultHealthPort, "health/metrics listen port")
	flag.Parse()

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
	logger = logger.Named("worker")

	if err := run(cfg, logger, *healthPort); err != nil {
		logger.Fatal("worker exited", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger, healthPort int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	repo := repositories.NewJobRepository(pg.DB())

	redisCli, err := redisdb.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisCli.Close()

	milvusCli, err := milvus.NewClient(cfg.Milvus, logger)
	if err != nil {
		return err
	}
	defer milvusCli.Close()

	passages, err := milvus.NewPassageStore(ctx, milvusCli, logger)
	if err != nil {
		return err
	}

	docs, err := miniostore.NewDocumentStore(cfg.MinIO, logger)
	if err != nil {
		return err
	}

	metrics := prometheus.NewPipelineMetrics()

	lockTTL := time.Duration(0)
	if cfg.Pipeline.Deadline > 0 {
		// The lock must outlive the longest legitimate run.
		lockTTL = cfg.Pipeline.Deadline + 5*time.Minute
	}

	pipeline, err := analysis.NewPipeline(analysis.Deps{
		Repo:     repo,
		Docs:     docs,
		Texts:    textextract.NewExtractor(logger),
		LLM:      llm.NewClient(cfg.LLM, logger),
		Embedder: embedding.NewEmbedder(cfg.LLM, logger),
		Passages: passages,
		Locker:   redisdb.NewJobLock(redisCli, lockTTL, logger),
		Logger:   logger,
		Metrics:  metrics,
	}, cfg.Pipeline)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka, "patentlens-worker", logger)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka, kafka.TopicPaymentConfirmed, logger)
	defer consumer.Close()

	w := &worker{
		pipeline: pipeline,
		repo:     repo,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}

	healthSrv := startHealthServer(healthPort, metrics, logger,
		pg.HealthCheck, redisCli.Ping, milvusCli.HealthCheck)

	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(ctx, w.handle) }()
	logger.Info("worker started", logging.String("topic", kafka.TopicPaymentConfirmed))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case runErr = <-errCh:
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
		cancel()
		runErr = <-errCh
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown failed", logging.Err(err))
	}
	return runErr
}

// worker glues the consumer to the pipeline and reports terminal outcomes.
type worker struct {
	pipeline *analysis.Pipeline
	repo     job.Repository
	producer *kafka.Producer
	metrics  *prometheus.PipelineMetrics
	logger   logging.Logger
}

// handle runs one payment-confirmed event.  A returned error makes the
// consumer retry and eventually dead-letter the event; a handled pipeline
// failure is recorded on the job and reported, so it returns nil.
func (w *worker) handle(ctx context.Context, env *kafka.EventEnvelope) error {
	var payload kafka.PaymentConfirmedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}
	w.metrics.JobsStarted.WithLabelValues("kafka").Inc()
	w.logger.Info("pipeline trigger received", logging.String("job_id", payload.JobID))

	runErr := w.pipeline.Run(ctx, payload.JobID)
	if runErr == nil {
		w.reportOutcome(ctx, payload.JobID)
		return nil
	}

	// The pipeline marks unrecoverable failures on the job itself.  If the
	// flag is set the event is done; anything else is transient (lock
	// backend, database) and worth a redelivery.
	j, err := w.repo.GetByID(ctx, payload.JobID)
	if err == nil && j.Failed {
		if perr := w.producer.PublishAnalysisFailed(ctx, j.ID, j.FailureReason); perr != nil {
			w.logger.Error("failure event publish failed",
				logging.String("job_id", j.ID), logging.Err(perr))
		}
		return nil
	}
	return runErr
}

// reportOutcome publishes the completion event after a nil pipeline result.
// No-op runs (duplicate triggers on a completed job) re-publish, which is
// harmless: outcome events are keyed and idempotent by job id.
func (w *worker) reportOutcome(ctx context.Context, jobID string) {
	j, err := w.repo.GetByID(ctx, jobID)
	if err != nil || !j.Completed {
		return
	}
	if err := w.producer.PublishAnalysisCompleted(ctx, j.ID, len(j.Analyses)); err != nil {
		w.logger.Error("completion event publish failed",
			logging.String("job_id", j.ID), logging.Err(err))
	}
}

func startHealthServer(port int, metrics *prometheus.PipelineMetrics, logger logging.Logger,
	probes ...func(ctx context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		for _, probe := range probes {
			if err := probe(ctx); err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_, _ = rw.Write([]byte(err.Error()))
				return
			}
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ready"))
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}
