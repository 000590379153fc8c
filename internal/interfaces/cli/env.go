package cli

import (
	"time"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/database/postgres"
	"github.com/patentlens/patentlens/internal/infrastructure/database/postgres/repositories"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
)

// environment is the lazily-built dependency set behind a CLI command.
// Each command opens only what it needs; Close tears everything down in
// reverse order.
type environment struct {
	cfg    *config.Config
	logger logging.Logger

	closers []func()
}

// openEnvironment loads configuration and builds the logger.  With no
// --config flag the configuration comes entirely from PATENTLENS_*
// environment variables.
func openEnvironment(opts *RootOptions) (*environment, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	// CLI log output goes to stderr so stdout stays parseable.
	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, logger: logger.Named("cli")}, nil
}

func (e *environment) onClose(fn func()) {
	e.closers = append(e.closers, fn)
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// openRepository connects to PostgreSQL and returns the job repository.
func (e *environment) openRepository() (*repositories.JobRepository, error) {
	pg, err := postgres.NewConnection(e.cfg.Database, e.logger)
	if err != nil {
		return nil, err
	}
	e.onClose(func() { _ = pg.Close() })
	return repositories.NewJobRepository(pg.DB()), nil
}

// lockTTL derives the per-job lock lifetime from the pipeline deadline; the
// lock must outlive the longest legitimate run.
func lockTTL(cfg config.PipelineConfig) time.Duration {
	if cfg.Deadline > 0 {
		return cfg.Deadline + 5*time.Minute
	}
	return 0
}
