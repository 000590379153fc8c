package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/domain/job"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	prommetrics "github.com/patentlens/patentlens/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// Deps carries the pipeline's injected collaborators.  All clients are
// long-lived and shared across jobs; the pipeline never dials anything
// itself.
type Deps struct {
	Repo     job.Repository
	Docs     DocumentStore
	Texts    TextExtractor
	LLM      LanguageModel
	Embedder TextEmbedder
	Passages PassageStore
	Locker   JobLocker
	Logger   logging.Logger
	Metrics  *prommetrics.PipelineMetrics // optional
}

func (d Deps) validate() error {
	switch {
	case d.Repo == nil:
		return fmt.Errorf("analysis: Repo is required")
	case d.Docs == nil:
		return fmt.Errorf("analysis: Docs is required")
	case d.Texts == nil:
		return fmt.Errorf("analysis: Texts is required")
	case d.LLM == nil:
		return fmt.Errorf("analysis: LLM is required")
	case d.Embedder == nil:
		return fmt.Errorf("analysis: Embedder is required")
	case d.Passages == nil:
		return fmt.Errorf("analysis: Passages is required")
	case d.Locker == nil:
		return fmt.Errorf("analysis: Locker is required")
	}
	return nil
}

// Pipeline runs the full disclosure analysis for one paid job: extract
// features from the specification, distill them, index the references,
// answer the disclosure question per feature, and persist the report
// atomically.
type Pipeline struct {
	deps Deps
	cfg  config.PipelineConfig

	extractor *Extractor
	distiller *Distiller
	indexer   *Indexer
	analyzer  *Analyzer
	logger    logging.Logger
}

func NewPipeline(deps Deps, cfg config.PipelineConfig) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("pipeline")
	return &Pipeline{
		deps:      deps,
		cfg:       cfg,
		extractor: NewExtractor(deps.LLM, cfg.MaxConcurrency, logger),
		distiller: NewDistiller(deps.LLM, cfg.MaxConcurrency, logger),
		indexer: NewIndexer(deps.Docs, deps.Texts, deps.Embedder, deps.Passages,
			cfg.PassageSize, cfg.PassageOverlap, cfg.MaxConcurrency, logger),
		analyzer: NewAnalyzer(deps.Embedder, deps.Passages, deps.LLM,
			cfg.TopK, cfg.MaxConcurrency, logger),
		logger: logger,
	}, nil
}

// Run executes the pipeline for jobID.
//
// Idempotency: a completed job is a no-op; a concurrent duplicate trigger
// loses the per-job lock and is a no-op; a failed job is terminal and
// reported as such.  On any unrecoverable error the job is marked failed
// with the reason and its namespace is torn down, the same as on success.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	release, ok, err := p.deps.Locker.Acquire(ctx, jobID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheError, "acquire job lock")
	}
	if !ok {
		p.logger.Info("job already locked by another worker, dropping trigger",
			logging.String("job_id", jobID))
		p.finish("noop", 0)
		return nil
	}
	defer release()

	j, err := p.deps.Repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Completed {
		p.logger.Info("job already completed, dropping trigger", logging.String("job_id", jobID))
		p.finish("noop", 0)
		return nil
	}
	if j.Failed {
		p.finish("noop", 0)
		return apperrors.New(apperrors.ErrCodeJobFailed, "job has already failed").
			WithDetail(j.FailureReason)
	}
	if !j.Paid {
		p.finish("noop", 0)
		return apperrors.New(apperrors.ErrCodeJobNotPaid, "job is not paid")
	}

	if p.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Deadline)
		defer cancel()
	}

	start := time.Now()
	if err := p.execute(ctx, j); err != nil {
		p.fail(ctx, j, err)
		p.finish("failed", time.Since(start))
		return err
	}
	p.finish("completed", time.Since(start))
	return nil
}

func (p *Pipeline) execute(ctx context.Context, j *job.Job) error {
	specData, err := p.deps.Docs.Fetch(ctx, j.SpecKey)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "fetch specification")
	}
	specText, err := p.deps.Texts.Extract(ctx, j.SpecKey, specData)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentExtract, "extract specification text")
	}

	chunks := SplitChunks(specText, p.cfg.ChunkBudget)
	if len(chunks) == 0 {
		// Nothing to analyze; the job completes with an empty report rather
		// than hanging in paid forever.
		p.logger.Warn("specification has no extractable text",
			logging.String("job_id", j.ID))
		return p.persist(ctx, j.ID, nil)
	}
	if m := p.deps.Metrics; m != nil {
		m.ChunksTotal.Add(float64(len(chunks)))
		m.MergeRounds.Observe(float64(Rounds(len(chunks))))
	}
	p.logger.Info("specification chunked",
		logging.String("job_id", j.ID),
		logging.Int("chunks", len(chunks)),
		logging.Int("rounds", Rounds(len(chunks))))

	extracts := p.extractor.ExtractFeatures(ctx, chunks)
	distilled := p.distiller.Distill(ctx, extracts)
	features := ParseFeatureLines(distilled)
	if m := p.deps.Metrics; m != nil {
		m.FeaturesTotal.Observe(float64(len(features)))
	}
	if len(features) == 0 {
		return apperrors.New(apperrors.ErrCodeLLMBadResponse,
			"no inventive features could be extracted from the specification")
	}
	p.logger.Info("features distilled",
		logging.String("job_id", j.ID), logging.Int("features", len(features)))

	if err := p.indexer.IndexReferences(ctx, j.ID, j.References); err != nil {
		return err
	}

	analyses := p.analyzer.AnalyzeFeatures(ctx, j.ID, features)
	kept := make([]job.FeatureAnalysis, 0, len(analyses))
	for _, a := range analyses {
		if a.Feature == "" || a.Analysis == "" {
			continue
		}
		a.ID = uuid.NewString()
		a.JobID = j.ID
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		return apperrors.New(apperrors.ErrCodeLLMUnavailable,
			"disclosure analysis produced no results")
	}

	return p.persist(ctx, j.ID, kept)
}

// persist stores the analyses and flips completed in one transaction, then
// tears down the job's namespace.  Teardown failure is logged, not fatal:
// the report is already durable and a leaked partition costs storage, not
// correctness.
func (p *Pipeline) persist(ctx context.Context, jobID string, analyses []job.FeatureAnalysis) error {
	if err := p.deps.Repo.CompleteWithAnalyses(ctx, jobID, analyses); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeAnalysisPersist, "persist analyses")
	}
	p.teardown(jobID)
	p.logger.Info("job completed",
		logging.String("job_id", jobID), logging.Int("analyses", len(analyses)))
	return nil
}

// fail records the terminal failure and tears the namespace down.  Both
// steps are best-effort: the original error is what the caller reports.
func (p *Pipeline) fail(ctx context.Context, j *job.Job, cause error) {
	p.logger.Error("pipeline failed",
		logging.String("job_id", j.ID), logging.Err(cause))
	if err := p.deps.Repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
		p.logger.Error("recording job failure failed",
			logging.String("job_id", j.ID), logging.Err(err))
	}
	p.teardown(j.ID)
}

// teardown drops the job's namespace on a fresh context so it still runs
// when the pipeline deadline has already expired.
func (p *Pipeline) teardown(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.deps.Passages.DropNamespace(ctx, jobID); err != nil {
		p.logger.Error("namespace teardown failed",
			logging.String("job_id", jobID), logging.Err(err))
	}
}

func (p *Pipeline) finish(outcome string, d time.Duration) {
	m := p.deps.Metrics
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(outcome).Inc()
	if outcome != "noop" {
		m.JobDuration.Observe(d.Seconds())
	}
}
