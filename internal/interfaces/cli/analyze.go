package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patentlens/patentlens/internal/application/analysis"
	redisdb "github.com/patentlens/patentlens/internal/infrastructure/database/redis"
	"github.com/patentlens/patentlens/internal/infrastructure/search/milvus"
	miniostore "github.com/patentlens/patentlens/internal/infrastructure/storage/minio"
	"github.com/patentlens/patentlens/internal/intelligence/embedding"
	"github.com/patentlens/patentlens/internal/intelligence/llm"
	"github.com/patentlens/patentlens/internal/intelligence/textextract"
)

// NewAnalyzeCmd builds the `patentlens analyze <job-id>` command: one full
// pipeline run in the foreground, against the same backends the worker
// uses.  The per-job lock still applies, so a run racing the worker is a
// no-op on one side.
func NewAnalyzeCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <job-id>",
		Short: "Run the analysis pipeline for one paid job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			pipeline, err := buildPipeline(cmd, env)
			if err != nil {
				return err
			}
			if err := pipeline.Run(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: job %s analyzed\n", args[0])
			return nil
		},
	}
}

// buildPipeline wires the full pipeline dependency set from configuration.
func buildPipeline(cmd *cobra.Command, env *environment) (*analysis.Pipeline, error) {
	cfg, logger := env.cfg, env.logger

	repo, err := env.openRepository()
	if err != nil {
		return nil, err
	}

	redisCli, err := redisdb.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	env.onClose(func() { _ = redisCli.Close() })

	milvusCli, err := milvus.NewClient(cfg.Milvus, logger)
	if err != nil {
		return nil, err
	}
	env.onClose(func() { _ = milvusCli.Close() })

	passages, err := milvus.NewPassageStore(cmd.Context(), milvusCli, logger)
	if err != nil {
		return nil, err
	}

	docs, err := miniostore.NewDocumentStore(cfg.MinIO, logger)
	if err != nil {
		return nil, err
	}

	return analysis.NewPipeline(analysis.Deps{
		Repo:     repo,
		Docs:     docs,
		Texts:    textextract.NewExtractor(logger),
		LLM:      llm.NewClient(cfg.LLM, logger),
		Embedder: embedding.NewEmbedder(cfg.LLM, logger),
		Passages: passages,
		Locker:   redisdb.NewJobLock(redisCli, lockTTL(cfg.Pipeline), logger),
		Logger:   logger,
	}, cfg.Pipeline)
}
