package analysis

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/patentlens/patentlens/internal/domain/job"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
)

// Analyzer answers the disclosure question for each distilled feature by
// retrieving the top-K passages from the job's namespace and asking the
// model to judge disclosure against those passages only.
type Analyzer struct {
	embedder TextEmbedder
	store    PassageStore
	llm      LanguageModel
	topK     int
	limit    int
	logger   logging.Logger
}

func NewAnalyzer(embedder TextEmbedder, store PassageStore, llm LanguageModel, topK, limit int, logger logging.Logger) *Analyzer {
	if topK < 1 {
		topK = 1
	}
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Analyzer{embedder: embedder, store: store, llm: llm, topK: topK, limit: limit, logger: logger}
}

// AnalyzeFeatures runs the disclosure query for every feature concurrently
// under the shared bound.  The result has one entry per feature in input
// order; a failed feature keeps its slot with an empty Analysis so siblings
// are never aborted, and the persist step drops it.
func (a *Analyzer) AnalyzeFeatures(ctx context.Context, namespace string, features []string) []job.FeatureAnalysis {
	results := make([]job.FeatureAnalysis, len(features))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, feature := range features {
		i, feature := i, feature
		results[i] = job.FeatureAnalysis{Feature: feature, Position: i}
		g.Go(func() error {
			analysis, source, err := a.analyzeOne(gctx, namespace, feature)
			if err != nil {
				a.logger.Warn("feature analysis failed, leaving empty slot",
					logging.Int("feature", i), logging.Err(err))
				return nil
			}
			results[i].Analysis = analysis
			results[i].Source = source
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Analyzer) analyzeOne(ctx context.Context, namespace, feature string) (analysis, source string, err error) {
	vectors, err := a.embedder.Embed(ctx, []string{disclosureQuery(feature)})
	if err != nil {
		return "", "", err
	}
	hits, err := a.store.Search(ctx, namespace, vectors[0], a.topK)
	if err != nil {
		return "", "", err
	}
	answer, err := a.llm.Complete(ctx, disclosureMessages(feature, hits))
	if err != nil {
		return "", "", err
	}
	return answer, joinSourceTitles(hits), nil
}

// joinSourceTitles deduplicates the hit titles preserving retrieval order and
// joins them with ", ".
func joinSourceTitles(hits []ScoredPassage) string {
	seen := make(map[string]bool, len(hits))
	var titles []string
	for _, h := range hits {
		if h.Title == "" || seen[h.Title] {
			continue
		}
		seen[h.Title] = true
		titles = append(titles, h.Title)
	}
	return strings.Join(titles, ", ")
}
