package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
)

// Extractor runs one feature-extraction completion per specification chunk.
// Chunks are processed concurrently under a shared bound; a failed or empty
// completion leaves an empty slot so one bad chunk never costs the others.
type Extractor struct {
	llm    LanguageModel
	limit  int
	logger logging.Logger
}

func NewExtractor(llm LanguageModel, limit int, logger logging.Logger) *Extractor {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{llm: llm, limit: limit, logger: logger}
}

// ExtractFeatures returns one raw feature list per chunk, in chunk order.
// The result always has len(chunks) entries; entries for failed completions
// are empty strings.
func (e *Extractor) ExtractFeatures(ctx context.Context, chunks []string) []string {
	results := make([]string, len(chunks))
	if len(chunks) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			out, err := e.llm.Complete(gctx, extractionMessages(chunk))
			if err != nil {
				e.logger.Warn("chunk extraction failed, leaving empty slot",
					logging.Int("chunk", i), logging.Err(err))
				return nil
			}
			results[i] = out
			return nil
		})
	}
	// Workers never return errors; Wait only orders the writes before the reads.
	_ = g.Wait()
	return results
}
