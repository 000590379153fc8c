package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/patentlens/patentlens/internal/domain/job"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// Indexer slices reference documents into overlapping passages and inserts
// them into the job's namespace of the passage store, tagged with the source
// document's title so retrieval hits carry provenance into the report.
type Indexer struct {
	docs      DocumentStore
	extractor TextExtractor
	embedder  TextEmbedder
	store     PassageStore

	passageSize    int
	passageOverlap int
	limit          int
	logger         logging.Logger
}

func NewIndexer(docs DocumentStore, extractor TextExtractor, embedder TextEmbedder, store PassageStore,
	passageSize, passageOverlap, limit int, logger logging.Logger) *Indexer {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Indexer{
		docs:           docs,
		extractor:      extractor,
		embedder:       embedder,
		store:          store,
		passageSize:    passageSize,
		passageOverlap: passageOverlap,
		limit:          limit,
		logger:         logger,
	}
}

// IndexReferences fetches, slices, embeds and inserts every reference
// document under the given namespace.  Documents are processed concurrently
// under the shared bound.  A document with no extractable text is skipped;
// any other per-document error aborts indexing, since a partially indexed
// reference set would silently weaken every disclosure answer.
func (ix *Indexer) IndexReferences(ctx context.Context, namespace string, refs []job.ReferenceDocument) error {
	if err := ix.store.EnsureNamespace(ctx, namespace); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.limit)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			return ix.indexOne(gctx, namespace, ref)
		})
	}
	return g.Wait()
}

func (ix *Indexer) indexOne(ctx context.Context, namespace string, ref job.ReferenceDocument) error {
	data, err := ix.docs.Fetch(ctx, ref.StorageKey)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "fetch reference document")
	}
	text, err := ix.extractor.Extract(ctx, ref.StorageKey, data)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentExtract, "extract reference text")
	}
	passages := slicePassages(text, ix.passageSize, ix.passageOverlap)
	if len(passages) == 0 {
		ix.logger.Warn("reference has no extractable text, skipping",
			logging.String("title", ref.Title), logging.String("key", ref.StorageKey))
		return nil
	}

	vectors, err := ix.embedder.Embed(ctx, passages)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeEmbedding, "embed reference passages")
	}

	tagged := make([]Passage, len(passages))
	for i, p := range passages {
		tagged[i] = Passage{Text: p, Title: ref.Title}
	}
	if err := ix.store.Insert(ctx, namespace, tagged, vectors); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexInsert, "insert reference passages")
	}
	ix.logger.Info("reference indexed",
		logging.String("title", ref.Title), logging.Int("passages", len(passages)))
	return nil
}

// slicePassages cuts text into windows of size characters advancing by
// size-overlap, so consecutive passages share overlap characters and no
// sentence straddling a boundary is lost to both sides.  The final window
// may be shorter.
func slicePassages(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	runes := []rune(text)
	var passages []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		passages = append(passages, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return passages
}
