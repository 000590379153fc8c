package milvus

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/patentlens/patentlens/internal/application/analysis"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

const (
	fieldID     = "id"
	fieldText   = "text"
	fieldTitle  = "title"
	fieldVector = "vector"

	maxTextLength  = 4096
	maxTitleLength = 512
)

// PassageStore implements the pipeline's vector-index port.  All jobs share
// one collection; each job gets its own partition, created before indexing
// and dropped at teardown, so searches never cross job boundaries.
type PassageStore struct {
	client *Client
	logger logging.Logger
}

var _ analysis.PassageStore = (*PassageStore)(nil)

// NewPassageStore ensures the collection exists, is indexed and loaded.
func NewPassageStore(ctx context.Context, c *Client, log logging.Logger) (*PassageStore, error) {
	s := &PassageStore{client: c, logger: log}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PassageStore) ensureCollection(ctx context.Context) error {
	mc := s.client.Milvus()
	name := s.collection()

	has, err := mc.HasCollection(ctx, name)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "check collection")
	}
	if !has {
		schema := entity.NewSchema().WithName(name).
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxTextLength)).
			WithField(entity.NewField().WithName(fieldTitle).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxTitleLength)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(s.client.cfg.EmbeddingDim)))
		if err := mc.CreateCollection(ctx, schema, 1); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "create collection")
		}
		idx, err := entity.NewIndexIvfFlat(entity.IP, 128)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "build index definition")
		}
		if err := mc.CreateIndex(ctx, name, fieldVector, idx, false); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "create vector index")
		}
		s.logger.Info("passage collection created", logging.String("collection", name))
	}
	if err := mc.LoadCollection(ctx, name, false); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "load collection")
	}
	return nil
}

func (s *PassageStore) EnsureNamespace(ctx context.Context, namespace string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	mc := s.client.Milvus()
	partition := partitionName(namespace)
	has, err := mc.HasPartition(ctx, s.collection(), partition)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "check partition")
	}
	if has {
		return nil
	}
	if err := mc.CreatePartition(ctx, s.collection(), partition); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "create partition")
	}
	return nil
}

func (s *PassageStore) Insert(ctx context.Context, namespace string, passages []analysis.Passage, vectors [][]float32) error {
	if len(passages) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return apperrors.New(apperrors.ErrCodeIndexInsert, "passage and vector counts differ")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ids := make([]string, len(passages))
	texts := make([]string, len(passages))
	titles := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = uuid.NewString()
		texts[i] = truncate(p.Text, maxTextLength)
		titles[i] = truncate(p.Title, maxTitleLength)
	}

	_, err := s.client.Milvus().Insert(ctx, s.collection(), partitionName(namespace),
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldTitle, titles),
		entity.NewColumnFloatVector(fieldVector, s.client.cfg.EmbeddingDim, vectors),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexInsert, "insert passages")
	}
	return nil
}

func (s *PassageStore) Search(ctx context.Context, namespace string, vector []float32, topK int) ([]analysis.ScoredPassage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexSearch, "build search params")
	}
	results, err := s.client.Milvus().Search(ctx, s.collection(),
		[]string{partitionName(namespace)},
		"",
		[]string{fieldText, fieldTitle},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector,
		entity.IP,
		topK,
		sp,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeIndexSearch, "search passages")
	}

	var hits []analysis.ScoredPassage
	for _, result := range results {
		texts := varCharColumn(result.Fields, fieldText)
		titles := varCharColumn(result.Fields, fieldTitle)
		for i := 0; i < result.ResultCount; i++ {
			hit := analysis.ScoredPassage{}
			if texts != nil {
				hit.Text, _ = texts.ValueByIdx(i)
			}
			if titles != nil {
				hit.Title, _ = titles.ValueByIdx(i)
			}
			if i < len(result.Scores) {
				hit.Score = result.Scores[i]
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func (s *PassageStore) DropNamespace(ctx context.Context, namespace string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	mc := s.client.Milvus()
	partition := partitionName(namespace)
	has, err := mc.HasPartition(ctx, s.collection(), partition)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "check partition")
	}
	if !has {
		return nil
	}
	if err := mc.DropPartition(ctx, s.collection(), partition); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeIndexNamespace, "drop partition")
	}
	return nil
}

func (s *PassageStore) collection() string {
	return s.client.cfg.Collection
}

func (s *PassageStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.client.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// partitionName derives a valid Milvus partition name from the job id.
// Partition names only allow letters, digits and underscores.
func partitionName(namespace string) string {
	return "job_" + strings.ReplaceAll(namespace, "-", "_")
}

func varCharColumn(cols []entity.Column, name string) *entity.ColumnVarChar {
	for _, col := range cols {
		if col.Name() == name {
			if vc, ok := col.(*entity.ColumnVarChar); ok {
				return vc
			}
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
