package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/domain/job"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// pipelineFixture wires a Pipeline against in-memory fakes: a scripted model,
// a map-backed document store and a recording passage store.
type pipelineFixture struct {
	repo   *mockJobRepo
	docs   *mockDocumentStore
	llm    *mockLLM
	store  *mockPassageStore
	locker *mockLocker

	job       *job.Job
	files     map[string][]byte
	persisted []job.FeatureAnalysis
	completed bool
	failedWith string
	dropped   []string
	mu        sync.Mutex

	pipeline *Pipeline
}

func newPipelineFixture(t *testing.T, specText string) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{files: map[string][]byte{}}

	j, err := job.New("user-1", "test job", "specs/spec.txt", []job.ReferenceDocument{
		{StorageKey: "refs/a.txt", Title: "Doc A"},
		{StorageKey: "refs/b.txt", Title: "Doc B"},
	})
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	if err := j.MarkPaid(); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	f.job = j
	f.files[j.SpecKey] = []byte(specText)
	f.files["refs/a.txt"] = []byte("reference a body text")
	f.files["refs/b.txt"] = []byte("reference b body text")

	f.repo = &mockJobRepo{
		GetByIDFunc: func(_ context.Context, id string) (*job.Job, error) {
			if id != j.ID {
				return nil, apperrors.NotFound("job")
			}
			return j, nil
		},
		CompleteWithAnalysesFunc: func(_ context.Context, id string, analyses []job.FeatureAnalysis) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.persisted = analyses
			f.completed = true
			return nil
		},
		MarkFailedFunc: func(_ context.Context, id, reason string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.failedWith = reason
			return nil
		},
	}
	f.docs = &mockDocumentStore{
		FetchFunc: func(_ context.Context, key string) ([]byte, error) {
			data, ok := f.files[key]
			if !ok {
				return nil, apperrors.NotFound("document")
			}
			return data, nil
		},
	}
	f.llm = &mockLLM{CompleteFunc: scriptedModel}
	f.store = &mockPassageStore{
		EnsureNamespaceFunc: func(_ context.Context, _ string) error { return nil },
		InsertFunc: func(_ context.Context, _ string, _ []Passage, _ [][]float32) error {
			return nil
		},
		SearchFunc: func(_ context.Context, _ string, _ []float32, _ int) ([]ScoredPassage, error) {
			return []ScoredPassage{
				{Passage: Passage{Text: "reference a body text", Title: "Doc A"}},
				{Passage: Passage{Text: "reference b body text", Title: "Doc B"}},
				{Passage: Passage{Text: "reference a body text", Title: "Doc A"}},
			}, nil
		},
		DropNamespaceFunc: func(_ context.Context, ns string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.dropped = append(f.dropped, ns)
			return nil
		},
	}
	f.locker = &mockLocker{
		AcquireFunc: func(_ context.Context, _ string) (func(), bool, error) {
			return func() {}, true, nil
		},
	}

	embedder := &mockEmbedder{
		EmbedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{1}
			}
			return out, nil
		},
	}
	extractor := &mockExtractorPort{
		ExtractFunc: func(_ context.Context, _ string, data []byte) (string, error) {
			return string(data), nil
		},
	}

	cfg := config.PipelineConfig{
		ChunkBudget:    40,
		PassageSize:    10,
		PassageOverlap: 2,
		TopK:           3,
		MaxConcurrency: 4,
	}
	p, err := NewPipeline(Deps{
		Repo:     f.repo,
		Docs:     f.docs,
		Texts:    extractor,
		LLM:      f.llm,
		Embedder: embedder,
		Passages: f.store,
		Locker:   f.locker,
	}, cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	f.pipeline = p
	return f
}

// scriptedModel answers the three pipeline prompt shapes deterministically:
// extraction numbers the chunk's words, merge unions the two lists, and the
// disclosure verdict depends on the feature text.
func scriptedModel(_ context.Context, messages []Message) (string, error) {
	system := messages[0].Content
	body := messages[1].Content
	switch {
	case strings.Contains(system, "Extract the inventive technical features"):
		var lines []string
		for i, w := range strings.Fields(body) {
			lines = append(lines, fmt.Sprintf("%d. feature %s", i+1, w))
		}
		return strings.Join(lines, "\n"), nil
	case strings.Contains(system, "Merge them into a single numbered list"):
		body = strings.TrimPrefix(body, "List A:\n")
		parts := strings.SplitN(body, "\n\nList B:\n", 2)
		return unionMerge(parts[0], parts[1]), nil
	default:
		idx := strings.LastIndex(body, "\n\n")
		feature := body[idx+2:]
		if strings.Contains(feature, "undisclosed") {
			return "", errors.New("model rejected the request")
		}
		return "Disclosed: " + feature, nil
	}
}

func TestPipelineHappyPath(t *testing.T) {
	f := newPipelineFixture(t, "alpha beta gamma delta")
	if err := f.pipeline.Run(context.Background(), f.job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !f.completed {
		t.Fatal("job not completed")
	}
	wantFeatures := []string{"feature alpha", "feature beta", "feature gamma", "feature delta"}
	if len(f.persisted) != len(wantFeatures) {
		t.Fatalf("persisted %d analyses: %+v", len(f.persisted), f.persisted)
	}
	for i, fa := range f.persisted {
		if fa.Feature != wantFeatures[i] {
			t.Fatalf("analysis %d feature = %q, want %q", i, fa.Feature, wantFeatures[i])
		}
		if fa.Analysis != "Disclosed: "+wantFeatures[i] {
			t.Fatalf("analysis %d verdict = %q", i, fa.Analysis)
		}
		if fa.Source != "Doc A, Doc B" {
			t.Fatalf("analysis %d source = %q", i, fa.Source)
		}
		if fa.JobID != f.job.ID || fa.ID == "" {
			t.Fatalf("analysis %d identity not set: %+v", i, fa)
		}
	}
	if len(f.dropped) != 1 || f.dropped[0] != f.job.ID {
		t.Fatalf("namespace teardown = %v", f.dropped)
	}
	if f.failedWith != "" {
		t.Fatalf("job unexpectedly failed: %q", f.failedWith)
	}
}

func TestPipelineDropsFailedFeatureSlots(t *testing.T) {
	f := newPipelineFixture(t, "alpha undisclosed beta")
	if err := f.pipeline.Run(context.Background(), f.job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.persisted) != 2 {
		t.Fatalf("persisted %d analyses: %+v", len(f.persisted), f.persisted)
	}
	for _, fa := range f.persisted {
		if fa.Analysis == "" {
			t.Fatalf("empty analysis persisted: %+v", fa)
		}
		if strings.Contains(fa.Feature, "undisclosed") {
			t.Fatalf("failed feature persisted: %+v", fa)
		}
	}
}

func TestPipelineCompletedJobIsNoOp(t *testing.T) {
	f := newPipelineFixture(t, "alpha")
	f.job.Completed = true

	fetched := false
	f.docs.FetchFunc = func(_ context.Context, _ string) ([]byte, error) {
		fetched = true
		return nil, nil
	}
	if err := f.pipeline.Run(context.Background(), f.job.ID); err != nil {
		t.Fatalf("Run on completed job: %v", err)
	}
	if fetched {
		t.Fatal("completed job still ran the pipeline")
	}
	if f.completed || f.failedWith != "" {
		t.Fatal("completed job mutated")
	}
}

func TestPipelineDuplicateTriggerIsNoOp(t *testing.T) {
	f := newPipelineFixture(t, "alpha")
	f.locker.AcquireFunc = func(_ context.Context, _ string) (func(), bool, error) {
		return nil, false, nil
	}
	loaded := false
	f.repo.GetByIDFunc = func(_ context.Context, _ string) (*job.Job, error) {
		loaded = true
		return f.job, nil
	}
	if err := f.pipeline.Run(context.Background(), f.job.ID); err != nil {
		t.Fatalf("Run under contention: %v", err)
	}
	if loaded {
		t.Fatal("contended run still loaded the job")
	}
}

func TestPipelineFailedJobIsTerminal(t *testing.T) {
	f := newPipelineFixture(t, "alpha")
	f.job.Failed = true
	f.job.FailureReason = "earlier run died"

	err := f.pipeline.Run(context.Background(), f.job.ID)
	if !apperrors.IsCode(err, apperrors.ErrCodeJobFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestPipelineRejectsUnpaidJob(t *testing.T) {
	f := newPipelineFixture(t, "alpha")
	f.job.Paid = false

	err := f.pipeline.Run(context.Background(), f.job.ID)
	if !apperrors.IsCode(err, apperrors.ErrCodeJobNotPaid) {
		t.Fatalf("err = %v", err)
	}
}

func TestPipelineEmptySpecCompletesWithEmptyReport(t *testing.T) {
	f := newPipelineFixture(t, "")
	if err := f.pipeline.Run(context.Background(), f.job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !f.completed || len(f.persisted) != 0 {
		t.Fatalf("completed=%v persisted=%d", f.completed, len(f.persisted))
	}
}

func TestPipelinePersistErrorMarksJobFailed(t *testing.T) {
	f := newPipelineFixture(t, "alpha beta")
	f.repo.CompleteWithAnalysesFunc = func(_ context.Context, _ string, _ []job.FeatureAnalysis) error {
		return errors.New("constraint violation")
	}

	err := f.pipeline.Run(context.Background(), f.job.ID)
	if !apperrors.IsCode(err, apperrors.ErrCodeAnalysisPersist) {
		t.Fatalf("err = %v", err)
	}
	if f.failedWith == "" {
		t.Fatal("failure reason not recorded")
	}
	if len(f.dropped) == 0 {
		t.Fatal("namespace not torn down on failure")
	}
	if f.completed {
		t.Fatal("job marked completed despite persist error")
	}
}

func TestPipelineTotalModelOutageMarksJobFailed(t *testing.T) {
	f := newPipelineFixture(t, "alpha beta gamma")
	f.llm.CompleteFunc = func(_ context.Context, _ []Message) (string, error) {
		return "", errors.New("backend down")
	}

	err := f.pipeline.Run(context.Background(), f.job.ID)
	if err == nil {
		t.Fatal("expected failure when every model call fails")
	}
	if f.failedWith == "" {
		t.Fatal("failure reason not recorded")
	}
	if f.completed {
		t.Fatal("job completed despite total outage")
	}
}
