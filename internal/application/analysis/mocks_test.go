package analysis

import (
	"context"

	"github.com/patentlens/patentlens/internal/domain/job"
)

// Function-field mocks for the pipeline ports.  Tests assign only the
// functions they need; unassigned calls panic, which is the failure we want.

type mockLLM struct {
	CompleteFunc func(ctx context.Context, messages []Message) (string, error)
}

func (m *mockLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	return m.CompleteFunc(ctx, messages)
}

type mockEmbedder struct {
	EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return m.EmbedFunc(ctx, texts)
}

type mockPassageStore struct {
	EnsureNamespaceFunc func(ctx context.Context, namespace string) error
	InsertFunc          func(ctx context.Context, namespace string, passages []Passage, vectors [][]float32) error
	SearchFunc          func(ctx context.Context, namespace string, vector []float32, topK int) ([]ScoredPassage, error)
	DropNamespaceFunc   func(ctx context.Context, namespace string) error
}

func (m *mockPassageStore) EnsureNamespace(ctx context.Context, namespace string) error {
	return m.EnsureNamespaceFunc(ctx, namespace)
}

func (m *mockPassageStore) Insert(ctx context.Context, namespace string, passages []Passage, vectors [][]float32) error {
	return m.InsertFunc(ctx, namespace, passages, vectors)
}

func (m *mockPassageStore) Search(ctx context.Context, namespace string, vector []float32, topK int) ([]ScoredPassage, error) {
	return m.SearchFunc(ctx, namespace, vector, topK)
}

func (m *mockPassageStore) DropNamespace(ctx context.Context, namespace string) error {
	return m.DropNamespaceFunc(ctx, namespace)
}

type mockExtractorPort struct {
	ExtractFunc func(ctx context.Context, storageKey string, data []byte) (string, error)
}

func (m *mockExtractorPort) Extract(ctx context.Context, storageKey string, data []byte) (string, error) {
	return m.ExtractFunc(ctx, storageKey, data)
}

type mockDocumentStore struct {
	FetchFunc  func(ctx context.Context, storageKey string) ([]byte, error)
	RemoveFunc func(ctx context.Context, storageKeys []string) error
}

func (m *mockDocumentStore) Fetch(ctx context.Context, storageKey string) ([]byte, error) {
	return m.FetchFunc(ctx, storageKey)
}

func (m *mockDocumentStore) Remove(ctx context.Context, storageKeys []string) error {
	return m.RemoveFunc(ctx, storageKeys)
}

type mockLocker struct {
	AcquireFunc func(ctx context.Context, jobID string) (func(), bool, error)
}

func (m *mockLocker) Acquire(ctx context.Context, jobID string) (func(), bool, error) {
	return m.AcquireFunc(ctx, jobID)
}

type mockJobRepo struct {
	CreateFunc               func(ctx context.Context, j *job.Job) error
	GetByIDFunc              func(ctx context.Context, jobID string) (*job.Job, error)
	GetByIDForUserFunc       func(ctx context.Context, jobID, userID string) (*job.Job, error)
	ListPaidByUserFunc       func(ctx context.Context, userID string) ([]*job.Job, error)
	MarkPaidFunc             func(ctx context.Context, jobID string) error
	CompleteWithAnalysesFunc func(ctx context.Context, jobID string, analyses []job.FeatureAnalysis) error
	MarkFailedFunc           func(ctx context.Context, jobID, reason string) error
	DeleteFunc               func(ctx context.Context, jobID string) error
}

func (m *mockJobRepo) Create(ctx context.Context, j *job.Job) error {
	return m.CreateFunc(ctx, j)
}

func (m *mockJobRepo) GetByID(ctx context.Context, jobID string) (*job.Job, error) {
	return m.GetByIDFunc(ctx, jobID)
}

func (m *mockJobRepo) GetByIDForUser(ctx context.Context, jobID, userID string) (*job.Job, error) {
	return m.GetByIDForUserFunc(ctx, jobID, userID)
}

func (m *mockJobRepo) ListPaidByUser(ctx context.Context, userID string) ([]*job.Job, error) {
	return m.ListPaidByUserFunc(ctx, userID)
}

func (m *mockJobRepo) MarkPaid(ctx context.Context, jobID string) error {
	return m.MarkPaidFunc(ctx, jobID)
}

func (m *mockJobRepo) CompleteWithAnalyses(ctx context.Context, jobID string, analyses []job.FeatureAnalysis) error {
	return m.CompleteWithAnalysesFunc(ctx, jobID, analyses)
}

func (m *mockJobRepo) MarkFailed(ctx context.Context, jobID, reason string) error {
	return m.MarkFailedFunc(ctx, jobID, reason)
}

func (m *mockJobRepo) Delete(ctx context.Context, jobID string) error {
	return m.DeleteFunc(ctx, jobID)
}
