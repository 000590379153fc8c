package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/patentlens/patentlens/internal/domain/job"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

type mockRepo struct {
	CreateFunc               func(ctx context.Context, j *job.Job) error
	GetByIDFunc              func(ctx context.Context, jobID string) (*job.Job, error)
	GetByIDForUserFunc       func(ctx context.Context, jobID, userID string) (*job.Job, error)
	ListPaidByUserFunc       func(ctx context.Context, userID string) ([]*job.Job, error)
	MarkPaidFunc             func(ctx context.Context, jobID string) error
	CompleteWithAnalysesFunc func(ctx context.Context, jobID string, analyses []job.FeatureAnalysis) error
	MarkFailedFunc           func(ctx context.Context, jobID, reason string) error
	DeleteFunc               func(ctx context.Context, jobID string) error
}

func (m *mockRepo) Create(ctx context.Context, j *job.Job) error { return m.CreateFunc(ctx, j) }
func (m *mockRepo) GetByID(ctx context.Context, id string) (*job.Job, error) {
	return m.GetByIDFunc(ctx, id)
}
func (m *mockRepo) GetByIDForUser(ctx context.Context, id, uid string) (*job.Job, error) {
	return m.GetByIDForUserFunc(ctx, id, uid)
}
func (m *mockRepo) ListPaidByUser(ctx context.Context, uid string) ([]*job.Job, error) {
	return m.ListPaidByUserFunc(ctx, uid)
}
func (m *mockRepo) MarkPaid(ctx context.Context, id string) error { return m.MarkPaidFunc(ctx, id) }
func (m *mockRepo) CompleteWithAnalyses(ctx context.Context, id string, a []job.FeatureAnalysis) error {
	return m.CompleteWithAnalysesFunc(ctx, id, a)
}
func (m *mockRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return m.MarkFailedFunc(ctx, id, reason)
}
func (m *mockRepo) Delete(ctx context.Context, id string) error { return m.DeleteFunc(ctx, id) }

type mockFiles struct {
	RemoveFunc func(ctx context.Context, keys []string) error
}

func (m *mockFiles) Remove(ctx context.Context, keys []string) error {
	return m.RemoveFunc(ctx, keys)
}

type mockTrigger struct {
	PublishFunc func(ctx context.Context, jobID string) error
}

func (m *mockTrigger) PublishPaymentConfirmed(ctx context.Context, jobID string) error {
	return m.PublishFunc(ctx, jobID)
}

func newService(t *testing.T, repo *mockRepo, files *mockFiles, trigger *mockTrigger) Service {
	t.Helper()
	if files == nil {
		files = &mockFiles{RemoveFunc: func(_ context.Context, _ []string) error { return nil }}
	}
	if trigger == nil {
		trigger = &mockTrigger{PublishFunc: func(_ context.Context, _ string) error { return nil }}
	}
	s, err := NewService(Deps{Repo: repo, Files: files, Trigger: trigger})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestSubmitPersistsJob(t *testing.T) {
	var created *job.Job
	repo := &mockRepo{
		CreateFunc: func(_ context.Context, j *job.Job) error {
			created = j
			return nil
		},
	}
	s := newService(t, repo, nil, nil)

	j, err := s.Submit(context.Background(), SubmitRequest{
		UserID:  "user-1",
		Title:   "gear assembly",
		SpecKey: "specs/gear.pdf",
		References: []job.ReferenceDocument{
			{StorageKey: "refs/x.pdf", Title: "X"},
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if created == nil || created.ID != j.ID {
		t.Fatal("job not persisted")
	}
	if j.Status() != job.StatusCreated {
		t.Fatalf("status = %s", j.Status())
	}
}

func TestSubmitRejectsMissingSpec(t *testing.T) {
	s := newService(t, &mockRepo{}, nil, nil)
	_, err := s.Submit(context.Background(), SubmitRequest{UserID: "u", Title: "t"})
	if !apperrors.IsCode(err, apperrors.ErrCodeBadRequest) {
		t.Fatalf("err = %v", err)
	}
}

func TestConfirmPaymentPublishesTrigger(t *testing.T) {
	paid := false
	repo := &mockRepo{
		MarkPaidFunc: func(_ context.Context, id string) error {
			paid = true
			return nil
		},
	}
	var published string
	trigger := &mockTrigger{
		PublishFunc: func(_ context.Context, id string) error {
			if !paid {
				t.Fatal("trigger published before the paid flip was durable")
			}
			published = id
			return nil
		},
	}
	s := newService(t, repo, nil, trigger)

	if err := s.ConfirmPayment(context.Background(), "job-1"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if published != "job-1" {
		t.Fatalf("published = %q", published)
	}
}

func TestConfirmPaymentSecondCallFails(t *testing.T) {
	repo := &mockRepo{
		MarkPaidFunc: func(_ context.Context, _ string) error {
			return apperrors.New(apperrors.ErrCodeJobStateInvalid, "job is already paid")
		},
	}
	published := false
	trigger := &mockTrigger{
		PublishFunc: func(_ context.Context, _ string) error {
			published = true
			return nil
		},
	}
	s := newService(t, repo, nil, trigger)

	err := s.ConfirmPayment(context.Background(), "job-1")
	if !apperrors.IsCode(err, apperrors.ErrCodeJobStateInvalid) {
		t.Fatalf("err = %v", err)
	}
	if published {
		t.Fatal("trigger published for an already-paid job")
	}
}

func TestConfirmPaymentPublishFailureSurfaces(t *testing.T) {
	repo := &mockRepo{
		MarkPaidFunc: func(_ context.Context, _ string) error { return nil },
	}
	trigger := &mockTrigger{
		PublishFunc: func(_ context.Context, _ string) error {
			return errors.New("broker unreachable")
		},
	}
	s := newService(t, repo, nil, trigger)

	err := s.ConfirmPayment(context.Background(), "job-1")
	if !apperrors.IsCode(err, apperrors.ErrCodeExternalService) {
		t.Fatalf("err = %v", err)
	}
}

func TestGetScopesToOwner(t *testing.T) {
	repo := &mockRepo{
		GetByIDForUserFunc: func(_ context.Context, id, uid string) (*job.Job, error) {
			if uid != "owner" {
				return nil, apperrors.New(apperrors.ErrCodeJobNotFound, "job not found")
			}
			return &job.Job{ID: id, UserID: uid}, nil
		},
	}
	s := newService(t, repo, nil, nil)

	if _, err := s.Get(context.Background(), "job-1", "owner"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	_, err := s.Get(context.Background(), "job-1", "stranger")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("foreign read = %v, want not-found", err)
	}
}

func TestCancelRemovesFilesThenRows(t *testing.T) {
	j := &job.Job{ID: "job-1", UserID: "u", SpecKey: "specs/s.pdf",
		References: []job.ReferenceDocument{{StorageKey: "refs/r.pdf"}}}

	var removedKeys []string
	deleted := false
	repo := &mockRepo{
		GetByIDForUserFunc: func(_ context.Context, _, _ string) (*job.Job, error) { return j, nil },
		DeleteFunc: func(_ context.Context, id string) error {
			if removedKeys == nil {
				t.Fatal("rows deleted before files were removed")
			}
			deleted = true
			return nil
		},
	}
	files := &mockFiles{
		RemoveFunc: func(_ context.Context, keys []string) error {
			removedKeys = keys
			return nil
		},
	}
	s := newService(t, repo, files, nil)

	if err := s.Cancel(context.Background(), "job-1", "u"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !deleted {
		t.Fatal("rows not deleted")
	}
	if len(removedKeys) != 2 || removedKeys[0] != "specs/s.pdf" || removedKeys[1] != "refs/r.pdf" {
		t.Fatalf("removed keys = %v", removedKeys)
	}
}

func TestCancelRejectsPaidJob(t *testing.T) {
	repo := &mockRepo{
		GetByIDForUserFunc: func(_ context.Context, _, _ string) (*job.Job, error) {
			return &job.Job{ID: "job-1", Paid: true}, nil
		},
	}
	s := newService(t, repo, nil, nil)

	err := s.Cancel(context.Background(), "job-1", "u")
	if !apperrors.IsCode(err, apperrors.ErrCodeConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestCancelFileRemovalFailureAborts(t *testing.T) {
	repo := &mockRepo{
		GetByIDForUserFunc: func(_ context.Context, _, _ string) (*job.Job, error) {
			return &job.Job{ID: "job-1"}, nil
		},
		DeleteFunc: func(_ context.Context, _ string) error {
			t.Fatal("rows deleted despite file removal failure")
			return nil
		},
	}
	files := &mockFiles{
		RemoveFunc: func(_ context.Context, _ []string) error {
			return errors.New("storage unavailable")
		},
	}
	s := newService(t, repo, files, nil)

	err := s.Cancel(context.Background(), "job-1", "u")
	if !apperrors.IsCode(err, apperrors.ErrCodeDocumentStorage) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteIsUnscoped(t *testing.T) {
	repo := &mockRepo{
		GetByIDFunc: func(_ context.Context, id string) (*job.Job, error) {
			return &job.Job{ID: id, Paid: true, Completed: true}, nil
		},
		DeleteFunc: func(_ context.Context, _ string) error { return nil },
	}
	s := newService(t, repo, nil, nil)

	if err := s.Delete(context.Background(), "job-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
