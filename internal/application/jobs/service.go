// Package jobs implements the job lifecycle around the analysis pipeline:
// submission, payment confirmation, status, listing, cancellation and
// administrative deletion.
package jobs

import (
	"context"
	"fmt"

	"github.com/patentlens/patentlens/internal/domain/job"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// TriggerPublisher emits the event that starts a paid job's pipeline run.
type TriggerPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, jobID string) error
}

// FileStore removes uploaded documents when a job is canceled or deleted.
type FileStore interface {
	Remove(ctx context.Context, storageKeys []string) error
}

// SubmitRequest carries a new job: the specification's storage key and the
// ordered reference documents, all already uploaded by the caller.
type SubmitRequest struct {
	UserID     string
	Title      string
	SpecKey    string
	References []job.ReferenceDocument
}

// Service is the job lifecycle application service.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*job.Job, error)

	// ConfirmPayment flips the job to paid and publishes the pipeline
	// trigger.  A second confirmation reports the invalid transition.
	ConfirmPayment(ctx context.Context, jobID string) error

	// Get returns the job for its owner; foreign jobs read as not-found.
	Get(ctx context.Context, jobID, userID string) (*job.Job, error)

	// ListPaid returns the owner's paid jobs, newest first.
	ListPaid(ctx context.Context, userID string) ([]*job.Job, error)

	// Cancel removes an unpaid job and its uploaded files.
	Cancel(ctx context.Context, jobID, userID string) error

	// Delete removes a job regardless of state, files included.
	// Administrative surface only.
	Delete(ctx context.Context, jobID string) error
}

// Deps carries the service's injected collaborators.
type Deps struct {
	Repo    job.Repository
	Files   FileStore
	Trigger TriggerPublisher
	Logger  logging.Logger
}

type serviceImpl struct {
	repo    job.Repository
	files   FileStore
	trigger TriggerPublisher
	logger  logging.Logger
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("jobs: Repo is required")
	case deps.Files == nil:
		return nil, fmt.Errorf("jobs: Files is required")
	case deps.Trigger == nil:
		return nil, fmt.Errorf("jobs: Trigger is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		repo:    deps.Repo,
		files:   deps.Files,
		trigger: deps.Trigger,
		logger:  logger.Named("jobs"),
	}, nil
}

func (s *serviceImpl) Submit(ctx context.Context, req SubmitRequest) (*job.Job, error) {
	j, err := job.New(req.UserID, req.Title, req.SpecKey, req.References)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	s.logger.Info("job submitted",
		logging.String("job_id", j.ID),
		logging.String("user_id", j.UserID),
		logging.Int("references", len(j.References)))
	return j, nil
}

func (s *serviceImpl) ConfirmPayment(ctx context.Context, jobID string) error {
	if err := s.repo.MarkPaid(ctx, jobID); err != nil {
		return err
	}
	// The paid flag is durable at this point.  If publishing fails the job
	// stays paid and the trigger can be re-issued manually; confirming again
	// would report the already-paid transition instead.
	if err := s.trigger.PublishPaymentConfirmed(ctx, jobID); err != nil {
		s.logger.Error("payment confirmed but trigger publish failed",
			logging.String("job_id", jobID), logging.Err(err))
		return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "publish pipeline trigger")
	}
	s.logger.Info("payment confirmed", logging.String("job_id", jobID))
	return nil
}

func (s *serviceImpl) Get(ctx context.Context, jobID, userID string) (*job.Job, error) {
	return s.repo.GetByIDForUser(ctx, jobID, userID)
}

func (s *serviceImpl) ListPaid(ctx context.Context, userID string) ([]*job.Job, error) {
	return s.repo.ListPaidByUser(ctx, userID)
}

func (s *serviceImpl) Cancel(ctx context.Context, jobID, userID string) error {
	j, err := s.repo.GetByIDForUser(ctx, jobID, userID)
	if err != nil {
		return err
	}
	if j.Paid {
		return apperrors.New(apperrors.ErrCodeConflict, "a paid job cannot be canceled")
	}
	return s.remove(ctx, j)
}

func (s *serviceImpl) Delete(ctx context.Context, jobID string) error {
	j, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	return s.remove(ctx, j)
}

// remove deletes the uploaded files first, then the rows.  File removal
// failure aborts the deletion so no storage key is orphaned without a row
// pointing at it.
func (s *serviceImpl) remove(ctx context.Context, j *job.Job) error {
	if err := s.files.Remove(ctx, j.StorageKeys()); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "remove job files")
	}
	if err := s.repo.Delete(ctx, j.ID); err != nil {
		return err
	}
	s.logger.Info("job removed", logging.String("job_id", j.ID))
	return nil
}
