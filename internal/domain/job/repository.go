package job

import "context"

// Repository is the durable-store port for jobs.  Implementations live in
// internal/infrastructure/database/postgres/repositories.
//
// Ownership scoping: every read takes the requesting user's id and must
// behave as if jobs owned by other users do not exist (not-found, never
// forbidden), so the API cannot leak the existence of foreign jobs.
type Repository interface {
	// Create persists a new job together with its reference documents.
	Create(ctx context.Context, j *Job) error

	// GetByID loads a job with its references and, when present, analyses.
	// Used by the pipeline, which is not scoped to a requesting user.
	GetByID(ctx context.Context, jobID string) (*Job, error)

	// GetByIDForUser loads a job only if it is owned by userID; a mismatch
	// yields ErrCodeJobNotFound.
	GetByIDForUser(ctx context.Context, jobID, userID string) (*Job, error)

	// ListPaidByUser returns the user's paid jobs, newest first, without the
	// per-feature analyses.
	ListPaidByUser(ctx context.Context, userID string) ([]*Job, error)

	// MarkPaid flips paid=false → true exactly once; a second call reports
	// ErrCodeJobStateInvalid.
	MarkPaid(ctx context.Context, jobID string) error

	// CompleteWithAnalyses bulk-inserts the feature analyses and flips
	// completed=true in a single transaction.  Nothing observes completed
	// before every row is durably stored; on error the job stays incomplete
	// with zero rows.
	CompleteWithAnalyses(ctx context.Context, jobID string, analyses []FeatureAnalysis) error

	// MarkFailed records a terminal pipeline failure with its reason.
	MarkFailed(ctx context.Context, jobID, reason string) error

	// Delete removes the job and all dependent rows.  Administrative only.
	Delete(ctx context.Context, jobID string) error
}
