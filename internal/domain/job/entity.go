// Package job defines the analysis-job aggregate: one patent specification
// plus its prior-art references, tied to one payment, producing one report.
package job

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// Status is the lifecycle state of a Job.  Transitions are strictly one-way:
//
//	created → paid → completed
//	               ↘ failed
//
// There is no path out of completed or failed except administrative deletion.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ReferenceDocument is one prior-art document attached to a job.  It is
// read-only once associated: the storage key locates the uploaded file and
// Title is the display provenance carried through the vector index into the
// final report.
type ReferenceDocument struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	StorageKey string    `json:"storage_key"`
	Title      string    `json:"title"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeatureAnalysis pairs one distilled inventive feature with its disclosure
// verdict and the comma-joined set of reference titles that supported it.
// Rows are created in bulk at the end of the pipeline and never mutated.
type FeatureAnalysis struct {
	ID       string `json:"id"`
	JobID    string `json:"job_id"`
	Feature  string `json:"feature"`
	Analysis string `json:"analysis"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// Job is the analysis unit: one specification, an ordered list of reference
// documents, and, once the pipeline has run, the persisted feature analyses.
type Job struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Title         string              `json:"title"`
	SpecKey       string              `json:"spec_key"`
	References    []ReferenceDocument `json:"references"`
	Paid          bool                `json:"paid"`
	Completed     bool                `json:"completed"`
	Failed        bool                `json:"failed"`
	FailureReason string              `json:"failure_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Analyses      []FeatureAnalysis   `json:"analyses,omitempty"`
}

// New constructs a Job in the created state.
func New(userID, title, specKey string, refs []ReferenceDocument) (*Job, error) {
	if userID == "" {
		return nil, apperrors.InvalidParam("user id is required")
	}
	if specKey == "" {
		return nil, apperrors.InvalidParam("specification storage key is required")
	}
	j := &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		SpecKey:   specKey,
		CreatedAt: time.Now().UTC(),
	}
	for i := range refs {
		refs[i].ID = uuid.NewString()
		refs[i].JobID = j.ID
		refs[i].Position = i
		refs[i].CreatedAt = j.CreatedAt
	}
	j.References = refs
	return j, nil
}

// Status derives the lifecycle state from the flag set.
func (j *Job) Status() Status {
	switch {
	case j.Failed:
		return StatusFailed
	case j.Completed:
		return StatusCompleted
	case j.Paid:
		return StatusPaid
	default:
		return StatusCreated
	}
}

// MarkPaid flips the paid flag.  The transition is monotonic: a job already
// paid, completed, or failed cannot be paid again.
func (j *Job) MarkPaid() error {
	if j.Paid {
		return apperrors.New(apperrors.ErrCodeJobStateInvalid, "job is already paid")
	}
	if j.Completed || j.Failed {
		return apperrors.New(apperrors.ErrCodeJobStateInvalid, "job is already terminal")
	}
	j.Paid = true
	return nil
}

// MarkCompleted flips the completed flag.  Only a paid, non-terminal job may
// complete; the flag never flips back.
func (j *Job) MarkCompleted() error {
	if !j.Paid {
		return apperrors.New(apperrors.ErrCodeJobNotPaid, "cannot complete an unpaid job")
	}
	if j.Completed {
		return apperrors.New(apperrors.ErrCodeJobCompleted, "job is already completed")
	}
	if j.Failed {
		return apperrors.New(apperrors.ErrCodeJobFailed, "job has already failed")
	}
	j.Completed = true
	return nil
}

// MarkFailed records an unrecoverable pipeline error.  Only a paid,
// non-terminal job may fail; the reason is kept for support diagnosis.
func (j *Job) MarkFailed(reason string) error {
	if !j.Paid {
		return apperrors.New(apperrors.ErrCodeJobNotPaid, "cannot fail an unpaid job")
	}
	if j.Completed {
		return apperrors.New(apperrors.ErrCodeJobCompleted, "job is already completed")
	}
	if j.Failed {
		return apperrors.New(apperrors.ErrCodeJobFailed, "job has already failed")
	}
	j.Failed = true
	j.FailureReason = reason
	return nil
}

// Terminal reports whether the job has reached an end state.
func (j *Job) Terminal() bool {
	return j.Completed || j.Failed
}

// StorageKeys returns every opaque storage key owned by the job, used for
// file cleanup when a job is canceled before analysis.
func (j *Job) StorageKeys() []string {
	keys := make([]string, 0, len(j.References)+1)
	keys = append(keys, j.SpecKey)
	for _, r := range j.References {
		keys = append(keys, r.StorageKey)
	}
	return keys
}
