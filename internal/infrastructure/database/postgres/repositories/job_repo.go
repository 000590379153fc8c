package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/patentlens/patentlens/internal/domain/job"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// JobRepository is the PostgreSQL implementation of job.Repository.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

var _ job.Repository = (*JobRepository)(nil)

func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (id, user_id, title, spec_key, paid, completed, failed, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		j.ID, j.UserID, j.Title, j.SpecKey, j.Paid, j.Completed, j.Failed, j.FailureReason, j.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "insert job")
	}
	for _, ref := range j.References {
		if err := insertReference(ctx, tx, ref); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "commit job creation")
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*job.Job, error) {
	return r.get(ctx, `
		SELECT id, user_id, title, spec_key, paid, completed, failed, failure_reason, created_at
		FROM jobs WHERE id = $1`, jobID)
}

func (r *JobRepository) GetByIDForUser(ctx context.Context, jobID, userID string) (*job.Job, error) {
	return r.get(ctx, `
		SELECT id, user_id, title, spec_key, paid, completed, failed, failure_reason, created_at
		FROM jobs WHERE id = $1 AND user_id = $2`, jobID, userID)
}

func (r *JobRepository) get(ctx context.Context, query string, args ...interface{}) (*job.Job, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrCodeJobNotFound, "job not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "query job")
	}
	if err := r.loadReferences(ctx, j); err != nil {
		return nil, err
	}
	if err := r.loadAnalyses(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JobRepository) ListPaidByUser(ctx context.Context, userID string) ([]*job.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, spec_key, paid, completed, failed, failure_reason, created_at
		FROM jobs WHERE user_id = $1 AND paid ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "list jobs")
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "scan job")
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "iterate jobs")
	}
	return jobs, nil
}

func (r *JobRepository) MarkPaid(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET paid = TRUE
		WHERE id = $1 AND NOT paid AND NOT completed AND NOT failed`, jobID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "mark job paid")
	}
	return r.checkTransition(ctx, res, jobID, "job cannot be paid in its current state")
}

// CompleteWithAnalyses stores the report rows and flips completed in one
// transaction.  A reader never observes completed=true with a partial set of
// rows, and a failed insert leaves the job unpaid-for-completion entirely.
func (r *JobRepository) CompleteWithAnalyses(ctx context.Context, jobID string, analyses []job.FeatureAnalysis) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range analyses {
		if err := insertAnalysis(ctx, tx, jobID, a); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET completed = TRUE
		WHERE id = $1 AND paid AND NOT completed AND NOT failed`, jobID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "mark job completed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "read affected rows")
	}
	if affected == 0 {
		return apperrors.New(apperrors.ErrCodeJobStateInvalid, "job cannot be completed in its current state")
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "commit completion")
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, jobID, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET failed = TRUE, failure_reason = $2
		WHERE id = $1 AND paid AND NOT completed AND NOT failed`, jobID, reason)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "mark job failed")
	}
	return r.checkTransition(ctx, res, jobID, "job cannot fail in its current state")
}

func (r *JobRepository) Delete(ctx context.Context, jobID string) error {
	// reference_documents and feature_analyses cascade.
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "delete job")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "read affected rows")
	}
	if affected == 0 {
		return apperrors.New(apperrors.ErrCodeJobNotFound, "job not found")
	}
	return nil
}

// checkTransition distinguishes a missing job from a guarded state
// transition that matched no row.
func (r *JobRepository) checkTransition(ctx context.Context, res sql.Result, jobID, msg string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "read affected rows")
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "check job existence")
	}
	if !exists {
		return apperrors.New(apperrors.ErrCodeJobNotFound, "job not found")
	}
	return apperrors.New(apperrors.ErrCodeJobStateInvalid, msg)
}

func (r *JobRepository) loadReferences(ctx context.Context, j *job.Job) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, storage_key, title, position, created_at
		FROM reference_documents WHERE job_id = $1 ORDER BY position`, j.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "query reference documents")
	}
	defer rows.Close()

	for rows.Next() {
		var ref job.ReferenceDocument
		if err := rows.Scan(&ref.ID, &ref.JobID, &ref.StorageKey, &ref.Title, &ref.Position, &ref.CreatedAt); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "scan reference document")
		}
		j.References = append(j.References, ref)
	}
	return rows.Err()
}

func (r *JobRepository) loadAnalyses(ctx context.Context, j *job.Job) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, feature, analysis, source, position
		FROM feature_analyses WHERE job_id = $1 ORDER BY position`, j.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "query feature analyses")
	}
	defer rows.Close()

	for rows.Next() {
		var a job.FeatureAnalysis
		if err := rows.Scan(&a.ID, &a.JobID, &a.Feature, &a.Analysis, &a.Source, &a.Position); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "scan feature analysis")
		}
		j.Analyses = append(j.Analyses, a)
	}
	return rows.Err()
}

func insertReference(ctx context.Context, q queryExecutor, ref job.ReferenceDocument) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO reference_documents (id, job_id, storage_key, title, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ref.ID, ref.JobID, ref.StorageKey, ref.Title, ref.Position, ref.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "insert reference document")
	}
	return nil
}

func insertAnalysis(ctx context.Context, q queryExecutor, jobID string, a job.FeatureAnalysis) error {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO feature_analyses (id, job_id, feature, analysis, source, position)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, jobID, a.Feature, a.Analysis, a.Source, a.Position,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "insert feature analysis")
	}
	return nil
}

func scanJob(s scanner) (*job.Job, error) {
	var j job.Job
	err := s.Scan(&j.ID, &j.UserID, &j.Title, &j.SpecKey, &j.Paid, &j.Completed, &j.Failed, &j.FailureReason, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
