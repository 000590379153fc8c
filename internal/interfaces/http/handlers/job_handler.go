package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/patentlens/patentlens/internal/application/jobs"
	"github.com/patentlens/patentlens/internal/domain/job"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	"github.com/patentlens/patentlens/internal/interfaces/http/middleware"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// maxUploadBytes bounds one submission's total multipart payload.
const maxUploadBytes = 64 << 20

// DocumentUploader stores an uploaded document under an opaque key.
type DocumentUploader interface {
	Store(ctx context.Context, key string, data []byte, contentType string) error
}

// JobHandler serves the job lifecycle endpoints.
type JobHandler struct {
	jobs   jobs.Service
	docs   DocumentUploader
	logger logging.Logger
}

func NewJobHandler(svc jobs.Service, docs DocumentUploader, log logging.Logger) *JobHandler {
	return &JobHandler{jobs: svc, docs: docs, logger: log.Named("jobs")}
}

// jobView is the status representation returned by Submit, Get and List.
type jobView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	References    int       `json:"references"`
	CreatedAt     time.Time `json:"created_at"`
}

func toJobView(j *job.Job) jobView {
	return jobView{
		ID:            j.ID,
		Title:         j.Title,
		Status:        string(j.Status()),
		FailureReason: j.FailureReason,
		References:    len(j.References),
		CreatedAt:     j.CreatedAt,
	}
}

// analysisView is one row of the disclosure report.
type analysisView struct {
	Feature  string `json:"feature"`
	Analysis string `json:"analysis"`
	Source   string `json:"source"`
}

// Submit handles POST /jobs.  The multipart form carries a "title" field,
// the "spec" file and zero or more "references" files; each reference's
// display title is its filename.
func (h *JobHandler) Submit(c *gin.Context) {
	userID := middleware.UserID(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, h.logger, apperrors.InvalidParam("invalid multipart form").WithCause(err))
		return
	}

	specFiles := form.File["spec"]
	if len(specFiles) != 1 {
		respondError(c, h.logger, apperrors.InvalidParam("exactly one spec file is required"))
		return
	}

	submissionID := uuid.NewString()
	specKey, err := h.upload(c.Request.Context(), submissionID, "spec", specFiles[0])
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	refs := make([]job.ReferenceDocument, 0, len(form.File["references"]))
	for i, fh := range form.File["references"] {
		key, err := h.upload(c.Request.Context(), submissionID, fmt.Sprintf("ref-%d", i), fh)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		refs = append(refs, job.ReferenceDocument{
			StorageKey: key,
			Title:      strings.TrimSuffix(fh.Filename, path.Ext(fh.Filename)),
		})
	}

	j, err := h.jobs.Submit(c.Request.Context(), jobs.SubmitRequest{
		UserID:     userID,
		Title:      c.PostForm("title"),
		SpecKey:    specKey,
		References: refs,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toJobView(j))
}

// upload stores one multipart file and returns its storage key.
func (h *JobHandler) upload(ctx context.Context, submissionID, slot string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", apperrors.InvalidParam("unreadable upload").WithCause(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", apperrors.InvalidParam("unreadable upload").WithCause(err)
	}

	key := fmt.Sprintf("jobs/%s/%s%s", submissionID, slot, strings.ToLower(path.Ext(fh.Filename)))
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if err := h.docs.Store(ctx, key, data, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Get handles GET /jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJobView(j))
}

// List handles GET /jobs: the owner's paid jobs, newest first.
func (h *JobHandler) List(c *gin.Context) {
	js, err := h.jobs.ListPaid(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	views := make([]jobView, len(js))
	for i, j := range js {
		views[i] = toJobView(j)
	}
	c.JSON(http.StatusOK, gin.H{"jobs": views})
}

// Report handles GET /jobs/:id/report.  The report exists only once the
// pipeline has completed; a failed job reports its terminal state instead.
func (h *JobHandler) Report(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if j.Failed {
		respondError(c, h.logger, apperrors.New(apperrors.ErrCodeJobFailed, "analysis failed").
			WithDetail(j.FailureReason))
		return
	}
	if !j.Completed {
		respondError(c, h.logger, apperrors.New(apperrors.ErrCodeConflict, "report is not ready"))
		return
	}

	rows := make([]analysisView, len(j.Analyses))
	for i, a := range j.Analyses {
		rows[i] = analysisView{Feature: a.Feature, Analysis: a.Analysis, Source: a.Source}
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":   j.ID,
		"title":    j.Title,
		"analyses": rows,
	})
}

// ConfirmPayment handles POST /jobs/:id/payment.  Ownership is checked
// before the flip so a foreign job stays indistinguishable from a missing
// one.
func (h *JobHandler) ConfirmPayment(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.jobs.ConfirmPayment(c.Request.Context(), j.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(job.StatusPaid)})
}

// Cancel handles DELETE /jobs/:id.
func (h *JobHandler) Cancel(c *gin.Context) {
	if err := h.jobs.Cancel(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
