// Package handlers implements the HTTP API handlers.
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// errorBody is the JSON error envelope returned by every failing endpoint.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error onto an HTTP status and the error
// envelope.  Server-side failures are logged with their full chain; client
// errors are the caller's problem and only appear in the access log.
func respondError(c *gin.Context, log logging.Logger, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.HTTPStatusForCode(code)

	message := "internal error"
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		message = ae.Message
	}

	if apperrors.IsServerError(code) {
		log.Error("request handling failed",
			logging.String("path", c.FullPath()),
			logging.Err(err))
		// Internal details stay out of the response body.
		if code == apperrors.ErrCodeInternal {
			message = "internal error"
		}
	}

	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		Code:    code.String(),
		Message: message,
	}})
}
