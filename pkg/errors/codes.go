package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_012"

	// CodeOK is the sentinel returned by GetCode for a nil error.
	CodeOK ErrorCode = "OK"
)

// Job lifecycle error codes.
const (
	ErrCodeJobNotFound      ErrorCode = "JOB_001"
	ErrCodeJobNotPaid       ErrorCode = "JOB_002"
	ErrCodeJobCompleted     ErrorCode = "JOB_003"
	ErrCodeJobFailed        ErrorCode = "JOB_004"
	ErrCodeJobStateInvalid  ErrorCode = "JOB_005"
	ErrCodeJobLocked        ErrorCode = "JOB_006"
	ErrCodeAnalysisPersist  ErrorCode = "JOB_007"
)

// Document / reference error codes.
const (
	ErrCodeDocumentNotFound    ErrorCode = "DOC_001"
	ErrCodeDocumentEmpty       ErrorCode = "DOC_002"
	ErrCodeDocumentExtract     ErrorCode = "DOC_003"
	ErrCodeDocumentStorage     ErrorCode = "DOC_004"
)

// Language model error codes.
const (
	ErrCodeLLMUnavailable ErrorCode = "LLM_001"
	ErrCodeLLMTimeout     ErrorCode = "LLM_002"
	ErrCodeLLMBadResponse ErrorCode = "LLM_003"
	ErrCodeEmbedding      ErrorCode = "LLM_004"
)

// Vector index error codes.
const (
	ErrCodeIndexInsert    ErrorCode = "IDX_001"
	ErrCodeIndexSearch    ErrorCode = "IDX_002"
	ErrCodeIndexNamespace ErrorCode = "IDX_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeJobNotFound:     http.StatusNotFound,
	ErrCodeJobNotPaid:      http.StatusConflict,
	ErrCodeJobCompleted:    http.StatusConflict,
	ErrCodeJobFailed:       http.StatusConflict,
	ErrCodeJobStateInvalid: http.StatusConflict,
	ErrCodeJobLocked:       http.StatusConflict,
	ErrCodeAnalysisPersist: http.StatusInternalServerError,

	ErrCodeDocumentNotFound: http.StatusNotFound,
	ErrCodeDocumentEmpty:    http.StatusUnprocessableEntity,
	ErrCodeDocumentExtract:  http.StatusUnprocessableEntity,
	ErrCodeDocumentStorage:  http.StatusInternalServerError,

	ErrCodeLLMUnavailable: http.StatusServiceUnavailable,
	ErrCodeLLMTimeout:     http.StatusGatewayTimeout,
	ErrCodeLLMBadResponse: http.StatusBadGateway,
	ErrCodeEmbedding:      http.StatusBadGateway,

	ErrCodeIndexInsert:    http.StatusInternalServerError,
	ErrCodeIndexSearch:    http.StatusInternalServerError,
	ErrCodeIndexNamespace: http.StatusInternalServerError,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}
