package domain

import (
	"errors"
	"fmt"
)

// DomainError is a failure the API can report to callers. Code selects the
// HTTP status; Message is safe to show.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so a
// sentinel carrying a cause still satisfies errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of e wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: cause}
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// CodeOf returns the code of the first DomainError in err's chain, or ""
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeTooLarge      = "TOO_LARGE"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
)

// Validation errors
var (
	ErrInvalidFilename       = NewDomainError(ErrCodeValidation, "invalid report filename")
	ErrInvalidCategory       = NewDomainError(ErrCodeValidation, "invalid category")
	ErrInvalidImportStatus   = NewDomainError(ErrCodeValidation, "invalid import job status")
	ErrUnsupportedDocument   = NewDomainError(ErrCodeValidation, "unsupported document type")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidTokenBudget    = NewDomainError(ErrCodeValidation, "max input plus max output tokens exceeds the context window")
	ErrEmptyProjectName      = NewDomainError(ErrCodeValidation, "project name is required")
	ErrInvalidHistoryLogDate = NewDomainError(ErrCodeValidation, "log date is required")
)

// Not found errors
var (
	ErrProjectNotFound   = NewDomainError(ErrCodeNotFound, "project not found")
	ErrUploadNotFound    = NewDomainError(ErrCodeNotFound, "report upload not found")
	ErrImportJobNotFound = NewDomainError(ErrCodeNotFound, "import job not found")
)

// Already exists errors
var (
	ErrUploadAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "report upload already exists")
)

// Size errors
var (
	ErrUploadTooLarge = NewDomainError(ErrCodeTooLarge, "request body too large")
)

// Authorization errors
var (
	ErrInvalidAPIKey      = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrMissingCredentials = NewDomainError(ErrCodeUnauthorized, "missing bearer token")
)

// Configuration errors
var (
	ErrLLMNotConfigured      = NewDomainError(ErrCodeNotConfigured, "llm credentials are not configured")
	ErrDatabaseNotConfigured = NewDomainError(ErrCodeNotConfigured, "database is not configured")
	ErrStorageNotConfigured  = NewDomainError(ErrCodeNotConfigured, "document storage is not configured")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
