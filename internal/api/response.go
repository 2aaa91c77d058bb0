// Package api holds the HTTP response envelope and error mapping shared by
// handlers and middleware.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/statusdigest/internal/domain"
)

// SuccessResponse is the envelope of every 2xx body
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the envelope of every error body. Code is the domain
// error code when one applies.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:    http.StatusBadRequest,
	domain.ErrCodeNotFound:      http.StatusNotFound,
	domain.ErrCodeAlreadyExists: http.StatusConflict,
	domain.ErrCodeUnauthorized:  http.StatusUnauthorized,
	domain.ErrCodeTooLarge:      http.StatusRequestEntityTooLarge,
	domain.ErrCodeNotConfigured: http.StatusServiceUnavailable,
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps the first domain error in err's chain to a status.
// Anything else is a 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[domain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes err with its mapped status. 500s carry no details.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	if status == http.StatusInternalServerError {
		JSON(w, status, ErrorResponse{Error: "internal error", Code: domain.ErrCodeInternalError})
		return
	}
	JSON(w, status, ErrorResponse{Error: err.Error(), Code: domain.CodeOf(err)})
}
