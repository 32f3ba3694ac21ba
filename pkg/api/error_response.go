package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// WriteError writes err with the status its kind maps to.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSONError(w, StatusFor(err), err.Error())
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch domain.KindOfError(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindEvaluation:
		return http.StatusUnprocessableEntity
	case domain.KindProvider:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
