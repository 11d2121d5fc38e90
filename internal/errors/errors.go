// Package errors provides error codes and the JSON error response
// format for the HTTP API.
package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorCode identifies a class of API failure.
type ErrorCode string

const (
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidClock   ErrorCode = "INVALID_CLOCK"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeRateLimited    ErrorCode = "RATE_LIMITED"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Handler writes error responses.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates an error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// WriteErrorResponse writes a JSON error with the given status code.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, code ErrorCode, message, requestID string) {
	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: code,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// WriteValidationError writes a 400 for a malformed request.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, requestID)
}

// WriteInternalError logs err and writes a 500 without leaking it.
func (h *Handler) WriteInternalError(w http.ResponseWriter, err error, requestID string) {
	h.logger.Error("Internal error", zap.Error(err), zap.String("request_id", requestID))
	h.WriteErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error", requestID)
}
