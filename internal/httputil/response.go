// Package httputil provides the JSON error envelope and query parsing shared by the room,
// message and auth handlers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/tnptm/next-djchat/internal/errors"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string // empty means the error text itself is returned
}

// errorMappings is keyed by apperrors.Kind, whose precedence puts forbidden ahead of not
// found, so a non-member never learns whether a room exists.
var errorMappings = []errorMapping{
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this room"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication is required"},
}

// internalError covers ErrIntegrity, ErrConfiguration and anything unexpected. Nothing
// about a failed decryption reaches the client.
var internalError = errorMapping{
	status:  http.StatusInternalServerError,
	code:    "internal_error",
	message: "An internal error occurred",
}

func mappingFor(err error) errorMapping {
	kind := apperrors.Kind(err)
	for _, m := range errorMappings {
		if m.kind == kind {
			return m
		}
	}
	return internalError
}

// HandleErrorGin maps a domain error to its status code and writes the JSON envelope.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	m := mappingFor(err)
	message := m.message
	if message == "" {
		message = err.Error()
	}

	if logger != nil {
		level := slog.LevelWarn
		if m.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", m.status),
			slog.String("error_code", m.code),
			slog.Bool("integrity_failure", apperrors.Is(err, apperrors.ErrIntegrity)),
			slog.Any("error", err),
		)
	}

	writeError(c, m.status, m.code, message)
}

// HandleBadRequestGin writes a 400 for malformed JSON, forms or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}
	writeError(c, http.StatusBadRequest, "bad_request", err.Error())
}

// HandleValidationErrorGin writes a 422 for a request that parsed but failed validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}
	writeError(c, http.StatusUnprocessableEntity, "validation_error", err.Error())
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestid.Get(c),
	})
}
