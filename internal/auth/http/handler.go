package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tnptm/next-djchat/internal/errors"
	"github.com/tnptm/next-djchat/internal/httputil"
)

// CurrentUserResponse is the body of GET /v1/me.
type CurrentUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CurrentUserHandler serves the authenticated principal.
type CurrentUserHandler struct {
	logger *slog.Logger
}

// NewCurrentUserHandler creates a CurrentUserHandler.
func NewCurrentUserHandler(logger *slog.Logger) *CurrentUserHandler {
	return &CurrentUserHandler{logger: logger}
}

// GetHandler returns the caller's id, username and email.
// GET /v1/me - Requires authentication.
func (h *CurrentUserHandler) GetHandler(c *gin.Context) {
	principal, ok := GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	c.JSON(http.StatusOK, CurrentUserResponse{
		ID:       principal.ID.String(),
		Username: principal.Username,
		Email:    principal.Email,
	})
}
