// Package http provides HTTP handlers for room management.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/tnptm/next-djchat/internal/auth/http"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	"github.com/tnptm/next-djchat/internal/httputil"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
	"github.com/tnptm/next-djchat/internal/room/http/dto"
	roomUseCase "github.com/tnptm/next-djchat/internal/room/usecase"
	customValidation "github.com/tnptm/next-djchat/internal/validation"
)

// RoomHandler handles HTTP requests for rooms and their memberships.
type RoomHandler struct {
	roomUseCase roomUseCase.RoomUseCase
	logger      *slog.Logger
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(roomUseCase roomUseCase.RoomUseCase, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		roomUseCase: roomUseCase,
		logger:      logger,
	}
}

// CreateHandler creates a room owned by the caller.
// POST /v1/rooms - Returns 201 Created with the room and its members.
func (h *RoomHandler) CreateHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	detail, err := h.roomUseCase.Create(c.Request.Context(), roomUseCase.CreateRoomInput{
		OwnerID:     principal.ID,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  roomDomain.ParseVisibility(req.Private()),
		Invitees:    req.InvitedUsernames,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRoomDetailToResponse(detail))
}

// ListHandler lists the caller's rooms.
// GET /v1/rooms?offset=0&limit=50
func (h *RoomHandler) ListHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c, 50, 100)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	details, err := h.roomUseCase.ListForUser(c.Request.Context(), principal.ID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRoomDetailsToListResponse(details))
}

// GetHandler returns a room the caller belongs to.
// GET /v1/rooms/:id - Returns 403 for non-members whether or not the room exists.
func (h *RoomHandler) GetHandler(c *gin.Context) {
	principal, roomID, ok := h.principalAndRoom(c)
	if !ok {
		return
	}

	detail, err := h.roomUseCase.Get(c.Request.Context(), principal, roomID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRoomDetailToResponse(detail))
}

// DeleteHandler deletes a room. Owner only.
// DELETE /v1/rooms/:id - Returns 204 No Content.
func (h *RoomHandler) DeleteHandler(c *gin.Context) {
	principal, roomID, ok := h.principalAndRoom(c)
	if !ok {
		return
	}

	if err := h.roomUseCase.Delete(c.Request.Context(), principal, roomID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// AddMemberHandler invites a user into the room.
// POST /v1/rooms/:id/members - Returns 201 when a membership was created, 200 when it existed.
func (h *RoomHandler) AddMemberHandler(c *gin.Context) {
	principal, roomID, ok := h.principalAndRoom(c)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	membership, created, err := h.roomUseCase.AddMember(c.Request.Context(), principal, roomID, req.Username)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.MapMembershipToResponse(membership, created))
}

func (h *RoomHandler) principalAndRoom(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return uuid.Nil, uuid.Nil, false
	}

	roomID, err := ParseRoomID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return uuid.Nil, uuid.Nil, false
	}
	return principal.ID, roomID, true
}

// ParseRoomID parses the :id path parameter.
func ParseRoomID(c *gin.Context) (uuid.UUID, error) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid room id: must be a UUID")
	}
	return roomID, nil
}
