package http

import (
	"errors"
	"net/http"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	apperrors "streamgate/pkg/errors"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions ports.SessionService
}

func NewSessionHandler(sessions ports.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/sessions/:id/heartbeat", h.Heartbeat)
		api.DELETE("/sessions/:id", h.EndSession)
		api.GET("/users/:id/sessions", h.ListSessions)
	}
}

func (h *SessionHandler) Heartbeat(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	if err := h.sessions.Heartbeat(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.Error(apperrors.NewNotFoundError("session"))
			return
		}
		c.Error(apperrors.NewInternalError("heartbeat failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// EndSession tears a session down. Ending an unknown or already-ended
// session succeeds, so player retries and races with the sweeper are
// harmless.
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	if err := h.sessions.End(c.Request.Context(), sessionID); err != nil {
		c.Error(apperrors.NewInternalError("failed to end session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID := c.Param("id")
	if err := validation.ValidateUserID(userID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	sessions, err := h.sessions.ActiveSessions(c.Request.Context(), domain.UserID(userID))
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list sessions"))
		return
	}

	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"session_id":    string(s.SessionID),
			"video_id":      string(s.VideoID),
			"device_id":     string(s.DeviceID),
			"region":        s.Region,
			"start_time":    s.StartTime,
			"last_activity": s.LastActivity,
			"status":        string(s.Status),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"sessions": out,
		"count":    len(out),
	})
}
