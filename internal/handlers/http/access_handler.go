package http

import (
	"net/http"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/infrastructure/middleware"
	apperrors "streamgate/pkg/errors"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
)

// AccessHandler serves the playback admission endpoint: one request
// issues a token, runs the validation pipeline, commits the session
// and returns a signed playback URL.
type AccessHandler struct {
	access     ports.AccessService
	sessions   ports.SessionService
	signedURLs ports.SignedURLService
	urlTTL     time.Duration
}

func NewAccessHandler(
	access ports.AccessService,
	sessions ports.SessionService,
	signedURLs ports.SignedURLService,
	urlTTL time.Duration,
) *AccessHandler {
	return &AccessHandler{
		access:     access,
		sessions:   sessions,
		signedURLs: signedURLs,
		urlTTL:     urlTTL,
	}
}

func (h *AccessHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/access/request", h.RequestAccess)
	}
}

type accessRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	VideoID string `json:"video_id" binding:"required"`
	Device  struct {
		DeviceID   string `json:"device_id" binding:"required"`
		DeviceType string `json:"device_type"`
		Platform   string `json:"platform"`
	} `json:"device" binding:"required"`
}

func (h *AccessHandler) RequestAccess(c *gin.Context) {
	var req accessRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateUserID(req.UserID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateVideoID(req.VideoID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateDeviceID(req.Device.DeviceID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	device := domain.DeviceInfo{
		DeviceID:   domain.DeviceID(req.Device.DeviceID),
		DeviceType: domain.DeviceType(req.Device.DeviceType),
		Platform:   req.Device.Platform,
		UserAgent:  c.Request.UserAgent(),
	}

	tokenString, token, result, err := h.access.IssueAndValidate(
		c.Request.Context(),
		domain.VideoID(req.VideoID),
		domain.UserID(req.UserID),
		device,
		c.ClientIP(),
	)
	if err != nil {
		c.Error(apperrors.NewInternalError("access validation failed"))
		return
	}

	if !result.Valid {
		c.Set(middleware.ContextRejectionReason, string(result.Reason))
		c.JSON(http.StatusForbidden, gin.H{
			"granted":      false,
			"reason":       string(result.Reason),
			"restrictions": result.Restrictions,
		})
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), token)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to start session"))
		return
	}

	signed, err := h.signedURLs.Generate(token, h.urlTTL)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to sign playback URL"))
		return
	}

	c.Set(middleware.ContextSessionID, string(session.SessionID))
	c.JSON(http.StatusOK, gin.H{
		"granted":          true,
		"session_id":       string(session.SessionID),
		"access_token":     tokenString,
		"playback_url":     signed.URL,
		"url_expires_at":   signed.ExpiresAt,
		"token_expires_at": token.ExpiresAt,
		"allowed_duration": int64(result.AllowedDuration.Seconds()),
		"restrictions":     result.Restrictions,
	})
}
