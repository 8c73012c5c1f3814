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

type DeviceHandler struct {
	devices ports.DeviceService
}

func NewDeviceHandler(devices ports.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

func (h *DeviceHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/users/:id/devices", h.ListDevices)
		api.POST("/users/:id/devices", h.BindDevice)
		api.DELETE("/users/:id/devices/:device_id", h.UnbindDevice)
	}
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	userID := c.Param("id")
	if err := validation.ValidateUserID(userID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	devices, err := h.devices.BoundDevices(c.Request.Context(), domain.UserID(userID))
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list devices"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"devices": devices,
		"count":   len(devices),
	})
}

func (h *DeviceHandler) BindDevice(c *gin.Context) {
	userID := c.Param("id")
	if err := validation.ValidateUserID(userID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	err := h.devices.BindDevice(c.Request.Context(), domain.UserID(userID), domain.DeviceID(req.DeviceID))
	if err != nil {
		if errors.Is(err, domain.ErrDeviceLimitReached) {
			c.Error(apperrors.NewConflictError("device limit reached"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to bind device"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":   userID,
		"device_id": req.DeviceID,
	})
}

func (h *DeviceHandler) UnbindDevice(c *gin.Context) {
	userID := c.Param("id")
	deviceID := c.Param("device_id")
	if err := validation.ValidateUserID(userID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateDeviceID(deviceID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	err := h.devices.UnbindDevice(c.Request.Context(), domain.UserID(userID), domain.DeviceID(deviceID))
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to unbind device"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"device_id": deviceID,
	})
}
