package http

import (
	"net/http"
	"time"

	"streamgate/internal/core/domain"
	apperrors "streamgate/pkg/errors"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
)

type subscriptionWriter interface {
	Put(sub *domain.UserSubscription)
}

type catalogWriter interface {
	SetRequiredTier(videoID domain.VideoID, tier domain.SubscriptionType)
}

// InternalHandler receives subscription snapshots and catalog tier
// updates from the billing and catalog systems. These routes are meant
// to sit behind the service mesh, not the public edge.
type InternalHandler struct {
	subscriptions subscriptionWriter
	catalog       catalogWriter
}

func NewInternalHandler(subscriptions subscriptionWriter, catalog catalogWriter) *InternalHandler {
	return &InternalHandler{
		subscriptions: subscriptions,
		catalog:       catalog,
	}
}

func (h *InternalHandler) SetupRoutes(router *gin.Engine) {
	internal := router.Group("/internal/v1")
	{
		internal.PUT("/subscriptions/:user_id", h.PutSubscription)
		internal.PUT("/videos/:id/tier", h.SetVideoTier)
	}
}

func (h *InternalHandler) PutSubscription(c *gin.Context) {
	userID := c.Param("user_id")
	if err := validation.ValidateUserID(userID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	var req struct {
		Type                 string    `json:"type" binding:"required,oneof=free premium enterprise"`
		ExpiresAt            time.Time `json:"expires_at" binding:"required"`
		MaxConcurrentStreams int       `json:"max_concurrent_streams" binding:"min=0,max=100"`
		AllowedRegions       []string  `json:"allowed_regions"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, region := range req.AllowedRegions {
		if err := validation.ValidateRegion(region); err != nil {
			c.Error(apperrors.NewInvalidInputError(err.Error()))
			return
		}
	}

	h.subscriptions.Put(&domain.UserSubscription{
		UserID:               domain.UserID(userID),
		Type:                 domain.SubscriptionType(req.Type),
		ExpiresAt:            req.ExpiresAt,
		MaxConcurrentStreams: req.MaxConcurrentStreams,
		AllowedRegions:       req.AllowedRegions,
	})

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "type": req.Type})
}

func (h *InternalHandler) SetVideoTier(c *gin.Context) {
	videoID := c.Param("id")
	if err := validation.ValidateVideoID(videoID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	var req struct {
		Tier string `json:"tier" binding:"required,oneof=free premium enterprise"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.catalog.SetRequiredTier(domain.VideoID(videoID), domain.SubscriptionType(req.Tier))

	c.JSON(http.StatusOK, gin.H{"video_id": videoID, "tier": req.Tier})
}
