package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

// CheckRequest carries the state of one admission attempt through the
// pipeline. Steps fill in what later steps need (subscription,
// geolocation) and may append soft restrictions.
type CheckRequest struct {
	Now          time.Time
	TokenString  string
	Token        *domain.AccessToken
	VideoID      domain.VideoID
	Device       domain.DeviceInfo
	ClientIP     string
	Subscription *domain.UserSubscription
	Geolocation  domain.GeolocationInfo
	Restrictions []string
}

// Check is one step of the admission pipeline. A non-empty reason
// rejects the attempt; an error aborts the pipeline as an internal
// failure. Steps run in a strict configured order and short-circuit on
// the first rejection.
type Check interface {
	Name() string
	Run(ctx context.Context, req *CheckRequest) (domain.RejectionReason, error)
}

// signatureCheck verifies the HMAC signature and decodes the token.
type signatureCheck struct {
	tokens ports.TokenService
}

func (c *signatureCheck) Name() string { return "signature" }

func (c *signatureCheck) Run(ctx context.Context, req *CheckRequest) (domain.RejectionReason, error) {
	token, err := c.tokens.Decode(req.TokenString)
	if err != nil {
		return domain.ReasonInvalidToken, nil
	}
	if req.VideoID != "" && token.VideoID != req.VideoID {
		return domain.ReasonInvalidToken, nil
	}
	if req.Device.DeviceID != "" && token.DeviceID != req.Device.DeviceID {
		return domain.ReasonInvalidToken, nil
	}
	req.Token = token
	return domain.ReasonNone, nil
}

// expiryCheck is unconditional and wins over every later step: an
// expired token is always invalid, even with free concurrency slots.
type expiryCheck struct{}

func (c *expiryCheck) Name() string { return "expiry" }

func (c *expiryCheck) Run(ctx context.Context, req *CheckRequest) (domain.RejectionReason, error) {
	if req.Token.Expired(req.Now) {
		return domain.ReasonTokenExpired, nil
	}
	return domain.ReasonNone, nil
}

// subscriptionCheck loads the billing snapshot and verifies it is
// current and its tier covers the requested video.
type subscriptionCheck struct {
	subscriptions ports.SubscriptionStore
	catalog       ports.VideoCatalog
}

func (c *subscriptionCheck) Name() string { return "subscription" }

func (c *subscriptionCheck) Run(ctx context.Context, req *CheckRequest) (domain.RejectionReason, error) {
	sub, err := c.subscriptions.Get(ctx, req.Token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return domain.ReasonSubscriptionExpired, nil
		}
		return domain.ReasonNone, fmt.Errorf("failed to load subscription: %w", err)
	}
	req.Subscription = sub

	if sub.Expired(req.Now) {
		return domain.ReasonSubscriptionExpired, nil
	}

	required, err := c.catalog.RequiredTier(ctx, req.Token.VideoID)
	if err != nil {
		return domain.ReasonNone, fmt.Errorf("failed to resolve required tier: %w", err)
	}
	if !sub.Type.AtLeast(required) {
		return domain.ReasonInsufficientTier, nil
	}
	return domain.ReasonNone, nil
}

// geofenceCheck resolves the client IP and matches it against the
// subscription allowlist. Resolver failure degrades to the permissive
// default location with a recorded restriction, unless failClosed is
// set.
type geofenceCheck struct {
	resolver   ports.GeolocationResolver
	failClosed bool
}

func (c *geofenceCheck) Name() string { return "geofence" }

func (c *geofenceCheck) Run(ctx context.Context, req *CheckRequest) (domain.RejectionReason, error) {
	geo, err := c.resolver.Resolve(ctx, req.ClientIP)
	req.Geolocation = geo
	if err != nil || !geo.Resolved() {
		if c.failClosed {
			return domain.ReasonRegionNotAllowed, nil
		}
		req.Geolocation = domain.DefaultGeolocation()
		req.Restrictions = append(req.Restrictions, domain.RestrictionGeolocationUnresolved)
		return domain.ReasonNone, nil
	}

	if !req.Subscription.AllowsRegion(geo.Country, geo.Region) {
		return domain.ReasonRegionNotAllowed, nil
	}
	return domain.ReasonNone, nil
}

// deviceCheck passes devices already bound for the user; unknown
// devices are bound on first use while capacity remains.
type deviceCheck struct {
	devices ports.DeviceBindingRepository
	cap     int
}

func (c *deviceCheck) Name() string { return "device_binding" }

func (c *deviceCheck) Run(ctx context.Context, req *CheckRequest) (domain.RejectionReason, error) {
	err := c.devices.Bind(ctx, req.Token.UserID, req.Device.DeviceID, c.cap)
	if errors.Is(err, domain.ErrDeviceLimitReached) {
		return domain.ReasonDeviceLimitExceeded, nil
	}
	if err != nil {
		return domain.ReasonNone, fmt.Errorf("failed to bind device: %w", err)
	}
	return domain.ReasonNone, nil
}

// concurrencyCheck atomically reserves a streaming slot. The
// count-against-limit read and the reservation write are one step in
// the repository, so two racing requests can never both observe a free
// slot and both reserve it. The reservation stays in requested state
// until the caller commits it via session start; the sweep reclaims it
// after the grace window otherwise.
type concurrencyCheck struct {
	sessions ports.SessionRepository
}

func (c *concurrencyCheck) Name() string { return "concurrency" }

func (c *concurrencyCheck) Run(ctx context.Context, req *CheckRequest) (domain.RejectionReason, error) {
	limit := req.Subscription.MaxConcurrentStreams
	if limit <= 0 {
		return domain.ReasonMaxStreamsReached, nil
	}

	session := &domain.StreamSession{
		SessionID:      req.Token.SessionID,
		UserID:         req.Token.UserID,
		DeviceID:       req.Token.DeviceID,
		VideoID:        req.Token.VideoID,
		Region:         req.Geolocation.Country,
		StartTime:      req.Now,
		LastActivity:   req.Now,
		TokenExpiresAt: req.Token.ExpiresAt,
		Status:         domain.SessionRequested,
	}

	err := c.sessions.ReserveSlot(ctx, session, limit)
	if errors.Is(err, domain.ErrSlotLimitReached) {
		return domain.ReasonMaxStreamsReached, nil
	}
	if err != nil {
		return domain.ReasonNone, fmt.Errorf("failed to reserve stream slot: %w", err)
	}
	return domain.ReasonNone, nil
}
