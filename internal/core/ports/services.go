package ports

import (
	"context"
	"time"

	"streamgate/internal/core/domain"
)

// TokenService issues and decodes signed access tokens. Issuance is
// unconditional; rejection of expired subscriptions is the validator's
// job, so tokens can be pre-staged.
type TokenService interface {
	Issue(ctx context.Context, videoID domain.VideoID, userID domain.UserID, device domain.DeviceInfo) (*domain.AccessToken, string, error)
	Decode(tokenString string) (*domain.AccessToken, error)
}

// AccessValidator runs the ordered admission pipeline and reports the
// outcome as a structured result; rejections are never Go errors.
// On success a concurrency slot has been reserved under the token's
// session id and must be committed via SessionService.Start, or it is
// reclaimed by the sweep after the reservation grace window.
type AccessValidator interface {
	Validate(ctx context.Context, tokenString string, videoID domain.VideoID, device domain.DeviceInfo, clientIP string) (*domain.ValidationResult, *domain.AccessToken, error)
}

// SignedURLService mints short-lived playback URLs. The URL expiry is
// clamped to the parent token's expiry.
type SignedURLService interface {
	Generate(token *domain.AccessToken, ttl time.Duration) (*domain.SignedURL, error)
}

// SessionService manages the session lifecycle and the background
// sweep that reclaims idle, token-expired and abandoned sessions.
type SessionService interface {
	Start(ctx context.Context, token *domain.AccessToken) (*domain.StreamSession, error)
	Heartbeat(ctx context.Context, sessionID domain.SessionID) error
	End(ctx context.Context, sessionID domain.SessionID) error
	ActiveSessions(ctx context.Context, userID domain.UserID) ([]*domain.StreamSession, error)
	Sweep(ctx context.Context) error
}

// AccessService is the single entry point for playback admission.
type AccessService interface {
	IssueAndValidate(ctx context.Context, videoID domain.VideoID, userID domain.UserID, device domain.DeviceInfo, clientIP string) (string, *domain.AccessToken, *domain.ValidationResult, error)
}

// DeviceService exposes device binding management.
type DeviceService interface {
	BindDevice(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error
	UnbindDevice(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error
	BoundDevices(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error)
}

// GeolocationResolver maps a client IP to a coarse location. A failed
// or timed-out lookup returns domain.DefaultGeolocation() together
// with the error so callers can degrade instead of hard-failing.
type GeolocationResolver interface {
	Resolve(ctx context.Context, ip string) (domain.GeolocationInfo, error)
}
