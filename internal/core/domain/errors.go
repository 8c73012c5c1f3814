package domain

import "errors"

var (
	ErrTokenInvalid         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSlotLimitReached     = errors.New("concurrent stream limit reached")
	ErrDeviceLimitReached   = errors.New("device binding limit reached")
	ErrGeolocationFailed    = errors.New("geolocation lookup failed")
)
