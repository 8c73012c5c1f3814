package domain

import "time"

// RejectionReason is the user-facing reason code for a denied
// playback attempt. Reasons map 1:1 to client-displayable messages.
type RejectionReason string

const (
	ReasonNone                 RejectionReason = ""
	ReasonInvalidToken         RejectionReason = "invalid_token"
	ReasonTokenExpired         RejectionReason = "token_expired"
	ReasonSubscriptionExpired  RejectionReason = "subscription_expired"
	ReasonInsufficientTier     RejectionReason = "insufficient_tier"
	ReasonRegionNotAllowed     RejectionReason = "region_not_allowed"
	ReasonDeviceLimitExceeded  RejectionReason = "device_limit_exceeded"
	ReasonMaxStreamsReached    RejectionReason = "max_concurrent_streams_reached"
)

const RestrictionGeolocationUnresolved = "geolocation_unresolved"

// ValidationResult is the outcome of the admission pipeline. Transient,
// never persisted.
type ValidationResult struct {
	Valid           bool
	Reason          RejectionReason
	AllowedDuration time.Duration
	Restrictions    []string
}

func Rejection(reason RejectionReason, restrictions []string) *ValidationResult {
	return &ValidationResult{Reason: reason, Restrictions: restrictions}
}
