package ports

import (
	"context"
	"time"

	"streamgate/internal/core/domain"
)

// SessionRepository is the authoritative registry of stream sessions.
// Implementations must make ReserveSlot a single atomic step: the
// count-against-limit read and the reservation write may never be
// observable separately, even across process instances.
type SessionRepository interface {
	// ReserveSlot stores the session in requested state when the user's
	// live session count (active + requested) is below limit. Returns
	// domain.ErrSlotLimitReached when the limit is hit.
	ReserveSlot(ctx context.Context, session *domain.StreamSession, limit int) error

	// Commit promotes a requested session to active.
	Commit(ctx context.Context, id domain.SessionID) error

	Get(ctx context.Context, id domain.SessionID) (*domain.StreamSession, error)

	// Touch bumps LastActivity; no-op unless the session is active.
	Touch(ctx context.Context, id domain.SessionID, at time.Time) error

	// End marks the session ended. Ending an already-ended or unknown
	// session is a no-op.
	End(ctx context.Context, id domain.SessionID) error

	ListActiveByUser(ctx context.Context, userID domain.UserID) ([]*domain.StreamSession, error)

	// ListLive returns every requested and active session, for the sweep.
	ListLive(ctx context.Context) ([]*domain.StreamSession, error)
}

// DeviceBindingRepository holds the per-user set of bound device
// fingerprints. Bind enforces the cap atomically with the membership
// check; binding an already-bound device never consumes capacity.
type DeviceBindingRepository interface {
	Bind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, cap int) error
	Unbind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error
	ListBound(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error)
}

// SubscriptionStore supplies read-only subscription snapshots owned by
// the billing system.
type SubscriptionStore interface {
	Get(ctx context.Context, userID domain.UserID) (*domain.UserSubscription, error)
}

// VideoCatalog answers which subscription tier a video requires.
type VideoCatalog interface {
	RequiredTier(ctx context.Context, videoID domain.VideoID) (domain.SubscriptionType, error)
}
