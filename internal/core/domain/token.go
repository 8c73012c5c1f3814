package domain

import "time"

type SessionID string

const PermissionStream = "stream"

// AccessToken binds a user/device/video triple for a bounded time
// window. Immutable once signed; every issuance carries a fresh
// SessionID.
type AccessToken struct {
	VideoID     VideoID
	UserID      UserID
	SessionID   SessionID
	DeviceID    DeviceID
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Permissions []string
}

func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *AccessToken) HasPermission(perm string) bool {
	for _, p := range t.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
