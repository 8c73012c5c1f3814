package domain

import "time"

type SessionStatus string

const (
	// SessionRequested marks a slot reserved during admission that has
	// not yet been committed by StartSession.
	SessionRequested SessionStatus = "requested"
	SessionActive    SessionStatus = "active"
	SessionEnded     SessionStatus = "ended"
)

type StreamSession struct {
	SessionID      SessionID
	UserID         UserID
	DeviceID       DeviceID
	VideoID        VideoID
	Region         string
	StartTime      time.Time
	LastActivity   time.Time
	TokenExpiresAt time.Time
	Status         SessionStatus
}

func (s *StreamSession) Idle(now time.Time, idleTimeout time.Duration) bool {
	return now.Sub(s.LastActivity) > idleTimeout
}
