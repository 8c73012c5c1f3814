package domain

import "time"

// SignedURL is a short-lived playback URL derived from a valid access
// token. Expiry is the only revocation mechanism besides session end.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
	Signature string
}
