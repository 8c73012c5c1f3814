package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
)

var ErrEmptySigningSecret = errors.New("signing secret must not be empty")

// Signer produces and verifies HMAC-SHA256 signatures over canonical
// payloads. The payload is canonicalized with stable key ordering so
// verification is deterministic regardless of map iteration order.
// The secret is server-held and never leaves the process.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySigningSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Canonicalize encodes the payload with sorted keys.
func Canonicalize(payload map[string]string) string {
	values := url.Values{}
	for k, v := range payload {
		values.Set(k, v)
	}
	return values.Encode()
}

func (s *Signer) Sign(payload map[string]string) string {
	return s.signCanonical(Canonicalize(payload))
}

func (s *Signer) Verify(payload map[string]string, signature string) bool {
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Signer) signCanonical(canonical string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
