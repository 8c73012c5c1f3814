package services

import (
	"context"
	"testing"
	"time"

	"streamgate/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice() domain.DeviceInfo {
	return domain.DeviceInfo{
		DeviceID:   "device-1",
		DeviceType: domain.DeviceDesktop,
		Platform:   "linux",
	}
}

func TestNewTokenService_InvalidInputs(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySigningSecret)

	_, err = NewTokenService("secret", 0)
	assert.Error(t, err)
}

func TestTokenService_IssueDecodeRoundtrip(t *testing.T) {
	svc, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	token, tokenString, err := svc.Issue(context.Background(), "video-1", "user-1", testDevice())
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	decoded, err := svc.Decode(tokenString)
	require.NoError(t, err)

	assert.Equal(t, token.VideoID, decoded.VideoID)
	assert.Equal(t, token.UserID, decoded.UserID)
	assert.Equal(t, token.SessionID, decoded.SessionID)
	assert.Equal(t, token.DeviceID, decoded.DeviceID)
	assert.Equal(t, []string{domain.PermissionStream}, decoded.Permissions)
	assert.WithinDuration(t, token.ExpiresAt, decoded.ExpiresAt, time.Second)
}

func TestTokenService_FreshSessionIDPerIssuance(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Hour)

	first, _, err := svc.Issue(context.Background(), "video-1", "user-1", testDevice())
	require.NoError(t, err)
	second, _, err := svc.Issue(context.Background(), "video-1", "user-1", testDevice())
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestTokenService_IssueRequiresIdentifiers(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Hour)

	_, _, err := svc.Issue(context.Background(), "", "user-1", testDevice())
	assert.Error(t, err)

	_, _, err = svc.Issue(context.Background(), "video-1", "", testDevice())
	assert.Error(t, err)

	_, _, err = svc.Issue(context.Background(), "video-1", "user-1", domain.DeviceInfo{})
	assert.Error(t, err)
}

func TestTokenService_DecodeRejectsGarbage(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Hour)

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Decode(input)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, "input %q", input)
	}
}

func TestTokenService_DecodeRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenService("secret-a", time.Hour)
	verifier, _ := NewTokenService("secret-b", time.Hour)

	_, tokenString, err := issuer.Issue(context.Background(), "video-1", "user-1", testDevice())
	require.NoError(t, err)

	_, err = verifier.Decode(tokenString)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

// An expired token still decodes: the pipeline's own expiry step must
// see it to report token_expired instead of invalid_token.
func TestTokenService_DecodeAcceptsExpiredToken(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Millisecond)

	token, tokenString, err := svc.Issue(context.Background(), "video-1", "user-1", testDevice())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	decoded, err := svc.Decode(tokenString)
	require.NoError(t, err)
	assert.Equal(t, token.SessionID, decoded.SessionID)
	assert.True(t, decoded.Expired(time.Now()))
}
