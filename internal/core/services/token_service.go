package services

import (
	"context"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the wire form of a domain.AccessToken.
type AccessClaims struct {
	VideoID     string   `json:"video_id"`
	DeviceID    string   `json:"device_id"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

type tokenService struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewTokenService creates the access token issuer. Issuance is
// unconditional so tokens can be pre-staged; the validator rejects
// expired subscriptions later.
func NewTokenService(secret string, tokenTTL time.Duration) (ports.TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySigningSecret
	}
	if tokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be > 0, got %v", tokenTTL)
	}
	return &tokenService{secret: []byte(secret), tokenTTL: tokenTTL}, nil
}

func (s *tokenService) Issue(ctx context.Context, videoID domain.VideoID, userID domain.UserID, device domain.DeviceInfo) (*domain.AccessToken, string, error) {
	if videoID == "" || userID == "" || device.DeviceID == "" {
		return nil, "", fmt.Errorf("video id, user id and device id are required")
	}

	now := time.Now()
	token := &domain.AccessToken{
		VideoID:     videoID,
		UserID:      userID,
		SessionID:   domain.SessionID(utils.GenerateSessionID()),
		DeviceID:    device.DeviceID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.tokenTTL),
		Permissions: []string{domain.PermissionStream},
	}

	claims := &AccessClaims{
		VideoID:     string(token.VideoID),
		DeviceID:    string(token.DeviceID),
		Permissions: token.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(token.UserID),
			ID:        string(token.SessionID),
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
			NotBefore: jwt.NewNumericDate(token.IssuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return token, signed, nil
}

// Decode verifies the token signature and reconstructs the access
// token. Expiry is deliberately NOT checked here: the admission
// pipeline runs its own expiry step so an expired token is reported as
// token_expired rather than invalid_token.
func (s *tokenService) Decode(tokenString string) (*domain.AccessToken, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &AccessClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.AccessToken{
		VideoID:     domain.VideoID(claims.VideoID),
		UserID:      domain.UserID(claims.Subject),
		SessionID:   domain.SessionID(claims.ID),
		DeviceID:    domain.DeviceID(claims.DeviceID),
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
		Permissions: claims.Permissions,
	}, nil
}
