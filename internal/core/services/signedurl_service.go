package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

type signedURLService struct {
	signer  *Signer
	baseURL string
	metrics MetricsRecorder
}

// NewSignedURLService mints short-lived playback URLs for validated
// tokens. baseURL points at the CDN/storage origin serving manifests.
func NewSignedURLService(signer *Signer, baseURL string, metrics MetricsRecorder) (ports.SignedURLService, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("playback base url is required")
	}
	return &signedURLService{
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
	}, nil
}

func (s *signedURLService) Generate(token *domain.AccessToken, ttl time.Duration) (*domain.SignedURL, error) {
	if token == nil {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now()
	if token.Expired(now) {
		return nil, domain.ErrTokenExpired
	}
	if !token.HasPermission(domain.PermissionStream) {
		return nil, domain.ErrTokenInvalid
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("signed url ttl must be > 0, got %v", ttl)
	}

	// The URL may never outlive its parent token.
	expiresAt := now.Add(ttl)
	if expiresAt.After(token.ExpiresAt) {
		expiresAt = token.ExpiresAt
	}

	payload := map[string]string{
		"video":   string(token.VideoID),
		"session": string(token.SessionID),
		"user":    string(token.UserID),
		"expires": strconv.FormatInt(expiresAt.Unix(), 10),
	}
	signature := s.signer.Sign(payload)

	url := fmt.Sprintf("%s/videos/%s/manifest.m3u8?%s&sig=%s",
		s.baseURL, token.VideoID, Canonicalize(payload), signature)

	if s.metrics != nil {
		s.metrics.RecordSignedURL()
	}
	return &domain.SignedURL{
		URL:       url,
		ExpiresAt: expiresAt,
		Signature: signature,
	}, nil
}
