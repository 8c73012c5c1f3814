package services

import (
	"context"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/tracing"
)

type accessService struct {
	tokens    ports.TokenService
	validator ports.AccessValidator
}

// NewAccessService is the single admission entry point: it issues a
// fresh token and immediately runs it through the validation pipeline.
// Issuance never fails for authorization reasons; the result carries
// any rejection.
func NewAccessService(tokens ports.TokenService, validator ports.AccessValidator) ports.AccessService {
	return &accessService{tokens: tokens, validator: validator}
}

func (s *accessService) IssueAndValidate(ctx context.Context, videoID domain.VideoID, userID domain.UserID, device domain.DeviceInfo, clientIP string) (string, *domain.AccessToken, *domain.ValidationResult, error) {
	ctx, span := tracing.TraceValidation(ctx, string(videoID), string(userID))
	defer span.End()
	start := time.Now()
	defer func() { tracing.MeasureDuration(ctx, start, "access.issue_and_validate") }()

	token, tokenString, err := s.tokens.Issue(ctx, videoID, userID, device)
	if err != nil {
		err = fmt.Errorf("failed to issue access token: %w", err)
		tracing.RecordError(ctx, err)
		return "", nil, nil, err
	}

	result, _, err := s.validator.Validate(ctx, tokenString, videoID, device, clientIP)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", nil, nil, err
	}
	if !result.Valid {
		tracing.AddSpanAttributes(ctx, tracing.ReasonKey.String(string(result.Reason)))
	}

	return tokenString, token, result, nil
}
