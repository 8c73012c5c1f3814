package services

import (
	"context"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"go.uber.org/zap"
)

// MetricsRecorder receives admission and session accounting events.
// Implemented by the prometheus collector; a nil recorder disables
// instrumentation.
type MetricsRecorder interface {
	RecordValidation(valid bool, reason domain.RejectionReason)
	RecordValidationDuration(d time.Duration)
	RecordGeolocationFallback()
	RecordSessionsEnded(cause string, count int)
	RecordSweepDuration(d time.Duration)
	RecordSignedURL()
	RecordHeartbeat()
	SetActiveSessions(n int)
}

// ValidatorConfig selects and parameterizes the pipeline steps.
type ValidatorConfig struct {
	EnableGeoblocking   bool
	GeoFailClosed       bool
	EnableDeviceBinding bool
	DeviceBindingCap    int
}

type accessValidator struct {
	checks  []Check
	metrics MetricsRecorder
	logger  *zap.SugaredLogger
}

// NewAccessValidator assembles the admission pipeline. Steps run
// strictly in the order assembled here; feature flags decide whether
// the geofence and device binding steps are present at all, keeping
// flag branching out of the pipeline itself.
func NewAccessValidator(
	cfg ValidatorConfig,
	tokens ports.TokenService,
	subscriptions ports.SubscriptionStore,
	catalog ports.VideoCatalog,
	resolver ports.GeolocationResolver,
	devices ports.DeviceBindingRepository,
	sessions ports.SessionRepository,
	metrics MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.AccessValidator {
	checks := []Check{
		&signatureCheck{tokens: tokens},
		&expiryCheck{},
		&subscriptionCheck{subscriptions: subscriptions, catalog: catalog},
	}
	if cfg.EnableGeoblocking {
		checks = append(checks, &geofenceCheck{resolver: resolver, failClosed: cfg.GeoFailClosed})
	}
	if cfg.EnableDeviceBinding {
		checks = append(checks, &deviceCheck{devices: devices, cap: cfg.DeviceBindingCap})
	}
	checks = append(checks, &concurrencyCheck{sessions: sessions})

	return &accessValidator{
		checks:  checks,
		metrics: metrics,
		logger:  logger,
	}
}

func (v *accessValidator) Validate(ctx context.Context, tokenString string, videoID domain.VideoID, device domain.DeviceInfo, clientIP string) (*domain.ValidationResult, *domain.AccessToken, error) {
	start := time.Now()
	defer func() {
		if v.metrics != nil {
			v.metrics.RecordValidationDuration(time.Since(start))
		}
	}()

	req := &CheckRequest{
		Now:         time.Now(),
		TokenString: tokenString,
		VideoID:     videoID,
		Device:      device,
		ClientIP:    clientIP,
		Geolocation: domain.DefaultGeolocation(),
	}

	for _, check := range v.checks {
		reason, err := check.Run(ctx, req)
		if err != nil {
			v.logger.Errorw("admission check failed",
				"check", check.Name(),
				"video_id", videoID,
				"error", err,
			)
			return nil, nil, err
		}
		if reason != domain.ReasonNone {
			v.logger.Infow("playback rejected",
				"check", check.Name(),
				"reason", reason,
				"video_id", videoID,
			)
			v.recordValidation(false, reason)
			return domain.Rejection(reason, req.Restrictions), req.Token, nil
		}
	}

	for _, r := range req.Restrictions {
		if r == domain.RestrictionGeolocationUnresolved {
			v.logger.Warnw("admitting with unresolved geolocation",
				"client_ip", clientIP,
				"user_id", req.Token.UserID,
			)
			if v.metrics != nil {
				v.metrics.RecordGeolocationFallback()
			}
		}
	}

	v.recordValidation(true, domain.ReasonNone)
	return &domain.ValidationResult{
		Valid:           true,
		AllowedDuration: req.Token.ExpiresAt.Sub(req.Now),
		Restrictions:    req.Restrictions,
	}, req.Token, nil
}

func (v *accessValidator) recordValidation(valid bool, reason domain.RejectionReason) {
	if v.metrics != nil {
		v.metrics.RecordValidation(valid, reason)
	}
}
