package services

import (
	"context"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/tracing"
	"streamgate/pkg/utils"

	"go.uber.org/zap"
)

type sessionService struct {
	sessions         ports.SessionRepository
	idleTimeout      time.Duration
	reservationGrace time.Duration
	metrics          MetricsRecorder
	logger           *zap.SugaredLogger
}

// NewSessionService manages the session lifecycle on top of the
// registry: committing reserved slots to active sessions, heartbeats,
// teardown and the sweep.
func NewSessionService(
	sessions ports.SessionRepository,
	idleTimeout time.Duration,
	reservationGrace time.Duration,
	metrics MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.SessionService {
	return &sessionService{
		sessions:         sessions,
		idleTimeout:      idleTimeout,
		reservationGrace: reservationGrace,
		metrics:          metrics,
		logger:           logger,
	}
}

// Start commits the slot the validator reserved under the token's
// session id. A missing reservation means validation never succeeded
// or the sweep already reclaimed it.
func (s *sessionService) Start(ctx context.Context, token *domain.AccessToken) (*domain.StreamSession, error) {
	if token == nil {
		return nil, domain.ErrTokenInvalid
	}
	ctx, span := tracing.TraceSessionOperation(ctx, "start", string(token.SessionID))
	defer span.End()
	if token.Expired(time.Now()) {
		return nil, domain.ErrTokenExpired
	}

	if err := s.sessions.Commit(ctx, token.SessionID); err != nil {
		err = fmt.Errorf("failed to commit session %s: %w", token.SessionID, err)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	session, err := s.sessions.Get(ctx, token.SessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("stream session started",
		"session_id", session.SessionID,
		"user_id", session.UserID,
		"video_id", session.VideoID,
		"device_id", utils.MaskSensitive(string(session.DeviceID), 4),
		"region", session.Region,
	)
	return session, nil
}

func (s *sessionService) Heartbeat(ctx context.Context, sessionID domain.SessionID) error {
	ctx, span := tracing.TraceSessionOperation(ctx, "heartbeat", string(sessionID))
	defer span.End()

	if err := s.sessions.Touch(ctx, sessionID, time.Now()); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordHeartbeat()
	}
	return nil
}

// End is idempotent: ending an already-ended or unknown session is a
// no-op, not an error.
func (s *sessionService) End(ctx context.Context, sessionID domain.SessionID) error {
	ctx, span := tracing.TraceSessionOperation(ctx, "end", string(sessionID))
	defer span.End()

	if err := s.sessions.End(ctx, sessionID); err != nil {
		err = fmt.Errorf("failed to end session %s: %w", sessionID, err)
		tracing.RecordError(ctx, err)
		return err
	}
	s.logger.Debugw("stream session ended", "session_id", sessionID)
	return nil
}

func (s *sessionService) ActiveSessions(ctx context.Context, userID domain.UserID) ([]*domain.StreamSession, error) {
	return s.sessions.ListActiveByUser(ctx, userID)
}

// Sweep reclaims sessions in three classes: requested reservations
// never committed within the grace window, active sessions idle past
// the idle timeout, and sessions whose parent token has expired.
func (s *sessionService) Sweep(ctx context.Context) error {
	start := time.Now()

	live, err := s.sessions.ListLive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list live sessions: %w", err)
	}

	ended := map[string]int{}
	active := 0
	for _, session := range live {
		cause := s.sweepCause(session, start)
		if cause == "" {
			if session.Status == domain.SessionActive {
				active++
			}
			continue
		}

		if err := s.sessions.End(ctx, session.SessionID); err != nil {
			s.logger.Warnw("sweep failed to end session",
				"session_id", session.SessionID,
				"cause", cause,
				"error", err,
			)
			continue
		}
		ended[cause]++
	}

	if s.metrics != nil {
		for cause, count := range ended {
			s.metrics.RecordSessionsEnded(cause, count)
		}
		s.metrics.SetActiveSessions(active)
		s.metrics.RecordSweepDuration(time.Since(start))
	}

	if len(ended) > 0 {
		s.logger.Infow("sweep reclaimed sessions",
			"ended", ended,
			"active", active,
			"duration", time.Since(start),
		)
	}
	return nil
}

func (s *sessionService) sweepCause(session *domain.StreamSession, now time.Time) string {
	switch session.Status {
	case domain.SessionRequested:
		if now.Sub(session.StartTime) > s.reservationGrace {
			return "abandoned_reservation"
		}
	case domain.SessionActive:
		if !session.TokenExpiresAt.IsZero() && !now.Before(session.TokenExpiresAt) {
			return "token_expired"
		}
		if session.Idle(now, s.idleTimeout) {
			return "idle_timeout"
		}
	}
	return ""
}
