package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "streamgate:session:"
const userSessionsKeyPrefix = "streamgate:user_sessions:"
const liveSessionsKey = "streamgate:sessions:live"

// reserveScript is the atomic count-and-reserve step. It prunes stale
// members from the user's session set (session hashes expire with
// their token), counts the live sessions, and only stores the new
// reservation when the count is below the limit. Running as one script
// on one key space makes the read and the write a single step for
// every instance of the service.
var reserveScript = redis.NewScript(`
local userKey = KEYS[1]
local sessionKey = KEYS[2]
local liveKey = KEYS[3]

local members = redis.call("SMEMBERS", userKey)
local count = 0
for _, id in ipairs(members) do
	if redis.call("EXISTS", ARGV[1] .. id) == 1 then
		count = count + 1
	else
		redis.call("SREM", userKey, id)
		redis.call("SREM", liveKey, id)
	end
end

local limit = tonumber(ARGV[2])
if count >= limit then
	return 0
end

for i = 4, #ARGV - 1, 2 do
	redis.call("HSET", sessionKey, ARGV[i], ARGV[i + 1])
end
redis.call("PEXPIRE", sessionKey, tonumber(ARGV[3]))
redis.call("SADD", userKey, redis.call("HGET", sessionKey, "session_id"))
redis.call("SADD", liveKey, redis.call("HGET", sessionKey, "session_id"))
return 1
`)

var commitScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
local status = redis.call("HGET", KEYS[1], "status")
if status == "requested" then
	redis.call("HSET", KEYS[1], "status", "active")
end
return 1
`)

// touchScript mirrors the memory backend: unknown session is an
// error, and a beat at or past token expiry never extends the
// session.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if redis.call("HGET", KEYS[1], "status") == "active" and tonumber(ARGV[1]) < tonumber(redis.call("HGET", KEYS[1], "token_expires_at")) then
	redis.call("HSET", KEYS[1], "last_activity", ARGV[1])
end
return 1
`)

var endScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	redis.call("SREM", KEYS[2], ARGV[1])
	return 0
end
local userID = redis.call("HGET", KEYS[1], "user_id")
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. userID, ARGV[1])
redis.call("SREM", KEYS[2], ARGV[1])
return 1
`)

// RedisSessionRepository is the shared session registry used when the
// authority runs as more than one instance. The atomicity contract of
// ReserveSlot holds across instances because the reservation runs as a
// single Lua script.
type RedisSessionRepository struct {
	client *redis.Client
}

func NewRedisSessionRepository(client *redis.Client) ports.SessionRepository {
	return &RedisSessionRepository{client: client}
}

func sessionKey(id domain.SessionID) string {
	return sessionKeyPrefix + string(id)
}

func userSessionsKey(userID domain.UserID) string {
	return userSessionsKeyPrefix + string(userID)
}

func (r *RedisSessionRepository) ReserveSlot(ctx context.Context, session *domain.StreamSession, limit int) error {
	ctx, span := tracing.TraceStoreOperation(ctx, "reserve", sessionKey(session.SessionID))
	defer span.End()

	ttl := time.Until(session.TokenExpiresAt) + time.Minute
	if ttl <= 0 {
		return domain.ErrTokenExpired
	}

	keys := []string{
		userSessionsKey(session.UserID),
		sessionKey(session.SessionID),
		liveSessionsKey,
	}
	args := []interface{}{
		sessionKeyPrefix,
		limit,
		ttl.Milliseconds(),
	}
	args = append(args, sessionFields(session)...)

	result, err := reserveScript.Run(ctx, r.client, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("failed to reserve stream slot: %w", err)
	}
	if result == 0 {
		return domain.ErrSlotLimitReached
	}
	return nil
}

func (r *RedisSessionRepository) Commit(ctx context.Context, id domain.SessionID) error {
	result, err := commitScript.Run(ctx, r.client, []string{sessionKey(id)}).Int64()
	if err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	if result == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.StreamSession, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return sessionFromFields(fields)
}

func (r *RedisSessionRepository) Touch(ctx context.Context, id domain.SessionID, at time.Time) error {
	result, err := touchScript.Run(ctx, r.client, []string{sessionKey(id)}, at.UnixMilli()).Int64()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if result == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *RedisSessionRepository) End(ctx context.Context, id domain.SessionID) error {
	ctx, span := tracing.TraceStoreOperation(ctx, "end", sessionKey(id))
	defer span.End()

	err := endScript.Run(ctx, r.client,
		[]string{sessionKey(id), liveSessionsKey},
		string(id), userSessionsKeyPrefix,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) ListActiveByUser(ctx context.Context, userID domain.UserID) ([]*domain.StreamSession, error) {
	ids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}

	var active []*domain.StreamSession
	for _, id := range ids {
		session, err := r.Get(ctx, domain.SessionID(id))
		if err == domain.ErrSessionNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Status == domain.SessionActive {
			active = append(active, session)
		}
	}
	return active, nil
}

func (r *RedisSessionRepository) ListLive(ctx context.Context) ([]*domain.StreamSession, error) {
	ids, err := r.client.SMembers(ctx, liveSessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list live sessions: %w", err)
	}

	var live []*domain.StreamSession
	for _, id := range ids {
		session, err := r.Get(ctx, domain.SessionID(id))
		if err == domain.ErrSessionNotFound {
			// Hash expired with its token; drop the dangling member.
			r.client.SRem(ctx, liveSessionsKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		live = append(live, session)
	}
	return live, nil
}

func sessionFields(s *domain.StreamSession) []interface{} {
	return []interface{}{
		"session_id", string(s.SessionID),
		"user_id", string(s.UserID),
		"device_id", string(s.DeviceID),
		"video_id", string(s.VideoID),
		"region", s.Region,
		"start_time", s.StartTime.UnixMilli(),
		"last_activity", s.LastActivity.UnixMilli(),
		"token_expires_at", s.TokenExpiresAt.UnixMilli(),
		"status", string(s.Status),
	}
}

func sessionFromFields(fields map[string]string) (*domain.StreamSession, error) {
	startTime, err := parseMillis(fields["start_time"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session start_time: %w", err)
	}
	lastActivity, err := parseMillis(fields["last_activity"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session last_activity: %w", err)
	}
	tokenExpiresAt, err := parseMillis(fields["token_expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session token_expires_at: %w", err)
	}

	return &domain.StreamSession{
		SessionID:      domain.SessionID(fields["session_id"]),
		UserID:         domain.UserID(fields["user_id"]),
		DeviceID:       domain.DeviceID(fields["device_id"]),
		VideoID:        domain.VideoID(fields["video_id"]),
		Region:         fields["region"],
		StartTime:      startTime,
		LastActivity:   lastActivity,
		TokenExpiresAt: tokenExpiresAt,
		Status:         domain.SessionStatus(fields["status"]),
	}, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
