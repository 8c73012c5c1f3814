package redis

import (
	"context"
	"fmt"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const devicesKeyPrefix = "streamgate:devices:"

// bindScript enforces the binding cap atomically: membership check,
// cap check and insert run as one script.
var bindScript = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
	return 1
end
if redis.call("SCARD", KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call("SADD", KEYS[1], ARGV[1])
return 1
`)

type RedisDeviceRepository struct {
	client *redis.Client
}

func NewRedisDeviceRepository(client *redis.Client) ports.DeviceBindingRepository {
	return &RedisDeviceRepository{client: client}
}

func devicesKey(userID domain.UserID) string {
	return devicesKeyPrefix + string(userID)
}

func (r *RedisDeviceRepository) Bind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, cap int) error {
	result, err := bindScript.Run(ctx, r.client,
		[]string{devicesKey(userID)},
		string(deviceID), cap,
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to bind device: %w", err)
	}
	if result == 0 {
		return domain.ErrDeviceLimitReached
	}
	return nil
}

func (r *RedisDeviceRepository) Unbind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error {
	if err := r.client.SRem(ctx, devicesKey(userID), string(deviceID)).Err(); err != nil {
		return fmt.Errorf("failed to unbind device: %w", err)
	}
	return nil
}

func (r *RedisDeviceRepository) ListBound(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error) {
	members, err := r.client.SMembers(ctx, devicesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bound devices: %w", err)
	}

	ids := make([]domain.DeviceID, 0, len(members))
	for _, m := range members {
		ids = append(ids, domain.DeviceID(m))
	}
	return ids, nil
}
