package reservations

import (
	"context"
	"fmt"
	"time"

	"venuepass/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ExpiryScheduler tracks payment deadlines for pending holds
type ExpiryScheduler interface {
	Schedule(ctx context.Context, id uuid.UUID, deadline time.Time) error
	Cancel(ctx context.Context, id uuid.UUID) error
	// Due removes and returns up to limit holds whose deadline is at or before now
	Due(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// popDue atomically claims due members so two sweepers never expire the same hold
var popDue = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids > 0 then
	redis.call('ZREM', KEYS[1], unpack(ids))
end
return ids
`)

// RedisExpiryScheduler keeps deadlines in a sorted set scored by unix millis
type RedisExpiryScheduler struct {
	client *redis.Client
	key    string
}

func NewRedisExpiryScheduler(client *redis.Client) *RedisExpiryScheduler {
	return &RedisExpiryScheduler{
		client: client,
		key:    constants.KEY_RESERVATION_HOLD_DEADLINES,
	}
}

// PreloadScripts loads the pop script at startup
func (s *RedisExpiryScheduler) PreloadScripts(ctx context.Context) error {
	if err := popDue.Load(ctx, s.client).Err(); err != nil {
		return fmt.Errorf("failed to load expiry script: %w", err)
	}
	return nil
}

func (s *RedisExpiryScheduler) Schedule(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	return s.client.ZAdd(ctx, s.key, redis.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: id.String(),
	}).Err()
}

func (s *RedisExpiryScheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.client.ZRem(ctx, s.key, id.String()).Err()
}

func (s *RedisExpiryScheduler) Due(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return nil, nil
	}

	members, err := popDue.Run(ctx, s.client, []string{s.key}, now.UnixMilli(), limit).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to pop due holds: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
