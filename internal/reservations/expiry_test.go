package reservations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*RedisExpiryScheduler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisExpiryScheduler(client), mr
}

func TestRedisExpiryScheduler_DuePopsOnlyPastDeadlines(t *testing.T) {
	scheduler, _ := newTestScheduler(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	early, onTime, late := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, scheduler.Schedule(ctx, early, now.Add(-time.Minute)))
	require.NoError(t, scheduler.Schedule(ctx, onTime, now))
	require.NoError(t, scheduler.Schedule(ctx, late, now.Add(time.Minute)))

	due, err := scheduler.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{early, onTime}, due)

	// popped members are gone
	due, err = scheduler.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = scheduler.Due(ctx, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{late}, due)
}

func TestRedisExpiryScheduler_DueRespectsLimit(t *testing.T) {
	scheduler, mr := newTestScheduler(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, scheduler.Schedule(ctx, uuid.New(), now.Add(-time.Duration(i)*time.Second)))
	}

	due, err := scheduler.Due(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, due, 3)

	left, err := mr.ZMembers(scheduler.key)
	require.NoError(t, err)
	assert.Len(t, left, 2)

	due, err = scheduler.Due(ctx, now, 0)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestRedisExpiryScheduler_CancelAndReschedule(t *testing.T) {
	scheduler, _ := newTestScheduler(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	id := uuid.New()
	require.NoError(t, scheduler.Schedule(ctx, id, now.Add(-time.Minute)))
	require.NoError(t, scheduler.Cancel(ctx, id))

	due, err := scheduler.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// scheduling twice keeps a single entry with the latest deadline
	require.NoError(t, scheduler.Schedule(ctx, id, now.Add(-time.Minute)))
	require.NoError(t, scheduler.Schedule(ctx, id, now.Add(time.Hour)))
	due, err = scheduler.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// cancelling an unknown id is not an error
	assert.NoError(t, scheduler.Cancel(ctx, uuid.New()))
}

func TestRedisExpiryScheduler_PreloadScripts(t *testing.T) {
	scheduler, _ := newTestScheduler(t)
	assert.NoError(t, scheduler.PreloadScripts(context.Background()))
}
