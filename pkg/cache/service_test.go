package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestService(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client), mr
}

func TestService_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t)

	var got item
	assert.ErrorIs(t, svc.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, svc.Set(ctx, "k", item{Name: "a", Count: 2}, time.Minute))
	require.NoError(t, svc.Get(ctx, "k", &got))
	assert.Equal(t, item{Name: "a", Count: 2}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, svc.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, svc.Set(ctx, "k", item{Name: "b"}, time.Minute))
	require.NoError(t, svc.Delete(ctx, "k", "missing"))
	assert.False(t, mr.Exists("k"))
}

func TestService_GetOrSet(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return item{Name: "fresh", Count: calls}, nil
	}

	var first, second item
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, &first, fetch))
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, &second, fetch))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("k"))
}

func TestService_GetOrSetPropagatesFetchError(t *testing.T) {
	svc, mr := newTestService(t)
	boom := errors.New("db down")

	var dest item
	err := svc.GetOrSet(context.Background(), "k", time.Minute, &dest, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestService_NilClient(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil)

	var dest item
	assert.ErrorIs(t, svc.Get(ctx, "k", &dest), ErrCacheMiss)
	assert.NoError(t, svc.Set(ctx, "k", item{}, time.Minute))
	assert.NoError(t, svc.Delete(ctx, "k"))

	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, &dest, func() (interface{}, error) {
		return item{Name: "db"}, nil
	}))
	assert.Equal(t, "db", dest.Name)
}

func TestService_CorruptEntryIsNotAMiss(t *testing.T) {
	svc, mr := newTestService(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var dest item
	err := svc.Get(context.Background(), "k", &dest)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
