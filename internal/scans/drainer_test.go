package scans

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededCache(t *testing.T, n int) (*OfflineCache, []ScanEvent) {
	t.Helper()
	ctx := context.Background()
	cache, err := OpenCache(ctx, openTestStore(t, tempStorePath(t)))
	require.NoError(t, err)

	events := make([]ScanEvent, n)
	for i := range events {
		events[i] = newScan("code")
		require.NoError(t, cache.Record(ctx, events[i]))
	}
	return cache, events
}

func TestDrainer_FlushEmptyDoesNotCallRemote(t *testing.T) {
	cache, _ := seededCache(t, 0)
	called := false
	d := NewDrainer(cache, RemoteFunc(func(ctx context.Context, events []ScanEvent) ([]uuid.UUID, error) {
		called = true
		return nil, nil
	}))

	res, err := d.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FlushResult{}, res)
	assert.False(t, called)
}

func TestDrainer_FlushRemovesConfirmed(t *testing.T) {
	cache, events := seededCache(t, 3)
	var submitted []uuid.UUID
	d := NewDrainer(cache, RemoteFunc(func(ctx context.Context, batch []ScanEvent) ([]uuid.UUID, error) {
		submitted = ids(batch)
		return ids(batch), nil
	}))

	res, err := d.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Attempted: 3, Confirmed: 3}, res)
	assert.Equal(t, ids(events), submitted)
	assert.Zero(t, cache.Len())
}

func TestDrainer_PartialFailureKeepsUnconfirmed(t *testing.T) {
	cache, events := seededCache(t, 4)
	remoteErr := errors.New("upstream timeout")
	d := NewDrainer(cache, RemoteFunc(func(ctx context.Context, batch []ScanEvent) ([]uuid.UUID, error) {
		return []uuid.UUID{batch[0].ID, batch[2].ID, batch[0].ID, uuid.New()}, remoteErr
	}))

	res, err := d.Flush(context.Background())
	assert.ErrorIs(t, err, remoteErr)
	assert.Equal(t, FlushResult{Attempted: 4, Confirmed: 2}, res)
	assert.Equal(t, []uuid.UUID{events[1].ID, events[3].ID}, ids(cache.Pending()))
}

func TestDrainer_RemoteFailureKeepsEverything(t *testing.T) {
	cache, events := seededCache(t, 2)
	d := NewDrainer(cache, RemoteFunc(func(ctx context.Context, batch []ScanEvent) ([]uuid.UUID, error) {
		return nil, errors.New("offline")
	}))

	res, err := d.Flush(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, res.Confirmed)
	assert.Equal(t, ids(events), ids(cache.Pending()))
}

func TestDrainer_RemoveFailureIsReported(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{}
	cache, err := OpenCache(ctx, store)
	require.NoError(t, err)
	ev := newScan("A")
	require.NoError(t, cache.Record(ctx, ev))

	store.DeleteErr = errors.New("locked")
	d := NewDrainer(cache, RemoteFunc(func(ctx context.Context, batch []ScanEvent) ([]uuid.UUID, error) {
		return ids(batch), nil
	}))

	_, err = d.Flush(ctx)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 1, cache.Len())
}

func TestDrainer_RunStopsOnCancel(t *testing.T) {
	cache, _ := seededCache(t, 0)
	d := NewDrainer(cache, RemoteFunc(func(ctx context.Context, batch []ScanEvent) ([]uuid.UUID, error) {
		return ids(batch), nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	<-done
}

func TestDrainer_StopWaitsForInflightFlush(t *testing.T) {
	cache, _ := seededCache(t, 2)
	entered := make(chan struct{}, 1)
	var finished atomic.Bool
	var calls atomic.Int32
	d := NewDrainer(cache, RemoteFunc(func(ctx context.Context, batch []ScanEvent) ([]uuid.UUID, error) {
		calls.Add(1)
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
		return nil, ctx.Err()
	}))

	stop := d.Start(context.Background(), time.Millisecond)
	<-entered
	stop()
	assert.True(t, finished.Load())

	// no tick fires after stop, so a final flush has the queue to itself
	n := calls.Load()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
	assert.Equal(t, 2, cache.Len())
}
