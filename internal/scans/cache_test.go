package scans

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflineCache_RecordAndPending(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, openTestStore(t, tempStorePath(t)))
	require.NoError(t, err)

	a, b := newScan("A"), newScan("B")
	require.NoError(t, cache.Record(ctx, a))
	require.NoError(t, cache.Record(ctx, b))
	require.NoError(t, cache.Record(ctx, a))

	pending := cache.Pending()
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(pending))
	assert.Equal(t, 2, cache.Len())

	pending[0].Code = "mutated"
	assert.Equal(t, "A", cache.Pending()[0].Code)
}

func TestOfflineCache_RejectsInvalidScan(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{}
	cache, err := OpenCache(ctx, store)
	require.NoError(t, err)

	ev := newScan("A")
	ev.ID = uuid.Nil
	assert.ErrorIs(t, cache.Record(ctx, ev), ErrInvalidScan)

	ev = newScan("A")
	ev.Result = "MAYBE"
	assert.ErrorIs(t, cache.Record(ctx, ev), ErrInvalidScan)
	assert.Zero(t, store.inserts)
}

func TestOfflineCache_ReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	path := tempStorePath(t)

	first, err := OpenSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	cache, err := OpenCache(ctx, first)
	require.NoError(t, err)

	events := []ScanEvent{newScan("1"), newScan("2"), newScan("3")}
	for _, ev := range events {
		require.NoError(t, cache.Record(ctx, ev))
	}
	require.NoError(t, cache.Remove(ctx, []uuid.UUID{events[1].ID}))
	require.NoError(t, first.Close())

	reopened, err := OpenCache(ctx, openTestStore(t, path))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{events[0].ID, events[2].ID}, ids(reopened.Pending()))
}

func TestOfflineCache_RemoveIgnoresUnknownIDs(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{}
	cache, err := OpenCache(ctx, store)
	require.NoError(t, err)

	ev := newScan("A")
	require.NoError(t, cache.Record(ctx, ev))

	store.DeleteErr = errors.New("should not be called")
	assert.NoError(t, cache.Remove(ctx, []uuid.UUID{uuid.New()}))
	assert.NoError(t, cache.Remove(ctx, nil))
	assert.Equal(t, 1, cache.Len())
}

func TestOfflineCache_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, tempStorePath(t))
	cache, err := OpenCache(ctx, store)
	require.NoError(t, err)

	require.NoError(t, cache.Record(ctx, newScan("A")))
	require.NoError(t, cache.Record(ctx, newScan("B")))
	require.NoError(t, cache.ClearAll(ctx))
	assert.Empty(t, cache.Pending())

	onDisk, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, onDisk)

	ev := newScan("C")
	require.NoError(t, cache.Record(ctx, ev))
	assert.Equal(t, []uuid.UUID{ev.ID}, ids(cache.Pending()))
}

func TestOfflineCache_StorageFailuresLeaveMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")

	t.Run("insert", func(t *testing.T) {
		cache, err := OpenCache(ctx, &stubStore{InsertErr: boom})
		require.NoError(t, err)

		err = cache.Record(ctx, newScan("A"))
		assert.ErrorIs(t, err, ErrStorage)
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, cache.Len())
	})

	t.Run("delete", func(t *testing.T) {
		store := &stubStore{}
		cache, err := OpenCache(ctx, store)
		require.NoError(t, err)
		ev := newScan("A")
		require.NoError(t, cache.Record(ctx, ev))

		store.DeleteErr = boom
		err = cache.Remove(ctx, []uuid.UUID{ev.ID})
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "delete", storageErr.Op)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("clear", func(t *testing.T) {
		store := &stubStore{}
		cache, err := OpenCache(ctx, store)
		require.NoError(t, err)
		require.NoError(t, cache.Record(ctx, newScan("A")))

		store.DeleteAllErr = boom
		assert.ErrorIs(t, cache.ClearAll(ctx), ErrStorage)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("load", func(t *testing.T) {
		_, err := OpenCache(ctx, &stubStore{ListErr: boom})
		assert.ErrorIs(t, err, ErrStorage)
	})
}

func TestOfflineCache_ConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, openTestStore(t, tempStorePath(t)))
	require.NoError(t, err)

	shared := newScan("shared")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Record(ctx, newScan("own")))
			assert.NoError(t, cache.Record(ctx, shared))
			_ = cache.Pending()
		}()
	}
	wg.Wait()

	assert.Equal(t, 21, cache.Len())
}
