package scans

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_InsertAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, tempStorePath(t))

	a, b := newScan("A"), newScan("B")
	b.GuestName = "Ada"
	b.PartySize = 3
	require.NoError(t, store.Insert(ctx, a))
	require.NoError(t, store.Insert(ctx, b))

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, "B", got[1].Code)
	assert.Equal(t, "Ada", got[1].GuestName)
	assert.Equal(t, 3, got[1].PartySize)
	assert.True(t, a.ScannedAt.Equal(got[0].ScannedAt))
	assert.Equal(t, ResultOfflineQueued, got[0].Result)
}

func TestSQLiteStore_InsertIgnoresDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, tempStorePath(t))

	ev := newScan("A")
	require.NoError(t, store.Insert(ctx, ev))
	again := ev
	again.Code = "changed"
	require.NoError(t, store.Insert(ctx, again))

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Code)
}

func TestSQLiteStore_DeleteKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, tempStorePath(t))

	events := []ScanEvent{newScan("1"), newScan("2"), newScan("3"), newScan("4")}
	for _, ev := range events {
		require.NoError(t, store.Insert(ctx, ev))
	}

	require.NoError(t, store.Delete(ctx, []uuid.UUID{events[1].ID, events[3].ID, uuid.New()}))

	got, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{events[0].ID, events[2].ID}, ids(got))

	require.NoError(t, store.DeleteAll(ctx))
	got, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := tempStorePath(t)

	first, err := OpenSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	ev := newScan("persist")
	require.NoError(t, first.Insert(ctx, ev))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	got, err := second.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
}

func TestOpenSQLiteStore_RequiresPath(t *testing.T) {
	_, err := OpenSQLiteStore(SQLiteConfig{})
	assert.Error(t, err)
}
