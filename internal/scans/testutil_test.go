package scans

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "scans.db")
}

func newScan(code string) ScanEvent {
	return ScanEvent{
		ID:         uuid.New(),
		Code:       code,
		VenueID:    "venue-1",
		EntranceID: "north",
		DeviceID:   "device-1",
		Result:     ResultOfflineQueued,
		ScannedAt:  time.Date(2026, 6, 1, 20, 15, 30, 123456789, time.UTC),
	}
}

func ids(events []ScanEvent) []uuid.UUID {
	out := make([]uuid.UUID, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

// stubStore is an in-memory Store whose operations can be made to fail
type stubStore struct {
	events []ScanEvent

	InsertErr    error
	DeleteErr    error
	DeleteAllErr error
	ListErr      error
	inserts      int
}

func (s *stubStore) Insert(ctx context.Context, ev ScanEvent) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.inserts++
	s.events = append(s.events, ev)
	return nil
}

func (s *stubStore) Delete(ctx context.Context, del []uuid.UUID) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	drop := make(map[uuid.UUID]bool, len(del))
	for _, id := range del {
		drop[id] = true
	}
	kept := s.events[:0]
	for _, ev := range s.events {
		if !drop[ev.ID] {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	return nil
}

func (s *stubStore) DeleteAll(ctx context.Context) error {
	if s.DeleteAllErr != nil {
		return s.DeleteAllErr
	}
	s.events = nil
	return nil
}

func (s *stubStore) List(ctx context.Context) ([]ScanEvent, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]ScanEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}
