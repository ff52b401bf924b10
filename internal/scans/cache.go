package scans

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// OfflineCache is the queue of scans waiting for upload. Every accepted scan
// is written to the store before it becomes visible in memory, so nothing
// acknowledged to staff is lost if the process dies.
//
// The cache never evicts. Scans leave only through Remove or ClearAll.
type OfflineCache struct {
	mu     sync.RWMutex
	store  Store
	events []ScanEvent
	ids    map[uuid.UUID]struct{}
}

// OpenCache loads whatever the store already holds, in insertion order
func OpenCache(ctx context.Context, store Store) (*OfflineCache, error) {
	stored, err := store.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	c := &OfflineCache{
		store: store,
		ids:   make(map[uuid.UUID]struct{}, len(stored)),
	}
	for _, ev := range stored {
		if _, seen := c.ids[ev.ID]; seen {
			continue
		}
		c.ids[ev.ID] = struct{}{}
		c.events = append(c.events, ev)
	}
	return c, nil
}

// Record queues ev. Recording an id that is already queued is a no-op.
func (c *OfflineCache) Record(ctx context.Context, ev ScanEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ids[ev.ID]; exists {
		return nil
	}
	if err := c.store.Insert(ctx, ev); err != nil {
		return &StorageError{Op: "insert", Err: err}
	}
	c.ids[ev.ID] = struct{}{}
	c.events = append(c.events, ev)
	return nil
}

// Pending returns a snapshot of the queue, oldest first
func (c *OfflineCache) Pending() []ScanEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ScanEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of queued scans
func (c *OfflineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Remove drops the given ids from the queue. Unknown ids are ignored.
func (c *OfflineCache) Remove(ctx context.Context, ids []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	known := make([]uuid.UUID, 0, len(ids))
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.ids[id]; !ok {
			continue
		}
		if _, dup := drop[id]; dup {
			continue
		}
		drop[id] = struct{}{}
		known = append(known, id)
	}
	if len(known) == 0 {
		return nil
	}

	if err := c.store.Delete(ctx, known); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}

	kept := c.events[:0]
	for _, ev := range c.events {
		if _, ok := drop[ev.ID]; ok {
			delete(c.ids, ev.ID)
			continue
		}
		kept = append(kept, ev)
	}
	c.events = kept
	return nil
}

// ClearAll empties the queue
func (c *OfflineCache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteAll(ctx); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	c.events = nil
	c.ids = make(map[uuid.UUID]struct{})
	return nil
}
