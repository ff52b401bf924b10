package scans

import (
	"context"

	"github.com/google/uuid"
)

// Store is the durable side of the offline queue. Implementations must make
// every completed Insert survive a crash.
type Store interface {
	// Insert persists ev. Inserting an id that is already stored is a no-op.
	Insert(ctx context.Context, ev ScanEvent) error
	Delete(ctx context.Context, ids []uuid.UUID) error
	DeleteAll(ctx context.Context) error
	// List returns every stored event in insertion order
	List(ctx context.Context) ([]ScanEvent, error)
}
