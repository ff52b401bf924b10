package scans

import (
	"context"
	"errors"
	"time"

	"venuepass/pkg/logger"

	"github.com/google/uuid"
)

// Remote accepts queued scans upstream. It returns the ids it durably
// accepted, which may be a subset of events even when err is nil.
type Remote interface {
	Submit(ctx context.Context, events []ScanEvent) ([]uuid.UUID, error)
}

// RemoteFunc adapts a function to Remote
type RemoteFunc func(ctx context.Context, events []ScanEvent) ([]uuid.UUID, error)

func (f RemoteFunc) Submit(ctx context.Context, events []ScanEvent) ([]uuid.UUID, error) {
	return f(ctx, events)
}

// FlushResult summarises one drain
type FlushResult struct {
	Attempted int
	Confirmed int
}

// Drainer uploads the offline queue and removes what the remote confirmed
type Drainer struct {
	cache  *OfflineCache
	remote Remote
	log    *logger.Logger
}

func NewDrainer(cache *OfflineCache, remote Remote) *Drainer {
	return &Drainer{
		cache:  cache,
		remote: remote,
		log:    logger.GetDefault(),
	}
}

// Flush submits every pending scan once. Confirmed ids are removed even when
// the remote also reports a failure; everything else stays queued.
func (d *Drainer) Flush(ctx context.Context) (FlushResult, error) {
	pending := d.cache.Pending()
	if len(pending) == 0 {
		return FlushResult{}, nil
	}

	result := FlushResult{Attempted: len(pending)}
	confirmed, submitErr := d.remote.Submit(ctx, pending)

	if len(confirmed) > 0 {
		if err := d.cache.Remove(ctx, confirmed); err != nil {
			err = errors.Join(submitErr, err)
			d.log.LogScanSync(ctx, result.Attempted, 0, err)
			return result, err
		}
		result.Confirmed = countSubmitted(pending, confirmed)
	}

	d.log.LogScanSync(ctx, result.Attempted, result.Confirmed, submitErr)
	return result, submitErr
}

// countSubmitted counts the distinct confirmed ids that were actually submitted
func countSubmitted(submitted []ScanEvent, confirmed []uuid.UUID) int {
	sent := make(map[uuid.UUID]struct{}, len(submitted))
	for _, ev := range submitted {
		sent[ev.ID] = struct{}{}
	}
	n := 0
	for _, id := range confirmed {
		if _, ok := sent[id]; ok {
			n++
			delete(sent, id)
		}
	}
	return n
}

// Run flushes every interval until ctx is cancelled
func (d *Drainer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failures are logged by Flush and retried next tick
			_, _ = d.Flush(ctx)
		}
	}
}

// Start runs the drainer in the background. The returned stop cancels the
// loop and blocks until any in-flight flush has returned.
func (d *Drainer) Start(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, interval)
	}()
	return func() {
		cancel()
		<-done
	}
}
