package scans

import (
	"context"
	"errors"
	"sync"
	"time"

	"venuepass/pkg/logger"

	"github.com/google/uuid"
)

// HistorySize is how many recent scans a station keeps for display
const HistorySize = 50

var ErrNotBound = errors.New("device is not bound to a staff member")

// ScanInput is what the scanning UI hands over for one attempt
type ScanInput struct {
	Code       string
	VenueID    string
	EntranceID string
	Result     Result
	GuestName  string
	PartySize  int
}

// Station is the staff-facing side of one scanning device. Only scans that
// could not be verified online are queued for upload.
type Station struct {
	deviceID string
	cache    *OfflineCache
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	binding *DeviceBinding
	history []ScanEvent
}

// NewStation creates a station for deviceID backed by cache
func NewStation(deviceID string, cache *OfflineCache) *Station {
	return &Station{
		deviceID: deviceID,
		cache:    cache,
		log:      logger.GetDefault().WithDeviceID(deviceID),
		now:      time.Now,
	}
}

// Bind assigns the device to a staff member at a venue, replacing any
// previous binding
func (s *Station) Bind(staffUserID, venueID string) DeviceBinding {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := DeviceBinding{
		DeviceID:    s.deviceID,
		StaffUserID: staffUserID,
		VenueID:     venueID,
		BoundAt:     s.now().UTC(),
	}
	s.binding = &b
	return b
}

// Binding returns the current binding, if any
func (s *Station) Binding() (DeviceBinding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.binding == nil {
		return DeviceBinding{}, false
	}
	return *s.binding, true
}

// RecordScan stamps a new scan event and adds it to the history. An
// OFFLINE_QUEUED scan is also written to the offline queue; if that write
// fails the scan is not recorded at all.
func (s *Station) RecordScan(ctx context.Context, in ScanInput) (ScanEvent, error) {
	s.mu.Lock()
	binding := s.binding
	s.mu.Unlock()
	if binding == nil {
		return ScanEvent{}, ErrNotBound
	}

	venueID := in.VenueID
	if venueID == "" {
		venueID = binding.VenueID
	}

	ev := ScanEvent{
		ID:         uuid.New(),
		Code:       in.Code,
		VenueID:    venueID,
		EntranceID: in.EntranceID,
		DeviceID:   s.deviceID,
		Result:     in.Result,
		ScannedAt:  s.now().UTC(),
		GuestName:  in.GuestName,
		PartySize:  in.PartySize,
	}
	if err := ev.Validate(); err != nil {
		return ScanEvent{}, err
	}

	if ev.Result == ResultOfflineQueued {
		if err := s.cache.Record(ctx, ev); err != nil {
			return ScanEvent{}, err
		}
		s.log.LogScanQueued(ctx, ev.ID.String(), ev.EntranceID, ev.Result.String())
	}

	s.mu.Lock()
	s.history = append([]ScanEvent{ev}, s.history...)
	if len(s.history) > HistorySize {
		s.history = s.history[:HistorySize]
	}
	s.mu.Unlock()

	return ev, nil
}

// History returns recent scans, newest first
func (s *Station) History() []ScanEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScanEvent, len(s.history))
	copy(out, s.history)
	return out
}
