package scans

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome shown to staff for one scan attempt
type Result string

const (
	ResultSuccess       Result = "SUCCESS"
	ResultDuplicate     Result = "DUPLICATE"
	ResultInvalid       Result = "INVALID"
	ResultOfflineQueued Result = "OFFLINE_QUEUED"
)

// IsValid checks if the result is known
func (r Result) IsValid() bool {
	switch r {
	case ResultSuccess, ResultDuplicate, ResultInvalid, ResultOfflineQueued:
		return true
	}
	return false
}

func (r Result) String() string {
	return string(r)
}

var ErrInvalidScan = errors.New("invalid scan event")

// ScanEvent is one entry attempt at a venue. It never changes after creation.
type ScanEvent struct {
	ID         uuid.UUID `cbor:"id" json:"id"`
	Code       string    `cbor:"code" json:"code"`
	VenueID    string    `cbor:"venue_id" json:"venue_id"`
	EntranceID string    `cbor:"entrance_id" json:"entrance_id"`
	DeviceID   string    `cbor:"device_id" json:"device_id"`
	Result     Result    `cbor:"result" json:"result"`
	ScannedAt  time.Time `cbor:"scanned_at" json:"scanned_at"`
	GuestName  string    `cbor:"guest_name,omitempty" json:"guest_name,omitempty"`
	PartySize  int       `cbor:"party_size,omitempty" json:"party_size,omitempty"`
}

// Validate checks the fields the queue relies on
func (e ScanEvent) Validate() error {
	switch {
	case e.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidScan)
	case !e.Result.IsValid():
		return fmt.Errorf("%w: unknown result %q", ErrInvalidScan, e.Result)
	case e.PartySize < 0:
		return fmt.Errorf("%w: negative party size", ErrInvalidScan)
	}
	return nil
}

// DeviceBinding ties a scanning device to the staff member operating it
type DeviceBinding struct {
	DeviceID    string    `json:"device_id"`
	StaffUserID string    `json:"staff_user_id"`
	VenueID     string    `json:"venue_id"`
	BoundAt     time.Time `json:"bound_at"`
}
