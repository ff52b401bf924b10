package reservations

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrStateConflict       = errors.New("reservation state changed concurrently")
	ErrNoTransition        = errors.New("no transition for event in current state")
	ErrHoldExpired         = errors.New("hold expired before payment was captured")
	ErrNotCancellable      = errors.New("reservation can no longer be cancelled")
	ErrNotOwner            = errors.New("reservation does not belong to user")
	ErrPartyTooLarge       = errors.New("party size exceeds the allowed maximum")
	ErrNothingToPromote    = errors.New("no waitlisted reservation fits the freed capacity")
)

// TransitionError reports an event the reservation protocol has no edge for.
// Duplicate is set when the reservation already sits in a state that event
// leads to, i.e. the event was delivered twice.
type TransitionError struct {
	ReservationID uuid.UUID
	State         State
	Event         Event
	Duplicate     bool
}

func (e *TransitionError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("reservation %s already %s: duplicate %s", e.ReservationID, e.State, e.Event)
	}
	return fmt.Sprintf("reservation %s: no transition from %s on %s", e.ReservationID, e.State, e.Event)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrNoTransition
}
