package reservations

// State is the lifecycle state of a reservation
type State string

const (
	StateHoldPending  State = "HOLD_PENDING"
	StateConfirmed    State = "CONFIRMED"
	StateExpired      State = "EXPIRED"
	StateWaitlisted   State = "WAITLISTED"
	StateAutoPromoted State = "AUTO_PROMOTED"

	// Managed by the service directly, never reached through the table
	StateCancelled State = "CANCELLED"
	StateRefunded  State = "REFUNDED"
)

// Event is an external occurrence that may move a reservation to a new state
type Event string

const (
	EventPaymentCaptured  Event = "PAYMENT_CAPTURED"
	EventHoldExpired      Event = "HOLD_EXPIRED"
	EventWaitlistPromoted Event = "WAITLIST_PROMOTED"
)

type edge struct {
	from State
	on   Event
}

// transitions is the complete reservation protocol. Adding a transition is a
// one-line edit here.
var transitions = map[edge]State{
	{StateHoldPending, EventPaymentCaptured}:  StateConfirmed,
	{StateHoldPending, EventHoldExpired}:      StateExpired,
	{StateWaitlisted, EventWaitlistPromoted}:  StateAutoPromoted,
	{StateAutoPromoted, EventPaymentCaptured}: StateConfirmed,
}

// Transition returns the state reached from `from` on `ev`. ok is false when
// the pair is not part of the protocol; the caller decides whether that is a
// benign duplicate or a violation worth reporting.
func Transition(from State, ev Event) (to State, ok bool) {
	to, ok = transitions[edge{from, ev}]
	return to, ok
}

// ReachedBy reports whether ev is one of the events that leads into s. A
// reservation already in s that receives ev again is seeing a duplicate.
func ReachedBy(s State, ev Event) bool {
	for e, to := range transitions {
		if e.on == ev && to == s {
			return true
		}
	}
	return false
}

// IsValid checks if the state is known
func (s State) IsValid() bool {
	switch s {
	case StateHoldPending, StateConfirmed, StateExpired, StateWaitlisted,
		StateAutoPromoted, StateCancelled, StateRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no event can move the reservation on
func (s State) IsTerminal() bool {
	switch s {
	case StateConfirmed, StateExpired, StateCancelled, StateRefunded:
		return true
	}
	return false
}

// HoldsCapacity reports whether a reservation in this state occupies a place at the venue
func (s State) HoldsCapacity() bool {
	switch s {
	case StateHoldPending, StateConfirmed, StateAutoPromoted:
		return true
	}
	return false
}

// CanBeCancelled checks if the reservation can still be cancelled by its owner
func (s State) CanBeCancelled() bool {
	switch s {
	case StateHoldPending, StateWaitlisted, StateAutoPromoted, StateConfirmed:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// IsValid checks if the event is known
func (e Event) IsValid() bool {
	switch e {
	case EventPaymentCaptured, EventHoldExpired, EventWaitlistPromoted:
		return true
	}
	return false
}

func (e Event) String() string {
	return string(e)
}
