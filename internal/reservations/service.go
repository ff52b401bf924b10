package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"venuepass/internal/pricing"
	"venuepass/internal/venues"
	"venuepass/pkg/logger"
	"venuepass/pkg/money"

	"github.com/google/uuid"
)

// VenueLookup resolves capacity, timezone and base price for a venue
type VenueLookup interface {
	GetVenue(ctx context.Context, id uuid.UUID) (*venues.Venue, error)
}

// RuleSource returns the pricing rules for a venue
type RuleSource interface {
	RulesFor(venueID string) pricing.RuleSet
}

// Publisher delivers transition messages keyed by reservation id
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
	PlaceHold(ctx context.Context, userID uuid.UUID, req CreateReservationRequest) (*Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	ListUserReservations(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Reservation, error)
	Apply(ctx context.Context, id uuid.UUID, ev Event) (*Reservation, error)
	Cancel(ctx context.Context, userID, id uuid.UUID) (*Reservation, error)
	ExpireDue(ctx context.Context) (int, error)
	PromoteNext(ctx context.Context, venueID uuid.UUID, date time.Time) (*Reservation, error)
	BookedBetween(ctx context.Context, venueID uuid.UUID, from, to time.Time) (int, error)
}

// Config controls hold lifetime and sweep batching
type Config struct {
	HoldTTL          time.Duration
	ExpiryBatchSize  int
	MaxPartySize     int
	DefaultBasePrice money.Amount
	Topic            string
}

// DefaultConfig returns the stock hold settings
func DefaultConfig() Config {
	return Config{
		HoldTTL:          10 * time.Minute,
		ExpiryBatchSize:  100,
		MaxPartySize:     12,
		DefaultBasePrice: money.FromUnits(100),
		Topic:            "venuepass.reservations",
	}
}

type service struct {
	repo      Repository
	venues    VenueLookup
	rules     RuleSource
	scheduler ExpiryScheduler
	publisher Publisher
	config    Config
	log       *logger.Logger
	now       func() time.Time
}

// NewService wires the reservation orchestrator. scheduler and publisher may
// be nil: overdue holds are then found through the repository alone and
// transitions are not published.
func NewService(repo Repository, venueLookup VenueLookup, rules RuleSource, scheduler ExpiryScheduler, publisher Publisher, config Config) Service {
	defaults := DefaultConfig()
	if config.HoldTTL <= 0 {
		config.HoldTTL = defaults.HoldTTL
	}
	if config.ExpiryBatchSize <= 0 {
		config.ExpiryBatchSize = defaults.ExpiryBatchSize
	}
	if config.MaxPartySize <= 0 {
		config.MaxPartySize = defaults.MaxPartySize
	}
	if config.Topic == "" {
		config.Topic = defaults.Topic
	}

	return &service{
		repo:      repo,
		venues:    venueLookup,
		rules:     rules,
		scheduler: scheduler,
		publisher: publisher,
		config:    config,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
}

func (s *service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		return nil, fmt.Errorf("invalid venue ID: %w", err)
	}
	if req.PartySize > s.config.MaxPartySize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPartyTooLarge, req.PartySize, s.config.MaxPartySize)
	}

	venue, err := s.venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	from, to := venue.LocalDay(req.Date)
	booked, err := s.repo.BookedBetween(ctx, venue.ID, from, to)
	if err != nil {
		return nil, err
	}

	return s.quote(venue, req.Date, req.PartySize, booked)
}

func (s *service) quote(venue *venues.Venue, date time.Time, partySize, booked int) (*QuoteResponse, error) {
	base := venue.BasePrice
	if base == money.Zero {
		base = s.config.DefaultBasePrice
	}

	// a capacity cut can leave more places taken than the venue now has
	demand := booked
	if demand > venue.Capacity {
		demand = venue.Capacity
	}

	pctx, err := pricing.NewContext(date.In(venue.Location()), venue.Capacity, demand, base)
	if err != nil {
		return nil, err
	}

	var rules pricing.RuleSet
	if s.rules != nil {
		rules = s.rules.RulesFor(venue.ID.String())
	}
	q := pricing.Evaluate(pctx, rules)

	return &QuoteResponse{
		VenueID:      venue.ID,
		Date:         pctx.Date,
		PartySize:    partySize,
		Capacity:     venue.Capacity,
		Booked:       booked,
		Available:    booked+partySize <= venue.Capacity,
		UnitPrice:    q.Price,
		Total:        q.Price.Times(partySize),
		Range:        q.Range,
		AppliedRule:  q.AppliedRule,
		MatchedRules: q.MatchedRules,
	}, nil
}

func (s *service) PlaceHold(ctx context.Context, userID uuid.UUID, req CreateReservationRequest) (*Reservation, error) {
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		return nil, fmt.Errorf("invalid venue ID: %w", err)
	}
	if req.PartySize > s.config.MaxPartySize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPartyTooLarge, req.PartySize, s.config.MaxPartySize)
	}

	venue, err := s.venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	from, to := venue.LocalDay(req.Date)
	booked, err := s.repo.BookedBetween(ctx, venue.ID, from, to)
	if err != nil {
		return nil, err
	}
	quote, err := s.quote(venue, req.Date, req.PartySize, booked)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := now.Add(s.config.HoldTTL)
	reservation := &Reservation{
		ID:               uuid.New(),
		UserID:           userID,
		VenueID:          venue.ID,
		ResourceID:       req.ResourceID,
		Date:             req.Date,
		PartySize:        req.PartySize,
		QuotedPrice:      quote.UnitPrice,
		State:            StateHoldPending,
		HoldCreatedAt:    now,
		HoldExpiresAt:    &deadline,
		LastTransitionAt: now,
	}

	// the repository downgrades the hold to waitlisted if the party no longer fits
	if _, err := s.repo.CreateWithCapacityCheck(ctx, reservation, from, to); err != nil {
		return nil, fmt.Errorf("failed to place hold: %w", err)
	}

	if reservation.State == StateHoldPending && s.scheduler != nil {
		if err := s.scheduler.Schedule(ctx, reservation.ID, deadline); err != nil {
			// the overdue-hold query still finds it
			s.log.ErrorWithContext(ctx, "failed to schedule hold expiry", err, map[string]interface{}{
				"reservation_id": reservation.ID.String(),
			})
		}
	}

	s.log.LogHoldPlaced(ctx, reservation.ID.String(), venue.ID.String(), userID.String(),
		reservation.State.String(), reservation.QuotedPrice.String())
	s.publish(ctx, reservation, "", "", reservation.State)

	return reservation, nil
}

func (s *service) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListUserReservations(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Reservation, error) {
	return s.repo.ListByUser(ctx, userID, query.Limit, query.Offset)
}

// Apply feeds one external event through the protocol. A concurrent writer
// that changes the state between read and write causes one reload and retry.
func (s *service) Apply(ctx context.Context, id uuid.UUID, ev Event) (*Reservation, error) {
	if !ev.IsValid() {
		return nil, fmt.Errorf("%w: unknown event %q", ErrNoTransition, ev)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		reservation, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if ev == EventPaymentCaptured && reservation.HoldExpired(now) {
			if _, err := s.Apply(ctx, id, EventHoldExpired); err != nil && !errors.Is(err, ErrNoTransition) {
				return nil, err
			}
			return nil, ErrHoldExpired
		}

		from := reservation.State
		to, ok := Transition(from, ev)
		if !ok {
			terr := &TransitionError{
				ReservationID: id,
				State:         from,
				Event:         ev,
				Duplicate:     ReachedBy(from, ev),
			}
			s.log.LogProtocolViolation(ctx, id.String(), from.String(), ev.String(), terr.Duplicate)
			return reservation, terr
		}

		err = s.repo.CompareAndSetState(ctx, id, from, to, now)
		if errors.Is(err, ErrStateConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", ev, err)
		}

		reservation.State = to
		reservation.LastTransitionAt = now
		if !to.HoldsCapacity() || to == StateConfirmed {
			reservation.HoldExpiresAt = nil
		}

		s.log.LogReservationTransition(ctx, id.String(), from.String(), ev.String(), to.String())
		s.publish(ctx, reservation, from, ev, to)
		s.afterTransition(ctx, reservation, from)

		return reservation, nil
	}
	return nil, lastErr
}

// afterTransition releases the expiry timer once a hold leaves HOLD_PENDING and
// offers freed capacity to the waitlist.
func (s *service) afterTransition(ctx context.Context, reservation *Reservation, from State) {
	if from == StateHoldPending && s.scheduler != nil {
		if err := s.scheduler.Cancel(ctx, reservation.ID); err != nil {
			s.log.ErrorWithContext(ctx, "failed to cancel hold expiry", err, map[string]interface{}{
				"reservation_id": reservation.ID.String(),
			})
		}
	}

	if from.HoldsCapacity() && !reservation.State.HoldsCapacity() {
		s.promoteQuietly(ctx, reservation.VenueID, reservation.Date)
	}
}

// Cancel ends a reservation on behalf of its owner. Confirmed reservations are
// refunded; anything earlier is simply cancelled.
func (s *service) Cancel(ctx context.Context, userID, id uuid.UUID) (*Reservation, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		reservation, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !reservation.IsOwnedBy(userID) {
			return nil, ErrNotOwner
		}

		from := reservation.State
		if !from.CanBeCancelled() {
			return nil, fmt.Errorf("%w: %s", ErrNotCancellable, from)
		}
		to := StateCancelled
		if from == StateConfirmed {
			to = StateRefunded
		}

		now := s.now()
		err = s.repo.CompareAndSetState(ctx, id, from, to, now)
		if errors.Is(err, ErrStateConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to cancel reservation: %w", err)
		}

		reservation.State = to
		reservation.LastTransitionAt = now
		reservation.HoldExpiresAt = nil

		s.log.LogReservationTransition(ctx, id.String(), from.String(), "CANCEL", to.String())
		s.publish(ctx, reservation, from, "", to)
		s.afterTransition(ctx, reservation, from)

		return reservation, nil
	}
	return nil, lastErr
}

// ExpireDue applies HOLD_EXPIRED to every hold whose deadline has passed and
// returns how many were expired.
func (s *service) ExpireDue(ctx context.Context) (int, error) {
	now := s.now()
	limit := s.config.ExpiryBatchSize

	seen := make(map[uuid.UUID]struct{})
	var due []uuid.UUID
	collect := func(ids []uuid.UUID) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			due = append(due, id)
		}
	}

	if s.scheduler != nil {
		ids, err := s.scheduler.Due(ctx, now, limit)
		if err != nil {
			s.log.ErrorWithContext(ctx, "failed to read expiry schedule", err, nil)
		}
		collect(ids)
	}

	overdue, err := s.repo.ListOverdueHolds(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue holds: %w", err)
	}
	collect(overdue)

	expired := 0
	for _, id := range due {
		_, err := s.Apply(ctx, id, EventHoldExpired)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, ErrNoTransition), errors.Is(err, ErrReservationNotFound):
			// paid or cancelled before the sweep reached it
		default:
			s.log.ErrorWithContext(ctx, "failed to expire hold", err, map[string]interface{}{
				"reservation_id": id.String(),
			})
		}
	}
	return expired, nil
}

// PromoteNext moves the oldest waitlisted reservation for the venue-local day
// of date to AUTO_PROMOTED if its whole party fits. The queue is strictly
// first-come: a large party at the head is not skipped.
func (s *service) PromoteNext(ctx context.Context, venueID uuid.UUID, date time.Time) (*Reservation, error) {
	venue, err := s.venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	from, to := venue.LocalDay(date)
	next, err := s.repo.OldestWaitlisted(ctx, venue.ID, from, to)
	if errors.Is(err, ErrReservationNotFound) {
		return nil, ErrNothingToPromote
	}
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.BookedBetween(ctx, venue.ID, from, to)
	if err != nil {
		return nil, err
	}
	if booked+next.PartySize > venue.Capacity {
		return nil, ErrNothingToPromote
	}

	return s.Apply(ctx, next.ID, EventWaitlistPromoted)
}

func (s *service) promoteQuietly(ctx context.Context, venueID uuid.UUID, date time.Time) {
	promoted, err := s.PromoteNext(ctx, venueID, date)
	if err != nil {
		if !errors.Is(err, ErrNothingToPromote) {
			s.log.ErrorWithContext(ctx, "waitlist promotion failed", err, map[string]interface{}{
				"venue_id": venueID.String(),
			})
		}
		return
	}
	s.log.InfoWithContext(ctx, "waitlisted reservation promoted", map[string]interface{}{
		"reservation_id": promoted.ID.String(),
		"venue_id":       venueID.String(),
	})
}

func (s *service) BookedBetween(ctx context.Context, venueID uuid.UUID, from, to time.Time) (int, error) {
	return s.repo.BookedBetween(ctx, venueID, from, to)
}

func (s *service) publish(ctx context.Context, reservation *Reservation, from State, ev Event, to State) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(TransitionMessage{
		ReservationID: reservation.ID,
		VenueID:       reservation.VenueID,
		UserID:        reservation.UserID,
		From:          from,
		Event:         ev,
		To:            to,
		OccurredAt:    reservation.LastTransitionAt,
	})
	if err != nil {
		s.log.ErrorWithContext(ctx, "failed to encode transition", err, nil)
		return
	}

	if err := s.publisher.Publish(ctx, s.config.Topic, reservation.ID.String(), payload); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish transition", err, map[string]interface{}{
			"reservation_id": reservation.ID.String(),
			"to":             to.String(),
		})
	}
}
