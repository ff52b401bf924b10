package resale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuepass/internal/pricing"
	"venuepass/internal/tickets"
	"venuepass/internal/venues"
	"venuepass/pkg/logger"
	"venuepass/pkg/money"

	"github.com/google/uuid"
)

var (
	ErrNotTicketOwner      = errors.New("ticket does not belong to seller")
	ErrTicketNotResellable = errors.New("ticket is not in a resellable state")
	ErrOfferAlreadyOpen    = errors.New("ticket already has an open resale offer")
	ErrOfferNotCancellable = errors.New("resale offer can no longer be cancelled")
)

// TicketStore is the slice of the ticket repository resale needs
type TicketStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tickets.EventTicket, error)
}

// VenueLookup resolves capacity and timezone for a venue
type VenueLookup interface {
	GetVenue(ctx context.Context, id uuid.UUID) (*venues.Venue, error)
}

// OccupancyCounter reports how many places are taken at a venue in [from, to)
type OccupancyCounter interface {
	BookedBetween(ctx context.Context, venueID uuid.UUID, from, to time.Time) (int, error)
}

// RuleSource returns the pricing rules for a venue
type RuleSource interface {
	RulesFor(venueID string) pricing.RuleSet
}

type Service interface {
	PriceCap(ctx context.Context, ticketID uuid.UUID) (*CapResponse, error)
	CreateOffer(ctx context.Context, sellerID uuid.UUID, req CreateOfferRequest) (*Offer, error)
	CancelOffer(ctx context.Context, sellerID, offerID uuid.UUID) (*Offer, error)
}

type service struct {
	repo      Repository
	tickets   TicketStore
	venues    VenueLookup
	occupancy OccupancyCounter
	rules     RuleSource
	guard     *Guard
	log       *logger.Logger
}

// NewService creates the resale service. occupancy may be nil, in which case
// the guard's default occupancy is used.
func NewService(repo Repository, ticketStore TicketStore, venueLookup VenueLookup, occupancy OccupancyCounter, rules RuleSource, guard *Guard) Service {
	if guard == nil {
		guard = DefaultGuard()
	}
	return &service{
		repo:      repo,
		tickets:   ticketStore,
		venues:    venueLookup,
		occupancy: occupancy,
		rules:     rules,
		guard:     guard,
		log:       logger.GetDefault(),
	}
}

func (s *service) PriceCap(ctx context.Context, ticketID uuid.UUID) (*CapResponse, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	local, occupancy, rules, err := s.marketContext(ctx, ticket)
	if err != nil {
		return nil, err
	}

	return &CapResponse{
		TicketID:   ticket.ID,
		FacePrice:  ticket.Price,
		Cap:        s.guard.PriceCapAt(local, occupancy, rules),
		Multiplier: s.guard.CapMultiplier,
		Occupancy:  occupancy,
	}, nil
}

func (s *service) CreateOffer(ctx context.Context, sellerID uuid.UUID, req CreateOfferRequest) (*Offer, error) {
	ticketID, err := uuid.Parse(req.TicketID)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket ID: %w", err)
	}
	proposed, err := money.ParseAmount(req.Price)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOwnedBy(sellerID) {
		return nil, ErrNotTicketOwner
	}
	if ticket.Status != tickets.StatusValid {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotResellable, ticket.Status)
	}

	if _, err := s.repo.FindOpenByTicket(ctx, ticketID); err == nil {
		return nil, ErrOfferAlreadyOpen
	} else if !errors.Is(err, ErrOfferNotFound) {
		return nil, fmt.Errorf("failed to check open offers: %w", err)
	}

	local, occupancy, rules, err := s.marketContext(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidatePriceAt(proposed, local, occupancy, rules); err != nil {
		var capErr *PriceAboveCapError
		if errors.As(err, &capErr) {
			s.log.LogResaleRejected(ctx, ticketID.String(), sellerID.String(), capErr.Proposed.String(), capErr.Cap.String())
		}
		return nil, err
	}

	offer := &Offer{
		ID:       uuid.New(),
		TicketID: ticketID,
		SellerID: sellerID,
		Price:    proposed,
		Cap:      s.guard.PriceCapAt(local, occupancy, rules),
		Status:   OfferStatusActive,
	}
	if err := s.repo.Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create resale offer: %w", err)
	}
	return offer, nil
}

func (s *service) CancelOffer(ctx context.Context, sellerID, offerID uuid.UUID) (*Offer, error) {
	offer, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.SellerID != sellerID {
		return nil, ErrNotTicketOwner
	}
	if offer.Status != OfferStatusPending && offer.Status != OfferStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrOfferNotCancellable, offer.Status)
	}

	if err := s.repo.UpdateStatus(ctx, offerID, OfferStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel resale offer: %w", err)
	}
	offer.Status = OfferStatusCancelled
	return offer, nil
}

// marketContext returns a copy of the ticket with its event date in venue-local
// time, the live occupancy for that day and the venue's rules.
func (s *service) marketContext(ctx context.Context, ticket *tickets.EventTicket) (*tickets.EventTicket, Occupancy, pricing.RuleSet, error) {
	venue, err := s.venues.GetVenue(ctx, ticket.VenueID)
	if err != nil {
		return nil, Occupancy{}, pricing.RuleSet{}, err
	}

	local := *ticket
	local.EventDate = ticket.EventDate.In(venue.Location())

	occupancy := s.guard.DefaultOccupancy
	if s.occupancy != nil {
		from, to := venue.LocalDay(ticket.EventDate)
		booked, err := s.occupancy.BookedBetween(ctx, venue.ID, from, to)
		if err != nil {
			return nil, Occupancy{}, pricing.RuleSet{}, fmt.Errorf("failed to read occupancy: %w", err)
		}
		occupancy = Occupancy{Capacity: venue.Capacity, Booked: booked}
	}

	var rules pricing.RuleSet
	if s.rules != nil {
		rules = s.rules.RulesFor(venue.ID.String())
	}
	return &local, occupancy, rules, nil
}
