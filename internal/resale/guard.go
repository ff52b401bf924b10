package resale

import (
	"errors"
	"fmt"

	"venuepass/internal/pricing"
	"venuepass/internal/tickets"
	"venuepass/pkg/money"
)

var (
	ErrPriceAboveCap      = errors.New("resale price above cap")
	ErrInvalidResalePrice = errors.New("resale price must be positive")
	ErrInvalidMultiplier  = errors.New("resale cap multiplier must be greater than 1")
)

// DefaultCapMultiplier is the markup allowed above the reference price
var DefaultCapMultiplier = money.MustParseRatio("1.12")

// Occupancy is the demand snapshot used to derive the current market price
type Occupancy struct {
	Capacity int `json:"capacity"`
	Booked   int `json:"booked"`
}

// DefaultOccupancy is used when the caller has no live figures for the event
var DefaultOccupancy = Occupancy{Capacity: 400, Booked: 320}

// PriceAboveCapError reports a proposed resale price over the computed cap
type PriceAboveCapError struct {
	Proposed money.Amount
	Cap      money.Amount
}

func (e *PriceAboveCapError) Error() string {
	return fmt.Sprintf("resale price %s exceeds cap %s", e.Proposed, e.Cap)
}

func (e *PriceAboveCapError) Is(target error) bool {
	return target == ErrPriceAboveCap
}

// Guard computes resale ceilings. It holds no mutable state and is safe for concurrent use.
type Guard struct {
	CapMultiplier    money.Ratio
	DefaultOccupancy Occupancy
}

// NewGuard creates a guard with the given multiplier and fallback occupancy
func NewGuard(multiplier money.Ratio, fallback Occupancy) (*Guard, error) {
	if multiplier <= money.One {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidMultiplier, multiplier)
	}
	return &Guard{CapMultiplier: multiplier, DefaultOccupancy: fallback}, nil
}

// DefaultGuard returns a guard with the default multiplier and occupancy
func DefaultGuard() *Guard {
	return &Guard{CapMultiplier: DefaultCapMultiplier, DefaultOccupancy: DefaultOccupancy}
}

// PriceCap returns the highest lawful resale price using the default occupancy
func (g *Guard) PriceCap(ticket *tickets.EventTicket, rules pricing.RuleSet) money.Amount {
	return g.PriceCapAt(ticket, g.DefaultOccupancy, rules)
}

// PriceCapAt returns min(face price, current market price) times the cap
// multiplier. The market price is what the venue would charge a new customer
// for the event date at the given occupancy. The result never exceeds face
// price times the multiplier.
func (g *Guard) PriceCapAt(ticket *tickets.EventTicket, occupancy Occupancy, rules pricing.RuleSet) money.Amount {
	reference := ticket.Price
	if !rules.IsEmpty() {
		ctx := pricing.Context{
			Date:        ticket.EventDate,
			Capacity:    occupancy.Capacity,
			BookedCount: occupancy.Booked,
			BasePrice:   ticket.Price,
		}
		reference = money.Min(ticket.Price, pricing.Price(ctx, rules))
	}
	return reference.Mul(g.CapMultiplier)
}

// ValidatePrice fails with *PriceAboveCapError when proposed exceeds the cap
// and with ErrInvalidResalePrice when it is zero or negative.
// A price exactly at the cap is accepted.
func (g *Guard) ValidatePrice(proposed money.Amount, ticket *tickets.EventTicket, rules pricing.RuleSet) error {
	return g.ValidatePriceAt(proposed, ticket, g.DefaultOccupancy, rules)
}

// ValidatePriceAt is ValidatePrice with live occupancy
func (g *Guard) ValidatePriceAt(proposed money.Amount, ticket *tickets.EventTicket, occupancy Occupancy, rules pricing.RuleSet) error {
	if proposed <= money.Zero {
		return fmt.Errorf("%w, got %s", ErrInvalidResalePrice, proposed)
	}
	limit := g.PriceCapAt(ticket, occupancy, rules)
	if proposed > limit {
		return &PriceAboveCapError{Proposed: proposed, Cap: limit}
	}
	return nil
}
