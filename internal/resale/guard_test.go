package resale

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/internal/pricing"
	"venuepass/internal/tickets"
	"venuepass/pkg/money"
)

func sampleTicket() *tickets.EventTicket {
	return &tickets.EventTicket{
		ID:        uuid.New(),
		EventName: "Closing Night",
		EventDate: time.Date(2025, 12, 31, 21, 0, 0, 0, time.UTC),
		VenueID:   uuid.New(),
		UserID:    uuid.New(),
		Price:     money.MustParseAmount("950"),
		Status:    tickets.StatusValid,
	}
}

func TestPriceCap_NoRules(t *testing.T) {
	guard := DefaultGuard()
	ticket := sampleTicket()

	assert.Equal(t, money.MustParseAmount("1064"), guard.PriceCap(ticket, pricing.RuleSet{}))
}

func TestPriceCap_MarketAboveFaceUsesFace(t *testing.T) {
	guard := DefaultGuard()
	surge := pricing.MustRuleSet(pricing.Rule{Name: "surge", Priority: 1, Multiplier: money.MustParseRatio("1.5")})

	assert.Equal(t, money.MustParseAmount("1064"), guard.PriceCap(sampleTicket(), surge))
}

func TestPriceCap_MarketBelowFaceLowersCap(t *testing.T) {
	guard := DefaultGuard()
	discount := pricing.MustRuleSet(pricing.Rule{Name: "slow-night", Priority: 1, Multiplier: money.MustParseRatio("0.8")})

	// 950 * 0.8 = 760, 760 * 1.12 = 851.20
	assert.Equal(t, money.MustParseAmount("851.20"), guard.PriceCap(sampleTicket(), discount))
}

func TestPriceCapAt_UsesOccupancy(t *testing.T) {
	guard := DefaultGuard()
	minUtil := 0.5
	quiet := pricing.MustRuleSet(pricing.Rule{
		Name:           "crowded",
		MinUtilization: &minUtil,
		Multiplier:     money.MustParseRatio("0.5"),
	})
	ticket := sampleTicket()

	assert.Equal(t, money.MustParseAmount("1064"), guard.PriceCapAt(ticket, Occupancy{Capacity: 400, Booked: 100}, quiet))
	assert.Equal(t, money.MustParseAmount("532"), guard.PriceCapAt(ticket, Occupancy{Capacity: 400, Booked: 300}, quiet))
	assert.Equal(t, money.MustParseAmount("532"), guard.PriceCap(ticket, quiet))
}

func TestValidatePrice_BoundaryInclusive(t *testing.T) {
	guard := DefaultGuard()
	ticket := sampleTicket()
	limit := guard.PriceCap(ticket, pricing.RuleSet{})
	cent := money.FromCents(1)

	assert.NoError(t, guard.ValidatePrice(limit, ticket, pricing.RuleSet{}))
	assert.NoError(t, guard.ValidatePrice(limit.Sub(cent), ticket, pricing.RuleSet{}))

	err := guard.ValidatePrice(limit.Add(cent), ticket, pricing.RuleSet{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPriceAboveCap)

	var capErr *PriceAboveCapError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, limit.Add(cent), capErr.Proposed)
	assert.Equal(t, limit, capErr.Cap)
}

func TestValidatePrice_RejectsNonPositive(t *testing.T) {
	guard := DefaultGuard()
	ticket := sampleTicket()

	for _, price := range []string{"-5", "-0.01", "0"} {
		err := guard.ValidatePrice(money.MustParseAmount(price), ticket, pricing.RuleSet{})
		assert.ErrorIs(t, err, ErrInvalidResalePrice, price)
		assert.NotErrorIs(t, err, ErrPriceAboveCap, price)
	}
	assert.NoError(t, guard.ValidatePrice(money.FromCents(1), ticket, pricing.RuleSet{}))
}

func TestPriceCap_NeverExceedsFaceTimesMultiplier(t *testing.T) {
	guard := DefaultGuard()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		rule := pricing.Rule{
			Name:       "random",
			Priority:   rng.Intn(5),
			Multiplier: money.Ratio(1 + rng.Intn(40000)),
		}
		if rng.Intn(2) == 0 {
			floor := money.FromCents(int64(rng.Intn(500000)))
			rule.FloorPrice = &floor
		}
		rules := pricing.MustRuleSet(rule)
		ticket := sampleTicket()
		ticket.Price = money.FromCents(int64(rng.Intn(200000)))
		occupancy := Occupancy{Capacity: 100, Booked: rng.Intn(101)}

		limit := guard.PriceCapAt(ticket, occupancy, rules)
		require.LessOrEqual(t, limit, ticket.Price.Mul(guard.CapMultiplier))
	}
}

func TestNewGuard_RejectsMultiplierAtOrBelowOne(t *testing.T) {
	_, err := NewGuard(money.One, DefaultOccupancy)
	assert.ErrorIs(t, err, ErrInvalidMultiplier)

	guard, err := NewGuard(money.MustParseRatio("1.25"), Occupancy{Capacity: 10, Booked: 5})
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("125"), guard.PriceCap(&tickets.EventTicket{Price: money.FromUnits(100)}, pricing.RuleSet{}))
}
