package pricing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/pkg/money"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func amountPtr(s string) *money.Amount {
	a := money.MustParseAmount(s)
	return &a
}

func mustContext(t *testing.T, date time.Time, capacity, booked int, base string) Context {
	t.Helper()
	ctx, err := NewContext(date, capacity, booked, money.MustParseAmount(base))
	require.NoError(t, err)
	return ctx
}

func newYearsEveRules() []Rule {
	return []Rule{
		{
			Name:       "shoulder",
			Priority:   1,
			StartHour:  intPtr(17),
			EndHour:    intPtr(22),
			Multiplier: money.MustParseRatio("1.2"),
		},
		{
			Name:         "new-years-eve",
			Priority:     10,
			StartDate:    timePtr(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)),
			EndDate:      timePtr(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)),
			Multiplier:   money.MustParseRatio("1.5"),
			FloorPrice:   amountPtr("250"),
			CeilingPrice: amountPtr("400"),
		},
	}
}

func earlyBirdAndPeakRules() []Rule {
	return []Rule{
		{
			Name:       "early-bird",
			Priority:   1,
			StartHour:  intPtr(18),
			EndHour:    intPtr(21),
			Multiplier: money.MustParseRatio("0.9"),
			FloorPrice: amountPtr("120"),
		},
		{
			Name:         "peak",
			Priority:     2,
			StartHour:    intPtr(20),
			EndHour:      intPtr(23),
			Multiplier:   money.MustParseRatio("1.3"),
			CeilingPrice: amountPtr("250"),
		},
	}
}

func TestPrice_HigherPriorityWins(t *testing.T) {
	ctx := mustContext(t, time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC), 400, 320, "200")
	rules := MustRuleSet(newYearsEveRules()...)

	assert.Equal(t, money.MustParseAmount("300"), Price(ctx, rules))
}

func TestPriceRange_AllMatchingRules(t *testing.T) {
	ctx := mustContext(t, time.Date(2025, 6, 14, 21, 0, 0, 0, time.UTC), 200, 50, "150")
	rules := MustRuleSet(earlyBirdAndPeakRules()...)

	r := PriceRange(ctx, rules)
	assert.Equal(t, money.MustParseAmount("135"), r.Low)
	assert.Equal(t, money.MustParseAmount("195"), r.High)
	assert.Equal(t, money.MustParseAmount("195"), Price(ctx, rules))
}

func TestPrice_NoMatchReturnsBase(t *testing.T) {
	ctx := mustContext(t, time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC), 200, 50, "150")
	rules := MustRuleSet(earlyBirdAndPeakRules()...)

	assert.Equal(t, money.MustParseAmount("150"), Price(ctx, rules))
	assert.Equal(t, Range{Low: ctx.BasePrice, High: ctx.BasePrice}, PriceRange(ctx, rules))

	var empty RuleSet
	assert.Equal(t, ctx.BasePrice, Price(ctx, empty))
	assert.Equal(t, Range{Low: ctx.BasePrice, High: ctx.BasePrice}, PriceRange(ctx, empty))
}

func TestPrice_IndependentOfDeclarationOrder(t *testing.T) {
	ctx := mustContext(t, time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC), 400, 320, "200")
	rules := newYearsEveRules()
	reversed := []Rule{rules[1], rules[0]}

	assert.Equal(t, Price(ctx, MustRuleSet(rules...)), Price(ctx, MustRuleSet(reversed...)))
}

func TestPrice_EqualPriorityFirstDeclaredWins(t *testing.T) {
	ctx := mustContext(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 100, 10, "100")
	a := Rule{Name: "a", Priority: 5, Multiplier: money.MustParseRatio("1.1")}
	b := Rule{Name: "b", Priority: 5, Multiplier: money.MustParseRatio("1.4")}

	assert.Equal(t, money.MustParseAmount("110"), Price(ctx, MustRuleSet(a, b)))
	assert.Equal(t, money.MustParseAmount("140"), Price(ctx, MustRuleSet(b, a)))
	assert.Equal(t, "a", Evaluate(ctx, MustRuleSet(a, b)).AppliedRule)
}

func TestMatches_HourBoundsInclusive(t *testing.T) {
	rule := Rule{Name: "evening", StartHour: intPtr(18), EndHour: intPtr(21), Multiplier: money.One}

	for hour, want := range map[int]bool{17: false, 18: true, 20: true, 21: true, 22: false} {
		ctx := mustContext(t, time.Date(2025, 5, 2, hour, 59, 0, 0, time.UTC), 10, 0, "10")
		assert.Equal(t, want, Matches(rule, ctx), "hour %d", hour)
	}
}

func TestMatches_OvernightHours(t *testing.T) {
	rule := Rule{Name: "late", StartHour: intPtr(22), EndHour: intPtr(2), Multiplier: money.One}

	for hour, want := range map[int]bool{21: false, 22: true, 23: true, 0: true, 2: true, 3: false, 12: false} {
		ctx := mustContext(t, time.Date(2025, 5, 2, hour, 0, 0, 0, time.UTC), 10, 0, "10")
		assert.Equal(t, want, Matches(rule, ctx), "hour %d", hour)
	}
}

func TestMatches_HourUsesContextLocation(t *testing.T) {
	rule := Rule{Name: "evening", StartHour: intPtr(19), EndHour: intPtr(23), Multiplier: money.One}
	venueZone := time.FixedZone("venue", -5*60*60)

	// 01:00 UTC is 20:00 at the venue
	local := time.Date(2025, 5, 3, 1, 0, 0, 0, time.UTC).In(venueZone)
	assert.True(t, Matches(rule, mustContext(t, local, 10, 0, "10")))
	assert.False(t, Matches(rule, mustContext(t, local.UTC(), 10, 0, "10")))
}

func TestMatches_DateBoundsInclusive(t *testing.T) {
	start := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	rule := Rule{Name: "nye", StartDate: &start, EndDate: &end, Multiplier: money.One}

	assert.True(t, Matches(rule, mustContext(t, start, 10, 0, "10")))
	assert.True(t, Matches(rule, mustContext(t, end, 10, 0, "10")))
	assert.False(t, Matches(rule, mustContext(t, start.Add(-time.Second), 10, 0, "10")))
	assert.False(t, Matches(rule, mustContext(t, end.Add(time.Second), 10, 0, "10")))
}

func TestMatches_Utilization(t *testing.T) {
	rule := Rule{Name: "busy", MinUtilization: floatPtr(0.8), Multiplier: money.MustParseRatio("1.25")}
	date := time.Date(2025, 5, 2, 20, 0, 0, 0, time.UTC)

	assert.True(t, Matches(rule, mustContext(t, date, 400, 320, "100")))
	assert.False(t, Matches(rule, mustContext(t, date, 400, 319, "100")))

	quiet := Rule{Name: "quiet", MaxUtilization: floatPtr(0.25), Multiplier: money.MustParseRatio("0.8")}
	assert.True(t, Matches(quiet, mustContext(t, date, 400, 100, "100")))
	assert.False(t, Matches(quiet, mustContext(t, date, 400, 101, "100")))
}

func TestMatches_ZeroCapacityNeverSatisfiesUtilization(t *testing.T) {
	date := time.Date(2025, 5, 2, 20, 0, 0, 0, time.UTC)
	ctx := mustContext(t, date, 0, 0, "100")

	assert.False(t, Matches(Rule{Name: "any-demand", MinUtilization: floatPtr(0), Multiplier: money.One}, ctx))
	assert.True(t, Matches(Rule{Name: "flat", Multiplier: money.One}, ctx))
}

func TestMatches_DaysOfWeek(t *testing.T) {
	rule := Rule{Name: "weekend", DaysOfWeek: []time.Weekday{time.Friday, time.Saturday}, Multiplier: money.One}

	assert.True(t, Matches(rule, mustContext(t, time.Date(2025, 5, 2, 20, 0, 0, 0, time.UTC), 10, 0, "10")))
	assert.False(t, Matches(rule, mustContext(t, time.Date(2025, 5, 4, 20, 0, 0, 0, time.UTC), 10, 0, "10")))
}

func TestPrice_OverrideIsClamped(t *testing.T) {
	ctx := mustContext(t, time.Date(2025, 5, 2, 20, 0, 0, 0, time.UTC), 10, 0, "150")

	override := Rule{Name: "fixed", OverridePrice: amountPtr("99"), FloorPrice: amountPtr("120")}
	assert.Equal(t, money.MustParseAmount("120"), Price(ctx, MustRuleSet(override)))

	noop := Rule{Name: "ceiling-only", Multiplier: money.One, CeilingPrice: amountPtr("140")}
	assert.Equal(t, money.MustParseAmount("140"), Price(ctx, MustRuleSet(noop)))
}

func TestPrice_StaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rules := MustRuleSet(append(newYearsEveRules(), earlyBirdAndPeakRules()...)...)

	for i := 0; i < 500; i++ {
		capacity := rng.Intn(500)
		booked := 0
		if capacity > 0 {
			booked = rng.Intn(capacity + 1)
		}
		date := time.Date(2025, 12, 30+rng.Intn(2), rng.Intn(24), 0, 0, 0, time.UTC)
		ctx := mustContext(t, date, capacity, booked, money.FromCents(int64(rng.Intn(50000))).String())

		price := Price(ctx, rules)
		r := PriceRange(ctx, rules)
		require.LessOrEqual(t, r.Low, r.High)
		require.GreaterOrEqual(t, price, r.Low)
		require.LessOrEqual(t, price, r.High)

		quote := Evaluate(ctx, rules)
		if quote.AppliedRule == "" {
			require.Equal(t, ctx.BasePrice, price)
			continue
		}
		for _, rule := range rules.Rules() {
			if rule.Name != quote.AppliedRule {
				continue
			}
			if rule.FloorPrice != nil {
				require.GreaterOrEqual(t, price, *rule.FloorPrice)
			}
			if rule.CeilingPrice != nil {
				require.LessOrEqual(t, price, *rule.CeilingPrice)
			}
		}
	}
}

func TestNewRuleSet_Rejects(t *testing.T) {
	cases := map[string]Rule{
		"inverted clamp":     {Name: "x", Multiplier: money.One, FloorPrice: amountPtr("300"), CeilingPrice: amountPtr("200")},
		"zero multiplier":    {Name: "x"},
		"negative floor":     {Name: "x", Multiplier: money.One, FloorPrice: amountPtr("-1")},
		"hour out of range":  {Name: "x", Multiplier: money.One, StartHour: intPtr(24)},
		"utilization > 1":    {Name: "x", Multiplier: money.One, MinUtilization: floatPtr(1.5)},
		"min above max util": {Name: "x", Multiplier: money.One, MinUtilization: floatPtr(0.8), MaxUtilization: floatPtr(0.2)},
		"dates reversed": {
			Name:       "x",
			Multiplier: money.One,
			StartDate:  timePtr(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
			EndDate:    timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
	}
	for name, rule := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRuleSet(rule)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestNewContext_Rejects(t *testing.T) {
	date := time.Now()
	_, err := NewContext(date, 10, 11, money.FromUnits(10))
	assert.ErrorIs(t, err, ErrInvalidContext)

	_, err = NewContext(date, -1, 0, money.FromUnits(10))
	assert.ErrorIs(t, err, ErrInvalidContext)

	_, err = NewContext(date, 10, 0, money.FromCents(-1))
	assert.ErrorIs(t, err, ErrInvalidContext)
}
