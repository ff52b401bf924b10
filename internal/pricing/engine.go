package pricing

import (
	"time"

	"venuepass/pkg/money"
)

// Price returns the price charged for ctx. With no matching rule the base
// price is returned unchanged. Otherwise the matching rule with the highest
// priority wins; on equal priority the rule declared first wins.
func Price(ctx Context, rules RuleSet) money.Amount {
	winner, ok := selectRule(ctx, rules)
	if !ok {
		return ctx.BasePrice
	}
	return candidatePrice(ctx, winner)
}

// PriceRange returns the envelope of candidate prices over every matching rule,
// ignoring priority. With no matching rule both bounds equal the base price.
func PriceRange(ctx Context, rules RuleSet) Range {
	r := Range{Low: ctx.BasePrice, High: ctx.BasePrice}
	first := true
	for _, rule := range rules.rules {
		if !Matches(rule, ctx) {
			continue
		}
		candidate := candidatePrice(ctx, rule)
		if first {
			r = Range{Low: candidate, High: candidate}
			first = false
			continue
		}
		r.Low = money.Min(r.Low, candidate)
		r.High = money.Max(r.High, candidate)
	}
	return r
}

// Evaluate computes price and range in one pass and reports which rules took part
func Evaluate(ctx Context, rules RuleSet) Quote {
	q := Quote{
		Price: Price(ctx, rules),
		Range: PriceRange(ctx, rules),
	}
	if winner, ok := selectRule(ctx, rules); ok {
		q.AppliedRule = winner.Name
	}
	for _, rule := range rules.rules {
		if Matches(rule, ctx) {
			q.MatchedRules = append(q.MatchedRules, rule.Name)
		}
	}
	return q
}

// Matches reports whether every constraint the rule declares holds for ctx.
// A rule without constraints matches unconditionally.
func Matches(rule Rule, ctx Context) bool {
	return matchesDate(rule, ctx.Date) &&
		matchesHour(rule, ctx.Date.Hour()) &&
		matchesWeekday(rule, ctx.Date.Weekday()) &&
		matchesUtilization(rule, ctx)
}

func selectRule(ctx Context, rules RuleSet) (Rule, bool) {
	var (
		winner Rule
		found  bool
	)
	for _, rule := range rules.rules {
		if !Matches(rule, ctx) {
			continue
		}
		// strict comparison keeps the earliest declared rule on ties
		if !found || rule.Priority > winner.Priority {
			winner = rule
			found = true
		}
	}
	return winner, found
}

func candidatePrice(ctx Context, rule Rule) money.Amount {
	price := ctx.BasePrice.Mul(rule.Multiplier)
	if rule.OverridePrice != nil {
		price = *rule.OverridePrice
	}
	return price.Clamp(rule.FloorPrice, rule.CeilingPrice)
}

func matchesDate(rule Rule, date time.Time) bool {
	if rule.StartDate != nil && date.Before(*rule.StartDate) {
		return false
	}
	if rule.EndDate != nil && date.After(*rule.EndDate) {
		return false
	}
	return true
}

func matchesHour(rule Rule, hour int) bool {
	switch {
	case rule.StartHour == nil && rule.EndHour == nil:
		return true
	case rule.StartHour == nil:
		return hour <= *rule.EndHour
	case rule.EndHour == nil:
		return hour >= *rule.StartHour
	}

	start, end := *rule.StartHour, *rule.EndHour
	if start <= end {
		return hour >= start && hour <= end
	}
	// overnight window such as 22..2
	return hour >= start || hour <= end
}

func matchesWeekday(rule Rule, day time.Weekday) bool {
	if len(rule.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range rule.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

func matchesUtilization(rule Rule, ctx Context) bool {
	if rule.MinUtilization == nil && rule.MaxUtilization == nil {
		return true
	}
	utilization, ok := ctx.Utilization()
	if !ok {
		return false
	}
	if rule.MinUtilization != nil && utilization < *rule.MinUtilization {
		return false
	}
	if rule.MaxUtilization != nil && utilization > *rule.MaxUtilization {
		return false
	}
	return true
}
