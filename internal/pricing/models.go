package pricing

import (
	"errors"
	"fmt"
	"time"

	"venuepass/pkg/money"
)

var (
	ErrInvalidRule    = errors.New("invalid pricing rule")
	ErrInvalidContext = errors.New("invalid pricing context")
)

// Rule is a named, prioritized price modifier. Rules are plain data; the engine
// functions in this package are the only behavior attached to them.
type Rule struct {
	Name     string `json:"name" yaml:"name"`
	Priority int    `json:"priority" yaml:"priority"`

	// Applicability window. Dates are inclusive instants, hours are inclusive
	// hours of day evaluated in the location of the context date.
	StartDate  *time.Time     `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate    *time.Time     `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	StartHour  *int           `json:"start_hour,omitempty" yaml:"start_hour,omitempty"`
	EndHour    *int           `json:"end_hour,omitempty" yaml:"end_hour,omitempty"`
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`

	// Demand window as a fraction of capacity in [0,1].
	MinUtilization *float64 `json:"min_utilization,omitempty" yaml:"min_utilization,omitempty"`
	MaxUtilization *float64 `json:"max_utilization,omitempty" yaml:"max_utilization,omitempty"`

	Multiplier    money.Ratio   `json:"multiplier" yaml:"multiplier"`
	OverridePrice *money.Amount `json:"override_price,omitempty" yaml:"override_price,omitempty"`
	FloorPrice    *money.Amount `json:"floor_price,omitempty" yaml:"floor_price,omitempty"`
	CeilingPrice  *money.Amount `json:"ceiling_price,omitempty" yaml:"ceiling_price,omitempty"`
}

// Validate checks the rule for contract violations
func (r Rule) Validate() error {
	if r.OverridePrice == nil && r.Multiplier <= 0 {
		return fmt.Errorf("%w %q: multiplier must be positive, got %s", ErrInvalidRule, r.Name, r.Multiplier)
	}
	if r.OverridePrice != nil && r.OverridePrice.IsNegative() {
		return fmt.Errorf("%w %q: negative override price %s", ErrInvalidRule, r.Name, r.OverridePrice)
	}
	if r.FloorPrice != nil && r.FloorPrice.IsNegative() {
		return fmt.Errorf("%w %q: negative floor price %s", ErrInvalidRule, r.Name, r.FloorPrice)
	}
	if r.CeilingPrice != nil && r.CeilingPrice.IsNegative() {
		return fmt.Errorf("%w %q: negative ceiling price %s", ErrInvalidRule, r.Name, r.CeilingPrice)
	}
	if r.FloorPrice != nil && r.CeilingPrice != nil && *r.FloorPrice > *r.CeilingPrice {
		return fmt.Errorf("%w %q: floor %s above ceiling %s", ErrInvalidRule, r.Name, r.FloorPrice, r.CeilingPrice)
	}
	if r.StartDate != nil && r.EndDate != nil && r.StartDate.After(*r.EndDate) {
		return fmt.Errorf("%w %q: start date after end date", ErrInvalidRule, r.Name)
	}
	for _, hour := range []*int{r.StartHour, r.EndHour} {
		if hour != nil && (*hour < 0 || *hour > 23) {
			return fmt.Errorf("%w %q: hour %d outside 0..23", ErrInvalidRule, r.Name, *hour)
		}
	}
	for _, day := range r.DaysOfWeek {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w %q: unknown weekday %d", ErrInvalidRule, r.Name, day)
		}
	}
	for _, u := range []*float64{r.MinUtilization, r.MaxUtilization} {
		if u != nil && (*u < 0 || *u > 1) {
			return fmt.Errorf("%w %q: utilization %v outside [0,1]", ErrInvalidRule, r.Name, *u)
		}
	}
	if r.MinUtilization != nil && r.MaxUtilization != nil && *r.MinUtilization > *r.MaxUtilization {
		return fmt.Errorf("%w %q: min utilization above max utilization", ErrInvalidRule, r.Name)
	}
	return nil
}

// RuleSet is an ordered, validated collection of rules. Declaration order is
// significant: it breaks ties between matching rules of equal priority.
// The zero value is an empty rule set.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates every rule and returns them as a set
func NewRuleSet(rules ...Rule) (RuleSet, error) {
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			return RuleSet{}, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return RuleSet{rules: copied}, nil
}

// MustRuleSet is NewRuleSet for statically known rules
func MustRuleSet(rules ...Rule) RuleSet {
	set, err := NewRuleSet(rules...)
	if err != nil {
		panic(err)
	}
	return set
}

// Rules returns a copy of the rules in declaration order
func (s RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules
func (s RuleSet) Len() int {
	return len(s.rules)
}

// IsEmpty reports whether the set has no rules
func (s RuleSet) IsEmpty() bool {
	return len(s.rules) == 0
}

// Context is an immutable demand snapshot for one pricing request
type Context struct {
	Date        time.Time    `json:"date"`
	Capacity    int          `json:"capacity"`
	BookedCount int          `json:"booked_count"`
	BasePrice   money.Amount `json:"base_price"`
}

// NewContext validates and builds a pricing context
func NewContext(date time.Time, capacity, bookedCount int, basePrice money.Amount) (Context, error) {
	switch {
	case capacity < 0:
		return Context{}, fmt.Errorf("%w: negative capacity %d", ErrInvalidContext, capacity)
	case bookedCount < 0:
		return Context{}, fmt.Errorf("%w: negative booked count %d", ErrInvalidContext, bookedCount)
	case bookedCount > capacity:
		return Context{}, fmt.Errorf("%w: booked count %d exceeds capacity %d", ErrInvalidContext, bookedCount, capacity)
	case basePrice.IsNegative():
		return Context{}, fmt.Errorf("%w: negative base price %s", ErrInvalidContext, basePrice)
	}
	return Context{
		Date:        date,
		Capacity:    capacity,
		BookedCount: bookedCount,
		BasePrice:   basePrice,
	}, nil
}

// Utilization returns bookedCount/capacity. ok is false when capacity is zero.
func (c Context) Utilization() (utilization float64, ok bool) {
	if c.Capacity <= 0 {
		return 0, false
	}
	return float64(c.BookedCount) / float64(c.Capacity), true
}

// Range is the inclusive envelope of prices a customer could see
type Range struct {
	Low  money.Amount `json:"low"`
	High money.Amount `json:"high"`
}

// Quote is the full evaluation result for one context
type Quote struct {
	Price        money.Amount `json:"price"`
	Range        Range        `json:"range"`
	AppliedRule  string       `json:"applied_rule,omitempty"`
	MatchedRules []string     `json:"matched_rules,omitempty"`
}
