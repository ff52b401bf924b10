package money

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// CentsPerUnit is the number of minor units in one major currency unit
	CentsPerUnit = 100

	// RatioScale is the fixed-point scale used by Ratio (four decimal places)
	RatioScale = 10000
)

var (
	ErrInvalidDecimal = errors.New("invalid decimal value")
	ErrTooPrecise     = errors.New("decimal value has too many fractional digits")
)

// Amount is a currency value stored as an integer number of minor units (cents).
// All pricing arithmetic runs on Amount so repeated multiply/clamp steps never drift.
type Amount int64

// Zero is the zero amount
const Zero Amount = 0

// FromCents creates an Amount from minor units
func FromCents(cents int64) Amount {
	return Amount(cents)
}

// FromUnits creates an Amount from whole major units
func FromUnits(units int64) Amount {
	return Amount(units * CentsPerUnit)
}

// ParseAmount parses a decimal string such as "120", "99.5" or "1064.00"
func ParseAmount(s string) (Amount, error) {
	v, err := parseFixed(s, 2)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount(v), nil
}

// MustParseAmount is ParseAmount for constants and tests
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Cents returns the amount in minor units
func (a Amount) Cents() int64 {
	return int64(a)
}

// Float64 returns the amount in major units. Only for display and metrics.
func (a Amount) Float64() float64 {
	return float64(a) / CentsPerUnit
}

// IsNegative reports whether the amount is below zero
func (a Amount) IsNegative() bool {
	return a < 0
}

// Add returns a + b
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a - b
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// Times returns the amount multiplied by a whole quantity
func (a Amount) Times(n int) Amount {
	return a * Amount(n)
}

// Mul multiplies the amount by a ratio, rounding half away from zero to the
// nearest cent. Results beyond the Amount range saturate at MaxAmount/MinAmount.
func (a Amount) Mul(r Ratio) Amount {
	negative := (a < 0) != (r < 0)
	hi, lo := bits.Mul64(absUint64(int64(a)), absUint64(int64(r)))
	if hi >= RatioScale {
		return saturate(negative)
	}
	quotient, remainder := bits.Div64(hi, lo, RatioScale)
	if remainder*2 >= RatioScale {
		quotient++
	}
	if quotient > math.MaxInt64 {
		return saturate(negative)
	}
	if negative {
		return Amount(-int64(quotient))
	}
	return Amount(quotient)
}

// Bounds of the Amount range
const (
	MaxAmount Amount = math.MaxInt64
	MinAmount Amount = -math.MaxInt64
)

func saturate(negative bool) Amount {
	if negative {
		return MinAmount
	}
	return MaxAmount
}

func absUint64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// Clamp bounds the amount by optional floor and ceiling values
func (a Amount) Clamp(floor, ceiling *Amount) Amount {
	if floor != nil && a < *floor {
		a = *floor
	}
	if ceiling != nil && a > *ceiling {
		a = *ceiling
	}
	return a
}

// String formats the amount with two fractional digits
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/CentsPerUnit, v%CentsPerUnit)
}

// MarshalJSON encodes the amount as a JSON number in major units
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string
func (a *Amount) UnmarshalJSON(data []byte) error {
	parsed, err := ParseAmount(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalYAML decodes the scalar text directly, avoiding a float round trip
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseAmount(value.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Min returns the smaller of two amounts
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two amounts
func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// Ratio is a fixed-point multiplier with four fractional digits (1.12 is stored as 11200)
type Ratio int64

// One is the identity multiplier
const One Ratio = RatioScale

// ParseRatio parses a decimal multiplier such as "1.5" or "0.9"
func ParseRatio(s string) (Ratio, error) {
	v, err := parseFixed(s, 4)
	if err != nil {
		return 0, fmt.Errorf("parse ratio %q: %w", s, err)
	}
	return Ratio(v), nil
}

// MustParseRatio is ParseRatio for constants and tests
func MustParseRatio(s string) Ratio {
	r, err := ParseRatio(s)
	if err != nil {
		panic(err)
	}
	return r
}

// RatioFromFloat converts a float multiplier (e.g. from an environment variable)
func RatioFromFloat(f float64) Ratio {
	return Ratio(math.Round(f * RatioScale))
}

// Float64 returns the ratio as a float. Only for display.
func (r Ratio) Float64() float64 {
	return float64(r) / RatioScale
}

// String formats the ratio without trailing zeros
func (r Ratio) String() string {
	v := int64(r)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := strings.TrimRight(fmt.Sprintf("%04d", v%RatioScale), "0")
	if frac == "" {
		return fmt.Sprintf("%s%d", sign, v/RatioScale)
	}
	return fmt.Sprintf("%s%d.%s", sign, v/RatioScale, frac)
}

// MarshalJSON encodes the ratio as a JSON number
func (r Ratio) MarshalJSON() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string
func (r *Ratio) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRatio(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalYAML decodes the scalar text directly
func (r *Ratio) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseRatio(value.Value)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// parseFixed converts a decimal string to an integer scaled by 10^digits.
func parseFixed(s string, digits int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidDecimal
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if whole == "" && (!hasPoint || frac == "") {
		return 0, ErrInvalidDecimal
	}
	if len(frac) > digits {
		// trailing zeros beyond the scale carry no value
		if strings.TrimRight(frac[digits:], "0") != "" {
			return 0, ErrTooPrecise
		}
		frac = frac[:digits]
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, ErrInvalidDecimal
	}

	var result int64
	if whole != "" {
		w, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidDecimal, err)
		}
		result = w
	}
	for i := 0; i < digits; i++ {
		if result > math.MaxInt64/10 {
			return 0, fmt.Errorf("%w: out of range", ErrInvalidDecimal)
		}
		result *= 10
		if i < len(frac) {
			d := int64(frac[i] - '0')
			if result > math.MaxInt64-d {
				return 0, fmt.Errorf("%w: out of range", ErrInvalidDecimal)
			}
			result += d
		}
	}

	if negative {
		result = -result
	}
	return result, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
