package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultScale is the number of minor-unit digits used when no scale is given.
// A Money with scale 0 is treated as DefaultScale.
const DefaultScale int32 = 2

var (
	half     = decimal.New(5, -1)
	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// ErrOutOfRange reports an amount whose minor units do not fit in an int64.
var ErrOutOfRange = errors.New("amount out of range")

// Money is an amount held as an integer count of minor units. Values are
// immutable; every operation returns a new Money.
type Money struct {
	units int64
	scale int32
}

// Zero is 0.00 at DefaultScale.
var Zero = Money{scale: DefaultScale}

// FromMinor builds a Money from minor units at DefaultScale (1234 -> 12.34).
func FromMinor(units int64) Money {
	return Money{units: units, scale: DefaultScale}
}

// FromMinorScaled builds a Money from minor units at an explicit scale.
func FromMinorScaled(units int64, scale int32) Money {
	return Money{units: units, scale: scale}
}

// NewFromDecimal rounds d half-up to the nearest minor unit at DefaultScale.
func NewFromDecimal(d decimal.Decimal) (Money, error) {
	return fromDecimalScaled(d, DefaultScale)
}

// NewFromString parses a decimal string such as "1032.80".
func NewFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	m, err := NewFromDecimal(d)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return m, nil
}

// MustParse is NewFromString for constants and tests.
func MustParse(s string) Money {
	m, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func fromDecimalScaled(d decimal.Decimal, scale int32) (Money, error) {
	units, ok := toUnits(roundHalfUp(d.Shift(scale)))
	if !ok {
		return Money{}, ErrOutOfRange
	}
	return Money{units: units, scale: scale}, nil
}

// toUnits converts an integral decimal to int64, reporting false when it
// does not fit.
func toUnits(d decimal.Decimal) (int64, bool) {
	if d.GreaterThan(maxUnits) || d.LessThan(minUnits) {
		return 0, false
	}
	return d.IntPart(), true
}

// mustUnits is toUnits for arithmetic results. Inputs are bounded by
// validation, so an overflow here is a programming error and must not be
// stored as a wrapped amount.
func mustUnits(d decimal.Decimal) int64 {
	units, ok := toUnits(d)
	if !ok {
		panic(fmt.Errorf("money: %w: %s minor units", ErrOutOfRange, d))
	}
	return units
}

func addUnits(a, b int64) int64 {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		panic(fmt.Errorf("money: %w: %d + %d", ErrOutOfRange, a, b))
	}
	return sum
}

func mulUnits(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		panic(fmt.Errorf("money: %w: %d x %d", ErrOutOfRange, a, b))
	}
	return p
}

// roundHalfUp rounds a minor-unit quantity to an integer, ties toward +inf.
func roundHalfUp(minor decimal.Decimal) decimal.Decimal {
	return minor.Add(half).Floor()
}

func (m Money) sc() int32 {
	if m.scale == 0 {
		return DefaultScale
	}
	return m.scale
}

// Minor returns the amount in minor units at the value's scale.
func (m Money) Minor() int64 { return m.units }

// Scale returns the number of minor-unit digits.
func (m Money) Scale() int32 { return m.sc() }

// Decimal returns the exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.units, -m.sc())
}

func align(a, b Money) (int64, int64, int32) {
	as, bs := a.sc(), b.sc()
	switch {
	case as == bs:
		return a.units, b.units, as
	case as > bs:
		return a.units, mulUnits(b.units, pow10(as-bs)), as
	default:
		return mulUnits(a.units, pow10(bs-as)), b.units, bs
	}
}

func pow10(n int32) int64 {
	p := int64(1)
	for i := int32(0); i < n; i++ {
		p *= 10
	}
	return p
}

func (m Money) Add(o Money) Money {
	a, b, s := align(m, o)
	return Money{units: addUnits(a, b), scale: s}
}

func (m Money) Sub(o Money) Money {
	a, b, s := align(m, o)
	if b == math.MinInt64 {
		panic(fmt.Errorf("money: %w: cannot negate %d", ErrOutOfRange, b))
	}
	return Money{units: addUnits(a, -b), scale: s}
}

func (m Money) Neg() Money {
	return Money{units: mulUnits(m.units, -1), scale: m.sc()}
}

func (m Money) Abs() Money {
	if m.units < 0 {
		return m.Neg()
	}
	return Money{units: m.units, scale: m.sc()}
}

// Mul multiplies by an arbitrary decimal factor and rounds half-up to the
// minor unit. This is the only place rates touch amounts.
func (m Money) Mul(factor decimal.Decimal) Money {
	minor := decimal.NewFromInt(m.units).Mul(factor)
	return Money{units: mustUnits(roundHalfUp(minor)), scale: m.sc()}
}

// MulRat multiplies by num/den, rounding once at the end.
func (m Money) MulRat(num, den int64) Money {
	return m.MulFrac(decimal.NewFromInt(num), decimal.NewFromInt(den))
}

// MulFrac multiplies by num/den. The product is formed exactly and divided
// once, so a true half-unit result is never lost to an inexact factor.
func (m Money) MulFrac(num, den decimal.Decimal) Money {
	if den.IsZero() {
		panic("money: division by zero")
	}
	minor := decimal.NewFromInt(m.units).Mul(num).Div(den)
	return Money{units: mustUnits(roundHalfUp(minor)), scale: m.sc()}
}

func (m Money) MulInt(n int64) Money {
	return Money{units: mulUnits(m.units, n), scale: m.sc()}
}

// DivInt divides by n, rounding half-up.
func (m Money) DivInt(n int64) Money {
	return m.MulRat(1, n)
}

// DivFloor divides by n and rounds toward negative infinity, so for a
// positive n the shares never add up to more than m.
func (m Money) DivFloor(n int64) Money {
	if n == 0 {
		panic("money: division by zero")
	}
	q := m.units / n
	if (m.units%n != 0) && ((m.units < 0) != (n < 0)) {
		q--
	}
	return Money{units: q, scale: m.sc()}
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	a, b, _ := align(m, o)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m Money) Equal(o Money) bool       { return m.Cmp(o) == 0 }
func (m Money) LessThan(o Money) bool    { return m.Cmp(o) < 0 }
func (m Money) GreaterThan(o Money) bool { return m.Cmp(o) > 0 }
func (m Money) IsZero() bool             { return m.units == 0 }
func (m Money) IsPositive() bool         { return m.units > 0 }
func (m Money) IsNegative() bool         { return m.units < 0 }

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Sum adds all values; an empty call is Zero.
func Sum(values ...Money) Money {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// String formats with exactly Scale() fraction digits, e.g. "1032.80".
func (m Money) String() string {
	return m.Decimal().StringFixed(m.sc())
}

// MarshalJSON writes the amount as a JSON number with fixed fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*m = Zero
		return nil
	}
	parsed, err := NewFromString(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
