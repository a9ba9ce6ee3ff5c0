package money

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{name: "whole amount", input: "12000", expected: 1200000},
		{name: "two decimals", input: "1032.80", expected: 103280},
		{name: "half rounds up", input: "0.125", expected: 13},
		{name: "below half rounds down", input: "0.1249", expected: 12},
		{name: "negative half rounds toward positive", input: "-0.125", expected: -12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Minor())
			assert.Equal(t, DefaultScale, m.Scale())
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := NewFromString("12,00")
		assert.Error(t, err)
	})

	t.Run("largest representable amount", func(t *testing.T) {
		m, err := NewFromString("92233720368547758.07")
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), m.Minor())
	})

	for _, input := range []string{"200000000000000000", "92233720368547758.08", "-92233720368547758.09", "1e40"} {
		t.Run("out of range "+input, func(t *testing.T) {
			_, err := NewFromString(input)
			assert.True(t, errors.Is(err, ErrOutOfRange), "got %v", err)
		})
	}
}

func TestUnmarshalJSON_OutOfRange(t *testing.T) {
	var body struct {
		Principal Money `json:"principal"`
	}
	err := json.Unmarshal([]byte(`{"principal":200000000000000000}`), &body)

	assert.True(t, errors.Is(err, ErrOutOfRange), "got %v", err)
}

func TestArithmeticOverflowPanics(t *testing.T) {
	largest := FromMinor(math.MaxInt64)
	smallest := FromMinor(math.MinInt64)

	assert.PanicsWithError(t, "money: amount out of range: 9223372036854775807 + 1", func() { largest.Add(FromMinor(1)) })
	assert.Panics(t, func() { smallest.Sub(FromMinor(1)) })
	assert.Panics(t, func() { largest.MulInt(2) })
	assert.Panics(t, func() { smallest.Neg() })
	assert.Panics(t, func() { largest.Mul(decimal.NewFromInt(2)) })
	assert.Panics(t, func() { FromMinorScaled(math.MaxInt64/10, 1).Add(FromMinorScaled(1, 3)) })

	assert.NotPanics(t, func() { largest.Add(FromMinor(-1)) })
	assert.NotPanics(t, func() { smallest.Add(FromMinor(1)) })
}

func TestDivFloor(t *testing.T) {
	tests := []struct {
		amount   string
		n        int64
		expected string
	}{
		{"10.00", 60, "0.16"},
		{"2.00", 3, "0.66"},
		{"1200.00", 2, "600.00"},
		{"0.05", 2, "0.02"},
		{"-0.05", 2, "-0.03"},
		{"0.00", 7, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			share := MustParse(tt.amount).DivFloor(tt.n)
			assert.Equal(t, tt.expected, share.String())
			assert.False(t, share.MulInt(tt.n).GreaterThan(MustParse(tt.amount)))
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := MustParse("10.05")
	b := MustParse("0.95")

	assert.Equal(t, "11.00", a.Add(b).String())
	assert.Equal(t, "9.10", a.Sub(b).String())
	assert.Equal(t, "-10.05", a.Neg().String())
	assert.Equal(t, "10.05", a.Neg().Abs().String())
	assert.Equal(t, "0.00", Sum().String())
	assert.Equal(t, "21.05", Sum(a, a, b).String())
	assert.True(t, b.LessThan(a))
	assert.True(t, a.GreaterThan(b))
	assert.Equal(t, b, Min(a, b))
	assert.Equal(t, a, Max(a, b))
}

func TestMulRoundsHalfUp(t *testing.T) {
	amount := MustParse("680.00")
	assert.Equal(t, "34.00", amount.Mul(decimal.RequireFromString("0.05")).String())

	balance := MustParse("12000.00")
	monthlyRate := decimal.RequireFromString("0.06").Div(decimal.NewFromInt(12))
	assert.Equal(t, "60.00", balance.Mul(monthlyRate).String())

	// 0.05 * 0.5 = 0.025 -> 0.03
	assert.Equal(t, "0.03", MustParse("0.05").Mul(decimal.RequireFromString("0.5")).String())
}

func TestDivInt(t *testing.T) {
	assert.Equal(t, "0.33", MustParse("1.00").DivInt(3).String())
	assert.Equal(t, "0.67", MustParse("2.00").DivInt(3).String())
	assert.Equal(t, "0.03", MustParse("0.05").DivInt(2).String())
	assert.Equal(t, "720.00", MustParse("8640.00").MulRat(1, 12).String())
}

func TestMixedScales(t *testing.T) {
	coarse := FromMinorScaled(5, 1) // 0.5
	fine := FromMinor(25)           // 0.25
	sum := coarse.Add(fine)
	assert.Equal(t, int32(2), sum.Scale())
	assert.Equal(t, int64(75), sum.Minor())
	assert.Equal(t, 1, coarse.Cmp(fine))
}

func TestZeroValueUsesDefaultScale(t *testing.T) {
	var m Money
	assert.Equal(t, "0.00", m.String())
	assert.True(t, m.Equal(Zero))
	assert.Equal(t, "1.50", m.Add(MustParse("1.5")).String())
}

func TestJSON(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}

	out, err := json.Marshal(payload{Amount: MustParse("3600")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":3600.00}`, string(out))

	var fromNumber payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":1200.5}`), &fromNumber))
	assert.Equal(t, "1200.50", fromNumber.Amount.String())

	var fromString payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"99.99"}`), &fromString))
	assert.Equal(t, int64(9999), fromString.Amount.Minor())

	var bad payload
	assert.Error(t, json.Unmarshal([]byte(`{"amount":"abc"}`), &bad))
}
