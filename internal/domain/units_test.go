package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	cases := []struct {
		input    string
		decimals uint8
		expected string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.5", 6, "1500000"},
		{"0.000001", 6, "1"},
		{"0", 6, "0"},
		{"0.0", 6, "0"},
		{"123.456789123", 6, "123456789"}, // extra precision truncates
		{".5", 6, "500000"},
		{"2.", 6, "2000000"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseUnits(tc.input, tc.decimals)
			require.True(t, ok)
			assert.Equal(t, tc.expected, got.String())
		})
	}
}

func TestParseUnitsRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", ".", "1.2.3", "abc", "1e6", "-5", "+5", "1,5"} {
		_, ok := ParseUnits(input, 6)
		assert.False(t, ok, "expected %q to be rejected", input)
	}
}

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		value    string
		decimals uint8
		expected string
	}{
		{"1000000000000000000", 18, "1"},
		{"1500000", 6, "1.5"},
		{"1", 6, "0.000001"},
		{"0", 6, "0"},
		{"123456789", 6, "123.456789"},
		{"1230000", 6, "1.23"}, // trailing zeros trimmed
		{"42", 0, "42"},
	}

	for _, tc := range cases {
		t.Run(tc.expected, func(t *testing.T) {
			v, _ := new(big.Int).SetString(tc.value, 10)
			assert.Equal(t, tc.expected, FormatUnits(v, tc.decimals))
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"1", "1.5", "0.000001", "987654.321"} {
		v, ok := ParseUnits(s, 6)
		require.True(t, ok)
		assert.Equal(t, s, FormatUnits(v, 6))
	}
}

func TestUnitsToFloat(t *testing.T) {
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.InDelta(t, 1.5, UnitsToFloat(v, 18), 1e-12)
	assert.Equal(t, 0.0, UnitsToFloat(nil, 18))
}

func TestRequestEquivalence(t *testing.T) {
	a := &QuoteRequest{
		ID:          1,
		TokenIn:     Token{Symbol: "AAA"},
		TokenOut:    Token{Symbol: "BBB"},
		Amount:      big.NewInt(100),
		TradeType:   TradeExactIn,
		SlippageBps: 50,
	}
	b := *a
	b.ID = 2
	assert.True(t, a.EquivalentTo(&b), "id must not affect equivalence")

	c := b
	c.Amount = big.NewInt(101)
	assert.False(t, a.EquivalentTo(&c))
	assert.False(t, a.EquivalentTo(nil))
}

func TestStructuralChange(t *testing.T) {
	base := &QuoteRequest{TokenIn: Token{Symbol: "AAA"}, TokenOut: Token{Symbol: "BBB"}, TradeType: TradeExactIn}

	amountEdit := *base
	assert.False(t, amountEdit.StructuralChangeFrom(base))

	flipped := *base
	flipped.TradeType = TradeExactOut
	assert.True(t, flipped.StructuralChangeFrom(base))

	assert.True(t, base.StructuralChangeFrom(nil))
}
