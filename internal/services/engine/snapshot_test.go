package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastswap/quote-engine/internal/domain"
)

func TestInvertQuoteRoundTrip(t *testing.T) {
	original := &domain.Quote{
		TokenIn:            tokenA,
		TokenOut:           tokenB,
		AmountIn:           big.NewInt(4000000),
		AmountInFormatted:  "4",
		AmountOut:          big.NewInt(8000000),
		AmountOutFormatted: "8",
		TradeType:          domain.TradeExactIn,
		ExchangeRate:       2,
		PriceImpact:        -0.5,
		Severity:           domain.SeverityLow,
		GasEstimate:        120000,
		FeeTier:            3000,
		SlippageBps:        50,
	}

	inv := InvertQuote(original)
	require.NotNil(t, inv)

	assert.Equal(t, tokenB, inv.TokenIn)
	assert.Equal(t, tokenA, inv.TokenOut)
	assert.Equal(t, original.AmountOut, inv.AmountIn)
	assert.Equal(t, original.AmountIn, inv.AmountOut)
	assert.Equal(t, "8", inv.AmountInFormatted)
	assert.Equal(t, "4", inv.AmountOutFormatted)
	assert.InDelta(t, 0.5, inv.ExchangeRate, 1e-12)
	assert.Equal(t, original.PriceImpact, inv.PriceImpact)
	assert.True(t, inv.Provisional)

	// Bounds are recomputed against the swapped output side.
	assert.Equal(t, "3980000", inv.BoundedAmount.String())
}

func TestInvertQuoteExactOutBound(t *testing.T) {
	original := &domain.Quote{
		TokenIn:      tokenA,
		TokenOut:     tokenB,
		AmountIn:     big.NewInt(1000000),
		AmountOut:    big.NewInt(2000000),
		TradeType:    domain.TradeExactOut,
		ExchangeRate: 2,
		SlippageBps:  100,
	}

	inv := InvertQuote(original)
	require.NotNil(t, inv)
	// maxIn on the swapped input side: 2000000 * 10100 / 10000.
	assert.Equal(t, "2020000", inv.BoundedAmount.String())
}

func TestInvertQuoteNilSafety(t *testing.T) {
	assert.Nil(t, InvertQuote(nil))
	assert.Nil(t, InvertQuote(&domain.Quote{}))
}
