package engine

import (
	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/services/quoter"
)

// InvertQuote algebraically flips a quote for the opposite trade direction:
// amounts swap sides, the exchange rate inverts, price impact carries over
// unchanged. The result is marked Provisional and is only ever shown while
// a real resolution for the flipped pair is in flight.
func InvertQuote(q *domain.Quote) *domain.Quote {
	if q == nil || q.AmountIn == nil || q.AmountOut == nil {
		return nil
	}

	inv := &domain.Quote{
		TokenIn:            q.TokenOut,
		TokenOut:           q.TokenIn,
		AmountIn:           q.AmountOut,
		AmountInFormatted:  q.AmountOutFormatted,
		AmountOut:          q.AmountIn,
		AmountOutFormatted: q.AmountInFormatted,
		TradeType:          q.TradeType,
		PriceImpact:        q.PriceImpact,
		Severity:           q.Severity,
		GasEstimate:        q.GasEstimate,
		FeeTier:            q.FeeTier,
		SlippageBps:        q.SlippageBps,
		Provisional:        true,
	}
	if q.ExchangeRate > 0 {
		inv.ExchangeRate = 1 / q.ExchangeRate
	}

	if q.TradeType == domain.TradeExactIn {
		inv.BoundedAmount = quoter.MinAmountOut(inv.AmountOut, q.SlippageBps)
		inv.BoundedAmountFormatted = domain.FormatUnits(inv.BoundedAmount, inv.TokenOut.Decimals)
	} else {
		inv.BoundedAmount = quoter.MaxAmountIn(inv.AmountIn, q.SlippageBps)
		inv.BoundedAmountFormatted = domain.FormatUnits(inv.BoundedAmount, inv.TokenIn.Decimals)
	}
	return inv
}
