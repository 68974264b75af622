package quoter

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/fastswap/quote-engine/internal/common"
	"github.com/fastswap/quote-engine/internal/domain"
)

// Price impact display clamp, in percent.
const (
	impactFloorPct = -50.0
	impactCeilPct  = 0.0
)

// MinAmountOut returns amountOut * (10000 - slippageBps) / 10000, the worst
// acceptable output for an ExactIn trade. All slippage math runs on
// minor-unit integers; floats appear only at the formatting edge.
func MinAmountOut(amountOut *big.Int, slippageBps uint16) *big.Int {
	return applyBps(amountOut, common.BpsDenom-int64(slippageBps))
}

// MaxAmountIn returns amountIn * (10000 + slippageBps) / 10000, the worst
// acceptable input for an ExactOut trade.
func MaxAmountIn(amountIn *big.Int, slippageBps uint16) *big.Int {
	return applyBps(amountIn, common.BpsDenom+int64(slippageBps))
}

// BoundedAmount picks the slippage bound for the unfixed side of the trade.
func BoundedAmount(result *domain.FeeTierResult, tradeType domain.TradeType, slippageBps uint16) *big.Int {
	if tradeType == domain.TradeExactIn {
		return MinAmountOut(result.AmountOut, slippageBps)
	}
	return MaxAmountIn(result.AmountIn, slippageBps)
}

// applyBps computes amount * numerBps / 10000, truncating. The uint256 path
// covers every realistic token amount; the big.Int fallback only runs when
// the scaled product would not fit 256 bits.
func applyBps(amount *big.Int, numerBps int64) *big.Int {
	if v, overflow := uint256.FromBig(amount); !overflow {
		product, overflow := new(uint256.Int).MulOverflow(v, uint256.NewInt(uint64(numerBps)))
		if !overflow {
			product.Div(product, uint256.NewInt(uint64(common.BpsDenom)))
			return product.ToBig()
		}
	}

	out := new(big.Int).Mul(amount, big.NewInt(numerBps))
	return out.Div(out, big.NewInt(common.BpsDenom))
}

// ExecutionRate is the human-unit output per unit of input actually
// achieved by the trade.
func ExecutionRate(amountIn, amountOut *big.Int, decimalsIn, decimalsOut uint8) float64 {
	inHuman := domain.UnitsToFloat(amountIn, decimalsIn)
	outHuman := domain.UnitsToFloat(amountOut, decimalsOut)
	if inHuman <= 0 {
		return 0
	}
	return outHuman / inHuman
}

// PriceImpactPct compares the execution rate against the spot rate and
// clamps the result to the display range. Impact is never positive: a
// better-than-spot fill reads as zero.
func PriceImpactPct(execRate, spotRate float64) float64 {
	if spotRate <= 0 {
		return 0
	}
	return clampImpact((execRate - spotRate) / spotRate * 100)
}

// FallbackImpactPct estimates impact from trade size alone when the spot
// probe failed: -0.01 * log10(amountHuman + 1).
func FallbackImpactPct(amountHuman float64) float64 {
	if amountHuman < 0 {
		amountHuman = 0
	}
	return clampImpact(-0.01 * math.Log10(amountHuman+1))
}

func clampImpact(pct float64) float64 {
	if pct > impactCeilPct {
		return impactCeilPct
	}
	if pct < impactFloorPct {
		return impactFloorPct
	}
	return pct
}

// ClassifySeverity buckets impact magnitude for display.
func ClassifySeverity(impactPct float64) domain.ImpactSeverity {
	abs := math.Abs(impactPct)
	switch {
	case abs < 0.1:
		return domain.SeverityNone
	case abs < 1:
		return domain.SeverityLow
	case abs < 3:
		return domain.SeverityModerate
	case abs < 5:
		return domain.SeverityHigh
	default:
		return domain.SeverityExtreme
	}
}
