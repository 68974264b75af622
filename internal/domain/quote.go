package domain

import (
	"math/big"
)

// TradeType selects which side of the trade is fixed.
type TradeType string

const (
	// TradeExactIn fixes the input amount and solves for the output.
	TradeExactIn TradeType = "ExactIn"
	// TradeExactOut fixes the desired output amount and solves for the input.
	TradeExactOut TradeType = "ExactOut"
)

func (t TradeType) Valid() bool {
	return t == TradeExactIn || t == TradeExactOut
}

// QuoteRequest is one fully-validated resolution request. A new request is
// born on every input change; its ID is assigned by the coordinator and is
// strictly monotonic within a session.
type QuoteRequest struct {
	ID          uint64
	TokenIn     Token
	TokenOut    Token
	Amount      *big.Int // minor units of the fixed side
	AmountInput string   // raw decimal string as typed
	TradeType   TradeType
	SlippageBps uint16
}

// EquivalentTo reports whether two requests describe the same work.
// Equivalent requests must not re-trigger resolution; the ID is excluded
// on purpose so refreshes (same fields, new ID) compare equal.
func (r *QuoteRequest) EquivalentTo(o *QuoteRequest) bool {
	if r == nil || o == nil {
		return false
	}
	return r.TokenIn.Address == o.TokenIn.Address &&
		r.TokenOut.Address == o.TokenOut.Address &&
		r.TradeType == o.TradeType &&
		r.SlippageBps == o.SlippageBps &&
		r.Amount != nil && o.Amount != nil &&
		r.Amount.Cmp(o.Amount) == 0
}

// StructuralChangeFrom reports whether the pair or direction differs from a
// previous request. Structural changes debounce on the short interval; pure
// amount edits use the longer one.
func (r *QuoteRequest) StructuralChangeFrom(o *QuoteRequest) bool {
	if o == nil {
		return true
	}
	return r.TokenIn.Address != o.TokenIn.Address ||
		r.TokenOut.Address != o.TokenOut.Address ||
		r.TradeType != o.TradeType
}

// FeeTierResult is the usable outcome of one fee-tier query. Tiers that
// revert or time out produce no result at all, never a zero-valued one.
type FeeTierResult struct {
	FeeTier     uint32
	AmountIn    *big.Int
	AmountOut   *big.Int
	GasEstimate uint64
}

// ImpactSeverity buckets the clamped price impact for display.
type ImpactSeverity string

const (
	SeverityNone     ImpactSeverity = "none"     // < 0.1%
	SeverityLow      ImpactSeverity = "low"      // 0.1% - 1%
	SeverityModerate ImpactSeverity = "moderate" // 1% - 3%
	SeverityHigh     ImpactSeverity = "high"     // 3% - 5%
	SeverityExtreme  ImpactSeverity = "extreme"  // > 5%
)

// Quote is a fully-derived, immutable quote value. A new input always
// produces a new Quote; nothing here is ever mutated in place.
//
// Invariants: ExchangeRate > 0 whenever a Quote exists, and PriceImpact
// is clamped to [-50, 0].
type Quote struct {
	TokenIn  Token `json:"tokenIn"`
	TokenOut Token `json:"tokenOut"`

	AmountIn           *big.Int `json:"-"`
	AmountInFormatted  string   `json:"amountIn"`
	AmountOut          *big.Int `json:"-"`
	AmountOutFormatted string   `json:"amountOut"`

	// BoundedAmount is minOut for ExactIn and maxIn for ExactOut, computed
	// on minor-unit integers before any float formatting.
	BoundedAmount          *big.Int `json:"-"`
	BoundedAmountFormatted string   `json:"boundedAmount"`

	TradeType    TradeType      `json:"tradeType"`
	ExchangeRate float64        `json:"exchangeRate"`
	PriceImpact  float64        `json:"priceImpactPct"`
	Severity     ImpactSeverity `json:"priceImpactSeverity"`
	GasEstimate  uint64         `json:"gasEstimate"`
	FeeTier      uint32         `json:"feeTier"`
	SlippageBps  uint16         `json:"slippageBps"`

	// Provisional marks a side-switch snapshot: a synthetic quote shown only
	// until the real resolution for the flipped direction lands.
	Provisional bool `json:"provisional,omitempty"`
}

// QuoteState is the coordinator's externally visible state.
type QuoteState string

const (
	StateIdle        QuoteState = "Idle"
	StateDebouncing  QuoteState = "Debouncing"
	StateInFlight    QuoteState = "InFlight"
	StateResolved    QuoteState = "Resolved"
	StateNoLiquidity QuoteState = "NoLiquidity"
	StateFailed      QuoteState = "Failed"
)

// Terminal reports whether the state is a terminal outcome for a request.
func (s QuoteState) Terminal() bool {
	return s == StateResolved || s == StateNoLiquidity || s == StateFailed
}
