package quoter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/metrics"
)

// Racer queries every configured fee tier concurrently and reduces the
// outcomes to the single best tier. A tier that reverts or times out simply
// contributes nothing; only a full transport outage surfaces as an error.
type Racer struct {
	quoter      contractQuoter
	tiers       []uint32
	callTimeout time.Duration
}

func NewRacer(quoter contractQuoter, tiers []uint32, callTimeout time.Duration) *Racer {
	return &Racer{quoter: quoter, tiers: tiers, callTimeout: callTimeout}
}

// Race fans out one simulation per fee tier and waits for all of them.
// For ExactIn the winner maximizes amountOut; for ExactOut it minimizes
// amountIn. Ties break toward the lowest tier since tiers are sorted
// ascending and the comparison is strict.
func (r *Racer) Race(ctx context.Context, req *domain.QuoteRequest) (*domain.FeeTierResult, error) {
	started := time.Now()

	results := make([]*domain.FeeTierResult, len(r.tiers))
	failures := make([]error, len(r.tiers))

	var wg sync.WaitGroup
	for i, tier := range r.tiers {
		wg.Add(1)
		go func(i int, tier uint32) {
			defer wg.Done()
			results[i], failures[i] = r.queryTier(ctx, req, tier)
		}(i, tier)
	}
	wg.Wait()

	metrics.TierRaceDuration.Observe(time.Since(started).Seconds())

	var best *domain.FeeTierResult
	for _, res := range results {
		if res == nil {
			continue
		}
		if best == nil {
			best = res
			continue
		}
		if req.TradeType == domain.TradeExactIn {
			if res.AmountOut.Cmp(best.AmountOut) > 0 {
				best = res
			}
		} else {
			if res.AmountIn.Cmp(best.AmountIn) < 0 {
				best = res
			}
		}
	}
	if best != nil {
		return best, nil
	}

	// Every tier came back empty. Reverts and timeouts mean no pool can
	// serve the trade, but if nothing even reached the chain the caller
	// must see the outage, not a liquidity verdict.
	var networkErr error
	allNetwork := true
	for _, err := range failures {
		if !errors.Is(err, domain.ErrNetwork) {
			allNetwork = false
			continue
		}
		if networkErr == nil {
			networkErr = err
		}
	}
	if allNetwork && networkErr != nil {
		return nil, networkErr
	}
	return nil, domain.ErrNoLiquidity
}

func (r *Racer) queryTier(ctx context.Context, req *domain.QuoteRequest, tier uint32) (*domain.FeeTierResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	var (
		sim *simulationResult
		err error
	)
	if req.TradeType == domain.TradeExactIn {
		sim, err = r.quoter.QuoteExactInput(callCtx, req.TokenIn.Address, req.TokenOut.Address, req.Amount, tier)
	} else {
		sim, err = r.quoter.QuoteExactOutput(callCtx, req.TokenIn.Address, req.TokenOut.Address, req.Amount, tier)
	}

	label := strconv.FormatUint(uint64(tier), 10)
	if err != nil {
		metrics.TierQueries.WithLabelValues(label, tierOutcome(err)).Inc()
		return nil, err
	}
	if sim.Amount == nil || sim.Amount.Sign() <= 0 {
		metrics.TierQueries.WithLabelValues(label, "empty").Inc()
		return nil, fmt.Errorf("%w: tier %d returned zero", domain.ErrNoLiquidity, tier)
	}
	metrics.TierQueries.WithLabelValues(label, "ok").Inc()

	result := &domain.FeeTierResult{FeeTier: tier, GasEstimate: sim.GasEstimate}
	if req.TradeType == domain.TradeExactIn {
		result.AmountIn = req.Amount
		result.AmountOut = sim.Amount
	} else {
		result.AmountIn = sim.Amount
		result.AmountOut = req.Amount
	}
	return result, nil
}

func tierOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrReverted):
		return "revert"
	case errors.Is(err, domain.ErrCallTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	default:
		return "error"
	}
}
