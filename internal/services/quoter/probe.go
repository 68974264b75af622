package quoter

import (
	"context"
	"math/big"

	"github.com/fastswap/quote-engine/internal/common"
	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/metrics"
)

// spotProbeAmount is one SpotProbeDivisor-th of a whole input token in minor
// units, floored at 1 so dust-decimal tokens still probe something.
func spotProbeAmount(decimalsIn uint8) *big.Int {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalsIn)), nil)
	probe := one.Div(one, big.NewInt(common.SpotProbeDivisor))
	if probe.Sign() <= 0 {
		probe.SetInt64(1)
	}
	return probe
}

// probeSpotRate measures the near-zero-size exchange rate on the winning
// tier, used as the baseline for price impact. Returns ok=false when the
// probe fails for any reason; the caller falls back to a size-based
// estimate rather than failing the whole quote.
func (s *Service) probeSpotRate(ctx context.Context, req *domain.QuoteRequest, tier uint32) (float64, bool) {
	amountIn := spotProbeAmount(req.TokenIn.Decimals)

	sim, err := s.quoter.QuoteExactInput(ctx, req.TokenIn.Address, req.TokenOut.Address, amountIn, tier)
	if err != nil || sim.Amount == nil || sim.Amount.Sign() <= 0 {
		metrics.SpotProbeFallbacks.Inc()
		if err != nil {
			s.logger.Debug().Err(err).Uint32("feeTier", tier).Msg("spot probe failed, using size-based impact estimate")
		}
		return 0, false
	}

	inHuman := domain.UnitsToFloat(amountIn, req.TokenIn.Decimals)
	outHuman := domain.UnitsToFloat(sim.Amount, req.TokenOut.Decimals)
	if inHuman <= 0 || outHuman <= 0 {
		metrics.SpotProbeFallbacks.Inc()
		return 0, false
	}
	return outHuman / inHuman, true
}
