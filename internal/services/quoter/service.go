package quoter

import (
	"context"
	"errors"
	"time"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/fastswap/quote-engine/internal/config"
	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/metrics"
	"github.com/fastswap/quote-engine/internal/services"
)

const QUOTER_SERVICE = "quoter-service"

// Service resolves one quote request end to end: race the fee tiers, probe
// the spot rate on the winning tier, then derive rate, impact and slippage
// bounds. It is stateless per request and safe for concurrent use.
type Service struct {
	container.BaseDIInstance

	logger *services.ServiceLogger
	rpcCfg *config.RPCConfig
	engCfg *config.EngineConfig

	client *Client
	quoter contractQuoter
	racer  *Racer
}

func (svc *Service) ID() string {
	return QUOTER_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.rpcCfg = c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.engCfg = c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	return nil
}

func (svc *Service) Start() error {
	dialCtx, cancel := context.WithTimeout(context.Background(), svc.rpcCfg.CallTimeout)
	defer cancel()

	client, err := NewClient(dialCtx, svc.rpcCfg.RPCUrl, svc.rpcCfg.FallbackRPCUrl, svc.rpcCfg.QuoterAddress)
	if err != nil {
		return err
	}
	svc.client = client
	svc.quoter = client
	svc.racer = NewRacer(client, svc.engCfg.FeeTiers, svc.rpcCfg.CallTimeout)

	svc.logger.Info().
		Str("quoter", svc.rpcCfg.QuoterAddress.Hex()).
		Uints32("feeTiers", svc.engCfg.FeeTiers).
		Bool("fallbackRPC", svc.rpcCfg.FallbackRPCUrl != "").
		Msg("quoter service started")
	return nil
}

func (svc *Service) Stop() error {
	if svc.client != nil {
		svc.client.Close()
	}
	return nil
}

// Resolve races the fee tiers for the request and assembles the derived
// quote. The caller owns the overall deadline on ctx.
func (svc *Service) Resolve(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	started := time.Now()

	best, err := svc.racer.Race(ctx, req)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(string(req.TradeType), requestStatus(err)).Inc()
		return nil, err
	}

	execRate := ExecutionRate(best.AmountIn, best.AmountOut, req.TokenIn.Decimals, req.TokenOut.Decimals)
	if execRate <= 0 {
		metrics.QuoteRequests.WithLabelValues(string(req.TradeType), "no_liquidity").Inc()
		return nil, domain.ErrNoLiquidity
	}

	var impact float64
	probeCtx, cancelProbe := context.WithTimeout(ctx, svc.rpcCfg.CallTimeout)
	spotRate, ok := svc.probeSpotRate(probeCtx, req, best.FeeTier)
	cancelProbe()
	if ok {
		impact = PriceImpactPct(execRate, spotRate)
	} else {
		impact = FallbackImpactPct(domain.UnitsToFloat(best.AmountIn, req.TokenIn.Decimals))
	}

	bounded := BoundedAmount(best, req.TradeType, req.SlippageBps)
	boundedDecimals := req.TokenOut.Decimals
	if req.TradeType == domain.TradeExactOut {
		boundedDecimals = req.TokenIn.Decimals
	}

	quote := &domain.Quote{
		TokenIn:                req.TokenIn,
		TokenOut:               req.TokenOut,
		AmountIn:               best.AmountIn,
		AmountInFormatted:      domain.FormatUnits(best.AmountIn, req.TokenIn.Decimals),
		AmountOut:              best.AmountOut,
		AmountOutFormatted:     domain.FormatUnits(best.AmountOut, req.TokenOut.Decimals),
		BoundedAmount:          bounded,
		BoundedAmountFormatted: domain.FormatUnits(bounded, boundedDecimals),
		TradeType:              req.TradeType,
		ExchangeRate:           execRate,
		PriceImpact:            impact,
		Severity:               ClassifySeverity(impact),
		GasEstimate:            best.GasEstimate,
		FeeTier:                best.FeeTier,
		SlippageBps:            req.SlippageBps,
	}

	metrics.QuoteRequests.WithLabelValues(string(req.TradeType), "resolved").Inc()
	metrics.QuoteResolutionDuration.WithLabelValues(string(req.TradeType)).Observe(time.Since(started).Seconds())
	return quote, nil
}

func requestStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoLiquidity):
		return "no_liquidity"
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrCallTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrNetwork):
		return "network_error"
	default:
		return "failed"
	}
}
