package quoter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/metrics"
)

// contractQuoter is the simulation surface the racer depends on. The tests
// substitute a fake; production uses Client.
type contractQuoter interface {
	QuoteExactInput(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*simulationResult, error)
	QuoteExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, amountOut *big.Int, fee uint32) (*simulationResult, error)
}

// Client simulates QuoterV2 calls against a primary RPC endpoint with an
// optional fallback. The fallback is tried only on transport failures,
// inside the caller's deadline; reverts and timeouts never fail over.
type Client struct {
	primary  *ethclient.Client
	fallback *ethclient.Client
	quoter   common.Address
	abi      abi.ABI
}

func NewClient(ctx context.Context, rpcURL, fallbackURL string, quoterAddr common.Address) (*Client, error) {
	primary, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial primary rpc: %w", err)
	}

	var fallback *ethclient.Client
	if fallbackURL != "" {
		fallback, err = ethclient.DialContext(ctx, fallbackURL)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("failed to dial fallback rpc: %w", err)
		}
	}

	return &Client{
		primary:  primary,
		fallback: fallback,
		quoter:   quoterAddr,
		abi:      mustParseQuoterABI(),
	}, nil
}

func (c *Client) Close() {
	c.primary.Close()
	if c.fallback != nil {
		c.fallback.Close()
	}
}

func (c *Client) QuoteExactInput(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*simulationResult, error) {
	data, err := packExactInput(c.abi, tokenIn, tokenOut, amountIn, fee)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quoteExactInputSingle: %w", err)
	}
	return c.simulate(ctx, "quoteExactInputSingle", data)
}

func (c *Client) QuoteExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, amountOut *big.Int, fee uint32) (*simulationResult, error) {
	data, err := packExactOutput(c.abi, tokenIn, tokenOut, amountOut, fee)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quoteExactOutputSingle: %w", err)
	}
	return c.simulate(ctx, "quoteExactOutputSingle", data)
}

func (c *Client) simulate(ctx context.Context, method string, data []byte) (*simulationResult, error) {
	msg := ethereum.CallMsg{To: &c.quoter, Data: data}

	raw, err := c.primary.CallContract(ctx, msg, nil)
	if err != nil {
		classified := classifyCallError(err)
		if !errors.Is(classified, domain.ErrNetwork) || c.fallback == nil {
			return nil, classified
		}

		metrics.RPCFailovers.Inc()
		log.Warn().Err(err).Str("method", method).Msg("[quoterClient] primary rpc failed, retrying on fallback")
		raw, err = c.fallback.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, classifyCallError(err)
		}
	}

	return unpackSimulation(c.abi, method, raw)
}

// classifyCallError maps raw RPC failures onto the domain sentinels. A
// revert means the simulated pool path cannot execute; a deadline means the
// endpoint was too slow; anything else is a transport failure.
func classifyCallError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrCallTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	case strings.Contains(err.Error(), "execution reverted"):
		return fmt.Errorf("%w: %v", domain.ErrReverted, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
}
