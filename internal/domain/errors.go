package domain

import "errors"

var (
	// Validation failures. Reported synchronously, never sent to the network.
	ErrSelfTrade      = errors.New("tokenIn and tokenOut are the same token")
	ErrInvalidAmount  = errors.New("amount must be a positive decimal number")
	ErrAmountTooLarge = errors.New("amount exceeds the supported ceiling")
	ErrTokenNotFound  = errors.New("token not found in catalog")

	// ErrNoLiquidity means every fee tier settled without a usable pool.
	// Expected for thin pairs, distinct from a network failure.
	ErrNoLiquidity = errors.New("no liquidity at any fee tier")

	// Network-level failures. Terminal for the request, eligible for the
	// next refresh tick or an explicit forceRefresh.
	ErrCallTimeout = errors.New("quoter call timed out")
	ErrNetwork     = errors.New("rpc transport error")

	// ErrReverted marks a single tier simulation that reverted. It is
	// swallowed by the racer, never surfaced past it.
	ErrReverted = errors.New("quoter call reverted")

	// ErrCancelled marks a superseded request. Purely internal, dropped
	// silently, never delivered to a listener.
	ErrCancelled = errors.New("request superseded")
)
