// Package common contains shared constants and utilities used across services
package common

const (
	// BpsDenom is the basis-point denominator for slippage math.
	BpsDenom = 10000

	// SpotProbeDivisor sizes the spot probe input: one 1/1000th of a whole
	// token, small enough to be liquidity-insensitive at any tier.
	SpotProbeDivisor = 1000
)
