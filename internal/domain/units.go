package domain

import (
	"math/big"
	"strings"
)

var ten = big.NewInt(10)

// pow10 returns 10^n as a fresh big.Int.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// ParseUnits converts a decimal string into minor units at the given
// precision. Excess fractional digits are truncated, matching on-chain
// integer semantics. Returns false for anything that is not a plain
// non-negative decimal number.
func ParseUnits(s string, decimals uint8) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, false
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, false
	}
	if whole == "" {
		whole = "0"
	}
	if strings.ContainsAny(whole, "eE") || strings.ContainsAny(frac, ".eE") {
		return nil, false
	}

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok || wholeInt.Sign() < 0 {
		return nil, false
	}

	out := wholeInt.Mul(wholeInt, pow10(decimals))

	if frac != "" {
		if len(frac) > int(decimals) {
			frac = frac[:decimals]
		}
		if frac != "" {
			fracInt, ok := new(big.Int).SetString(frac, 10)
			if !ok || fracInt.Sign() < 0 {
				return nil, false
			}
			fracInt.Mul(fracInt, pow10(decimals-uint8(len(frac))))
			out.Add(out, fracInt)
		}
	}

	return out, true
}

// FormatUnits renders minor units as a decimal string at the given
// precision, trimming trailing fractional zeros.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}

	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	quo, rem := new(big.Int).QuoRem(abs, pow10(decimals), new(big.Int))

	out := quo.String()
	if rem.Sign() != 0 {
		frac := rem.String()
		for len(frac) < int(decimals) {
			frac = "0" + frac
		}
		frac = strings.TrimRight(frac, "0")
		if frac != "" {
			out += "." + frac
		}
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// UnitsToFloat renders minor units as a float64 for rate and impact math.
// Display amounts stay in integer/string form; floats are confined to
// derived ratios.
func UnitsToFloat(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, new(big.Float).SetInt(pow10(decimals)))
	out, _ := f.Float64()
	return out
}
