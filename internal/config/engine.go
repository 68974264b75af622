package config

import (
	"errors"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type EngineConfig struct {
	// FeeTiers are the pool fee levels raced per request, in hundredths of a
	// bip. Kept sorted ascending so reduction ties break toward the lowest
	// tier deterministically.
	FeeTiers []uint32

	// StructuralDebounce applies when the pair or trade direction changes;
	// AmountDebounce applies to pure amount edits, longer so fast typing
	// does not flood the RPC endpoint.
	StructuralDebounce time.Duration
	AmountDebounce     time.Duration

	// RefreshTicks is the countdown length of a resolved quote, in ticks of
	// TickInterval each.
	RefreshTicks int
	TickInterval time.Duration

	DefaultSlippageBps uint16
	MaxSlippageBps     uint16

	// MaxAmountDigits rejects amounts whose minor-unit representation would
	// exceed this many decimal digits, keeping uint256 headroom downstream.
	MaxAmountDigits int

	// SessionTTL evicts quote sessions with no input changes, snapshot reads
	// or stream activity for this long.
	SessionTTL time.Duration
}

func (c *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (c *EngineConfig) Load() error {
	c.FeeTiers = []uint32{500, 3000, 10000}
	if raw := os.Getenv("FEE_TIERS"); raw != "" {
		c.FeeTiers = c.FeeTiers[:0]
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			tier, err := strconv.ParseUint(p, 10, 32)
			if err != nil {
				return errors.New("invalid FEE_TIERS entry: " + p)
			}
			c.FeeTiers = append(c.FeeTiers, uint32(tier))
		}
	}
	slices.Sort(c.FeeTiers)
	c.FeeTiers = slices.Compact(c.FeeTiers)

	c.StructuralDebounce = time.Duration(common.GetEnvOrDefaultInt("STRUCTURAL_DEBOUNCE_MS", 150)) * time.Millisecond
	c.AmountDebounce = time.Duration(common.GetEnvOrDefaultInt("AMOUNT_DEBOUNCE_MS", 500)) * time.Millisecond
	c.RefreshTicks = common.GetEnvOrDefaultInt("QUOTE_REFRESH_TICKS", 15)
	c.TickInterval = time.Duration(common.GetEnvOrDefaultInt("QUOTE_TICK_INTERVAL_MS", 1000)) * time.Millisecond
	c.DefaultSlippageBps = uint16(common.GetEnvOrDefaultInt("DEFAULT_SLIPPAGE_BPS", 50))
	c.MaxSlippageBps = uint16(common.GetEnvOrDefaultInt("MAX_SLIPPAGE_BPS", 5000))
	c.MaxAmountDigits = common.GetEnvOrDefaultInt("MAX_AMOUNT_DIGITS", 38)
	c.SessionTTL = time.Duration(common.GetEnvOrDefaultInt("SESSION_TTL_SECONDS", 600)) * time.Second
	return nil
}

func (c *EngineConfig) Validate() error {
	if len(c.FeeTiers) == 0 {
		return errors.New("invalid engine config: at least one fee tier required")
	}
	if c.RefreshTicks <= 0 || c.TickInterval <= 0 {
		return errors.New("invalid engine config: refresh countdown must be positive")
	}
	if c.DefaultSlippageBps > c.MaxSlippageBps {
		return errors.New("invalid engine config: default slippage above maximum")
	}
	return nil
}
