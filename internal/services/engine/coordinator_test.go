package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastswap/quote-engine/internal/config"
	"github.com/fastswap/quote-engine/internal/domain"
)

var (
	tokenA = domain.Token{Address: common.HexToAddress("0xaa"), Symbol: "AAA", Decimals: 18}
	tokenB = domain.Token{Address: common.HexToAddress("0xbb"), Symbol: "BBB", Decimals: 6}
)

func testConfig() *config.EngineConfig {
	return &config.EngineConfig{
		FeeTiers:           []uint32{500, 3000, 10000},
		StructuralDebounce: 10 * time.Millisecond,
		AmountDebounce:     30 * time.Millisecond,
		RefreshTicks:       15,
		TickInterval:       25 * time.Millisecond,
		DefaultSlippageBps: 50,
		MaxSlippageBps:     5000,
		MaxAmountDigits:    38,
		SessionTTL:         time.Minute,
	}
}

// fakeSource records every request it sees and answers from a configurable
// resolve function.
type fakeSource struct {
	mu      sync.Mutex
	calls   []*domain.QuoteRequest
	resolve func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error)
}

func (f *fakeSource) Resolve(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	resolve := f.resolve
	f.mu.Unlock()
	if resolve == nil {
		return quoteFor(req), nil
	}
	return resolve(ctx, req)
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSource) lastCall() *domain.QuoteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeSource) setResolve(fn func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error)) {
	f.mu.Lock()
	f.resolve = fn
	f.mu.Unlock()
}

// quoteFor fabricates a deterministic quote: amountOut is double the input.
func quoteFor(req *domain.QuoteRequest) *domain.Quote {
	out := new(big.Int).Mul(req.Amount, big.NewInt(2))
	return &domain.Quote{
		TokenIn:            req.TokenIn,
		TokenOut:           req.TokenOut,
		AmountIn:           req.Amount,
		AmountInFormatted:  domain.FormatUnits(req.Amount, req.TokenIn.Decimals),
		AmountOut:          out,
		AmountOutFormatted: domain.FormatUnits(out, req.TokenOut.Decimals),
		TradeType:          req.TradeType,
		ExchangeRate:       2,
		FeeTier:            3000,
		SlippageBps:        req.SlippageBps,
	}
}

func newTestCoordinator(source QuoteSource) *Coordinator {
	return NewCoordinator(testConfig(), 2*time.Second, source, zerolog.Nop())
}

func validInputs(amount string) Inputs {
	return Inputs{
		TokenIn:     &tokenA,
		TokenOut:    &tokenB,
		Amount:      amount,
		TradeType:   domain.TradeExactIn,
		SlippageBps: 50,
	}
}

func waitForState(t *testing.T, c *Coordinator, state domain.QuoteState) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = c.CurrentSnapshot()
		return snap.State == state
	}, 2*time.Second, 5*time.Millisecond, "never reached state %s, last: %s", state, snap.State)
	return snap
}

func TestMissingInputsSettleIdle(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(Inputs{TokenIn: &tokenA, Amount: "1"})
	snap := c.CurrentSnapshot()
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Nil(t, snap.Quote)

	c.UpdateInputs(Inputs{TokenIn: &tokenA, TokenOut: &tokenB, Amount: "  "})
	assert.Equal(t, domain.StateIdle, c.CurrentSnapshot().State)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, source.callCount())
}

func TestZeroAmountSettlesIdle(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("0"))
	assert.Equal(t, domain.StateIdle, c.CurrentSnapshot().State)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, source.callCount())
}

func TestSelfTradeRejectedWithoutNetworkCalls(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(Inputs{TokenIn: &tokenA, TokenOut: &tokenA, Amount: "1", TradeType: domain.TradeExactIn})

	snap := c.CurrentSnapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Contains(t, snap.ErrorCause, "identical")

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, source.callCount())
}

func TestInvalidAmountFails(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("12.3.4"))
	snap := c.CurrentSnapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Contains(t, snap.ErrorCause, "decimal")
	assert.Zero(t, source.callCount())
}

func TestOversizedAmountFails(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	// 10^30 whole tokens at 18 decimals is 49 digits of minor units.
	c.UpdateInputs(validInputs("1000000000000000000000000000000"))
	snap := c.CurrentSnapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Contains(t, snap.ErrorCause, "range")
	assert.Zero(t, source.callCount())
}

func TestHappyPathResolves(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("1.5"))
	assert.Equal(t, domain.StateDebouncing, c.CurrentSnapshot().State)

	snap := waitForState(t, c, domain.StateResolved)
	require.NotNil(t, snap.Quote)
	assert.Equal(t, "1.5", snap.Quote.AmountInFormatted)
	assert.False(t, snap.Stale)
	assert.GreaterOrEqual(t, snap.TicksRemaining, testConfig().RefreshTicks-1)
	assert.Equal(t, 1, source.callCount())
}

func TestDebounceCollapsesRapidEdits(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	for _, amount := range []string{"1", "12", "123", "1234", "12345"} {
		c.UpdateInputs(validInputs(amount))
	}
	waitForState(t, c, domain.StateResolved)

	assert.Equal(t, 1, source.callCount())
	assert.Equal(t, "12345", source.lastCall().AmountInput)
}

func TestEquivalentInputsDoNotRetrigger(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("1"))
	waitForState(t, c, domain.StateResolved)

	c.UpdateInputs(validInputs("1"))
	assert.Equal(t, domain.StateResolved, c.CurrentSnapshot().State)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, source.callCount())
}

func TestLatestIDWinsUnderSupersession(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{}
	source.setResolve(func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
		if req.AmountInput == "1" {
			<-release
		}
		return quoteFor(req), nil
	})
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("1"))
	require.Eventually(t, func() bool { return source.callCount() == 1 }, time.Second, 5*time.Millisecond)

	// Supersede while the first request hangs, then let it finish late.
	c.UpdateInputs(validInputs("2"))
	snap := waitForState(t, c, domain.StateResolved)
	require.Equal(t, "2", snap.Quote.AmountInFormatted)

	close(release)
	time.Sleep(60 * time.Millisecond)

	snap = c.CurrentSnapshot()
	assert.Equal(t, domain.StateResolved, snap.State)
	assert.Equal(t, "2", snap.Quote.AmountInFormatted, "late result for a superseded request must never surface")
}

func TestNoLiquidityIsDistinctFromFailed(t *testing.T) {
	source := &fakeSource{}
	source.setResolve(func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
		return nil, domain.ErrNoLiquidity
	})
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("1"))
	snap := waitForState(t, c, domain.StateNoLiquidity)
	assert.Nil(t, snap.Quote)
	assert.Empty(t, snap.ErrorCause)
}

func TestRefreshFailureKeepsStaleQuote(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("1"))
	waitForState(t, c, domain.StateResolved)

	source.setResolve(func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrNetwork)
	})
	c.ForceRefresh()

	snap := waitForState(t, c, domain.StateFailed)
	require.NotNil(t, snap.Quote, "a failed background refresh must not blank out the last good quote")
	assert.True(t, snap.Stale)
	assert.Equal(t, "1", snap.Quote.AmountInFormatted)
	assert.Contains(t, snap.ErrorCause, "network")
}

func TestFailureOnChangedInputsClearsQuote(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("1"))
	waitForState(t, c, domain.StateResolved)

	source.setResolve(func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrNetwork)
	})
	c.UpdateInputs(validInputs("999"))

	snap := waitForState(t, c, domain.StateFailed)
	assert.Nil(t, snap.Quote)
	assert.False(t, snap.Stale)
}

func TestCountdownTicksDownAndRefreshes(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTicks = 2
	cfg.TickInterval = 20 * time.Millisecond

	source := &fakeSource{}
	c := NewCoordinator(cfg, 2*time.Second, source, zerolog.Nop())
	defer c.Close()

	c.UpdateInputs(validInputs("1"))
	waitForState(t, c, domain.StateResolved)

	// Expiry re-issues an equivalent request with a fresh id.
	require.Eventually(t, func() bool { return source.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	source.mu.Lock()
	first, second := source.calls[0], source.calls[1]
	source.mu.Unlock()
	assert.True(t, second.EquivalentTo(first))
	assert.Greater(t, second.ID, first.ID)

	waitForState(t, c, domain.StateResolved)
}

func TestTimerResetsOnInputChange(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("1"))
	waitForState(t, c, domain.StateResolved)

	// Let the countdown lose a few ticks.
	require.Eventually(t, func() bool {
		return c.CurrentSnapshot().TicksRemaining < testConfig().RefreshTicks
	}, time.Second, 5*time.Millisecond)

	c.UpdateInputs(validInputs("2"))
	snap := waitForState(t, c, domain.StateResolved)
	assert.GreaterOrEqual(t, snap.TicksRemaining, testConfig().RefreshTicks-1)
	assert.Equal(t, "2", snap.Quote.AmountInFormatted)
	assert.Equal(t, 2, source.callCount(), "no stale refresh may fire for the abandoned request")
}

func TestSwitchSidesPublishesProvisionalSnapshot(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	c.UpdateInputs(validInputs("4"))
	waitForState(t, c, domain.StateResolved)

	// Hold the flipped resolution so the provisional window is observable.
	source.setResolve(func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
		<-release
		return quoteFor(req), nil
	})
	c.SwitchSides()

	snap := c.CurrentSnapshot()
	require.NotNil(t, snap.Quote)
	assert.True(t, snap.Quote.Provisional)
	assert.Equal(t, tokenB.Address, snap.Quote.TokenIn.Address)
	assert.Equal(t, tokenA.Address, snap.Quote.TokenOut.Address)

	close(release)
	snap = waitForState(t, c, domain.StateResolved)
	require.NotNil(t, snap.Quote)
	assert.False(t, snap.Quote.Provisional, "the real resolution must replace the snapshot")
	assert.Equal(t, tokenB.Address, snap.Quote.TokenIn.Address)
}

func TestSwitchSidesFailureKeepsSnapshotUntilRetry(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTicks = 2
	cfg.TickInterval = 20 * time.Millisecond

	source := &fakeSource{}
	c := NewCoordinator(cfg, 2*time.Second, source, zerolog.Nop())
	defer c.Close()

	c.UpdateInputs(validInputs("4"))
	waitForState(t, c, domain.StateResolved)

	failing := true
	var mu sync.Mutex
	source.setResolve(func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return nil, fmt.Errorf("%w: connection refused", domain.ErrNetwork)
		}
		return quoteFor(req), nil
	})
	c.SwitchSides()

	snap := waitForState(t, c, domain.StateFailed)
	require.NotNil(t, snap.Quote, "the snapshot must survive a failed flip resolution")
	assert.True(t, snap.Quote.Provisional)
	assert.True(t, snap.Stale)

	// The countdown forces a retry which now succeeds.
	mu.Lock()
	failing = false
	mu.Unlock()
	snap = waitForState(t, c, domain.StateResolved)
	assert.False(t, snap.Quote.Provisional)
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)
	defer c.Close()

	ch, cancel := c.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, domain.StateIdle, first.State)

	c.UpdateInputs(validInputs("1"))

	seen := map[domain.QuoteState]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[domain.StateResolved] {
		select {
		case snap := <-ch:
			seen[snap.State] = true
		case <-deadline:
			t.Fatalf("never observed Resolved, saw %v", seen)
		}
	}
	assert.True(t, seen[domain.StateDebouncing])
	assert.True(t, seen[domain.StateInFlight])
}

func TestCloseStopsEverything(t *testing.T) {
	source := &fakeSource{}
	c := newTestCoordinator(source)

	ch, cancel := c.Subscribe()
	defer cancel()
	<-ch

	c.UpdateInputs(validInputs("1"))
	c.Close()

	_, open := <-ch
	for open {
		_, open = <-ch
	}

	calls := source.callCount()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, source.callCount(), "no dispatch may fire after Close")
}
