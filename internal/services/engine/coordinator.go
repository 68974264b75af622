package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fastswap/quote-engine/internal/config"
	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/metrics"
)

// QuoteSource resolves one request into a quote. The quoter service is the
// production implementation; tests substitute fakes.
type QuoteSource interface {
	Resolve(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error)
}

// Inputs is the raw, untrusted input tuple of one quote session. Nil tokens
// and an empty amount are legal and simply mean "nothing to quote yet".
type Inputs struct {
	TokenIn     *domain.Token
	TokenOut    *domain.Token
	Amount      string
	TradeType   domain.TradeType
	SlippageBps int
}

// Snapshot is the externally visible state of a session at one instant.
type Snapshot struct {
	State          domain.QuoteState `json:"state"`
	Quote          *domain.Quote     `json:"quote,omitempty"`
	Stale          bool              `json:"stale,omitempty"`
	ErrorCause     string            `json:"errorCause,omitempty"`
	TicksRemaining int               `json:"ticksRemaining"`
}

// errAmountNotPositive routes zero amounts to Idle instead of Failed.
var errAmountNotPositive = errors.New("amount not positive")

// Coordinator owns one session's request identity, debouncing and
// supersession. It is the single writer of "current request id": every
// input change bumps the id, and any result arriving for an older id is
// discarded without touching observable state.
type Coordinator struct {
	cfg     *config.EngineConfig
	ceiling time.Duration
	source  QuoteSource
	logger  zerolog.Logger

	latestID atomic.Uint64

	mu         sync.Mutex
	state      domain.QuoteState
	inputs     Inputs
	current    *domain.QuoteRequest // most recently issued request
	quote      *domain.Quote
	quoteReq   *domain.QuoteRequest // request the quote belongs to
	stale      bool
	errCause   string
	ticksLeft  int
	debounce   *time.Timer
	refresh    *countdown
	refreshGen uint64
	subs       map[uint64]chan Snapshot
	nextSubID  uint64
	lastActive time.Time
	closed     bool
}

func NewCoordinator(cfg *config.EngineConfig, ceiling time.Duration, source QuoteSource, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		ceiling:    ceiling,
		source:     source,
		logger:     logger,
		state:      domain.StateIdle,
		refresh:    newCountdown(cfg.RefreshTicks, cfg.TickInterval),
		subs:       make(map[uint64]chan Snapshot),
		lastActive: time.Now(),
	}
}

// UpdateInputs replaces the session's input tuple. Invalid inputs settle
// synchronously (Idle or Failed, zero network calls); valid novel inputs
// enter Debouncing and dispatch after the quiet period. Inputs equivalent
// to the current request are a no-op.
func (c *Coordinator) UpdateInputs(in Inputs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.lastActive = time.Now()
	c.inputs = in

	if in.TokenIn == nil || in.TokenOut == nil || strings.TrimSpace(in.Amount) == "" {
		c.settleIdleLocked()
		return
	}

	req, err := c.buildRequest(in)
	if err != nil {
		if errors.Is(err, errAmountNotPositive) {
			c.settleIdleLocked()
		} else {
			c.settleValidationFailureLocked(in.TradeType, err)
		}
		return
	}

	if req.EquivalentTo(c.current) {
		return
	}

	structural := req.StructuralChangeFrom(c.current)
	if c.state == domain.StateDebouncing {
		metrics.DebouncedInputs.Inc()
	}

	req.ID = c.latestID.Add(1)
	c.current = req
	c.stopDebounceLocked()
	c.stopRefreshLocked()
	c.state = domain.StateDebouncing
	c.errCause = ""
	c.ticksLeft = 0

	delay := c.cfg.AmountDebounce
	if structural {
		delay = c.cfg.StructuralDebounce
	}
	c.debounce = time.AfterFunc(delay, func() { c.dispatch(req) })
	c.publishLocked()
}

// ForceRefresh re-resolves the current request immediately, bypassing the
// debounce and the countdown. Used by the manual retry action and by the
// refresh timer on expiry.
func (c *Coordinator) ForceRefresh() {
	c.mu.Lock()
	if c.closed || c.current == nil {
		c.mu.Unlock()
		return
	}
	c.lastActive = time.Now()
	c.stopDebounceLocked()
	c.stopRefreshLocked()
	c.ticksLeft = 0

	req := c.cloneWithNewIDLocked(c.current)
	c.mu.Unlock()

	c.dispatch(req)
}

// SwitchSides flips which token is sold and which is bought. When the last
// quote covers the same pair reversed, an inverted provisional snapshot is
// published immediately so callers never regress to an empty quote while
// the real resolution runs.
func (c *Coordinator) SwitchSides() {
	c.mu.Lock()
	if c.closed || c.inputs.TokenIn == nil || c.inputs.TokenOut == nil {
		c.mu.Unlock()
		return
	}
	c.lastActive = time.Now()

	in := c.inputs
	in.TokenIn, in.TokenOut = in.TokenOut, in.TokenIn
	c.inputs = in

	c.stopDebounceLocked()
	c.stopRefreshLocked()
	c.ticksLeft = 0

	if strings.TrimSpace(in.Amount) == "" {
		c.settleIdleLocked()
		c.mu.Unlock()
		return
	}

	req, err := c.buildRequest(in)
	if err != nil {
		if errors.Is(err, errAmountNotPositive) {
			c.settleIdleLocked()
		} else {
			c.settleValidationFailureLocked(in.TradeType, err)
		}
		c.mu.Unlock()
		return
	}

	req.ID = c.latestID.Add(1)
	c.current = req

	if c.quote != nil &&
		c.quote.TokenIn.Address == req.TokenOut.Address &&
		c.quote.TokenOut.Address == req.TokenIn.Address {
		c.quote = InvertQuote(c.quote)
		c.quoteReq = req
		c.stale = false
		metrics.SideSwitches.Inc()
		c.publishLocked()
	}
	c.mu.Unlock()

	c.dispatch(req)
}

// CurrentSnapshot returns the session state at this instant.
func (c *Coordinator) CurrentSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()
	return c.snapshotLocked()
}

// Subscribe registers a listener for every state transition, countdown tick
// included. The current snapshot is delivered first. Slow listeners miss
// intermediate snapshots rather than blocking the coordinator.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan Snapshot, 16)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Touched reports the last time a caller interacted with the session.
func (c *Coordinator) Touched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Close tears the session down. In-flight work is logically cancelled; all
// subscriber channels are closed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.latestID.Add(1)
	c.stopDebounceLocked()
	c.stopRefreshLocked()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// buildRequest validates the input tuple into a request without an id.
func (c *Coordinator) buildRequest(in Inputs) (*domain.QuoteRequest, error) {
	if in.TokenIn.Address == in.TokenOut.Address {
		return nil, domain.ErrSelfTrade
	}

	tradeType := in.TradeType
	if !tradeType.Valid() {
		tradeType = domain.TradeExactIn
	}

	fixed := in.TokenIn
	if tradeType == domain.TradeExactOut {
		fixed = in.TokenOut
	}
	amount, ok := domain.ParseUnits(in.Amount, fixed.Decimals)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, in.Amount)
	}
	if amount.Sign() <= 0 {
		return nil, errAmountNotPositive
	}
	if len(amount.String()) > c.cfg.MaxAmountDigits {
		return nil, fmt.Errorf("%w: %q", domain.ErrAmountTooLarge, in.Amount)
	}

	slippage := c.cfg.DefaultSlippageBps
	if in.SlippageBps >= 0 && in.SlippageBps <= int(c.cfg.MaxSlippageBps) {
		slippage = uint16(in.SlippageBps)
	}

	return &domain.QuoteRequest{
		TokenIn:     *in.TokenIn,
		TokenOut:    *in.TokenOut,
		Amount:      amount,
		AmountInput: in.Amount,
		TradeType:   tradeType,
		SlippageBps: slippage,
	}, nil
}

func (c *Coordinator) dispatch(req *domain.QuoteRequest) {
	c.mu.Lock()
	if c.closed || req.ID != c.latestID.Load() {
		c.mu.Unlock()
		return
	}
	c.state = domain.StateInFlight
	c.publishLocked()
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.ceiling)
		defer cancel()

		quote, err := c.source.Resolve(ctx, req)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: request ceiling exceeded", domain.ErrCallTimeout)
		}
		c.complete(req, quote, err)
	}()
}

func (c *Coordinator) complete(req *domain.QuoteRequest, quote *domain.Quote, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if req.ID != c.latestID.Load() {
		metrics.SupersededRequests.Inc()
		c.logger.Debug().Uint64("requestId", req.ID).Msg("dropping result for superseded request")
		return
	}

	switch {
	case err == nil:
		c.quote = quote
		c.quoteReq = req
		c.stale = false
		c.errCause = ""
		c.state = domain.StateResolved
		c.startRefreshLocked()

	case errors.Is(err, domain.ErrNoLiquidity):
		c.state = domain.StateNoLiquidity
		c.quote = nil
		c.quoteReq = nil
		c.stale = false
		c.errCause = ""
		c.ticksLeft = 0

	default:
		c.state = domain.StateFailed
		c.errCause = failureCause(err)
		c.logger.Warn().Err(err).Uint64("requestId", req.ID).Msg("quote resolution failed")
		if c.quote != nil && c.quoteReq != nil && req.EquivalentTo(c.quoteReq) {
			// Background refresh of an unchanged request failed: keep the
			// last good number, flag it stale, let the countdown retry.
			c.stale = true
			c.startRefreshLocked()
		} else {
			c.quote = nil
			c.quoteReq = nil
			c.stale = false
			c.ticksLeft = 0
		}
	}
	c.publishLocked()
}

func (c *Coordinator) settleIdleLocked() {
	c.latestID.Add(1)
	c.current = nil
	c.stopDebounceLocked()
	c.stopRefreshLocked()
	c.state = domain.StateIdle
	c.quote = nil
	c.quoteReq = nil
	c.stale = false
	c.errCause = ""
	c.ticksLeft = 0
	c.publishLocked()
}

func (c *Coordinator) settleValidationFailureLocked(tradeType domain.TradeType, err error) {
	c.latestID.Add(1)
	c.current = nil
	c.stopDebounceLocked()
	c.stopRefreshLocked()
	c.state = domain.StateFailed
	c.quote = nil
	c.quoteReq = nil
	c.stale = false
	c.errCause = failureCause(err)
	c.ticksLeft = 0
	if !tradeType.Valid() {
		tradeType = domain.TradeExactIn
	}
	metrics.QuoteRequests.WithLabelValues(string(tradeType), "validation_error").Inc()
	c.publishLocked()
}

func (c *Coordinator) startRefreshLocked() {
	c.ticksLeft = c.cfg.RefreshTicks
	c.refreshGen++
	gen := c.refreshGen
	c.refresh.Start(
		func(remaining int) { c.handleTick(gen, remaining) },
		func() { c.handleExpiry(gen) },
	)
}

func (c *Coordinator) stopRefreshLocked() {
	c.refreshGen++
	c.refresh.Stop()
}

func (c *Coordinator) handleTick(gen uint64, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.refreshGen {
		return
	}
	c.ticksLeft = remaining
	c.publishLocked()
}

func (c *Coordinator) handleExpiry(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.refreshGen || c.current == nil {
		c.mu.Unlock()
		return
	}
	metrics.RefreshCycles.Inc()
	c.ticksLeft = 0
	req := c.cloneWithNewIDLocked(c.current)
	c.mu.Unlock()

	c.dispatch(req)
}

func (c *Coordinator) cloneWithNewIDLocked(prev *domain.QuoteRequest) *domain.QuoteRequest {
	req := *prev
	req.ID = c.latestID.Add(1)
	c.current = &req
	return &req
}

func (c *Coordinator) stopDebounceLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		State:          c.state,
		Quote:          c.quote,
		Stale:          c.stale,
		ErrorCause:     c.errCause,
		TicksRemaining: c.ticksLeft,
	}
}

func (c *Coordinator) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// failureCause maps internal errors onto the short human-readable causes
// carried by the Failed state.
func failureCause(err error) string {
	switch {
	case errors.Is(err, domain.ErrSelfTrade):
		return "tokenIn and tokenOut are identical"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "amount is not a valid decimal number"
	case errors.Is(err, domain.ErrAmountTooLarge):
		return "amount exceeds the supported range"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "token could not be resolved"
	case errors.Is(err, domain.ErrCallTimeout):
		return "quote request timed out"
	case errors.Is(err, domain.ErrNetwork):
		return "network error reaching the RPC endpoint"
	case errors.Is(err, domain.ErrReverted):
		return "quoter simulation reverted"
	default:
		return "quote resolution failed"
	}
}
