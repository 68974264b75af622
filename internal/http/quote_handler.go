package http

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/http/httputil"
	"github.com/fastswap/quote-engine/internal/services/engine"
	"github.com/fastswap/quote-engine/internal/services/tokens"
)

type QuoteHandler struct {
	sessions *engine.SessionService
	resolver *tokens.Resolver
}

func NewQuoteHandler(sessions *engine.SessionService, resolver *tokens.Resolver) *QuoteHandler {
	return &QuoteHandler{sessions: sessions, resolver: resolver}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/sessions", h.createSession)
	pub.GET("/sessions/:id", h.getSnapshot)
	pub.PUT("/sessions/:id/inputs", h.updateInputs)
	pub.POST("/sessions/:id/refresh", h.forceRefresh)
	pub.POST("/sessions/:id/switch", h.switchSides)
	pub.GET("/sessions/:id/stream", h.streamSnapshots)
	pub.DELETE("/sessions/:id", h.deleteSession)
}

// InputsRequest carries one input change for a quote session
type InputsRequest struct {
	// Input token: catalog symbol or hex address. "ETH" and the zero
	// address both resolve to the wrapped native token.
	TokenIn string `json:"tokenIn" example:"WETH"`

	// Output token: catalog symbol or hex address
	TokenOut string `json:"tokenOut" example:"USDC"`

	// Amount of the fixed side as a plain decimal string, in whole token
	// units ("1.5" means 1.5 tokens, not minor units)
	Amount string `json:"amount" example:"1.5"`

	// Trade direction
	// - "ExactIn": amount is the exact input, output is solved for
	// - "ExactOut": amount is the desired output, input is solved for
	TradeType string `json:"tradeType" enums:"ExactIn,ExactOut" example:"ExactIn"`

	// Slippage tolerance in basis points. Values outside [0, 5000] fall
	// back to the configured default (50 bps)
	SlippageBps int `json:"slippageBps" example:"50"`
}

// SessionResponse identifies a freshly created quote session
type SessionResponse struct {
	SessionID string `json:"sessionId" example:"7f6c1c2e-0b9f-4f7e-b3da-0d9a6e3f1c55"`

	// Session state, Idle until the first inputs arrive
	State string `json:"state" example:"Idle"`
}

// SnapshotResponse is the observable state of a session at one instant
type SnapshotResponse struct {
	// One of: Idle, Debouncing, InFlight, Resolved, NoLiquidity, Failed
	State string `json:"state" example:"Resolved"`

	// The current quote. Present while Resolved, retained stale across a
	// failed background refresh, provisional right after a side switch
	Quote *domain.Quote `json:"quote,omitempty"`

	// True when the quote survived a failed refresh and may be outdated
	Stale bool `json:"stale,omitempty"`

	// Human-readable cause, only set in the Failed state
	ErrorCause string `json:"errorCause,omitempty"`

	// Refresh countdown ticks left before the quote re-resolves
	TicksRemaining int `json:"ticksRemaining" example:"12"`
}

func toSnapshotResponse(snap engine.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		State:          string(snap.State),
		Quote:          snap.Quote,
		Stale:          snap.Stale,
		ErrorCause:     snap.ErrorCause,
		TicksRemaining: snap.TicksRemaining,
	}
}

// @Summary Create a quote session
// @Description Open a new quote session. A session owns one continuously
// @Description refreshed quote: push input changes, read or stream snapshots,
// @Description switch sides, force refreshes. Idle sessions are evicted after
// @Description the configured TTL.
// @Tags quote
// @Produce json
// @Success 201 {object} httputil.Response{data=SessionResponse}
// @Router /api/v1/quote/sessions [post]
func (h *QuoteHandler) createSession(c *gin.Context) {
	id, session := h.sessions.Create()
	snap := session.CurrentSnapshot()
	httputil.Created(c, SessionResponse{SessionID: id, State: string(snap.State)})
}

// @Summary Get the current quote snapshot
// @Tags quote
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response{data=SnapshotResponse}
// @Failure 404 {object} httputil.Response "Unknown or expired session"
// @Router /api/v1/quote/sessions/{id} [get]
func (h *QuoteHandler) getSnapshot(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	httputil.Success(c, toSnapshotResponse(session.CurrentSnapshot()))
}

// @Summary Update session inputs
// @Description Replace the session's input tuple. Valid novel inputs debounce
// @Description and then resolve; inputs equivalent to the current request are
// @Description a no-op. Clearing a token or the amount returns the session to
// @Description Idle. Validation failures (identical tokens, malformed or
// @Description oversized amount, unknown token) settle synchronously in the
// @Description Failed state without any network traffic.
// @Tags quote
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param inputs body InputsRequest true "New input tuple"
// @Success 200 {object} httputil.Response{data=SnapshotResponse}
// @Failure 400 {object} httputil.Response "Malformed body or unknown token"
// @Failure 404 {object} httputil.Response "Unknown or expired session"
// @Router /api/v1/quote/sessions/{id}/inputs [put]
func (h *QuoteHandler) updateInputs(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}

	var req InputsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	inputs := engine.Inputs{
		Amount:      req.Amount,
		TradeType:   domain.TradeType(req.TradeType),
		SlippageBps: req.SlippageBps,
	}
	if req.TokenIn != "" {
		token, err := h.resolver.Resolve(req.TokenIn)
		if err != nil {
			httputil.BadRequest(c, "tokenIn: "+err.Error())
			return
		}
		inputs.TokenIn = &token
	}
	if req.TokenOut != "" {
		token, err := h.resolver.Resolve(req.TokenOut)
		if err != nil {
			httputil.BadRequest(c, "tokenOut: "+err.Error())
			return
		}
		inputs.TokenOut = &token
	}

	session.UpdateInputs(inputs)
	httputil.Success(c, toSnapshotResponse(session.CurrentSnapshot()))
}

// @Summary Force an immediate refresh
// @Description Re-resolve the current request right away, bypassing the
// @Description debounce and the countdown. No-op while the session has no
// @Description dispatched request.
// @Tags quote
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response{data=SnapshotResponse}
// @Failure 404 {object} httputil.Response "Unknown or expired session"
// @Router /api/v1/quote/sessions/{id}/refresh [post]
func (h *QuoteHandler) forceRefresh(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	session.ForceRefresh()
	httputil.Success(c, toSnapshotResponse(session.CurrentSnapshot()))
}

// @Summary Switch trade sides
// @Description Flip which token is sold and which is bought. When the last
// @Description quote covers the reversed pair, an inverted provisional
// @Description snapshot is published immediately while the real quote for the
// @Description new direction resolves in the background.
// @Tags quote
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response{data=SnapshotResponse}
// @Failure 404 {object} httputil.Response "Unknown or expired session"
// @Router /api/v1/quote/sessions/{id}/switch [post]
func (h *QuoteHandler) switchSides(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	session.SwitchSides()
	httputil.Success(c, toSnapshotResponse(session.CurrentSnapshot()))
}

// @Summary Stream snapshot updates
// @Description Server-sent events: one "snapshot" event per state transition,
// @Description countdown ticks included. The current snapshot is sent first.
// @Tags quote
// @Produce text/event-stream
// @Param id path string true "Session id"
// @Failure 404 {object} httputil.Response "Unknown or expired session"
// @Router /api/v1/quote/sessions/{id}/stream [get]
func (h *QuoteHandler) streamSnapshots(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}

	ch, cancel := session.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("snapshot", toSnapshotResponse(snap))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// @Summary Delete a quote session
// @Tags quote
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response
// @Failure 404 {object} httputil.Response "Unknown or expired session"
// @Router /api/v1/quote/sessions/{id} [delete]
func (h *QuoteHandler) deleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		httputil.NotFound(c, err.Error())
		return
	}
	httputil.Success(c, gin.H{"deleted": true})
}

func (h *QuoteHandler) lookup(c *gin.Context) (*engine.Coordinator, bool) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			httputil.NotFound(c, err.Error())
		} else {
			httputil.InternalError(c, err.Error())
		}
		return nil, false
	}
	return session, true
}
