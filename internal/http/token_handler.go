package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fastswap/quote-engine/internal/http/httputil"
	"github.com/fastswap/quote-engine/internal/services/tokens"
)

const defaultTokenSearchLimit = 50

type TokenHandler struct {
	catalog  *tokens.CatalogService
	resolver *tokens.Resolver
}

func NewTokenHandler(catalog *tokens.CatalogService, resolver *tokens.Resolver) *TokenHandler {
	return &TokenHandler{catalog: catalog, resolver: resolver}
}

func (h *TokenHandler) Root() string {
	return "/tokens"
}

func (h *TokenHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listTokens)
	pub.GET("/:ref", h.resolveToken)
}

// TokenListResponse is a page of catalog tokens
type TokenListResponse struct {
	// Matching tokens, exact symbol matches first
	Tokens interface{} `json:"tokens"`

	// Total number of tokens in the catalog
	Total int `json:"total" example:"412"`
}

// @Summary List or search catalog tokens
// @Tags tokens
// @Produce json
// @Param q query string false "Symbol or name substring, case-insensitive"
// @Param limit query int false "Maximum results" default(50)
// @Success 200 {object} httputil.Response{data=TokenListResponse}
// @Router /api/v1/tokens [get]
func (h *TokenHandler) listTokens(c *gin.Context) {
	limit := defaultTokenSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(c, "invalid limit: must be a positive integer")
			return
		}
		limit = parsed
	}

	matches := h.catalog.Search(c.Query("q"), limit)
	httputil.Success(c, TokenListResponse{Tokens: matches, Total: h.catalog.Len()})
}

// @Summary Resolve a token reference
// @Description Resolve a symbol or hex address to its catalog entry. "ETH"
// @Description and the zero address resolve to the wrapped native token.
// @Tags tokens
// @Produce json
// @Param ref path string true "Token symbol or hex address" example("USDC")
// @Success 200 {object} httputil.Response{data=domain.Token}
// @Failure 404 {object} httputil.Response "Token not in catalog"
// @Router /api/v1/tokens/{ref} [get]
func (h *TokenHandler) resolveToken(c *gin.Context) {
	token, err := h.resolver.Resolve(c.Param("ref"))
	if err != nil {
		httputil.NotFound(c, err.Error())
		return
	}
	httputil.Success(c, token)
}
