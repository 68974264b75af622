package tokens

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastswap/quote-engine/internal/domain"
)

type fakeCatalog struct {
	bySymbol  map[string]domain.Token
	byAddress map[common.Address]domain.Token
}

func (f *fakeCatalog) BySymbol(symbol string) (domain.Token, bool) {
	t, ok := f.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

func (f *fakeCatalog) ByAddress(addr common.Address) (domain.Token, bool) {
	t, ok := f.byAddress[addr]
	return t, ok
}

func newFakeCatalog(tokens ...domain.Token) *fakeCatalog {
	f := &fakeCatalog{
		bySymbol:  make(map[string]domain.Token),
		byAddress: make(map[common.Address]domain.Token),
	}
	for _, t := range tokens {
		f.bySymbol[t.Symbol] = t
		f.byAddress[t.Address] = t
	}
	return f
}

var (
	wethAddr = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcAddr = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	wethToken = domain.Token{Address: wethAddr, Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18}
	usdcToken = domain.Token{Address: usdcAddr, Symbol: "USDC", Name: "USD Coin", Decimals: 6}
)

func TestResolverBySymbol(t *testing.T) {
	r := NewResolver(newFakeCatalog(wethToken, usdcToken), wethAddr)

	got, err := r.Resolve("usdc")
	require.NoError(t, err)
	assert.Equal(t, usdcToken, got)

	got, err = r.Resolve("  WETH ")
	require.NoError(t, err)
	assert.Equal(t, wethToken, got)
}

func TestResolverByAddress(t *testing.T) {
	r := NewResolver(newFakeCatalog(wethToken, usdcToken), wethAddr)

	got, err := r.Resolve(strings.ToLower(usdcAddr.Hex()))
	require.NoError(t, err)
	assert.Equal(t, usdcToken, got)
}

func TestResolverNativeETHResolvesToWrapped(t *testing.T) {
	r := NewResolver(newFakeCatalog(wethToken, usdcToken), wethAddr)

	for _, ref := range []string{"ETH", "eth", domain.ZeroAddress.Hex()} {
		got, err := r.Resolve(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, wethToken, got, ref)
	}
}

func TestResolverUnknownTokenFailsHard(t *testing.T) {
	r := NewResolver(newFakeCatalog(wethToken), wethAddr)

	_, err := r.Resolve("SHIB")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	_, err = r.Resolve("0x1111111111111111111111111111111111111111")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	_, err = r.Resolve("")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestResolverWrappedMissingFromCatalog(t *testing.T) {
	r := NewResolver(newFakeCatalog(usdcToken), wethAddr)

	_, err := r.Resolve("ETH")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}
