package tokens

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fastswap/quote-engine/internal/domain"
)

// Catalog is the lookup surface the resolver needs from the catalog service.
type Catalog interface {
	BySymbol(symbol string) (domain.Token, bool)
	ByAddress(addr common.Address) (domain.Token, bool)
}

// Resolver maps user-supplied token references (symbol or hex address) to
// catalog entries. Native ETH references resolve to the wrapped token so
// every downstream quote runs against an ERC-20 pair.
type Resolver struct {
	catalog Catalog
	weth    common.Address
}

func NewResolver(catalog Catalog, weth common.Address) *Resolver {
	return &Resolver{catalog: catalog, weth: weth}
}

// Resolve returns the catalog token for a reference. Unknown references fail
// with ErrTokenNotFound rather than guessing at decimals, since a wrong
// decimal count silently mis-scales every amount derived from it.
func (r *Resolver) Resolve(ref string) (domain.Token, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Token{}, fmt.Errorf("%w: empty token reference", domain.ErrTokenNotFound)
	}

	if strings.EqualFold(ref, "ETH") {
		return r.resolveWrapped()
	}

	if common.IsHexAddress(ref) {
		addr := common.HexToAddress(ref)
		if addr == domain.ZeroAddress {
			return r.resolveWrapped()
		}
		if t, ok := r.catalog.ByAddress(addr); ok {
			return t, nil
		}
		return domain.Token{}, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, ref)
	}

	if t, ok := r.catalog.BySymbol(ref); ok {
		return t, nil
	}
	return domain.Token{}, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, ref)
}

func (r *Resolver) resolveWrapped() (domain.Token, error) {
	if t, ok := r.catalog.ByAddress(r.weth); ok {
		return t, nil
	}
	return domain.Token{}, fmt.Errorf("%w: wrapped native token %s not in catalog", domain.ErrTokenNotFound, r.weth.Hex())
}
