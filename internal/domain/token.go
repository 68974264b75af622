package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Token is a resolved, immutable token descriptor. Decimals drive every
// fixed-point conversion and always come from the catalog, never from a guess.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name,omitempty"`
	Decimals uint8          `json:"decimals"`
	LogoURI  string         `json:"logoURI,omitempty"`
}

// ZeroAddress marks native ETH in token lists. Quoting always goes through
// the wrapped token, so the resolver maps it to the configured WETH address.
var ZeroAddress = common.Address{}

func (t Token) IsNative() bool {
	return t.Address == ZeroAddress
}
