package config

import (
	"errors"
	"os"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Uniswap V3 QuoterV2 and WETH9 on Ethereum mainnet. Overridable for other
// chains or forked deployments.
const (
	DefaultQuoterAddress = "0x61fFE014bA17989E743c5F6cB21bF9697530B21e"
	DefaultWETHAddress   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

type RPCConfig struct {
	// RPCUrl is the primary read-only endpoint. FallbackRPCUrl, when set, is
	// tried after a transport failure on the primary; it never extends the
	// per-call budget.
	RPCUrl         string
	FallbackRPCUrl string

	QuoterAddress ethcommon.Address
	WETHAddress   ethcommon.Address

	// CallTimeout bounds each individual quoter simulation. RequestCeiling
	// bounds the whole resolution (tier race plus spot probe); crossing it
	// forces the request into Failed.
	CallTimeout    time.Duration
	RequestCeiling time.Duration
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.FallbackRPCUrl = os.Getenv("FALLBACK_RPC_URL")
	r.QuoterAddress = ethcommon.HexToAddress(common.GetEnvOrDefault("QUOTER_ADDRESS", DefaultQuoterAddress))
	r.WETHAddress = ethcommon.HexToAddress(common.GetEnvOrDefault("WETH_ADDRESS", DefaultWETHAddress))
	r.CallTimeout = time.Duration(common.GetEnvOrDefaultInt("QUOTER_CALL_TIMEOUT_MS", 5000)) * time.Millisecond
	r.RequestCeiling = time.Duration(common.GetEnvOrDefaultInt("QUOTE_REQUEST_CEILING_MS", 15000)) * time.Millisecond
	return nil
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config: RPC_URL is required")
	}
	if r.QuoterAddress == (ethcommon.Address{}) || r.WETHAddress == (ethcommon.Address{}) {
		return errors.New("invalid rpc config: quoter and WETH addresses are required")
	}
	if r.CallTimeout <= 0 || r.RequestCeiling < r.CallTimeout {
		return errors.New("invalid rpc config: request ceiling must cover at least one call timeout")
	}
	return nil
}
