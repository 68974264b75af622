package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/fastswap/quote-engine/internal/common"
	"github.com/fastswap/quote-engine/internal/config"
	"github.com/fastswap/quote-engine/internal/http"
	"github.com/fastswap/quote-engine/internal/services/engine"
	"github.com/fastswap/quote-engine/internal/services/quoter"
	"github.com/fastswap/quote-engine/internal/services/tokens"
)

// @title FastSwap Quote Engine API
// @version 1.0
// @description Continuously refreshed, executable swap quotes from Uniswap V3 style pools.
// @description
// @description ## - Features
// @description - **Fee-Tier Racing**: Every candidate fee tier is simulated concurrently; the best single-hop result wins
// @description - **Live Sessions**: One session per user intent, with debounced input changes and a refresh countdown
// @description - **Supersession**: A newer request always wins; results for stale requests are never published
// @description - **Side Switching**: Flipping sell/buy publishes an inverted provisional quote instantly
// @description - **Price Impact Analysis**: Spot-probe based impact with severity classification
// @description - **Slippage Protection**: Integer-exact minimum-received / maximum-paid bounds
// @description
// @description ## - Usage Tips
// @description - Amounts are plain decimal strings in whole token units ("1.5" = 1.5 tokens)
// @description - "ETH" and the zero address resolve to the wrapped native token
// @description - Default slippage is 50 bps (0.5%); values outside [0, 5000] fall back to it
// @description - Resolved quotes refresh automatically after 15 countdown ticks
// @description - **Rate Limit**: 10 requests/second (burst: 20)
// @BasePath /
// @schemes https http
// @tag.name quote
// @tag.description Quote sessions: inputs, snapshots, streaming, side switch, refresh
// @tag.name tokens
// @tag.description Search the token catalog and resolve token references
func main() {
	common.InitRuntime()

	// load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.RPCConfig{},
		&config.EngineConfig{},
		&config.CatalogConfig{},
	)

	// di container
	dic, err := container.New(
		conf,

		&tokens.CatalogService{},
		&quoter.Service{},
		&engine.SessionService{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
