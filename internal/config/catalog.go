package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type CatalogConfig struct {
	// TokenListPath is the JSON token list consumed at startup. When the
	// file is missing the catalog falls back to the last persisted copy.
	TokenListPath string

	// DBPath is the BoltDB file the catalog is mirrored into. Quotes are
	// never persisted; only token metadata lives here.
	DBPath string

	PersistenceEnabled bool
}

func (c *CatalogConfig) Key() string {
	return CATALOG_CONFIG_KEY
}

func (c *CatalogConfig) Load() error {
	c.TokenListPath = common.GetEnvOrDefault("TOKEN_LIST_PATH", "./data/tokenlist.json")
	c.DBPath = common.GetEnvOrDefault("CATALOG_DB_PATH", "./data/catalog.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("CATALOG_PERSISTENCE_ENABLED", "true") == "true"
	return nil
}

func (c *CatalogConfig) Validate() error {
	return nil
}
