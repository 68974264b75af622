package tokens

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/fastswap/quote-engine/internal/adapters/persistence"
	"github.com/fastswap/quote-engine/internal/config"
	"github.com/fastswap/quote-engine/internal/domain"
	"github.com/fastswap/quote-engine/internal/metrics"
	"github.com/fastswap/quote-engine/internal/services"
)

const CATALOG_SERVICE = "token-catalog-service"

// tokenListFile is the on-disk token list shape (Uniswap token-list layout,
// extra fields ignored).
type tokenListFile struct {
	Name   string `json:"name,omitempty"`
	Tokens []struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Name     string `json:"name,omitempty"`
		Decimals uint8  `json:"decimals"`
		LogoURI  string `json:"logoURI,omitempty"`
	} `json:"tokens"`
}

// CatalogService owns the in-memory token catalog. It loads the token list
// file at startup, mirrors it into BoltDB, and falls back to the mirrored
// copy when the file is missing. Lookups are read-mostly and lock-cheap.
type CatalogService struct {
	container.BaseDIInstance

	logger *services.ServiceLogger
	cfg    *config.CatalogConfig

	mu        sync.RWMutex
	bySymbol  map[string]domain.Token
	byAddress map[common.Address]domain.Token
	ordered   []domain.Token

	storage *persistence.Storage
}

func (svc *CatalogService) ID() string {
	return CATALOG_SERVICE
}

func (svc *CatalogService) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.cfg = c.GetConfig(config.CATALOG_CONFIG_KEY).(*config.CatalogConfig)
	svc.bySymbol = make(map[string]domain.Token)
	svc.byAddress = make(map[common.Address]domain.Token)
	return nil
}

func (svc *CatalogService) Start() error {
	if svc.cfg.PersistenceEnabled {
		storage, err := persistence.NewStorage(svc.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open catalog storage: %w", err)
		}
		svc.storage = storage
	}

	loaded, err := svc.loadFromFile(svc.cfg.TokenListPath)
	switch {
	case err == nil:
		svc.replace(loaded)
		svc.logger.Info().Int("tokens", len(loaded)).Str("path", svc.cfg.TokenListPath).Msg("catalog loaded from token list")
		if svc.storage != nil {
			if err := svc.storage.SaveTokenBatch(loaded); err != nil {
				svc.logger.Warn().Err(err).Msg("failed to mirror catalog to disk")
			}
		}
	case svc.storage != nil:
		svc.logger.Warn().Err(err).Msg("token list unavailable, loading persisted catalog")
		persisted, loadErr := svc.storage.LoadAllTokens()
		if loadErr != nil {
			return fmt.Errorf("token list unavailable and persisted catalog unreadable: %w", loadErr)
		}
		if len(persisted) == 0 {
			return errors.New("token list unavailable and persisted catalog empty")
		}
		svc.replace(persisted)
		svc.logger.Info().Int("tokens", len(persisted)).Msg("catalog restored from persisted copy")
	default:
		return fmt.Errorf("failed to load token list: %w", err)
	}

	metrics.CatalogTokens.Set(float64(svc.Len()))
	return nil
}

func (svc *CatalogService) Stop() error {
	if svc.storage != nil {
		return svc.storage.Close()
	}
	return nil
}

func (svc *CatalogService) loadFromFile(path string) ([]domain.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file tokenListFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse token list: %w", err)
	}

	tokens := make([]domain.Token, 0, len(file.Tokens))
	for _, t := range file.Tokens {
		if t.Symbol == "" || !common.IsHexAddress(t.Address) {
			continue
		}
		tokens = append(tokens, domain.Token{
			Address:  common.HexToAddress(t.Address),
			Symbol:   strings.ToUpper(t.Symbol),
			Name:     t.Name,
			Decimals: t.Decimals,
			LogoURI:  t.LogoURI,
		})
	}
	if len(tokens) == 0 {
		return nil, errors.New("token list contains no usable tokens")
	}
	return tokens, nil
}

// replace swaps the whole catalog. Later entries win on symbol collisions,
// matching token-list ordering semantics.
func (svc *CatalogService) replace(tokens []domain.Token) {
	bySymbol := make(map[string]domain.Token, len(tokens))
	byAddress := make(map[common.Address]domain.Token, len(tokens))
	ordered := make([]domain.Token, 0, len(tokens))

	for _, t := range tokens {
		bySymbol[t.Symbol] = t
		byAddress[t.Address] = t
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Symbol < ordered[j].Symbol })

	svc.mu.Lock()
	svc.bySymbol = bySymbol
	svc.byAddress = byAddress
	svc.ordered = ordered
	svc.mu.Unlock()
}

func (svc *CatalogService) BySymbol(symbol string) (domain.Token, bool) {
	svc.mu.RLock()
	t, ok := svc.bySymbol[strings.ToUpper(symbol)]
	svc.mu.RUnlock()
	return t, ok
}

func (svc *CatalogService) ByAddress(addr common.Address) (domain.Token, bool) {
	svc.mu.RLock()
	t, ok := svc.byAddress[addr]
	svc.mu.RUnlock()
	return t, ok
}

// Search returns tokens whose symbol or name contains the query,
// case-insensitive, exact symbol matches first.
func (svc *CatalogService) Search(query string, limit int) []domain.Token {
	query = strings.ToUpper(strings.TrimSpace(query))

	svc.mu.RLock()
	defer svc.mu.RUnlock()

	if query == "" {
		n := len(svc.ordered)
		if limit > 0 && limit < n {
			n = limit
		}
		out := make([]domain.Token, n)
		copy(out, svc.ordered[:n])
		return out
	}

	var exact, partial []domain.Token
	for _, t := range svc.ordered {
		switch {
		case t.Symbol == query:
			exact = append(exact, t)
		case strings.Contains(t.Symbol, query) || strings.Contains(strings.ToUpper(t.Name), query):
			partial = append(partial, t)
		}
	}

	out := append(exact, partial...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (svc *CatalogService) Len() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.ordered)
}
