package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/fastswap/quote-engine/internal/domain"
)

const (
	TokensBucket = "tokens"

	DefaultDBPath = "./data/catalog.db"
)

// StoredToken is the persisted shape of a catalog entry. Addresses are kept
// as checksummed hex so the file stays greppable.
type StoredToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

// Storage mirrors the token catalog into BoltDB so the engine can come up
// with a warm catalog when the token-list file is unavailable. Quotes are
// never written here.
type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[catalogStorage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SaveToken(token domain.Token) error {
	stored := tokenToStored(token)
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	return s.db.Set(TokensBucket, []byte(stored.Address), data)
}

func (s *Storage) SaveTokenBatch(tokens []domain.Token) error {
	if len(tokens) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, token := range tokens {
		stored := tokenToStored(token)
		data, err := sonic.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal token %s: %w", stored.Address, err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(TokensBucket),
			Key:    []byte(stored.Address),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add token %s to batch: %w", stored.Address, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(tokens)).Msg("[catalogStorage] FAILED to execute batch")
		return err
	}

	log.Info().Int("count", len(tokens)).Msg("[catalogStorage] saved token batch")
	return nil
}

func (s *Storage) LoadAllTokens() ([]domain.Token, error) {
	data, err := s.db.List(TokensBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	tokens := make([]domain.Token, 0, len(data))
	unmarshalFailed := 0

	for address, value := range data {
		var stored StoredToken
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("address", address).Err(err).Msg("[catalogStorage] failed to unmarshal token, skipping")
			unmarshalFailed++
			continue
		}

		tokens = append(tokens, storedToToken(&stored))
	}

	if unmarshalFailed > 0 {
		log.Error().
			Int("total_in_db", len(data)).
			Int("loaded", len(tokens)).
			Int("unmarshal_failed", unmarshalFailed).
			Msg("[catalogStorage] token loading completed with errors")
	} else {
		log.Info().
			Int("total_in_db", len(data)).
			Int("loaded", len(tokens)).
			Msg("[catalogStorage] token loading completed")
	}

	return tokens, nil
}

func tokenToStored(t domain.Token) StoredToken {
	return StoredToken{
		Address:  t.Address.Hex(),
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: t.Decimals,
		LogoURI:  t.LogoURI,
	}
}

func storedToToken(s *StoredToken) domain.Token {
	return domain.Token{
		Address:  common.HexToAddress(s.Address),
		Symbol:   s.Symbol,
		Name:     s.Name,
		Decimals: s.Decimals,
		LogoURI:  s.LogoURI,
	}
}
