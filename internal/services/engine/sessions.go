package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/fastswap/quote-engine/internal/config"
	"github.com/fastswap/quote-engine/internal/metrics"
	"github.com/fastswap/quote-engine/internal/services"
	"github.com/fastswap/quote-engine/internal/services/quoter"
)

const SESSION_SERVICE = "quote-session-service"

var ErrSessionNotFound = errors.New("quote session not found")

// SessionService hands out quote sessions, one coordinator per session, and
// evicts sessions nobody has touched within the TTL.
type SessionService struct {
	container.BaseDIInstance

	logger *services.ServiceLogger
	engCfg *config.EngineConfig
	rpcCfg *config.RPCConfig
	source QuoteSource

	mu       sync.RWMutex
	sessions map[string]*Coordinator

	stopJanitor chan struct{}
}

func (svc *SessionService) ID() string {
	return SESSION_SERVICE
}

func (svc *SessionService) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.engCfg = c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	svc.rpcCfg = c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.source = c.Instance(quoter.QUOTER_SERVICE).(*quoter.Service)
	svc.sessions = make(map[string]*Coordinator)
	svc.stopJanitor = make(chan struct{})
	return nil
}

func (svc *SessionService) Start() error {
	go svc.janitor()
	svc.logger.Info().
		Dur("sessionTTL", svc.engCfg.SessionTTL).
		Msg("session service started")
	return nil
}

func (svc *SessionService) Stop() error {
	close(svc.stopJanitor)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for id, session := range svc.sessions {
		session.Close()
		delete(svc.sessions, id)
	}
	metrics.ActiveSessions.Set(0)
	return nil
}

// Create opens a new session in the Idle state and returns its id.
func (svc *SessionService) Create() (string, *Coordinator) {
	id := uuid.NewString()
	session := NewCoordinator(svc.engCfg, svc.rpcCfg.RequestCeiling, svc.source, svc.logger.Logger())

	svc.mu.Lock()
	svc.sessions[id] = session
	count := len(svc.sessions)
	svc.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	svc.logger.Debug().Str("sessionId", id).Msg("session created")
	return id, session
}

// Get returns the session for an id, if it is still alive.
func (svc *SessionService) Get(id string) (*Coordinator, error) {
	svc.mu.RLock()
	session, ok := svc.sessions[id]
	svc.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete closes and removes a session.
func (svc *SessionService) Delete(id string) error {
	svc.mu.Lock()
	session, ok := svc.sessions[id]
	if ok {
		delete(svc.sessions, id)
	}
	count := len(svc.sessions)
	svc.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	metrics.ActiveSessions.Set(float64(count))
	return nil
}

func (svc *SessionService) janitor() {
	interval := svc.engCfg.SessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-svc.stopJanitor:
			return
		case <-ticker.C:
			svc.evictIdle()
		}
	}
}

func (svc *SessionService) evictIdle() {
	deadline := time.Now().Add(-svc.engCfg.SessionTTL)

	svc.mu.Lock()
	var evicted []*Coordinator
	for id, session := range svc.sessions {
		if session.Touched().Before(deadline) {
			delete(svc.sessions, id)
			evicted = append(evicted, session)
			svc.logger.Debug().Str("sessionId", id).Msg("evicting idle session")
		}
	}
	count := len(svc.sessions)
	svc.mu.Unlock()

	for _, session := range evicted {
		session.Close()
	}
	if len(evicted) > 0 {
		metrics.ActiveSessions.Set(float64(count))
	}
}
