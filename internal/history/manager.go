package history

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Manager hands out one Store per user for the lifetime of the process, so
// concurrent requests for the same user share a single mutex-guarded index.
type Manager struct {
	log     *slog.Logger
	kv      KV
	resolve FeatureResolver

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(log *slog.Logger, kv KV, resolve FeatureResolver) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:     log,
		kv:      kv,
		resolve: resolve,
		stores:  map[string]*Store{},
	}
}

// StoreFor returns the user's store, opening (and loading) it on first use.
func (m *Manager) StoreFor(userID string) (*Store, error) {
	if m == nil {
		return nil, errors.New("nil manager")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("missing user id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[userID]; ok {
		return s, nil
	}
	s, err := Open(Options{KV: m.kv, UserID: userID, ResolveFeature: m.resolve})
	if err != nil {
		return nil, err
	}
	if s.RecoveredFromCorrupt() {
		m.log.Warn("discarded corrupt history snapshot", "user_id", userID)
	}
	m.stores[userID] = s
	return s, nil
}

// Evict drops the cached store for a user. The next StoreFor reloads from
// the partition.
func (m *Manager) Evict(userID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, strings.TrimSpace(userID))
}
