package storage

import (
	"sync"
	"time"
)

// memoryStore keeps seen keys for the life of the process.
type memoryStore struct {
	mu     sync.Mutex
	expiry map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{expiry: make(map[string]time.Time), ttl: opts.ItemTTL, now: opts.Now}
}

func (m *memoryStore) SeenItem(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiry[key]
	return ok && exp.After(m.now()), nil
}

func (m *memoryStore) MarkItem(key string) error {
	m.mu.Lock()
	m.expiry[key] = m.now().Add(m.ttl)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Sweep() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for k, exp := range m.expiry {
		if !exp.After(now) {
			delete(m.expiry, k)
			removed++
		}
	}
	return removed, nil
}

func (m *memoryStore) Close() error { return nil }
