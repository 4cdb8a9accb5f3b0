package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/healthmate/server/pkg/logger"
)

// MemoryStore keeps sessions in process memory. Sessions vanish on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Context
	ttl      time.Duration
	now      func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type Stats struct {
	Active int   `json:"active"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &MemoryStore{
		sessions: make(map[string]*Context),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Create(_ context.Context, identity Identity) (*Context, error) {
	sess := newContext(identity, m.ttl, m.now())

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return sess.clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Context, error) {
	now := m.now()

	m.mu.RLock()
	sess, ok := m.sessions[id]
	var snapshot *Context
	if ok && !sess.expired(now) {
		snapshot = sess.clone()
	}
	m.mu.RUnlock()

	if snapshot == nil {
		m.misses.Add(1)
		if ok {
			m.mu.Lock()
			delete(m.sessions, id)
			m.mu.Unlock()
		}
		return nil, ErrSessionNotFound
	}

	m.hits.Add(1)
	return snapshot, nil
}

func (m *MemoryStore) Append(_ context.Context, id string, turns ...Turn) (*Context, error) {
	now := m.now()
	checked, err := validateTurns(turns, now)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok || sess.expired(now) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}

	// Copy-on-write keeps clones handed to earlier readers untouched.
	next := make([]Turn, 0, len(sess.Transcript)+len(checked))
	next = append(next, sess.Transcript...)
	next = append(next, checked...)
	sess.Transcript = next

	return sess.clone(), nil
}

func (m *MemoryStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Sweep removes sessions whose expiry is at or before now and reports how many went.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps expired sessions every interval until ctx is cancelled.
func (m *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.Sweep(m.now()); removed > 0 {
					logger.Info("session_cleanup", map[string]interface{}{
						"removed": removed,
					})
				}
			}
		}
	}()
}

func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	active := len(m.sessions)
	m.mu.RUnlock()

	return Stats{
		Active: active,
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}
}
