// Package session keeps one invoice ledger per browser session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session id.
const CookieName = "ledger_session"

type entry struct {
	ledger   *invoice.Ledger
	lastSeen time.Time
}

// Manager maps session ids to ledgers.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a Manager whose idle sessions expire after ttl.
// A ttl of zero disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the ledger for id, creating a new session when id is empty or
// unknown. The returned id is the one to hand back to the client.
func (m *Manager) Get(id string) (string, *invoice.Ledger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.sessions[id]; ok && id != "" {
		e.lastSeen = now
		return id, e.ledger
	}

	id = uuid.New().String()
	e := &entry{ledger: invoice.NewLedger(), lastSeen: now}
	m.sessions[id] = e
	return id, e.ledger
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were removed. Sessions with a submission in flight are kept.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl && !e.ledger.Submitting() {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	log := logger.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if n := m.Sweep(t); n > 0 {
				log.Debug().Int("removed", n).Msg("Expired idle sessions")
			}
		}
	}
}
