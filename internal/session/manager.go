// Package session tracks which user ids currently hold an authenticated
// session. State is deliberately volatile: a process restart clears all
// sessions and authentication must be re-proven.
package session

import "sync"

// Manager owns the shared set of active sessions. Safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	active map[int64]string // user id -> authenticated username
}

func NewManager() *Manager {
	return &Manager{active: make(map[int64]string)}
}

// MarkActive records userID as logged in under username. Idempotent; calling
// it again for the same user replaces the bound username.
func (m *Manager) MarkActive(userID int64, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[userID] = username
}

// MarkInactive removes userID's session. Idempotent.
func (m *Manager) MarkInactive(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, userID)
}

// IsActive reports whether userID has an authenticated session.
func (m *Manager) IsActive(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[userID]
	return ok
}

// Username returns the username bound to userID's session, if any.
func (m *Manager) Username(userID int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.active[userID]
	return name, ok
}
