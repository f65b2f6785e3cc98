package wizard

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or closed wizard sessions.
var ErrSessionNotFound = errors.New("wizard session not found")

// Manager owns the live wizard sessions, one per operator attempt. Each
// session's state belongs exclusively to its wizard instance.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Wizard
	newFn    func() *Wizard
}

// NewManager builds a manager that constructs sessions with newFn.
func NewManager(newFn func() *Wizard) *Manager {
	return &Manager{
		sessions: make(map[string]*Wizard),
		newFn:    newFn,
	}
}

// Open creates a new wizard session and returns its id.
func (m *Manager) Open() (string, *Wizard) {
	id := uuid.NewString()
	w := m.newFn()
	m.mu.Lock()
	m.sessions[id] = w
	m.mu.Unlock()
	return id, w
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Wizard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

// Close cancels and removes a session. An in-flight commit on the session
// still completes against the store.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	w, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		w.Cancel()
	}
}
