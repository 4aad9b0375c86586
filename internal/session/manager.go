package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Info is returned by the API for the session list.
type Info struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode"`
	LastActive time.Time `json:"lastActive"`
}

// Manager holds live sessions by id. Sessions start running on Create and
// are stopped on Remove, Sweep or Close.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	src      Source
	defaults Options
}

// NewManager creates a manager whose sessions read the scene from src.
// defaults fills any zero field of the Options passed to Create.
func NewManager(src Source, defaults Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		src:      src,
		defaults: defaults,
	}
}

// Create starts a new session with a fresh uuid.
func (m *Manager) Create(opts Options) *Session {
	if opts.RoundSize == 0 {
		opts.RoundSize = m.defaults.RoundSize
	}
	if opts.LabelDuration == 0 {
		opts.LabelDuration = m.defaults.LabelDuration
	}
	if opts.OnRoundComplete == nil {
		opts.OnRoundComplete = m.defaults.OnRoundComplete
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	s := New(m.src, opts)
	s.OnEmpty = m.Remove

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	go s.Run()
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// Remove stops and forgets a session. Unknown ids are ignored.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.stop(s)
	}
}

func (m *Manager) stop(s *Session) {
	s.Stop()
	if m.defaults.OnRemove == nil {
		return
	}
	go func() {
		<-s.Done()
		m.defaults.OnRemove(s.ID())
	}()
}

// Sweep removes sessions idle for longer than maxIdle and returns how many.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var stale []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range stale {
		m.Remove(id)
	}
	return len(stale)
}

// List returns every live session, most recently active first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for id, s := range m.sessions {
		out = append(out, Info{ID: id, Mode: s.Mode(), LastActive: s.LastActive()})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		m.stop(s)
	}
}
