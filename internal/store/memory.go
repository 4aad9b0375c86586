// internal/store/memory.go
//
// In-memory implementation of Store.
//
// Characteristics:
//   - Users and rounds kept in maps/slices.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memory struct {
	mu     sync.RWMutex
	users  map[string]*User // keyed by ID
	byName map[string]string
	rounds []Round
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		users:  make(map[string]*User),
		byName: make(map[string]string),
	}
}

func (m *memory) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, ok := m.byName[key]; ok {
		return ErrUsernameTaken
	}
	cp := *u
	m.users[u.ID] = &cp
	m.byName[key] = u.ID
	return nil
}

func (m *memory) UserByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memory) UserByName(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byName[strings.ToLower(username)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.UserByID(ctx, id)
}

func (m *memory) SaveRound(ctx context.Context, r Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Targets = append([]string(nil), r.Targets...)
	m.rounds = append(m.rounds, r)
	if u, ok := m.users[r.UserID]; ok {
		applyRound(u, r)
	}
	return nil
}

func (m *memory) RoundsByUser(ctx context.Context, userID string, limit int) ([]Round, error) {
	return m.filter(limit, func(r Round) bool { return r.UserID == userID }), nil
}

func (m *memory) RoundsByAnon(ctx context.Context, anonID string, limit int) ([]Round, error) {
	return m.filter(limit, func(r Round) bool { return r.UserID == "" && r.AnonID == anonID }), nil
}

func (m *memory) filter(limit int, keep func(Round) bool) []Round {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Round{}
	for _, r := range m.rounds {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memory) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	for i := range m.rounds {
		if m.rounds[i].UserID == "" && m.rounds[i].AnonID == anonID {
			m.rounds[i].UserID = userID
			m.rounds[i].AnonID = ""
			if u != nil {
				applyRound(u, m.rounds[i])
			}
		}
	}
	return nil
}
