// internal/store/store.go
//
// Persistence for players and completed rounds.
// Implementations:
//   - memory.go: map-backed, for tests and DB-less development.
//   - sqlite.go: SQLite via mattn/go-sqlite3 with embedded migrations.
//
// Only finished rounds are recorded. A round in progress lives in its
// session and is never saved.

package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username taken")
)

// User is a registered player and their running totals.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	RoundsPlayed int       `json:"roundsPlayed"`
	ObjectsFound int       `json:"objectsFound"`
	BestMs       int64     `json:"bestMs"` // fastest completed round, 0 if none
}

// Round is one completed round.
type Round struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId,omitempty"`
	AnonID     string    `json:"-"`
	Mode       string    `json:"mode"`
	Number     int       `json:"round"`
	Targets    []string  `json:"targets"`
	Picks      int       `json:"picks"`
	ElapsedMs  int64     `json:"elapsedMs"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Store defines the persistence interface.
type Store interface {
	// CreateUser inserts u. Returns ErrUsernameTaken on a case-insensitive clash.
	CreateUser(ctx context.Context, u *User) error

	// UserByID and UserByName return ErrNotFound for unknown users.
	UserByID(ctx context.Context, id string) (*User, error)
	UserByName(ctx context.Context, username string) (*User, error)

	// SaveRound records a completed round and, for a signed-in owner,
	// updates that user's totals.
	SaveRound(ctx context.Context, r Round) error

	// RoundsByUser and RoundsByAnon list recent rounds, newest first.
	RoundsByUser(ctx context.Context, userID string, limit int) ([]Round, error)
	RoundsByAnon(ctx context.Context, anonID string, limit int) ([]Round, error)

	// ClaimAnon moves a guest's rounds to a user account.
	ClaimAnon(ctx context.Context, anonID, userID string) error
}

// applyRound folds a completed round into user totals.
func applyRound(u *User, r Round) {
	u.RoundsPlayed++
	u.ObjectsFound += len(r.Targets)
	if u.BestMs == 0 || (r.ElapsedMs > 0 && r.ElapsedMs < u.BestMs) {
		u.BestMs = r.ElapsedMs
	}
}
