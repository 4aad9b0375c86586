// internal/daily/store.go
//
// Persistence for daily results in the daily_results table.
// One row per owner and date: the first completed daily round counts and
// later inserts are ignored.

package daily

import (
	"context"
	"database/sql"
)

// DefaultLimit caps leaderboard queries that pass no limit.
const DefaultLimit = 20

// Result is one owner's daily round.
type Result struct {
	OwnerID   string `json:"ownerId"`
	Date      string `json:"date"`
	Picks     int    `json:"picks"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// LBRow is a leaderboard entry. Name is the username for signed-in owners
// and empty for guests.
type LBRow struct {
	OwnerID   string `json:"ownerId"`
	Name      string `json:"name,omitempty"`
	Picks     int    `json:"picks"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether owner has a result for date.
func (s *Store) AlreadyPlayed(ctx context.Context, ownerID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE owner_id=? AND date=?`,
		ownerID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult stores r unless the owner already has a row for that date.
// It reports whether a row was written.
func (s *Store) InsertResult(ctx context.Context, r Result) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(owner_id, date, picks, elapsed_ms) VALUES(?,?,?,?)`,
		r.OwnerID, r.Date, r.Picks, r.ElapsedMs,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Leaderboard returns the fastest rounds for date, fewest picks breaking ties.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT d.owner_id, COALESCE(u.username, ''), d.picks, d.elapsed_ms
        FROM daily_results d
        LEFT JOIN users u ON u.id = d.owner_id
        WHERE d.date=?
        ORDER BY d.elapsed_ms ASC, d.picks ASC, d.created_at ASC
        LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.OwnerID, &r.Name, &r.Picks, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
