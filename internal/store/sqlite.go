// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying migrations from an fs.FS (idempotent, recorded in _migrations).
//   - User and round queries backing the Store interface.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Open opens (and creates if missing) a SQLite database.
//
// Parent directories of file DSNs are created. An in-memory DSN is pinned to
// a single connection so every query sees the same database.
func Open(dsn string) (*sql.DB, error) {
	if dsn == MemoryDSN {
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragmas: %w", err)
		}
		return db, nil
	}

	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// Migrate applies every *.sql file of fsys in lexical order, each in its own
// transaction. Applied names are recorded in _migrations and skipped later.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a migrated database.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrUsernameTaken
	}
	return err
}

const userColumns = `id, username, password_hash, created_at, rounds_played, objects_found, best_ms`

func (s *sqliteStore) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (s *sqliteStore) UserByName(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, username))
}

func (s *sqliteStore) scanUser(row *sql.Row) (*User, error) {
	var (
		u       User
		created string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.RoundsPlayed, &u.ObjectsFound, &u.BestMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &u, nil
}

func (s *sqliteStore) SaveRound(ctx context.Context, r Round) error {
	targets, err := json.Marshal(r.Targets)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO rounds
            (id, session_id, user_id, anonymous_id, mode, round_number, targets, picks, elapsed_ms, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, nullable(r.UserID), nullable(r.AnonID), r.Mode, r.Number,
		string(targets), r.Picks, r.ElapsedMs, r.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	if r.UserID != "" {
		if err := bumpStats(ctx, tx, r.UserID, len(r.Targets), r.ElapsedMs, 1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// bumpStats adds rounds and found objects to a user and lowers best_ms.
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, found int, elapsedMs int64, rounds int) error {
	_, err := tx.ExecContext(ctx, `
        UPDATE users SET
            rounds_played = rounds_played + ?,
            objects_found = objects_found + ?,
            best_ms = CASE
                WHEN best_ms = 0 THEN ?
                WHEN ? > 0 AND ? < best_ms THEN ?
                ELSE best_ms END
        WHERE id = ?`,
		rounds, found, elapsedMs, elapsedMs, elapsedMs, elapsedMs, userID,
	)
	if err != nil {
		return fmt.Errorf("bump stats: %w", err)
	}
	return nil
}

func (s *sqliteStore) RoundsByUser(ctx context.Context, userID string, limit int) ([]Round, error) {
	return s.queryRounds(ctx, `user_id = ?`, userID, limit)
}

func (s *sqliteStore) RoundsByAnon(ctx context.Context, anonID string, limit int) ([]Round, error) {
	return s.queryRounds(ctx, `user_id IS NULL AND anonymous_id = ?`, anonID, limit)
}

func (s *sqliteStore) queryRounds(ctx context.Context, where, arg string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, session_id, COALESCE(user_id, ''), COALESCE(anonymous_id, ''), mode,
               round_number, targets, picks, elapsed_ms, finished_at
        FROM rounds
        WHERE `+where+`
        ORDER BY finished_at DESC
        LIMIT ?`, arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Round{}
	for rows.Next() {
		var (
			r                 Round
			targets, finished string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.UserID, &r.AnonID, &r.Mode,
			&r.Number, &targets, &r.Picks, &r.ElapsedMs, &finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(targets), &r.Targets); err != nil {
			return nil, fmt.Errorf("decode targets of %s: %w", r.ID, err)
		}
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT targets, elapsed_ms FROM rounds WHERE user_id IS NULL AND anonymous_id = ?`, anonID)
	if err != nil {
		return err
	}
	type claimed struct {
		found   int
		elapsed int64
	}
	var list []claimed
	for rows.Next() {
		var (
			targets string
			c       claimed
			names   []string
		)
		if err := rows.Scan(&targets, &c.elapsed); err != nil {
			rows.Close()
			return err
		}
		_ = json.Unmarshal([]byte(targets), &names)
		c.found = len(names)
		list = append(list, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rounds SET user_id = ?, anonymous_id = NULL WHERE user_id IS NULL AND anonymous_id = ?`,
		userID, anonID); err != nil {
		return fmt.Errorf("claim rounds: %w", err)
	}
	for _, c := range list {
		if err := bumpStats(ctx, tx, userID, c.found, c.elapsed, 1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
