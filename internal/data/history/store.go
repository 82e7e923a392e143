// Package history persists per-session navigation stacks in SQLite so a
// browser session survives a server restart.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"xplore/internal/core/ports"
	"xplore/internal/engine/navigation"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	stackBack    = "back"
	stackForward = "forward"
)

var _ ports.HistoryStore = (*Store)(nil)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
	now  func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveHistory replaces the stored stacks of sessionID.
func (s *Store) SaveHistory(ctx context.Context, sessionID string, state ports.HistoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id must not be empty")
	}

	return s.withRetry("save history", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (session_id, active_path, active_line, active_pattern, updated_at_utc) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
  active_path=excluded.active_path,
  active_line=excluded.active_line,
  active_pattern=excluded.active_pattern,
  updated_at_utc=excluded.updated_at_utc
`, sessionID, state.Active.Path, state.Active.Line, state.Active.Pattern, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM history_entries WHERE session_id = ?`, sessionID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO history_entries (session_id, stack, position, path, line, pattern) VALUES (?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for stack, locs := range map[string][]navigation.Location{stackBack: state.Back, stackForward: state.Forward} {
			for i, loc := range locs {
				if _, err := stmt.ExecContext(ctx, sessionID, stack, i, loc.Path, loc.Line, loc.Pattern); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	})
}

// LoadHistory returns the stored stacks of sessionID, oldest entry first.
// The bool is false when the session has never been saved.
func (s *Store) LoadHistory(ctx context.Context, sessionID string) (ports.HistoryState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state ports.HistoryState
	err := s.withRetry("load session", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT active_path, active_line, active_pattern FROM sessions WHERE session_id = ?
`, sessionID).Scan(&state.Active.Path, &state.Active.Line, &state.Active.Pattern)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ports.HistoryState{}, false, nil
	}
	if err != nil {
		return ports.HistoryState{}, false, err
	}

	var rows *sql.Rows
	err = s.withRetry("load history", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT stack, path, line, pattern FROM history_entries
WHERE session_id = ?
ORDER BY stack ASC, position ASC
`, sessionID)
		return qErr
	})
	if err != nil {
		return ports.HistoryState{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stack string
			loc   navigation.Location
		)
		if err := rows.Scan(&stack, &loc.Path, &loc.Line, &loc.Pattern); err != nil {
			return ports.HistoryState{}, false, fmt.Errorf("scan history row: %w", err)
		}
		switch stack {
		case stackBack:
			state.Back = append(state.Back, loc)
		case stackForward:
			state.Forward = append(state.Forward, loc)
		}
	}
	if err := rows.Err(); err != nil {
		return ports.HistoryState{}, false, fmt.Errorf("iterate history rows: %w", err)
	}
	return state, true, nil
}

// Prune deletes sessions not saved since cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry("prune sessions", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at_utc < ?`, cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}
