package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jwoolab/depositwatch/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS charges (
	time       INTEGER NOT NULL,
	amount     INTEGER NOT NULL,
	name       TEXT    NOT NULL,
	device     TEXT    NOT NULL DEFAULT '',
	confirmed  INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (time, amount, name)
)`

// Sqlite is the embedded ledger backend. SQLite serializes writes, so
// the uniqueness constraint gives the same race guarantee as postgres.
type Sqlite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSqlite opens (or creates) the database at path and ensures the
// charges table exists. Pass ":memory:" for an in-memory ledger.
func NewSqlite(path string, logger *slog.Logger) (*Sqlite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty DB.
		db.SetMaxOpenConns(1)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create charges table: %w", err)
	}

	return &Sqlite{db: db, logger: logger}, nil
}

// Insert appends one confirmed charge.
func (s *Sqlite) Insert(ctx context.Context, rec model.ChargeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO charges (time, amount, name, device, confirmed) VALUES (?, ?, ?, ?, ?)`,
		rec.Time, rec.Amount, rec.PayerName, rec.Device, rec.Confirmed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert charge: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a uniqueness-constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT:
		return true
	}
	return false
}

// ExistsWithin reports whether a matching charge exists inside the window.
func (s *Sqlite) ExistsWithin(ctx context.Context, amount int, name string, centerTime int64, window time.Duration) (bool, error) {
	w := int64(window / time.Second)

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM charges
			WHERE amount = ? AND name = ? AND time > ? AND time < ?
		)`,
		amount, name, centerTime-w, centerTime+w,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query window: %w", err)
	}
	return exists, nil
}

// Recent returns the newest records, most recent first.
func (s *Sqlite) Recent(ctx context.Context, limit int) ([]model.ChargeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, amount, name, device, confirmed
		 FROM charges ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []model.ChargeRecord
	for rows.Next() {
		var rec model.ChargeRecord
		if err := rows.Scan(&rec.Time, &rec.Amount, &rec.PayerName, &rec.Device, &rec.Confirmed); err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Ping verifies the database is reachable.
func (s *Sqlite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Sqlite) Close() {
	s.db.Close()
}
