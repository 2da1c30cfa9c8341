package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwoolab/depositwatch/internal/config"
	"github.com/jwoolab/depositwatch/internal/model"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS charges (
	time       BIGINT      NOT NULL,
	amount     BIGINT      NOT NULL,
	name       TEXT        NOT NULL,
	device     TEXT        NOT NULL DEFAULT '',
	confirmed  BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (time, amount, name)
)`

// Postgres is the pgx-backed ledger.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects a pool, verifies it, and ensures the charges
// table exists.
func NewPostgres(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create charges table: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

// buildConnString builds a PostgreSQL connection string from config.
func buildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// Insert appends one confirmed charge.
func (p *Postgres) Insert(ctx context.Context, rec model.ChargeRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO charges (time, amount, name, device, confirmed) VALUES ($1, $2, $3, $4, $5)`,
		rec.Time, rec.Amount, rec.PayerName, rec.Device, rec.Confirmed,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("insert charge: %w", err)
	}
	return nil
}

// ExistsWithin reports whether a matching charge exists inside the window.
func (p *Postgres) ExistsWithin(ctx context.Context, amount int, name string, centerTime int64, window time.Duration) (bool, error) {
	w := int64(window / time.Second)

	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM charges
			WHERE amount = $1 AND name = $2 AND time > $3 AND time < $4
		)`,
		amount, name, centerTime-w, centerTime+w,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query window: %w", err)
	}
	return exists, nil
}

// Recent returns the newest records, most recent first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]model.ChargeRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT time, amount, name, device, confirmed
		 FROM charges ORDER BY created_at DESC LIMIT $1`,
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

// Ping verifies the connection is healthy.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
