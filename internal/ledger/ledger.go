package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwoolab/depositwatch/internal/config"
	"github.com/jwoolab/depositwatch/internal/model"
)

// ErrDuplicate is returned by Insert when the exact (time, amount, name)
// triple is already recorded. Callers rely on it being distinguishable
// from other storage failures.
var ErrDuplicate = errors.New("charge already recorded")

// Ledger is the durable store of confirmed charges and the sole
// authority for duplicate prevention. Insert is atomic at the storage
// layer: of two concurrent inserts of the same triple exactly one
// succeeds and the other gets ErrDuplicate.
type Ledger interface {
	// Insert appends one confirmed charge. Returns ErrDuplicate when the
	// exact (time, amount, name) triple already exists.
	Insert(ctx context.Context, rec model.ChargeRecord) error

	// ExistsWithin reports whether a charge with the same amount and
	// name exists with |time - centerTime| < window.
	ExistsWithin(ctx context.Context, amount int, name string, centerTime int64, window time.Duration) (bool, error)

	// Recent returns the newest records, most recent first.
	Recent(ctx context.Context, limit int) ([]model.ChargeRecord, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close()
}

// Open creates the ledger backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Ledger, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.Postgres, logger)
	case "sqlite":
		return NewSqlite(cfg.Sqlite.Path, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
