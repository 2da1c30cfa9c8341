package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwoolab/depositwatch/internal/ledger"
	"github.com/jwoolab/depositwatch/internal/model"
)

// Engine decides whether an observation confirms a charge request and
// owns the single write path into the ledger.
type Engine struct {
	ledger ledger.Ledger
	window time.Duration
	logger *slog.Logger
}

// NewEngine creates a match engine over the given ledger. window is the
// half-width of the duplicate window around the requested time.
func NewEngine(l ledger.Ledger, window time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{ledger: l, window: window, logger: logger}
}

// TryMatch compares one observation against the expected charge. On a
// match it records the charge, gated twice: the ±window pre-check is
// the authoritative duplicate rule, and the storage uniqueness
// constraint catches two runs racing past it with the same triple.
// device is the source application that produced the observation.
func (e *Engine) TryMatch(ctx context.Context, obs model.Observation, req model.ChargeRequest, device string) (model.MatchResult, error) {
	if !matches(obs, req) {
		return model.NoMatch, nil
	}

	dup, err := e.ledger.ExistsWithin(ctx, req.Amount, req.PayerName, req.RequestedTime, e.window)
	if err != nil {
		return model.NoMatch, fmt.Errorf("window check: %w", err)
	}
	if dup {
		e.logger.Info("duplicate charge within window",
			"amount", req.Amount,
			"time", req.RequestedTime,
		)
		return model.DuplicateWindow, nil
	}

	rec := model.ChargeRecord{
		Time:      req.RequestedTime,
		Amount:    req.Amount,
		PayerName: req.PayerName,
		Device:    device,
		Confirmed: true,
	}

	if err := e.ledger.Insert(ctx, rec); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			// Lost the race to a concurrent run with the identical triple.
			e.logger.Info("duplicate charge on insert",
				"amount", req.Amount,
				"time", req.RequestedTime,
			)
			return model.DuplicateExact, nil
		}
		return model.NoMatch, fmt.Errorf("record charge: %w", err)
	}

	e.logger.Info("charge confirmed",
		"amount", req.Amount,
		"time", req.RequestedTime,
		"device", device,
	)
	return model.Accepted, nil
}

// matches applies the match condition: exact amount equality and
// trimmed-whitespace name equality. A zero observation never matches.
func matches(obs model.Observation, req model.ChargeRequest) bool {
	if obs.Amount <= 0 || obs.Amount != req.Amount {
		return false
	}
	name := strings.TrimSpace(obs.PayerName)
	if name == "" {
		return false
	}
	return name == strings.TrimSpace(req.PayerName)
}
