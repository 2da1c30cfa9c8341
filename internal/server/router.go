package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jwoolab/depositwatch/internal/callback"
	"github.com/jwoolab/depositwatch/internal/ledger"
	"github.com/jwoolab/depositwatch/internal/model"
)

// ChargeRunner executes one confirmation run to its terminal outcome.
type ChargeRunner interface {
	Run(ctx context.Context, req model.ChargeRequest) model.Outcome
}

// NewRouter creates the chi router with all routes mounted.
func NewRouter(runner ChargeRunner, led ledger.Ledger, notifier *callback.Notifier, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handlers{
		runner:   runner,
		ledger:   led,
		notifier: notifier,
		logger:   logger,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Post("/bank", h.CheckCharge)
	r.Get("/charges", h.ListCharges)
	r.Get("/health", h.Health)

	return r
}
