// Package callback reports run outcomes to the owning platform.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier posts completion callbacks to the owning platform.
// Delivery is best-effort: failures are logged, never retried.
type Notifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// NewNotifier creates a notifier for the given endpoint. An empty
// endpoint disables delivery.
func NewNotifier(endpoint string, opts ...Option) *Notifier {
	n := &Notifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		n.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) {
		n.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// payload is the completion callback body the platform expects.
type payload struct {
	UserID      int64 `json:"userId"`
	ChargeLogID int64 `json:"chargeLogId"`
	Amount      int   `json:"amount"`
	Success     bool  `json:"success"`
}

// Notify posts one completion callback. Errors are absorbed after
// logging; the run outcome does not depend on callback delivery.
func (n *Notifier) Notify(ctx context.Context, userID, chargeLogID int64, amount int, success bool) {
	if n.endpoint == "" {
		return
	}

	body, err := json.Marshal(payload{
		UserID:      userID,
		ChargeLogID: chargeLogID,
		Amount:      amount,
		Success:     success,
	})
	if err != nil {
		n.logger.Error("marshal callback", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("create callback request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("callback delivery failed",
			"endpoint", n.endpoint,
			"charge_log_id", chargeLogID,
			"error", err,
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn("callback rejected",
			"endpoint", n.endpoint,
			"charge_log_id", chargeLogID,
			"status", fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		)
		return
	}

	n.logger.Info("callback delivered",
		"charge_log_id", chargeLogID,
		"success", success,
	)
}
