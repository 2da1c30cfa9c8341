package confirm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwoolab/depositwatch/internal/extract"
	"github.com/jwoolab/depositwatch/internal/match"
	"github.com/jwoolab/depositwatch/internal/model"
	"github.com/jwoolab/depositwatch/internal/relay"
)

// Result messages reported to the caller.
const (
	MsgConfirmed   = "충전 완료"
	MsgDuplicate   = "중복 충전"
	MsgTimeout     = "시간 초과"
	MsgMaxRetries  = "재시도 한도 초과"
	MsgBadToken    = "잘못된 수신 토큰"
	MsgBadRelayURL = "잘못된 릴레이 주소"
)

// Policy is the retry and deadline policy for one run.
type Policy struct {
	Deadline          time.Duration // Wall-clock budget spanning all attempts
	MaxRetries        int           // Reconnect attempts after the first session fails
	CleanCloseBackoff time.Duration // Wait after a clean server close
	ErrorBackoff      time.Duration // Wait after an unexpected failure
}

// session is the slice of relay.Session the runner consumes.
type session interface {
	Events() <-chan model.NotificationEvent
	Errs() <-chan error
	Close() error
}

// opener dials one relay session. Swapped out in tests.
type opener func(ctx context.Context, cfg relay.Config, token string, logger *slog.Logger) (session, error)

// Runner owns the lifetime of charge-check runs: it opens relay
// sessions, feeds events through extraction and matching, applies the
// reconnect policy on failure, and enforces the overall deadline.
type Runner struct {
	relayCfg relay.Config
	policy   Policy
	engine   *match.Engine
	logger   *slog.Logger
	open     opener
}

// NewRunner creates a runner over the given match engine.
func NewRunner(relayCfg relay.Config, policy Policy, engine *match.Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		relayCfg: relayCfg,
		policy:   policy,
		engine:   engine,
		logger:   logger,
		open: func(ctx context.Context, cfg relay.Config, token string, logger *slog.Logger) (session, error) {
			return relay.Open(ctx, cfg, token, logger)
		},
	}
}

// Run executes one orchestration run to confirm req. It always returns
// exactly one terminal outcome: the charge was confirmed, rejected as a
// duplicate, or given up with a reason. Run blocks until terminal,
// bounded by the policy deadline.
func (r *Runner) Run(ctx context.Context, req model.ChargeRequest) model.Outcome {
	logger := r.logger.With(
		"run_id", uuid.NewString(),
		"amount", req.Amount,
		"requested_time", req.RequestedTime,
	)

	// Fail fast on a malformed token, before any connection attempt.
	if err := relay.ValidateToken(req.SubscriberToken); err != nil {
		logger.Warn("rejecting run", "error", err)
		return model.Outcome{Amount: req.Amount, Message: MsgBadToken}
	}

	// One deadline spans all attempts, including backoff sleeps.
	ctx, cancel := context.WithTimeout(ctx, r.policy.Deadline)
	defer cancel()

	logger.Info("confirmation run started",
		"deadline", r.policy.Deadline,
		"max_retries", r.policy.MaxRetries,
	)

	failures := 0
	for {
		sess, err := r.open(ctx, r.relayCfg, req.SubscriberToken, logger)
		if err != nil {
			if errors.Is(err, relay.ErrBadStreamURL) {
				// Misconfiguration, not a transport fault.
				logger.Error("relay address invalid", "error", err)
				return model.Outcome{Amount: req.Amount, Message: MsgBadRelayURL}
			}
			if ctx.Err() != nil {
				return r.timeoutOutcome(req, logger)
			}
			logger.Warn("session open failed", "error", err)
			if outcome, done := r.backoff(ctx, &failures, err, req, logger); done {
				return outcome
			}
			continue
		}

		outcome, sessErr := r.listen(ctx, sess, req, logger)
		sess.Close()

		if sessErr == nil {
			return outcome
		}

		logger.Warn("session failed", "error", sessErr)
		if outcome, done := r.backoff(ctx, &failures, sessErr, req, logger); done {
			return outcome
		}
	}
}

// listen consumes one session until a terminal outcome or a session
// failure. A nil error means outcome is terminal.
func (r *Runner) listen(ctx context.Context, sess session, req model.ChargeRequest, logger *slog.Logger) (model.Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return r.timeoutOutcome(req, logger), nil

		case err := <-sess.Errs():
			return model.Outcome{}, err

		case ev, ok := <-sess.Events():
			if !ok {
				return model.Outcome{}, r.drainErr(sess)
			}

			obs := extract.Extract(ev.SourceApp, ev.Title, ev.Body)
			if obs.IsZero() {
				continue
			}

			result, err := r.engine.TryMatch(ctx, obs, req, ev.SourceApp)
			if err != nil {
				// Storage hiccup; the stream stays healthy, keep listening.
				logger.Error("match attempt failed", "error", err)
				continue
			}

			switch result {
			case model.Accepted:
				logger.Info("charge confirmed", "source_app", ev.SourceApp)
				return model.Outcome{Success: true, Amount: req.Amount, Message: MsgConfirmed}, nil
			case model.DuplicateWindow, model.DuplicateExact:
				logger.Info("charge rejected as duplicate", "result", result.String())
				return model.Outcome{Amount: req.Amount, Message: MsgDuplicate}, nil
			}
			// NoMatch: keep listening.
		}
	}
}

// drainErr fetches the failure that ended the event stream, if any.
func (r *Runner) drainErr(sess session) error {
	select {
	case err := <-sess.Errs():
		return err
	default:
		return errors.New("event stream ended")
	}
}

// backoff records one session failure and waits before the next
// attempt. done is true when the run must end with outcome instead of
// reconnecting.
func (r *Runner) backoff(ctx context.Context, failures *int, cause error, req model.ChargeRequest, logger *slog.Logger) (model.Outcome, bool) {
	*failures++
	if *failures > r.policy.MaxRetries {
		logger.Warn("giving up", "reason", "max retries exceeded", "failures", *failures)
		return model.Outcome{Amount: req.Amount, Message: MsgMaxRetries}, true
	}

	wait := r.policy.ErrorBackoff
	if errors.Is(cause, relay.ErrSessionClosed) {
		wait = r.policy.CleanCloseBackoff
	}

	logger.Info("reconnecting",
		"attempt", *failures,
		"backoff", wait,
	)

	select {
	case <-ctx.Done():
		return r.timeoutOutcome(req, logger), true
	case <-time.After(wait):
		return model.Outcome{}, false
	}
}

func (r *Runner) timeoutOutcome(req model.ChargeRequest, logger *slog.Logger) model.Outcome {
	logger.Warn("giving up", "reason", "timeout")
	return model.Outcome{Amount: req.Amount, Message: MsgTimeout}
}
