package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwoolab/depositwatch/internal/model"
)

// Session is one live connection to the relay stream for one
// subscriber token. Exactly one session is open per orchestration run.
type Session struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	events chan model.NotificationEvent
	errs   chan error
	done   chan struct{}

	// State
	mu       sync.RWMutex
	alive    bool
	lastSeen time.Time
	closed   bool
}

// Open dials the relay stream for the given subscriber token and starts
// the read and heartbeat loops. A malformed stream URL is reported as
// ErrBadStreamURL so callers can treat it as non-retryable.
func Open(ctx context.Context, cfg Config, token string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	streamURL, err := buildStreamURL(cfg.StreamURL, token)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		logger:   logger,
		conn:     conn,
		events:   make(chan model.NotificationEvent, cfg.BufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		alive:    true,
		lastSeen: time.Now(),
	}

	// Any control traffic counts as liveness.
	conn.SetPingHandler(func(data string) error {
		s.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	go s.readLoop()
	go s.heartbeatLoop()

	logger.Debug("relay session opened", "url", cfg.StreamURL)

	return s, nil
}

// buildStreamURL appends the token to the base URL and validates the result.
func buildStreamURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadStreamURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("%w: scheme %q", ErrBadStreamURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrBadStreamURL)
	}
	return u.JoinPath(token).String(), nil
}

// Events returns the channel of push notification events. Receiving
// suspends until an event arrives; the channel is closed when the
// session ends.
func (s *Session) Events() <-chan model.NotificationEvent {
	return s.events
}

// Errs returns the channel of session failures.
func (s *Session) Errs() <-chan error {
	return s.errs
}

// IsAlive returns the current session state.
func (s *Session) IsAlive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alive
}

// Close gracefully closes the session.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.alive = false
	s.mu.Unlock()

	close(s.done)

	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return s.conn.Close()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// fail reports one terminal session error and marks the session dead.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()

	select {
	case s.errs <- err:
	default:
	}
}

// readLoop reads relay frames and forwards push events.
func (s *Session) readLoop() {
	defer close(s.events)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called.
			select {
			case <-s.done:
				return
			default:
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.fail(ErrSessionClosed)
			} else {
				s.fail(err)
			}
			return
		}

		s.touch()

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Debug("undecodable relay frame", "error", err)
			continue
		}

		// Non-push frames (nop keepalives, tickles) only refresh liveness.
		if f.Type != "push" || f.Push.Type != "mirror" {
			continue
		}

		ev := model.NotificationEvent{
			SourceApp: f.Push.PackageName,
			Title:     f.Push.Title,
			Body:      f.Push.Body,
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		default:
			s.logger.Warn("event buffer full, dropping notification",
				"source_app", ev.SourceApp,
			)
		}
	}
}

// heartbeatLoop pings the relay and surfaces a stale session as a
// failure instead of a silent hang.
func (s *Session) heartbeatLoop() {
	interval := s.cfg.IdleTimeout / 3
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}

			s.mu.RLock()
			lastSeen := s.lastSeen
			s.mu.RUnlock()

			if time.Since(lastSeen) > s.cfg.IdleTimeout {
				s.logger.Warn("relay session stale",
					"last_seen", lastSeen,
					"idle_timeout", s.cfg.IdleTimeout,
				)
				s.fail(ErrStaleSession)
				s.conn.Close()
				return
			}
		}
	}
}
