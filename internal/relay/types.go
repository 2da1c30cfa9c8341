package relay

import (
	"errors"
	"time"
)

// Errors
var (
	ErrStaleSession  = errors.New("session stale (no keepalive)")
	ErrSessionClosed = errors.New("session closed by relay")
	ErrBadToken      = errors.New("malformed subscriber token")
	ErrBadStreamURL  = errors.New("malformed relay stream url")
	ErrAlreadyClosed = errors.New("already closed")
)

// Config holds the settings for one stream session.
type Config struct {
	StreamURL        string        // Base websocket URL; the token is appended as a path segment
	HandshakeTimeout time.Duration // Dial timeout
	IdleTimeout      time.Duration // Max silence before the session is declared stale
	WriteTimeout     time.Duration // Control-frame write deadline
	BufferSize       int           // Event channel capacity
}

// frame is one raw message on the relay stream. The relay sends a nop
// frame as keepalive and a push frame for each mirrored notification.
type frame struct {
	Type string    `json:"type"` // "nop", "push", "tickle"
	Push pushFrame `json:"push"`
}

// pushFrame carries one mirrored mobile notification.
type pushFrame struct {
	Type        string `json:"type"` // Only "mirror" carries notification text
	PackageName string `json:"package_name"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}
