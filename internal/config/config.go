package config

import "time"

// Config is the root configuration for a depositwatch instance.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Relay    RelayConfig    `yaml:"relay"`
	Confirm  ConfirmConfig  `yaml:"confirm"`
	Storage  StorageConfig  `yaml:"storage"`
	Callback CallbackConfig `yaml:"callback"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// RelayConfig holds notification-relay stream settings.
type RelayConfig struct {
	StreamURL        string        `yaml:"stream_url"`        // Base websocket URL; token is appended as a path segment
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"` // Websocket dial timeout
	IdleTimeout      time.Duration `yaml:"idle_timeout"`      // Max silence before the session is declared stale
	WriteTimeout     time.Duration `yaml:"write_timeout"`     // Control-frame write deadline
	BufferSize       int           `yaml:"buffer_size"`       // Event channel capacity
}

// ConfirmConfig holds the retry/deadline policy for one confirmation run.
type ConfirmConfig struct {
	Deadline          time.Duration `yaml:"deadline"`            // Wall-clock budget spanning all attempts
	MaxRetries        int           `yaml:"max_retries"`         // Reconnect attempts after the first session
	CleanCloseBackoff time.Duration `yaml:"clean_close_backoff"` // Wait after a clean server close
	ErrorBackoff      time.Duration `yaml:"error_backoff"`       // Wait after an unexpected failure
	DedupeWindow      time.Duration `yaml:"dedupe_window"`       // Half-width of the duplicate window
}

// StorageConfig selects and configures the ledger backend.
type StorageConfig struct {
	Driver   string   `yaml:"driver"` // "postgres" or "sqlite"
	Postgres DBConfig `yaml:"postgres"`
	Sqlite   struct {
		Path string `yaml:"path"` // File path, or ":memory:"
	} `yaml:"sqlite"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CallbackConfig holds the completion-callback endpoint.
type CallbackConfig struct {
	URL     string        `yaml:"url"` // Empty disables the callback
	Timeout time.Duration `yaml:"timeout"`
}
