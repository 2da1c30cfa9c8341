package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort              = 8090
	DefaultStreamURL         = "wss://stream.pushbullet.com/websocket"
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultIdleTimeout       = 95 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultBufferSize        = 100
	DefaultDeadline          = 20 * time.Minute
	DefaultMaxRetries        = 8
	DefaultCleanCloseBackoff = 5 * time.Second
	DefaultErrorBackoff      = 10 * time.Second
	DefaultDedupeWindow      = 60 * time.Second
	DefaultStorageDriver     = "sqlite"
	DefaultSqlitePath        = "depositwatch.db"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultCallbackTimeout   = 10 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	// Relay defaults
	if c.Relay.StreamURL == "" {
		c.Relay.StreamURL = DefaultStreamURL
	}
	if c.Relay.HandshakeTimeout == 0 {
		c.Relay.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Relay.IdleTimeout == 0 {
		c.Relay.IdleTimeout = DefaultIdleTimeout
	}
	if c.Relay.WriteTimeout == 0 {
		c.Relay.WriteTimeout = DefaultWriteTimeout
	}
	if c.Relay.BufferSize == 0 {
		c.Relay.BufferSize = DefaultBufferSize
	}

	// Confirmation policy defaults
	if c.Confirm.Deadline == 0 {
		c.Confirm.Deadline = DefaultDeadline
	}
	if c.Confirm.MaxRetries == 0 {
		c.Confirm.MaxRetries = DefaultMaxRetries
	}
	if c.Confirm.CleanCloseBackoff == 0 {
		c.Confirm.CleanCloseBackoff = DefaultCleanCloseBackoff
	}
	if c.Confirm.ErrorBackoff == 0 {
		c.Confirm.ErrorBackoff = DefaultErrorBackoff
	}
	if c.Confirm.DedupeWindow == 0 {
		c.Confirm.DedupeWindow = DefaultDedupeWindow
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.Sqlite.Path == "" {
		c.Storage.Sqlite.Path = DefaultSqlitePath
	}
	applyDBDefaults(&c.Storage.Postgres)

	if c.Callback.Timeout == 0 {
		c.Callback.Timeout = DefaultCallbackTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
