package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if !strings.HasPrefix(c.Relay.StreamURL, "ws://") && !strings.HasPrefix(c.Relay.StreamURL, "wss://") {
		return fmt.Errorf("relay.stream_url must be a ws:// or wss:// URL, got %q", c.Relay.StreamURL)
	}
	if c.Relay.BufferSize < 1 {
		return errors.New("relay.buffer_size must be >= 1")
	}

	if c.Confirm.Deadline <= 0 {
		return errors.New("confirm.deadline must be > 0")
	}
	if c.Confirm.MaxRetries < 0 {
		return errors.New("confirm.max_retries must be >= 0")
	}
	if c.Confirm.DedupeWindow <= 0 {
		return errors.New("confirm.dedupe_window must be > 0")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Sqlite.Path == "" {
			return errors.New("storage.sqlite.path is required")
		}
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.driver must be \"postgres\" or \"sqlite\", got %q", c.Storage.Driver)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
