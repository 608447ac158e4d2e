package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Client.WSURL == "" {
		return errors.New("client.ws_url is required")
	}
	if !strings.HasPrefix(c.Client.WSURL, "ws://") && !strings.HasPrefix(c.Client.WSURL, "wss://") {
		return fmt.Errorf("client.ws_url must use ws:// or wss://, got %q", c.Client.WSURL)
	}
	if c.Client.MaxReconnectAttempts < 1 {
		return errors.New("client.max_reconnect_attempts must be >= 1")
	}
	if c.Client.BufferSize < 1 {
		return errors.New("client.buffer_size must be >= 1")
	}

	if c.Auth.Address != "" && c.Auth.PrivateKeyPath == "" {
		return errors.New("auth.private_key_path is required when auth.address is set")
	}

	if c.Feed.Pool == "" {
		return errors.New("feed.pool is required")
	}
	if c.Feed.TokenDecimals < 0 || c.Feed.TokenDecimals > 36 {
		return fmt.Errorf("feed.token_decimals must be between 0 and 36, got %d", c.Feed.TokenDecimals)
	}
	if c.Feed.CounterDecimals < 0 || c.Feed.CounterDecimals > 36 {
		return fmt.Errorf("feed.counter_decimals must be between 0 and 36, got %d", c.Feed.CounterDecimals)
	}
	if c.Feed.MaxTrades < 1 {
		return errors.New("feed.max_trades must be >= 1")
	}

	if c.Archive.Enabled {
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
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
