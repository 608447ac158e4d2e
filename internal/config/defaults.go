package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSURL                = "wss://stream.dexpulse.io/ws"
	DefaultReconnectBaseDelay   = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultPingInterval         = 15 * time.Second
	DefaultPongTimeout          = 5 * time.Second
	DefaultAuthProbeInterval    = 5 * time.Minute
	DefaultAuthTimeout          = 30 * time.Second
	DefaultCallTimeout          = 30 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultBufferSize           = 1000
	DefaultTokenDecimals        = 18
	DefaultMaxTrades            = 100
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 1 * time.Second
	DefaultArchiveBufferSize    = 10000
)

func (c *Config) applyDefaults() {
	// Client defaults
	if c.Client.WSURL == "" {
		c.Client.WSURL = DefaultWSURL
	}
	if c.Client.ReconnectBaseDelay == 0 {
		c.Client.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Client.MaxReconnectAttempts == 0 {
		c.Client.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Client.PingInterval == 0 {
		c.Client.PingInterval = DefaultPingInterval
	}
	if c.Client.PongTimeout == 0 {
		c.Client.PongTimeout = DefaultPongTimeout
	}
	if c.Client.AuthProbeInterval == 0 {
		c.Client.AuthProbeInterval = DefaultAuthProbeInterval
	}
	if c.Client.AuthTimeout == 0 {
		c.Client.AuthTimeout = DefaultAuthTimeout
	}
	if c.Client.CallTimeout == 0 {
		c.Client.CallTimeout = DefaultCallTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}
	if c.Client.BufferSize == 0 {
		c.Client.BufferSize = DefaultBufferSize
	}

	// Feed defaults
	if c.Feed.TokenDecimals == 0 {
		c.Feed.TokenDecimals = DefaultTokenDecimals
	}
	if c.Feed.CounterDecimals == 0 {
		c.Feed.CounterDecimals = DefaultTokenDecimals
	}
	if c.Feed.MaxTrades == 0 {
		c.Feed.MaxTrades = DefaultMaxTrades
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultArchiveBufferSize
	}
	applyDBDefaults(&c.Archive.Database)
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
