package client

import (
	"errors"
	"time"
)

// Errors
var (
	ErrClosed           = errors.New("client closed")
	ErrNotConnected     = errors.New("not connected")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrCallTimeout      = errors.New("call timeout")
	ErrConnectionClosed = errors.New("connection closed while call pending")
	ErrHeartbeatTimeout = errors.New("heartbeat timeout")
	ErrReconnectFailed  = errors.New("reconnect attempts exhausted")
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Config configures a Client.
type Config struct {
	URL string // backend WebSocket URL

	ReconnectBaseDelay   time.Duration // first retry delay; doubles per attempt
	MaxReconnectAttempts int           // attempts beyond this are abandoned

	PingInterval time.Duration // liveness probe interval
	PongTimeout  time.Duration // max wait for a heartbeat ack before force-close

	// AuthProbeInterval re-validates server-side session state, which can
	// silently expire. Much less frequent than the liveness probe.
	AuthProbeInterval time.Duration

	AuthTimeout time.Duration // overall bound on one authentication attempt
	CallTimeout time.Duration // per-call bound for correlated queries

	WriteTimeout time.Duration // socket write deadline
	BufferSize   int           // socket message buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay:   3 * time.Second,
		MaxReconnectAttempts: 5,
		PingInterval:         15 * time.Second,
		PongTimeout:          5 * time.Second,
		AuthProbeInterval:    5 * time.Minute,
		AuthTimeout:          30 * time.Second,
		CallTimeout:          30 * time.Second,
		WriteTimeout:         5 * time.Second,
		BufferSize:           1000,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.PingInterval == 0 {
		c.PingInterval = def.PingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = def.PongTimeout
	}
	if c.AuthProbeInterval == 0 {
		c.AuthProbeInterval = def.AuthProbeInterval
	}
	if c.AuthTimeout == 0 {
		c.AuthTimeout = def.AuthTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = def.CallTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
}

// Stats provides client statistics.
type Stats struct {
	State             State
	Authenticated     bool
	SubscribedPools   int
	PendingCalls      int
	ReconnectAttempts int
	LastConnectedAt   time.Time
}
