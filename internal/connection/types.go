package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// Message wraps raw message data with its receive timestamp.
type Message struct {
	Data       []byte    // raw message bytes from the socket
	ReceivedAt time.Time // local timestamp when the read returned
}

// Config configures a Socket.
type Config struct {
	URL              string        // WebSocket URL (e.g. wss://trades.example.com/ws)
	HandshakeTimeout time.Duration // dial handshake bound
	WriteTimeout     time.Duration // write deadline for sends
	BufferSize       int           // message channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
}
