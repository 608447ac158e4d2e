package config

import "time"

// Config is the root configuration for a trade feed instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Client   ClientConfig   `yaml:"client"`
	Auth     AuthConfig     `yaml:"auth"`
	Feed     FeedConfig     `yaml:"feed"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// InstanceConfig identifies this feed instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ClientConfig holds the event stream connection settings.
type ClientConfig struct {
	WSURL                string        `yaml:"ws_url"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PongTimeout          time.Duration `yaml:"pong_timeout"`
	AuthProbeInterval    time.Duration `yaml:"auth_probe_interval"`
	AuthTimeout          time.Duration `yaml:"auth_timeout"`
	CallTimeout          time.Duration `yaml:"call_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

// AuthConfig holds wallet settings for the authentication handshake.
type AuthConfig struct {
	Address        string `yaml:"address"`
	PrivateKeyPath string `yaml:"private_key_path"` // path to a PKCS#8 PEM key file
}

// FeedConfig describes the trading pair the feed reconciles trades for.
type FeedConfig struct {
	Pool            string `yaml:"pool"`
	TokenIsToken0   bool   `yaml:"token_is_token0"`
	TokenDecimals   int    `yaml:"token_decimals"`
	CounterDecimals int    `yaml:"counter_decimals"`
	MaxTrades       int    `yaml:"max_trades"`
}

// ArchiveConfig holds the optional trade archiver settings. The archiver is
// off unless enabled explicitly.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
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
