package config

import (
	"fmt"
	"net/url"
	"time"
)

// SyncConfig is the root configuration for a sync client instance.
type SyncConfig struct {
	Client       ClientConfig       `yaml:"client"`
	API          APIConfig          `yaml:"api"`
	Connection   ConnectionConfig   `yaml:"connection"`
	Router       RouterConfig       `yaml:"router"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Database     DBConfig           `yaml:"database"`
	Journal      JournalConfig      `yaml:"journal"`
	Health       HealthConfig       `yaml:"health"`
}

// ClientConfig identifies this client session.
type ClientConfig struct {
	UserID string `yaml:"user_id"`
}

// APIConfig holds dashboard backend settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	WSPath     string        `yaml:"ws_path"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// WebSocketURL derives the sync endpoint from the REST base URL:
// https becomes wss, http becomes ws, and WSPath is appended.
func (a APIConfig) WebSocketURL() (string, error) {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
		// Already a WebSocket URL.
	default:
		return "", fmt.Errorf("base_url scheme %q is not http(s) or ws(s)", u.Scheme)
	}
	u.Path = a.WSPath
	return u.String(), nil
}

// ConnectionConfig holds WebSocket connection manager settings.
type ConnectionConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	HeartbeatTimeout   time.Duration `yaml:"heartbeat_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	MessageBufferSize  int           `yaml:"message_buffer_size"`
}

// RouterConfig holds event router settings.
type RouterConfig struct {
	FirehoseBufferSize int `yaml:"firehose_buffer_size"`
}

// SubscriptionConfig holds topic interest tracking settings.
type SubscriptionConfig struct {
	GracePeriod time.Duration `yaml:"grace_period"`
}

// DBConfig holds the Postgres connection for the event journal.
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

// JournalConfig holds batch journal writer settings. The journal is
// optional; when Enabled is false the database section is ignored.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
