package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSPath             = "/ws/sync"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultHeartbeatTimeout   = 45 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultMessageBufferSize  = 1024
	DefaultFirehoseBufferSize = 1024
	DefaultGracePeriod        = 3 * time.Second
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultHealthPort         = 8091
	DefaultHealthPath         = "/health"
)

func (c *SyncConfig) applyDefaults() {
	// API defaults
	if c.API.WSPath == "" {
		c.API.WSPath = DefaultWSPath
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Connection defaults
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.HeartbeatTimeout == 0 {
		c.Connection.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.MessageBufferSize == 0 {
		c.Connection.MessageBufferSize = DefaultMessageBufferSize
	}

	// Router defaults
	if c.Router.FirehoseBufferSize == 0 {
		c.Router.FirehoseBufferSize = DefaultFirehoseBufferSize
	}

	// Subscription defaults
	if c.Subscription.GracePeriod == 0 {
		c.Subscription.GracePeriod = DefaultGracePeriod
	}

	// Database defaults
	applyDBDefaults(&c.Database)

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
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
