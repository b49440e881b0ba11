package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *SyncConfig) Validate() error {
	if c.Client.UserID == "" {
		return errors.New("client.user_id is required")
	}

	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if _, err := c.API.WebSocketURL(); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}

	if c.Connection.ReconnectBaseDelay > c.Connection.ReconnectMaxDelay {
		return fmt.Errorf("connection.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Connection.ReconnectBaseDelay, c.Connection.ReconnectMaxDelay)
	}
	if c.Connection.MessageBufferSize < 1 {
		return errors.New("connection.message_buffer_size must be >= 1")
	}

	if c.Router.FirehoseBufferSize < 1 {
		return errors.New("router.firehose_buffer_size must be >= 1")
	}

	if c.Subscription.GracePeriod < 0 {
		return errors.New("subscription.grace_period must be >= 0")
	}

	if c.Journal.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
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
