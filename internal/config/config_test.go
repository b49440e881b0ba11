package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
client:
  user_id: user-42
api:
  base_url: https://dashboard.example.com/api/v1
  ws_path: /ws/sync
database:
  host: localhost
  port: 5432
  name: sync_journal
  user: syncuser
  password: syncpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.UserID != "user-42" {
		t.Errorf("Client.UserID = %q, want %q", cfg.Client.UserID, "user-42")
	}
	if cfg.API.BaseURL != "https://dashboard.example.com/api/v1" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://dashboard.example.com/api/v1")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
client:
  user_id: user-42
api:
  base_url: https://dashboard.example.com
database:
  host: localhost
  name: sync_journal
  user: syncuser
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
client:
  user_id: user-42
api:
  base_url: https://dashboard.example.com
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.WSPath != DefaultWSPath {
		t.Errorf("API.WSPath = %q, want default %q", cfg.API.WSPath, DefaultWSPath)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Connection.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Connection.ReconnectBaseDelay = %v, want default %v", cfg.Connection.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Subscription.GracePeriod != DefaultGracePeriod {
		t.Errorf("Subscription.GracePeriod = %v, want default %v", cfg.Subscription.GracePeriod, DefaultGracePeriod)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want default %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		name    string
		api     APIConfig
		want    string
		wantErr bool
	}{
		{
			name: "https becomes wss",
			api:  APIConfig{BaseURL: "https://dashboard.example.com", WSPath: "/ws/sync"},
			want: "wss://dashboard.example.com/ws/sync",
		},
		{
			name: "http becomes ws",
			api:  APIConfig{BaseURL: "http://localhost:8080/api/v1", WSPath: "/ws/sync"},
			want: "ws://localhost:8080/ws/sync",
		},
		{
			name: "ws passed through",
			api:  APIConfig{BaseURL: "ws://localhost:8080", WSPath: "/ws/sync"},
			want: "ws://localhost:8080/ws/sync",
		},
		{
			name:    "unsupported scheme",
			api:     APIConfig{BaseURL: "ftp://example.com", WSPath: "/ws/sync"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.api.WebSocketURL()
			if tt.wantErr {
				if err == nil {
					t.Errorf("WebSocketURL() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("WebSocketURL() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("WebSocketURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() SyncConfig {
		return SyncConfig{
			Client: ClientConfig{UserID: "user-42"},
			API:    APIConfig{BaseURL: "https://dashboard.example.com", WSPath: "/ws/sync"},
			Connection: ConnectionConfig{
				ReconnectBaseDelay: time.Second,
				ReconnectMaxDelay:  30 * time.Second,
				MessageBufferSize:  1024,
			},
			Router:       RouterConfig{FirehoseBufferSize: 1024},
			Subscription: SubscriptionConfig{GracePeriod: 3 * time.Second},
			Health:       HealthConfig{Port: 8091, Path: "/health"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*SyncConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *SyncConfig) {},
			wantErr: "",
		},
		{
			name:    "missing user id",
			mutate:  func(c *SyncConfig) { c.Client.UserID = "" },
			wantErr: "client.user_id is required",
		},
		{
			name:    "missing base url",
			mutate:  func(c *SyncConfig) { c.API.BaseURL = "" },
			wantErr: "api.base_url is required",
		},
		{
			name: "base delay exceeds max delay",
			mutate: func(c *SyncConfig) {
				c.Connection.ReconnectBaseDelay = time.Minute
				c.Connection.ReconnectMaxDelay = time.Second
			},
			wantErr: "connection.reconnect_base_delay (1m0s) cannot exceed reconnect_max_delay (1s)",
		},
		{
			name: "journal enabled without database host",
			mutate: func(c *SyncConfig) {
				c.Journal = JournalConfig{Enabled: true, BatchSize: 500, FlushInterval: time.Second}
			},
			wantErr: "database.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *SyncConfig) {
				c.Journal = JournalConfig{Enabled: true, BatchSize: 500, FlushInterval: time.Second}
				c.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "health port out of range",
			mutate:  func(c *SyncConfig) { c.Health.Port = 70000 },
			wantErr: "health.port must be between 1 and 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
