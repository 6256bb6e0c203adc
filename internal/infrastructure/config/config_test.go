package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
engine:
  lock_timeout_ms: 500
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.Engine.LockTimeoutMS != 500 {
		t.Errorf("Engine.LockTimeoutMS = %d, want %d", cfg.Engine.LockTimeoutMS, 500)
	}

	if cfg.Engine.StorageTimeoutMS != 3000 {
		t.Errorf("Engine.StorageTimeoutMS = %d, want default %d", cfg.Engine.StorageTimeoutMS, 3000)
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// validJWTSecret is a secret that meets the 32-character minimum requirement
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid JWT secret",
			modify:  func(c *Config) { c.Security.JWT.Secret = validJWTSecret },
			wantErr: false,
		},
		{
			name:    "empty site ID",
			modify:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "empty database path",
			modify:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "zero lock timeout",
			modify:  func(c *Config) { c.Engine.LockTimeoutMS = 0 },
			wantErr: true,
		},
		{
			name:    "negative storage timeout",
			modify:  func(c *Config) { c.Engine.StorageTimeoutMS = -1 },
			wantErr: true,
		},
		{
			name:    "default page size above max",
			modify:  func(c *Config) { c.Engine.DefaultPageSize = c.Engine.MaxPageSize + 1 },
			wantErr: true,
		},
		{
			name:    "invalid MQTT QoS",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid relay QoS",
			modify:  func(c *Config) { c.Relay.QoS = -1 },
			wantErr: true,
		},
		{
			name:    "wildcard in topic prefix",
			modify:  func(c *Config) { c.Relay.TopicPrefix = "gate/#" },
			wantErr: true,
		},
		{
			name:    "relay enabled without MQTT",
			modify:  func(c *Config) { c.Relay.Enabled = true },
			wantErr: true,
		},
		{
			name: "relay enabled with MQTT",
			modify: func(c *Config) {
				c.Relay.Enabled = true
				c.MQTT.Enabled = true
			},
			wantErr: false,
		},
		{
			name:    "invalid API port",
			modify:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "directory enabled without URL",
			modify:  func(c *Config) { c.Directory.Enabled = true },
			wantErr: true,
		},
		{
			name: "directory enabled with URL",
			modify: func(c *Config) {
				c.Directory.Enabled = true
				c.Directory.URL = "https://directory.example.com/users"
			},
			wantErr: false,
		},
		{
			name:    "file logging without path",
			modify:  func(c *Config) { c.Logging.Output = "file" },
			wantErr: true,
		},
		{
			name:    "short JWT secret",
			modify:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := Default()

	if got := cfg.LockTimeout(); got != 2*time.Second {
		t.Errorf("LockTimeout() = %v, want %v", got, 2*time.Second)
	}
	if got := cfg.StorageTimeout(); got != 3*time.Second {
		t.Errorf("StorageTimeout() = %v, want %v", got, 3*time.Second)
	}
	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want %v", got, 30*time.Second)
	}
	if got := cfg.GetWriteTimeout(); got != 30*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want %v", got, 30*time.Second)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want %v", got, 60*time.Second)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("GATEKEEPER_DATABASE_PATH", "/custom/path.db")
	t.Setenv("GATEKEEPER_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GATEKEEPER_MQTT_USERNAME", "testuser")
	t.Setenv("GATEKEEPER_MQTT_PASSWORD", "testpass")
	t.Setenv("GATEKEEPER_API_HOST", "192.168.1.1")
	t.Setenv("GATEKEEPER_API_PORT", "9090")
	t.Setenv("GATEKEEPER_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("GATEKEEPER_DIRECTORY_TOKEN", "dir-token")
	t.Setenv("GATEKEEPER_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 9090)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Directory.Token != "dir-token" {
		t.Errorf("Directory.Token = %q, want %q", cfg.Directory.Token, "dir-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestApplyEnvOverrides_InvalidPortIgnored(t *testing.T) {
	cfg := Default()
	t.Setenv("GATEKEEPER_API_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8080)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path != "./data/gatekeeper.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./data/gatekeeper.db")
	}
	if !cfg.Database.WALMode {
		t.Error("Database.WALMode should default to true")
	}
	if cfg.Engine.DefaultPageSize != 50 {
		t.Errorf("Engine.DefaultPageSize = %d, want 50", cfg.Engine.DefaultPageSize)
	}
	if cfg.Relay.TopicPrefix != "gatekeeper" {
		t.Errorf("Relay.TopicPrefix = %q, want %q", cfg.Relay.TopicPrefix, "gatekeeper")
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled should default to false")
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled should default to false")
	}
}
