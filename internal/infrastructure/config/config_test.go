package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
daemon:
  id: "test-daemon"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "127.0.0.1"
  port: 9120
acpi:
  sysfs_root: "/tmp/acpi"
watch:
  process_interval: 500ms
  feature_interval: 250ms
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

	if cfg.Daemon.ID != "test-daemon" {
		t.Errorf("Daemon.ID = %q, want %q", cfg.Daemon.ID, "test-daemon")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.ACPI.SysfsRoot != "/tmp/acpi" {
		t.Errorf("ACPI.SysfsRoot = %q, want %q", cfg.ACPI.SysfsRoot, "/tmp/acpi")
	}
	if cfg.Watch.ProcessInterval != 500*time.Millisecond {
		t.Errorf("Watch.ProcessInterval = %v, want 500ms", cfg.Watch.ProcessInterval)
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
daemon:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 9120
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty daemon.id, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
daemon:
  id: "test-daemon"
database:
  path: "/tmp/original.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("SLATE_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("SLATE_MQTT_HOST", "broker.local")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Daemon:   DaemonConfig{ID: "slate-001"},
			Database: DatabaseConfig{Path: "/data/slate.db"},
			MQTT:     MQTTConfig{QoS: 1},
			API:      APIConfig{Port: 9120},
			ACPI:     ACPIConfig{SysfsRoot: "/sys/devices/platform/slate-acpi"},
			Watch: WatchConfig{
				ProcessInterval: time.Second,
				FeatureInterval: time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing daemon id", mutate: func(c *Config) { c.Daemon.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid api port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "missing sysfs root", mutate: func(c *Config) { c.ACPI.SysfsRoot = "" }, wantErr: true},
		{name: "zero process interval", mutate: func(c *Config) { c.Watch.ProcessInterval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutHelpers(t *testing.T) {
	cfg := &Config{API: APIConfig{Timeouts: APITimeoutConfig{Read: 30, Write: 20, Idle: 60}}}

	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 20*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 20s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
}
