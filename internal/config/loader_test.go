package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nopLogger(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.RoomCodeLength != 3 || cfg.RoomCodeAlphabet != DefaultRoomCodeAlphabet {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ShutdownTimeout != def.ShutdownTimeout {
		t.Fatalf("duration did not survive round trip: %v", cfg.ShutdownTimeout)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`addr: ":9000"
log_level: debug
room_code_length: 5
shutdown_timeout: 2s
database_path: /tmp/history.db
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DROPRELAY_ADDR", ":9100")
	t.Setenv("DROPRELAY_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, _, err := Load(nopLogger(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9100" {
		t.Errorf("env should override file, got addr %q", cfg.Addr)
	}
	if cfg.LogLevel != "debug" || cfg.RoomCodeLength != 5 || cfg.DatabasePath != "/tmp/history.db" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Errorf("unexpected shutdown timeout %v", cfg.ShutdownTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.SendBuffer != Default().SendBuffer {
		t.Errorf("unset values should keep defaults, got send_buffer %d", cfg.SendBuffer)
	}
}

func TestValidateRepairsValues(t *testing.T) {
	cfg := Config{RateLimitPerMinute: -3, ShutdownTimeout: -time.Second}.Validate()
	def := Default()

	if cfg.ShutdownTimeout != def.ShutdownTimeout || cfg.ReadHeaderTimeout != def.ReadHeaderTimeout {
		t.Fatalf("timeouts not repaired: shutdown %v, read header %v", cfg.ShutdownTimeout, cfg.ReadHeaderTimeout)
	}

	if cfg.Addr != def.Addr || cfg.MaxMessageBytes != def.MaxMessageBytes || cfg.SendBuffer != def.SendBuffer {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Fatalf("negative rate limit should disable limiting, got %d", cfg.RateLimitPerMinute)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestUpdateFromOverridesNonZero(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", DatabasePath: "x.db"})

	if cfg.Addr != ":1234" || cfg.DatabasePath != "x.db" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("zero override should keep value, got %q", cfg.LogLevel)
	}
}

func TestLoadRepairsZeroTimeouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("shutdown_timeout: 0\nread_header_timeout: 0s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nopLogger(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownTimeout != 5*time.Second || cfg.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("zero timeouts kept: shutdown %v, read header %v", cfg.ShutdownTimeout, cfg.ReadHeaderTimeout)
	}
}
