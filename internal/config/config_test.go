package config

import (
	"os"
	"reflect"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{"APP_ENV", "PORT", "DB_PATH", "LOG_LEVEL", "MAX_MESSAGE_SIZE", "ALLOWED_ORIGINS"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}

		cfg := Load()
		if cfg.Env != EnvDevelopment {
			t.Errorf("expected env %q, got %q", EnvDevelopment, cfg.Env)
		}
		if cfg.Port != "8080" {
			t.Errorf("expected port 8080, got %q", cfg.Port)
		}
		if cfg.MaxMessageSize != defaultMaxMessageSize {
			t.Errorf("expected max message size %d, got %d", defaultMaxMessageSize, cfg.MaxMessageSize)
		}
		if cfg.DBPath != defaultDBPath || !cfg.ActivityLogEnabled() {
			t.Errorf("expected activity log at %q by default, got %q", defaultDBPath, cfg.DBPath)
		}
		if !cfg.IsDevelopment() || cfg.IsProduction() {
			t.Error("expected development mode")
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("PORT", "9000")
		t.Setenv("DB_PATH", "/tmp/relay.db")
		t.Setenv("MAX_MESSAGE_SIZE", "4096")
		t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

		cfg := Load()
		if !cfg.IsProduction() {
			t.Error("expected production mode")
		}
		if cfg.Port != "9000" {
			t.Errorf("expected port 9000, got %q", cfg.Port)
		}
		if !cfg.ActivityLogEnabled() {
			t.Error("activity log should be enabled")
		}
		if cfg.MaxMessageSize != 4096 {
			t.Errorf("expected max message size 4096, got %d", cfg.MaxMessageSize)
		}
		want := []string{"http://a.test", "http://b.test"}
		if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
			t.Errorf("expected origins %v, got %v", want, cfg.AllowedOrigins)
		}
	})

	t.Run("empty DB_PATH disables the activity log", func(t *testing.T) {
		t.Setenv("DB_PATH", "")
		if Load().ActivityLogEnabled() {
			t.Error("activity log should be disabled by an empty DB_PATH")
		}
	})

	t.Run("invalid size falls back", func(t *testing.T) {
		t.Setenv("MAX_MESSAGE_SIZE", "lots")
		if got := Load().MaxMessageSize; got != defaultMaxMessageSize {
			t.Errorf("expected default size, got %d", got)
		}
	})
}

func TestLoadClient(t *testing.T) {
	t.Setenv("RELAY_URL", "")
	t.Setenv("USER_ID_FILE", "/tmp/uid")

	cfg := LoadClient()
	if cfg.RelayURL != DefaultRelayURL {
		t.Errorf("expected relay url %q, got %q", DefaultRelayURL, cfg.RelayURL)
	}
	if cfg.UserIDFile != "/tmp/uid" {
		t.Errorf("expected user id file /tmp/uid, got %q", cfg.UserIDFile)
	}

	t.Setenv("RELAY_URL", "ws://relay.test:9000")
	if got := LoadClient().RelayURL; got != "ws://relay.test:9000" {
		t.Errorf("expected overridden relay url, got %q", got)
	}
}

func TestOriginAllowed(t *testing.T) {
	open := Config{}
	if !open.OriginAllowed("http://anything.test") {
		t.Error("empty allow-list should accept any origin")
	}

	restricted := Config{AllowedOrigins: []string{"http://app.test"}}
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://app.test", true},
		{"HTTP://APP.TEST", true},
		{"http://evil.test", false},
		{"", true},
	}
	for _, tt := range tests {
		if got := restricted.OriginAllowed(tt.origin); got != tt.want {
			t.Errorf("OriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
