package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_TYPE", "")
	t.Setenv("INVITE_TTL", "")
	t.Setenv("GENERATOR_TIMEOUT", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.InviteTTL != 7*24*time.Hour {
		t.Errorf("InviteTTL = %v, want 168h", cfg.InviteTTL)
	}
	if cfg.Generator.Timeout != 30*time.Second {
		t.Errorf("Generator.Timeout = %v, want 30s", cfg.Generator.Timeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("INVITE_TTL", "48h")
	t.Setenv("LOGIN_RATE_LIMIT", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("GENERATOR_TIMEOUT", "not-a-duration")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.InviteTTL != 48*time.Hour {
		t.Errorf("InviteTTL = %v, want 48h", cfg.InviteTTL)
	}
	if cfg.LoginRateLimit != 3 {
		t.Errorf("LoginRateLimit = %d, want 3", cfg.LoginRateLimit)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.Generator.Timeout != 30*time.Second {
		t.Errorf("invalid duration should fall back, got %v", cfg.Generator.Timeout)
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC fallback")
	}
	if _, err := time.LoadLocation("Europe/Moscow"); err != nil {
		t.Skip("tzdata not available")
	}
	cfg.Timezone = "Europe/Moscow"
	if cfg.Location().String() != "Europe/Moscow" {
		t.Errorf("Location() = %v", cfg.Location())
	}
}
