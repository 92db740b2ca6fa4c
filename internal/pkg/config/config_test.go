package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/pinmap/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("pinmap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.ServiceName != "pinmap-test" {
		t.Errorf("service name: got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("remote timeout: got %v", cfg.Remote.Timeout)
	}
	if cfg.Geolocation.Provider != config.ProviderStatic {
		t.Errorf("provider: got %q", cfg.Geolocation.Provider)
	}
	if !cfg.Geolocation.Permission {
		t.Error("expected permission granted by default")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PINMAP_REMOTE_BASE_URL", "http://marks.internal:9000")
	t.Setenv("PINMAP_GEOLOCATION_EMULATOR", "true")

	cfg, err := config.Load("pinmap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Remote.BaseURL != "http://marks.internal:9000" {
		t.Errorf("base url: got %q", cfg.Remote.BaseURL)
	}
	if !cfg.Geolocation.Emulator {
		t.Error("expected emulator flag from env")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Geolocation: config.GeolocationConfig{Provider: "gps"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "remote.base_url", "screen dimensions", "geolocation.provider"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got:\n%s", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "pinmap", SSLMode: "disable"}
	want := "postgres://u:p@db:5432/pinmap?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
