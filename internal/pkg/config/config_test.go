package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("snapmap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Map.RadiusKm != 2.5 || cfg.Map.SpanMeters != 2000 || cfg.Map.MinRequeryMeters != 0 {
		t.Errorf("unexpected map defaults %+v", cfg.Map)
	}
	if cfg.Temporal.TaskQueue != "post-expiry" {
		t.Errorf("expected task queue post-expiry, got %q", cfg.Temporal.TaskQueue)
	}
	if cfg.Telemetry.ServiceName != "snapmap-test" {
		t.Errorf("expected service name snapmap-test, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SNAPMAP_SERVER_PORT", "9090")
	t.Setenv("SNAPMAP_MAP_RADIUS_KM", "1.5")

	cfg, err := Load("snapmap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Map.RadiusKm != 1.5 {
		t.Errorf("expected radius 1.5, got %g", cfg.Map.RadiusKm)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{Log: LogConfig{Format: "xml"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "nats.url", "map.radius_km", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got:\n%s", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, DBName: "snapmap", SSLMode: "disable"}
	if got, want := d.DSN(), "postgres://u:p@db:5432/snapmap?sslmode=disable"; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
