package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "motiveme.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("SweepInterval = %v, want 15m", cfg.SweepInterval)
	}
	if cfg.SessionTTL != 168*time.Hour {
		t.Errorf("SessionTTL = %v, want 168h", cfg.SessionTTL)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled = false, want true")
	}
	h, m, err := cfg.ReminderClock()
	if err != nil || h != 20 || m != 0 {
		t.Errorf("ReminderClock = %d:%d, %v", h, m, err)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("MOTIVEME_PORT", "9090")
	t.Setenv("MOTIVEME_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("MOTIVEME_SWEEP_INTERVAL", "5m")
	t.Setenv("MOTIVEME_TIMEZONE", "UTC")
	t.Setenv("MOTIVEME_METRICS_ENABLED", "false")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled = true, want false")
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"MOTIVEME_SWEEP_INTERVAL": "not-a-duration",
		"MOTIVEME_REMINDER_TIME":  "25:99",
		"MOTIVEME_TIMEZONE":       "Mars/Olympus",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Parse(); err == nil {
				t.Errorf("%s=%q: expected error", key, val)
			}
		})
	}
}

func TestParseRejectsShortSweep(t *testing.T) {
	t.Setenv("MOTIVEME_SWEEP_INTERVAL", "10s")
	_, err := Parse()
	if err == nil || !strings.Contains(err.Error(), "sweep interval") {
		t.Errorf("err = %v, want sweep interval error", err)
	}
}
