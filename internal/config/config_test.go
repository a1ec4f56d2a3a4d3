package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.WebhookTimeout != 10 {
		t.Errorf("WebhookTimeout = %d, want 10", cfg.WebhookTimeout)
	}
	if cfg.SweepSchedule != "0 1 * * *" {
		t.Errorf("SweepSchedule = %q", cfg.SweepSchedule)
	}
	if len(cfg.AdminRoles) != 2 {
		t.Errorf("AdminRoles = %v", cfg.AdminRoles)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_SCHEDULE", "30 2 * * *")
	t.Setenv("ADMIN_ROLES", " ADMIN , AUDITOR ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.SweepSchedule != "30 2 * * *" {
		t.Errorf("SweepSchedule = %q", cfg.SweepSchedule)
	}
	if len(cfg.AdminRoles) != 2 || cfg.AdminRoles[1] != "AUDITOR" {
		t.Errorf("AdminRoles = %v", cfg.AdminRoles)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}
