package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("SESSION_REDIS_URL", "")
	t.Setenv("AVATAR_MAX_BYTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "debug" {
		t.Errorf("GinMode = %q, want debug", cfg.GinMode)
	}
	if cfg.SessionRedisURL != "" {
		t.Errorf("SessionRedisURL = %q, want empty", cfg.SessionRedisURL)
	}
	if cfg.AvatarMaxBytes != 2*1024*1024 {
		t.Errorf("AvatarMaxBytes = %d, want 2MB", cfg.AvatarMaxBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("AVATAR_MAX_BYTES", "1048576")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.SessionRedisURL != "redis://localhost:6379/1" {
		t.Errorf("SessionRedisURL = %q", cfg.SessionRedisURL)
	}
	if cfg.AvatarMaxBytes != 1048576 {
		t.Errorf("AvatarMaxBytes = %d, want 1048576", cfg.AvatarMaxBytes)
	}
}

func TestLoadIgnoresMalformedInt(t *testing.T) {
	t.Setenv("AVATAR_MAX_BYTES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AvatarMaxBytes != 2*1024*1024 {
		t.Errorf("AvatarMaxBytes = %d, want default", cfg.AvatarMaxBytes)
	}
}

func TestValidateReleaseMode(t *testing.T) {
	cfg := &Config{GinMode: "release"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected release mode without storage settings to fail validation")
	}

	cfg.DatabaseURL = "postgres://localhost/useradmin"
	cfg.SessionRedisURL = "redis://localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}
