package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadFPS(t *testing.T) {
	cfg := Default()
	cfg.Recording.FPS = 45
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for fps 45")
	}
	if !IsConfigError(err) {
		t.Fatalf("error type = %T, want *ConfigError", err)
	}
}

func TestValidateRejectsUnknownResolution(t *testing.T) {
	cfg := Default()
	cfg.Recording.Resolution = "480p"
	if err := cfg.Validate(); !IsConfigError(err) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestValidateRejectsUnknownQuality(t *testing.T) {
	cfg := Default()
	cfg.Recording.Quality = "ultra"
	if err := cfg.Validate(); !IsConfigError(err) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestValidateClampsCountdown(t *testing.T) {
	cfg := Default()
	cfg.Recording.CountdownSeconds = 99
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Recording.CountdownSeconds != 10 {
		t.Fatalf("countdown = %d, want 10", cfg.Recording.CountdownSeconds)
	}

	cfg.Recording.CountdownSeconds = -1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Recording.CountdownSeconds != 0 {
		t.Fatalf("countdown = %d, want 0", cfg.Recording.CountdownSeconds)
	}
}

func TestValidateClampsDisplayIndex(t *testing.T) {
	cfg := Default()
	cfg.Recording.DisplayIndex = -2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Recording.DisplayIndex != 0 {
		t.Fatalf("display_index = %d, want 0", cfg.Recording.DisplayIndex)
	}
}

func TestPresetLookups(t *testing.T) {
	r, ok := Resolution("1080p")
	if !ok || r.Width != 1920 || r.Height != 1080 {
		t.Fatalf("1080p = %+v ok=%v", r, ok)
	}
	q, ok := Quality("medium")
	if !ok || q.CRF != 23 {
		t.Fatalf("medium = %+v ok=%v", q, ok)
	}
	if _, ok := Resolution("240p"); ok {
		t.Fatal("unexpected preset 240p")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.yaml")
	cfg := Default()
	cfg.Recording.FPS = 60
	cfg.Audio.Mic = false
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Recording.FPS != 60 {
		t.Fatalf("fps = %d, want 60", loaded.Recording.FPS)
	}
	if loaded.Audio.Mic {
		t.Fatal("audio.mic = true, want false")
	}
}
