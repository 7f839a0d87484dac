package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[import]
base-dir = "scripts"

[vm]
instruction-limit = 100000
max-frames = 64
trace = true

[log]
level = "debug"
`
	if err := os.WriteFile(filepath.Join(dir, "embr.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Import.BaseDir != "scripts" {
		t.Errorf("import base-dir = %q, want scripts", cfg.Import.BaseDir)
	}
	if cfg.VM.InstructionLimit != 100000 {
		t.Errorf("vm instruction-limit = %d, want 100000", cfg.VM.InstructionLimit)
	}
	if cfg.VM.MaxFrames != 64 {
		t.Errorf("vm max-frames = %d, want 64", cfg.VM.MaxFrames)
	}
	if !cfg.VM.Trace {
		t.Error("vm trace = false, want true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	if cfg.Import.BaseDir != want.Import.BaseDir {
		t.Errorf("import base-dir = %q, want %q", cfg.Import.BaseDir, want.Import.BaseDir)
	}
	if cfg.VM.MaxFrames != want.VM.MaxFrames {
		t.Errorf("vm max-frames = %d, want %d", cfg.VM.MaxFrames, want.VM.MaxFrames)
	}
	if cfg.Log.Level != want.Log.Level {
		t.Errorf("log level = %q, want %q", cfg.Log.Level, want.Log.Level)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestLoadPartialFileKeepsRemainingDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[log]
level = "warn"
`
	if err := os.WriteFile(filepath.Join(dir, "embr.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Log.Level)
	}
	if cfg.VM.MaxFrames != Default().VM.MaxFrames {
		t.Errorf("vm max-frames = %d, want default %d", cfg.VM.MaxFrames, Default().VM.MaxFrames)
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "embr.toml"), []byte("not = [valid"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for malformed embr.toml, got nil")
	}
}
