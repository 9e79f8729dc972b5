package migrateconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoConfigFilePresent(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.StateBackend(), "file"; got != want {
		t.Errorf("StateBackend() = %q, want %q", got, want)
	}
	if got, want := cfg.StatePath(), ".migrate/state.yaml"; got != want {
		t.Errorf("StatePath() = %q, want %q", got, want)
	}
	if cfg.DefaultForceLock() {
		t.Error("DefaultForceLock() = true, want false")
	}
	if cfg.ConfigFileUsed() != "" {
		t.Errorf("ConfigFileUsed() = %q, want empty", cfg.ConfigFileUsed())
	}
}

func TestLoadReadsProjectConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "unused-home"))
	t.Chdir(dir)

	if err := os.MkdirAll(filepath.Join(dir, ".migrate"), 0o755); err != nil {
		t.Fatal(err)
	}
	configBody := "state-path = \"custom/state.yaml\"\nforce-lock = true\n"
	if err := os.WriteFile(filepath.Join(dir, ".migrate", "config.toml"), []byte(configBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.StatePath(), "custom/state.yaml"; got != want {
		t.Errorf("StatePath() = %q, want %q", got, want)
	}
	if !cfg.DefaultForceLock() {
		t.Error("DefaultForceLock() = false, want true")
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	t.Setenv("MIGRATE_STATE_PATH", "/var/lib/migrate/state.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.StatePath(), "/var/lib/migrate/state.yaml"; got != want {
		t.Errorf("StatePath() = %q, want %q", got, want)
	}
}
