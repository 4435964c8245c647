package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir string, cfg configFile) {
	t.Helper()
	confDir := filepath.Join(dir, ".kustoscope")
	if err := os.MkdirAll(confDir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestInitializeWithoutConfigIsSilent(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer Close()

	if IsDebugMode() {
		t.Error("debug mode should be off without config")
	}
	// Logging to a disabled category must not panic or create files.
	Get(CategorySession).Info("ignored")
	if _, err := os.Stat(filepath.Join(dir, ".kustoscope", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory should not exist in production mode")
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, configFile{Logging: loggingConfig{
		Debug:      true,
		Level:      "debug",
		Categories: map[string]bool{"api": false},
	}})

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer Close()

	if IsCategoryEnabled(CategoryAPI) {
		t.Error("api category should be disabled")
	}
	if !IsCategoryEnabled(CategorySession) {
		t.Error("unlisted categories should default to enabled")
	}
}

func TestLogFileWritten(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, configFile{Logging: loggingConfig{Debug: true, Level: "info"}})

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer Close()

	Get(CategoryExecutor).Info("query ran in %dms", 42)

	entries, err := os.ReadDir(filepath.Join(dir, ".kustoscope", "logs"))
	if err != nil {
		t.Fatalf("read logs dir: %v", err)
	}
	found := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".log" {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one log file")
	}
}
