package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	content := `
http:
  port: 9090
  timeout: 5s
ml:
  model_path: artifacts/model.json
  watch: false
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 9090 || cfg.Http.Timeout != 5*time.Second {
		t.Fatalf("unexpected http config: %+v", cfg.Http)
	}
	if cfg.ML.ModelPath != filepath.Join(dir, "artifacts", "model.json") {
		t.Fatalf("model path not resolved: %s", cfg.ML.ModelPath)
	}
	if cfg.ML.SchemaPath != filepath.Join(dir, "models", "columns.json") {
		t.Fatalf("default schema path not resolved: %s", cfg.ML.SchemaPath)
	}
	if cfg.Database.Path != filepath.Join(dir, "data", "predictions.db") {
		t.Fatalf("database path not resolved: %s", cfg.Database.Path)
	}
	if cfg.WatchEnabled() {
		t.Fatal("expected watch to be disabled")
	}
	if cfg.ML.CacheSize != 1024 || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 8080 || !cfg.WatchEnabled() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadKeepsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere", "columns.yaml")
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte("ml:\n  schema_path: "+abs+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ML.SchemaPath != abs {
		t.Fatalf("expected absolute path to be kept, got %s", cfg.ML.SchemaPath)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte("http: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected malformed yaml to fail")
	}
}

func TestLocateExplicit(t *testing.T) {
	got, err := Locate("custom.yaml")
	if err != nil || got != "custom.yaml" {
		t.Fatalf("expected explicit path, got %q (%v)", got, err)
	}
}
