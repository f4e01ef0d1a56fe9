package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "cfg: m.yaml\nvariant: test\nthreshold: 0.2\nbias: all\noutput: json\nno_color: true\nmetrics_file: /tmp/x.prom\nlog_level: debug\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cfg != "m.yaml" || cfg.Variant != "test" || cfg.Threshold != 0.2 || cfg.Bias != "all" ||
		cfg.Output != "json" || !cfg.NoColor || cfg.MetricsFile != "/tmp/x.prom" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"cfg":"a.yaml","threshold":0.05,"bias":"lora_only","output":"text"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cfg != "a.yaml" || cfg.Threshold != 0.05 || cfg.Bias != "lora_only" || cfg.Output != "text" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "cfg=\"b.yaml\"\nvariant=\"integration\"\nlog_level=\"warn\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cfg != "b.yaml" || cfg.Variant != "integration" || cfg.LogLevel != "warn" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p = writeTempFile(t, d, "out.yaml", "output: xml\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected output validation error")
	}
	p = writeTempFile(t, d, "th.yaml", "threshold: 2\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected threshold validation error")
	}
}
