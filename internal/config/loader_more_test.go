package config

import (
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "cfg: a.yaml\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "cfg": "a.yaml", "bias": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "cfg=a.yaml\nbias\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		EnvCfg:      " x.yaml ",
		EnvVariant:  "test",
		EnvLogLevel: "debug",
		EnvNoColor:  "",
	}
	cfg := FromEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	if cfg.Cfg != "x.yaml" || cfg.Variant != "test" || cfg.LogLevel != "debug" || !cfg.NoColor {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg := FromEnv(func(string) (string, bool) { return "", false }); cfg != (Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestOverlay(t *testing.T) {
	base := Config{Cfg: "a.yaml", Variant: "integration", Threshold: 0.1, Output: "text", LogLevel: "info"}
	got := base.Overlay(Config{Cfg: "b.yaml", Threshold: 0.05, NoColor: true})
	want := Config{Cfg: "b.yaml", Variant: "integration", Threshold: 0.05, Output: "text", NoColor: true, LogLevel: "info"}
	if got != want {
		t.Fatalf("overlay: got %+v want %+v", got, want)
	}
	if base.Overlay(Config{}) != base {
		t.Fatalf("empty overlay changed config")
	}
}
