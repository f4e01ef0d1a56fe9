package registry

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const desc = `
lora: {r: 8}
backbone: [[-1, 1, LoRAConv, [16, 3, 2]]]
head: [[[-1], 1, Detect, [nc, anchors]]]
`

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
}

func TestScannerFiltersDescriptions(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.yaml", desc)
	write(t, dir, "b.YML", desc)
	write(t, dir, "broken.json", "{")
	write(t, dir, "notes.txt", "x")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(dir, "sub"), "c.yaml", desc)

	entries, err := NewScanner().Scan(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", entries)
	}
	if entries[0].Name != "a" || !entries[0].Adapters || entries[0].Rank != 8 || entries[0].Error != "" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[1].Name != "b" || entries[2].Name != "broken" || entries[2].Error == "" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	all, err := (&Scanner{Recursive: true}).Scan(dir)
	if err != nil || len(all) != 4 {
		t.Fatalf("recursive scan: %d entries, err=%v", len(all), err)
	}
}

func TestScannerExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	if err := os.Mkdir(filepath.Join(home, "cfg"), 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(home, "cfg"), "x.yaml", desc)
	entries, err := NewScanner().Scan("~/cfg")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "x" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestLoadDirErrors(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	write(t, dir, "f.yaml", desc)
	if _, err := LoadDir(filepath.Join(dir, "f.yaml")); err == nil {
		t.Fatalf("expected error for file path")
	}
}

func TestLoadDirShipped(t *testing.T) {
	entries, err := LoadDir(filepath.Join("..", "..", "models", "cfg", "esod"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both shipped descriptions, got %+v", entries)
	}
	for _, e := range entries {
		if e.Error != "" || !e.Adapters || e.Rank != 4 {
			t.Fatalf("unexpected entry: %+v", e)
		}
	}
}
