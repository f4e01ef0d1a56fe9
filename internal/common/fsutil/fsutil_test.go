package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	return home
}

func TestExpandHome(t *testing.T) {
	home := setHome(t)
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil || p != home {
		t.Fatalf("expected %q, got %q (%v)", home, p, err)
	}
	exp, err := ExpandHome("~/cfg")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS != "windows" && exp != filepath.Join(home, "cfg") {
		t.Fatalf("unexpected expanded path: %q", exp)
	}
}

func TestResolve(t *testing.T) {
	home := setHome(t)
	got, err := Resolve("~/models/a.yaml")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "a.yaml" || filepath.Dir(filepath.Dir(got)) != home {
		t.Fatalf("unexpected: %q", got)
	}
	rel, err := Resolve("x.yaml")
	if err != nil || !filepath.IsAbs(rel) {
		t.Fatalf("relative: %q %v", rel, err)
	}
}

func TestPathExists(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "f.yaml")
	if PathExists(p) {
		t.Fatalf("missing file reported as existing")
	}
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !PathExists(p) || !PathExists(d) {
		t.Fatalf("existing path not found")
	}
}

func TestHasExt(t *testing.T) {
	if !HasExt("a.YAML", ".yaml", ".yml") || !HasExt("dir/b.toml", ".toml") {
		t.Fatalf("expected match")
	}
	if HasExt("c.txt", ".yaml") || HasExt("yaml", ".yaml") {
		t.Fatalf("unexpected match")
	}
}
