package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loraverify/pkg/types"
)

const scenarioYAML = `
lora:
  r: 4
backbone:
  [[-1, 1, Conv, [64, 3, 2]],
   [-1, 1, LoRAConv, [64, 1, 1]],
   [-1, 1, Conv, [256, 3, 2]],
  ]
head:
  [[[-1], 1, Detect, [nc, anchors]]]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// execute runs a fresh command tree with an empty environment.
func execute(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestVerifyDefaultCommandPasses(t *testing.T) {
	p := writeFile(t, t.TempDir(), "m.yaml", scenarioYAML)
	out, _, err := execute(t, nil, "--cfg", p)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Result: PASS") || !strings.Contains(out, "model.1.conv") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("escape codes written to a non-terminal")
	}
}

func TestVerifyFailureReturnsErrFailed(t *testing.T) {
	p := writeFile(t, t.TempDir(), "m.yaml", scenarioYAML)
	out, _, err := execute(t, nil, "verify", "--cfg", p, "--threshold", "0.000001")
	if !errors.Is(err, ErrFailed) || !strings.Contains(err.Error(), "TrainableRatioOutOfRange") {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if !strings.Contains(out, "Result: FAIL") {
		t.Fatalf("report not written:\n%s", out)
	}
}

func TestVerifyMissingConfig(t *testing.T) {
	_, _, err := execute(t, nil, "verify", "--cfg", filepath.Join(t.TempDir(), "none.yaml"))
	if !errors.Is(err, ErrFailed) || !strings.Contains(err.Error(), "ConfigNotFound") {
		t.Fatalf("expected ConfigNotFound, got %v", err)
	}
}

func TestVerifyJSONAndMetrics(t *testing.T) {
	d := t.TempDir()
	p := writeFile(t, d, "m.yaml", scenarioYAML)
	prom := filepath.Join(d, "out.prom")
	out, _, err := execute(t, nil, "verify", "--cfg", p, "--output", "json", "--bias", "all", "--metrics-file", prom)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var rep types.ReportResponse
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !rep.Passed || rep.BiasMode != "all" || rep.Threshold != 0.10 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	b, err := os.ReadFile(prom)
	if err != nil || !bytes.Contains(b, []byte("loraverify_runs_total")) {
		t.Fatalf("metrics file: %v\n%s", err, b)
	}
}

func TestSettingsPrecedence(t *testing.T) {
	d := t.TempDir()
	p := writeFile(t, d, "m.yaml", scenarioYAML)
	settings := writeFile(t, d, "s.toml", "output=\"json\"\nthreshold=0.000001\n")

	// env supplies the path, the settings file the format and threshold.
	out, _, err := execute(t, map[string]string{"LORAVERIFY_CFG": p}, "--config", settings)
	if !errors.Is(err, ErrFailed) || !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected json failure, got %v\n%s", err, out)
	}
	// flags win over the settings file.
	out, _, err = execute(t, map[string]string{"LORAVERIFY_CFG": p}, "--config", settings, "--threshold", "0.5", "--output", "text")
	if err != nil || !strings.Contains(out, "Result: PASS") {
		t.Fatalf("expected text pass, got %v\n%s", err, out)
	}
}

func TestInvalidSettings(t *testing.T) {
	cases := [][]string{
		{"--threshold", "0"},
		{"--threshold", "1.5"},
		{"--output", "xml"},
		{"--log-level", "loud"},
		{"--variant", "prod"},
		{"--bias", "some"},
		{"--config", "missing.yaml"},
	}
	for _, args := range cases {
		if _, _, err := execute(t, nil, args...); err == nil || errors.Is(err, ErrFailed) {
			t.Fatalf("%v: expected usage error, got %v", args, err)
		}
	}
}

func TestLogsGoToStderr(t *testing.T) {
	p := writeFile(t, t.TempDir(), "m.yaml", scenarioYAML)
	out, errOut, err := execute(t, nil, "--cfg", p, "--log-level", "debug")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, "loading description") || strings.Contains(out, "loading description") {
		t.Fatalf("logs misrouted:\nstdout:\n%s\nstderr:\n%s", out, errOut)
	}
}

func TestInspect(t *testing.T) {
	p := writeFile(t, t.TempDir(), "m.yaml", scenarioYAML)
	out, _, err := execute(t, nil, "inspect", "--cfg", p, "--adapters-only", "--output", "json")
	if err != nil {
		t.Fatal(err)
	}
	var rows []moduleRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "model.1.conv" || rows[0].Type != "lora.Conv2d" || rows[0].AdapterParams != 512 {
		t.Fatalf("rows: %+v", rows)
	}

	out, _, err = execute(t, nil, "inspect", "--cfg", p, "--depth", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "(root)") || !strings.Contains(out, "model.1") || strings.Contains(out, "model.1.conv") {
		t.Fatalf("unexpected tree:\n%s", out)
	}
}

func TestList(t *testing.T) {
	d := t.TempDir()
	writeFile(t, d, "a.yaml", scenarioYAML)
	writeFile(t, d, "b.json", "{")
	out, _, err := execute(t, nil, "list", d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "a ") || !strings.Contains(out, "error:") {
		t.Fatalf("unexpected list:\n%s", out)
	}
	if _, _, err := execute(t, nil, "list", filepath.Join(d, "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestCompletion(t *testing.T) {
	out, _, err := execute(t, nil, "completion", "bash")
	if err != nil || !strings.Contains(out, "loraverify") {
		t.Fatalf("completion: %v", err)
	}
}
