package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/planbridge"
	"github.com/hugr-lab/planbridge/plan/lazy"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PLANBRIDGE_THREADS", "1")
	t.Setenv("PLANBRIDGE_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func writePlan(t *testing.T, f *lazy.Frame) string {
	t.Helper()
	data, err := f.Bytes()
	if err != nil {
		t.Fatalf("encode plan: %v", err)
	}
	return writeFile(t, "plan.bin", data)
}

func TestRunJSONOutput(t *testing.T) {
	planPath := writePlan(t, lazy.MemoryScan().Filter(lazy.Col("a").Gt(lazy.Lit(1))))

	tests := []struct {
		name   string
		file   string
		data   string
		format string
	}{
		{"rows", "seed.json", `[{"a":1},{"a":2},{"a":3}]`, formatAuto},
		{"columns", "seed.json", `[{"name":"a","values":[1,2,3]}]`, formatColumns},
		{"explicit rows", "seed.txt", `[{"a":1},{"a":2},{"a":3}]`, formatRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := writeFile(t, tt.file, []byte(tt.data))
			out, err := execute(t, "run", planPath, "--input", seed, "--input-format", tt.format, "--output", "json")
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if got := strings.TrimSpace(out); got != `[{"a":2},{"a":3}]` {
				t.Errorf("output = %s", got)
			}
		})
	}
}

func TestRunTableOutput(t *testing.T) {
	csv := writeFile(t, "people.csv", []byte("name,age\nann,31\nbob,25\n"))
	planPath := writePlan(t, lazy.ScanCSV(csv).Select(lazy.Col("name")))

	out, err := execute(t, "run", planPath)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.HasPrefix(out, "shape: (2, 1)\n") {
		t.Errorf("output should start with the shape line, got:\n%s", out)
	}
	if !strings.Contains(out, "ann") || !strings.Contains(out, "bob") {
		t.Errorf("output should list both names, got:\n%s", out)
	}
}

func TestRunErrors(t *testing.T) {
	planPath := writePlan(t, lazy.MemoryScan())

	if _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("missing plan file should fail")
	}
	_, err := execute(t, "run", planPath)
	if err == nil {
		t.Fatal("memory scan without input should fail")
	}
	if got := describe(err); !strings.HasPrefix(got, "[ERR_UNSUPPORTED] ") {
		t.Errorf("memory scan without input: got %q, want ERR_UNSUPPORTED", got)
	}
	seed := writeFile(t, "seed.json", []byte(`[{"a":1}]`))
	if _, err := execute(t, "run", planPath, "-i", seed, "-o", "yaml"); err == nil {
		t.Error("unknown output format should fail")
	}
	if _, err := execute(t, "run", planPath, "-i", seed, "--input-format", "csv"); err == nil {
		t.Error("unknown input format should fail")
	}
}

func TestCapabilitiesCommand(t *testing.T) {
	out, err := execute(t, "capabilities")
	if err != nil {
		t.Fatalf("capabilities failed: %v", err)
	}
	var manifest planbridge.Manifest
	if err := json.Unmarshal([]byte(out), &manifest); err != nil {
		t.Fatalf("output is not a manifest: %v", err)
	}
	if manifest.ABIVersion != planbridge.CurrentABIVersion {
		t.Errorf("abi_version = %d", manifest.ABIVersion)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "abi 1\nv") {
		t.Errorf("output = %q", out)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"seed.arrow", formatIPC},
		{"seed.IPC", formatIPC},
		{"seed.json", formatRows},
		{"seed", formatRows},
	}
	for _, tt := range tests {
		if got := detectFormat(tt.path); got != tt.want {
			t.Errorf("detectFormat(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}
