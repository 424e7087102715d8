package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/reorder-policy/internal/solver"
	"github.com/iwvelando/reorder-policy/pkg/testutil"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testutil.DefaultConfigYAML), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--log-level", "error"}, args...), &stdout, &stderr)
	return code, stdout.String()
}

func TestRunPretty(t *testing.T) {
	code, out := runCLI(t, "-c", writeConfig(t))
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.HasPrefix(out, "Parameters: ") {
		t.Fatalf("expected parameters line first, got %q", out)
	}
	if !strings.Contains(out, "Converged after") {
		t.Fatalf("expected convergence line, got %q", out)
	}
}

func TestRunCSVWithoutConfigFile(t *testing.T) {
	code, out := runCLI(t, "--output-format", "csv")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}
	if len(rows) < 3 {
		t.Fatalf("expected header and trace rows, got %d rows", len(rows))
	}
	if strings.Join(rows[0], ",") != "iteration,phase,Q,R,z,totalCost" {
		t.Fatalf("unexpected header %v", rows[0])
	}
}

func TestRunJSONFlagsOverride(t *testing.T) {
	code, out := runCLI(t, "-c", writeConfig(t), "--output-format=json", "-p", "1000", "--setup", "150")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	var result solver.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to decode JSON output: %v", err)
	}
	if !result.Converged {
		t.Fatal("expected converged result")
	}
	if result.Params.PenaltyCost != 1000 || result.Params.SetupCost != 150 {
		t.Fatalf("expected flag overrides, got %+v", result.Params)
	}
	if result.Params.UnitCost != 20 {
		t.Fatalf("expected unit cost from file, got %v", result.Params.UnitCost)
	}
}

func TestRunFailures(t *testing.T) {
	config := writeConfig(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"domain error", []string{"-c", config, "-p", "0.1"}, 1},
		{"iteration cap", []string{"-c", config, "--max-iterations", "3"}, 1},
		{"invalid parameter", []string{"-c", config, "-u", "-1"}, 1},
		{"bad tolerance", []string{"-c", config, "--tolerance", "0.5"}, 1},
		{"bad output format", []string{"-c", config, "--output-format", "xml"}, 1},
		{"explicit missing config", []string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}, 1},
		{"unknown flag", []string{"--nope"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := runCLI(t, tt.args...)
			if code != tt.code {
				t.Fatalf("expected exit %d, got %d", tt.code, code)
			}
			if out != "" {
				t.Fatalf("expected no result output, got %q", out)
			}
		})
	}
}

func TestRunZTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ztable.txt")

	if code, _ := runCLI(t, "--ztable-out", path); code != 0 {
		t.Fatalf("expected exit 0 writing table, got %d", code)
	}

	code, out := runCLI(t, "--ztable", path, "--lookup", "0.95")
	if code != 0 {
		t.Fatalf("expected exit 0 looking up table, got %d", code)
	}
	if !strings.Contains(out, "Z=1.64") {
		t.Fatalf("expected nearest record at z=1.64, got %q", out)
	}
	if !strings.Contains(out, "z=1.644854") {
		t.Fatalf("expected exact quantile, got %q", out)
	}

	if code, _ := runCLI(t, "--ztable", path, "--lookup", "1"); code != 1 {
		t.Fatalf("expected exit 1 for out-of-range probability, got %d", code)
	}
}
