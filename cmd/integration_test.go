package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/imgdiff/internal/history"
	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

// resetFlags clears sticky flag state left by a previous invocation.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace([]string{})
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and return stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// isolate points HOME at a temp dir and drops any cached config.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg = nil
	cfgFile = ""
	t.Cleanup(func() { cfg = nil })
	return home
}

func writeInputs(t *testing.T, dir string) (string, string) {
	t.Helper()
	a := filepath.Join(dir, "run_a.csv")
	b := filepath.Join(dir, "run_b.csv")
	dataA := "Image_name,sensorCCT,Lux\n1_a.jpg,5000,100\n2_a.jpg,5000,200\n3_a.jpg,5000,300\n4_a.jpg,5000,400\n"
	dataB := "Image_name,sensorCCT,Lux\n1_b.jpg,5600,110\n2_b.jpg,5200,200\n3_b.jpg,5050,303\n4_b.jpg,5000,400\n"
	if err := os.WriteFile(a, []byte(dataA), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte(dataB), 0o644); err != nil {
		t.Fatalf("write b: %v", err)
	}
	return a, b
}

func TestCLI_CompareExportAndHistory(t *testing.T) {
	home := isolate(t)
	a, b := writeInputs(t, home)
	export := filepath.Join(home, "merged.csv")

	out := runCmd(t, "compare", a, b, "--fields", "sensorCCT,Lux", "--export", export)
	for _, want := range []string{"Matching", "Field analysis", "Classification by sensorCCT", "merged pairs"} {
		if !strings.Contains(out, want) {
			t.Fatalf("compare output missing %q:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(export)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 5 {
		t.Fatalf("export lines = %d", len(lines))
	}

	var runs []history.Run
	if err := json.Unmarshal([]byte(runCmd(t, "history", "--json")), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 1 || runs[0].Matched != 4 || runs[0].Buckets["large"] != 1 {
		t.Fatalf("history = %+v", runs)
	}

	runCmd(t, "compare", a, b, "--no-history", "--json")
	if err := json.Unmarshal([]byte(runCmd(t, "history", "--json")), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("--no-history still recorded: %d runs", len(runs))
	}
}

func TestCLI_ThresholdsSetShowReset(t *testing.T) {
	home := isolate(t)
	runCmd(t, "thresholds", "set", "cct.large_min", "600")

	var cur thresholds.Config
	if err := json.Unmarshal([]byte(runCmd(t, "thresholds", "show", "--json")), &cur); err != nil {
		t.Fatalf("decode thresholds: %v", err)
	}
	if cur.CCT.LargeMin != 600 {
		t.Fatalf("large_min = %v", cur.CCT.LargeMin)
	}
	if _, err := os.Stat(filepath.Join(home, ".imgdiff", thresholds.FileName)); err != nil {
		t.Fatalf("thresholds file: %v", err)
	}

	if _, err := execCmd("thresholds", "set", "cct.medium_max", "700"); err == nil {
		t.Fatal("medium_max above large_min should be rejected")
	}
	if _, err := execCmd("thresholds", "set", "cct.large_min", "abc"); err == nil {
		t.Fatal("non-numeric value should be rejected")
	}

	runCmd(t, "thresholds", "reset")
	if err := json.Unmarshal([]byte(runCmd(t, "thresholds", "show", "--json")), &cur); err != nil {
		t.Fatalf("decode thresholds: %v", err)
	}
	if cur != thresholds.Default() {
		t.Fatalf("after reset: %+v", cur)
	}
	if out := runCmd(t, "thresholds", "show"); !strings.Contains(out, "percentage") {
		t.Fatalf("table output: %s", out)
	}
}

func TestCLI_MatchAndInspect(t *testing.T) {
	home := isolate(t)
	a, b := writeInputs(t, home)

	out := runCmd(t, "match", a, b, "--pairs")
	if !strings.Contains(out, "1_a.jpg") || !strings.Contains(out, "100.0%") {
		t.Fatalf("match output:\n%s", out)
	}

	out = runCmd(t, "inspect", a)
	for _, want := range []string{"Detection", "header row", "sensorCCT"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	if _, err := execCmd("match", a, b, "--similarity", "1.5"); err == nil {
		t.Fatal("similarity above 1 should be rejected")
	}
	if _, err := execCmd("compare", a, filepath.Join(home, "missing.csv")); err == nil {
		t.Fatal("missing input should fail")
	}
}

func TestCLI_InspectAndMatchLeaveThresholdsUntouched(t *testing.T) {
	home := isolate(t)
	a, b := writeInputs(t, home)

	var payload struct {
		Columns []string `json:"columns"`
		Profile struct {
			Rows    int `json:"rows"`
			Columns []struct {
				Name string  `json:"name"`
				Kind string  `json:"kind"`
				Max  float64 `json:"max"`
			} `json:"columns"`
		} `json:"profile"`
	}
	if err := json.Unmarshal([]byte(runCmd(t, "inspect", a, "--json")), &payload); err != nil {
		t.Fatalf("decode inspect: %v", err)
	}
	if payload.Profile.Rows != 4 || len(payload.Profile.Columns) != 3 {
		t.Fatalf("profile = %+v", payload.Profile)
	}
	if c := payload.Profile.Columns[1]; c.Name != "sensorCCT" || c.Kind != "numeric" || c.Max != 5000 {
		t.Fatalf("sensorCCT profile = %+v", c)
	}

	runCmd(t, "match", a, b)
	if _, err := os.Stat(filepath.Join(home, ".imgdiff", thresholds.FileName)); !os.IsNotExist(err) {
		t.Fatalf("thresholds file should not exist after inspect and match: %v", err)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)
	runCmd(t, "config", "set", "similarity_threshold", "0.7")
	runCmd(t, "config", "set", "default_fields", "sensorCCT,Lux")
	if _, err := os.Stat(filepath.Join(home, ".imgdiff", "config.yaml")); err != nil {
		t.Fatalf("config file: %v", err)
	}

	cfg = nil
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "similarity_threshold: 0.7") || !strings.Contains(out, "default_fields: sensorCCT,Lux") {
		t.Fatalf("config show:\n%s", out)
	}
	if _, err := execCmd("config", "set", "confidence_level", "2"); err == nil {
		t.Fatal("confidence_level outside (0,1) should be rejected")
	}
}
