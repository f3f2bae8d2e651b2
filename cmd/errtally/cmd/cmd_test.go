package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/errtally/internal/config"
	"github.com/good-yellow-bee/errtally/internal/rules"
)

const sampleLog = `2023-12-31 23:59:59,000 [1] ERROR
too old
2024-01-02 10:00:00,000 [1] ERROR
connection refused
2024-01-02 10:00:05,000 [2] ERROR
connection refused
2024-01-03 08:00:00,000 [3] FATAL
out of memory
2024-01-03 08:00:01,000 [3] WARN
`

func writeSampleLog(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

// newTestScanCmd registers scan flags on a fresh command, resetting the
// package flag variables to their defaults.
func newTestScanCmd(t *testing.T) *cobra.Command {
	t.Helper()

	c := &cobra.Command{Use: "scan"}
	addScanFlags(c)
	c.Flags().StringVar(&scanExport, "export", "", "")
	c.Flags().StringVar(&scanExportTo, "export-to", "", "")
	return c
}

func setOutput(t *testing.T, format string) {
	t.Helper()

	prev := output
	output = format
	t.Cleanup(func() { output = prev })
}

func TestResolveScanSettings_ProfileThenFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Store = "/tmp/history.db"
	cfg.Profiles["app"] = &config.Profile{
		File:      "/var/log/app.log",
		Threshold: "2024-01-01",
		FailIf:    "total > 10",
		Top:       5,
	}

	c := newTestScanCmd(t)
	if err := c.Flags().Set("profile", "app"); err != nil {
		t.Fatal(err)
	}
	if err := c.Flags().Set("since", "2024-06-01"); err != nil {
		t.Fatal(err)
	}

	s, err := resolveScanSettings(c, nil, cfg)
	if err != nil {
		t.Fatalf("resolveScanSettings() error = %v", err)
	}
	if s.File != "/var/log/app.log" {
		t.Errorf("File = %q", s.File)
	}
	if s.Threshold != "2024-06-01" {
		t.Errorf("Threshold = %q, want flag value", s.Threshold)
	}
	if s.FailIf != "total > 10" {
		t.Errorf("FailIf = %q, want profile value", s.FailIf)
	}
	if s.Top != 5 {
		t.Errorf("Top = %d, want profile value 5", s.Top)
	}
	if s.Store != "/tmp/history.db" {
		t.Errorf("Store = %q, want config value", s.Store)
	}

	s, err = resolveScanSettings(c, []string{"other.log"}, cfg)
	if err != nil {
		t.Fatalf("resolveScanSettings() error = %v", err)
	}
	if s.File != "other.log" {
		t.Errorf("File = %q, want argument", s.File)
	}
}

func TestResolveScanSettings_Errors(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name  string
		args  []string
		flags map[string]string
	}{
		{name: "no file"},
		{name: "bad since", args: []string{"app.log"}, flags: map[string]string{"since": "yesterday"}},
		{name: "unknown profile", flags: map[string]string{"profile": "nope"}},
		{name: "bad export", args: []string{"app.log"}, flags: map[string]string{"export": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestScanCmd(t)
			for k, v := range tt.flags {
				if err := c.Flags().Set(k, v); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := resolveScanSettings(c, tt.args, cfg); err == nil {
				t.Error("resolveScanSettings() should fail")
			}
		})
	}
}

func TestExecuteScan_JSONExport(t *testing.T) {
	path := writeSampleLog(t)

	var buf bytes.Buffer
	s := &scanSettings{File: path, Threshold: "2024-01-01", Export: "json"}
	if err := executeScan(context.Background(), s, &buf); err != nil {
		t.Fatalf("executeScan() error = %v", err)
	}

	var got struct {
		Levels   map[string]int64 `json:"levels"`
		Messages map[string]int64 `json:"messages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}

	if got.Levels["ERROR"] != 2 || got.Levels["FATAL"] != 1 || got.Levels["WARN"] != 1 {
		t.Errorf("levels = %v", got.Levels)
	}
	if got.Messages["connection refused"] != 2 || got.Messages["out of memory"] != 1 {
		t.Errorf("messages = %v", got.Messages)
	}
	if _, ok := got.Messages["too old"]; ok {
		t.Error("message after an old header should not be counted")
	}
}

func TestExecuteScan_Table(t *testing.T) {
	setOutput(t, "table")
	path := writeSampleLog(t)

	var buf bytes.Buffer
	s := &scanSettings{File: path, Threshold: "2024-01-01", Top: 1}
	if err := executeScan(context.Background(), s, &buf); err != nil {
		t.Fatalf("executeScan() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"By Level:", "ERROR", "50.0%", "Top Messages (1 of 2)", "connection refused"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "out of memory") {
		t.Errorf("--top 1 should hide the second message:\n%s", out)
	}
}

func TestExecuteScan_FailIf(t *testing.T) {
	setOutput(t, "plain")
	path := writeSampleLog(t)

	var buf bytes.Buffer
	s := &scanSettings{File: path, Threshold: "2024-01-01", FailIf: `levels["FATAL"] > 0`}
	err := executeScan(context.Background(), s, &buf)
	if !errors.Is(err, rules.ErrCheckFailed) {
		t.Fatalf("executeScan() error = %v, want ErrCheckFailed", err)
	}
	if !strings.Contains(buf.String(), "level\tFATAL\t1") {
		t.Errorf("report should still be printed:\n%s", buf.String())
	}

	s.FailIf = `levels["FATAL"] > 5`
	if err := executeScan(context.Background(), s, &buf); err != nil {
		t.Errorf("executeScan() error = %v, want nil", err)
	}
}

func TestExecuteScan_StoreAndMetrics(t *testing.T) {
	setOutput(t, "plain")
	path := writeSampleLog(t)
	dir := t.TempDir()

	s := &scanSettings{
		File:      path,
		Threshold: "2024-01-01",
		Store:     filepath.Join(dir, "history.db"),
		Textfile:  filepath.Join(dir, "errtally.prom"),
	}
	if err := executeScan(context.Background(), s, &bytes.Buffer{}); err != nil {
		t.Fatalf("executeScan() error = %v", err)
	}

	store, err := openStore(s.Store)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	defer store.Close()

	scans, err := store.Scans().List(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(scans) != 1 || scans[0].Qualifying != 4 {
		t.Errorf("stored scans = %+v", scans)
	}

	data, err := os.ReadFile(s.Textfile)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `errtally_scan_levels{level="ERROR"} 2`) {
		t.Errorf("textfile missing header counter:\n%s", data)
	}
}

func TestExecuteScan_MissingFile(t *testing.T) {
	s := &scanSettings{File: filepath.Join(t.TempDir(), "missing.log")}
	if err := executeScan(context.Background(), s, &bytes.Buffer{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("executeScan() error = %v, want not-exist", err)
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("short", 10); got != "short" {
		t.Errorf("shorten(short) = %q", got)
	}
	if got := shorten("a\tb", 10); got != "a b" {
		t.Errorf("shorten tab = %q", got)
	}
	if got := shorten(strings.Repeat("x", 20), 10); got != "xxxxxxx..." {
		t.Errorf("shorten long = %q", got)
	}
}

func TestWatchCmd_SharesScanFlags(t *testing.T) {
	for _, name := range []string{"since", "pattern", "profile", "fail-if", "store", "top", "metrics-file"} {
		if watchCmd.Flags().Lookup(name) == nil {
			t.Errorf("watch is missing --%s", name)
		}
		if scanCmd.Flags().Lookup(name) == nil {
			t.Errorf("scan is missing --%s", name)
		}
	}
	for _, name := range []string{"interval", "metrics-listen"} {
		if watchCmd.Flags().Lookup(name) == nil {
			t.Errorf("watch is missing --%s", name)
		}
	}
}

func TestResolveScanSettings_TopAndMetricsFile(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Textfile = "/tmp/from-config.prom"

	c := newTestScanCmd(t)
	if err := c.Flags().Set("top", "3"); err != nil {
		t.Fatal(err)
	}
	if err := c.Flags().Set("metrics-file", "/tmp/errtally.prom"); err != nil {
		t.Fatal(err)
	}

	s, err := resolveScanSettings(c, []string{"app.log"}, cfg)
	if err != nil {
		t.Fatalf("resolveScanSettings() error = %v", err)
	}
	if s.Top != 3 {
		t.Errorf("Top = %d, want 3", s.Top)
	}
	if s.Textfile != "/tmp/errtally.prom" {
		t.Errorf("Textfile = %q, want flag value", s.Textfile)
	}
}

func TestVersionCmd_Short(t *testing.T) {
	prev := versionShort
	versionShort = true
	t.Cleanup(func() { versionShort = prev })

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "dev" {
		t.Errorf("version --short = %q, want dev", got)
	}
}
