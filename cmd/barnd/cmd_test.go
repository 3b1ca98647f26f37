package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	runErr := fn()

	_ = w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String(), runErr
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "barnd.toml")
	contents := "base_dir = \"" + filepath.Join(dir, "jobs") + "\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadConfig_UsesConfigPathFlag(t *testing.T) {
	configPath = writeTestConfig(t)
	defer func() { configPath = "" }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.BaseDir == "" {
		t.Error("loadConfig() did not pick up base_dir from the config file")
	}
}

func TestRunStatus_OnFreshJobStore_ReportsZeroQueuedAndLimits(t *testing.T) {
	configPath = writeTestConfig(t)
	defer func() { configPath = "" }()

	out, err := captureStdout(t, func() error { return runStatus(statusCmd, nil) })
	if err != nil {
		t.Fatalf("runStatus() error = %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("queued: 0")) {
		t.Errorf("runStatus() output = %q, want it to contain %q", out, "queued: 0")
	}
	for _, level := range []string{"high", "medium", "low"} {
		if !bytes.Contains([]byte(out), []byte(level)) {
			t.Errorf("runStatus() output = %q, want a row for %q", out, level)
		}
	}
}

func TestRunClean_OnFreshJobStore_DeletesNothing(t *testing.T) {
	configPath = writeTestConfig(t)
	defer func() { configPath = "" }()

	out, err := captureStdout(t, func() error { return runClean(cleanCmd, nil) })
	if err != nil {
		t.Fatalf("runClean() error = %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("deleted 0 job(s)")) {
		t.Errorf("runClean() output = %q, want it to contain %q", out, "deleted 0 job(s)")
	}
}
