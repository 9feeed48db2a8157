package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()

	run, err := New(&console, dir, "info", time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	run.WithField("stage", "users").Info("stage complete")
	run.Debug("hidden")
	if err := run.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.HasSuffix(run.LogFile, "log_2024-03-15_09-30-00.log") {
		t.Errorf("LogFile = %q", run.LogFile)
	}

	data, err := os.ReadFile(run.LogFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	for name, out := range map[string]string{"console": console.String(), "file": string(data)} {
		if !strings.Contains(out, "stage complete") || !strings.Contains(out, "run_id="+run.ID) {
			t.Errorf("%s output missing entry: %q", name, out)
		}
		if strings.Contains(out, "hidden") {
			t.Errorf("%s output contains debug entry", name)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "", "loud", time.Now()); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
