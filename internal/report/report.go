// Package report persists the summary of an import run and compares runs.
package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/lherron/momcheck/internal/backup"
	"github.com/lherron/momcheck/internal/db"
)

// Run statuses
const (
	StatusComplete = "complete"
	StatusAborted  = "aborted"
)

// Report is the persisted summary of one run
type Report struct {
	RunID     string             `json:"run_id"`
	Started   time.Time          `json:"started"`
	Finished  time.Time          `json:"finished"`
	Driver    string             `json:"driver"`
	Backup    string             `json:"backup"`
	Status    string             `json:"status"`
	Error     string             `json:"error,omitempty"`
	Result    *backup.Result     `json:"result,omitempty"`
	Tables    map[string]int     `json:"tables,omitempty"`
	Sequences []db.SequenceDrift `json:"sequences,omitempty"`
}

// volatile lists the keys that differ between otherwise identical runs
var volatile = []string{"run_id", "started", "finished"}

// Write stores the report as indented JSON, creating parent directories
func Write(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Read loads a report written by Write
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}

// stable returns the report as a generic map without volatile keys
func stable(r *Report) (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for _, k := range volatile {
		delete(m, k)
	}
	return m, nil
}

// Digest hashes the run-independent content of a report.
// Two runs over the same backup produce the same digest.
// Returns "sha256:<hex>".
func Digest(r *Report) (string, error) {
	m, err := stable(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	// Map keys are encoded in sorted order
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	hash := sha256.Sum256(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return "sha256:" + hex.EncodeToString(hash[:]), nil
}

// PathFor returns the report path that sits next to a run's log file
func PathFor(logFile string) string {
	dir, name := filepath.Split(logFile)
	name = strings.TrimSuffix(strings.TrimPrefix(name, "log_"), ".log")
	return filepath.Join(dir, "report_"+name+".json")
}
