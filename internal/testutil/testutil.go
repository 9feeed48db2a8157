package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/momcheck/internal/config"
	"github.com/lherron/momcheck/internal/db"
)

// TempDB creates a temporary SQLite database with the full schema
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := &config.Config{DBDriver: config.DriverSQLite, SQLitePath: dbPath}
	database, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Reset(context.Background()); err != nil {
		database.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// WriteFile writes content to a file in dir
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertEqual asserts that two comparable values are equal
func AssertEqual[T comparable](t *testing.T, expected, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("Expected %v, got %v", expected, actual)
	}
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}
