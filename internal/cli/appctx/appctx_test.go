package appctx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func testCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("driver", "", "Database driver")
	cmd.Flags().String("sqlite-path", "", "SQLite path")
	cmd.Flags().String("log-level", "", "Log level")
	cmd.SetContext(context.Background())
	return cmd
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	t.Setenv("MOMCHECK_DB_DRIVER", "sqlite")
	t.Setenv("MOMCHECK_SQLITE_PATH", filepath.Join(t.TempDir(), "test.db"))

	app, err := Bootstrap(testCommand(t), Options{})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil {
		t.Error("Config should not be nil")
	}
	if app.DB != nil {
		t.Error("DB should be nil when NeedsDB is false")
	}
	if app.Log == nil || app.Log.LogFile != "" {
		t.Error("expected a console-only logger")
	}
}

func TestBootstrap_FlagsOverrideConfig(t *testing.T) {
	t.Setenv("MOMCHECK_DB_DRIVER", "postgres")
	t.Setenv("MOMCHECK_LOG_DIR", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "flag.db")

	cmd := testCommand(t)
	if err := cmd.Flags().Set("driver", "sqlite"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("sqlite-path", dbPath); err != nil {
		t.Fatal(err)
	}

	app, err := Bootstrap(cmd, Options{NeedsDB: true, LogFile: true})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.DB == nil {
		t.Fatal("DB should be open when NeedsDB is true")
	}
	if app.DB.Path() != dbPath {
		t.Errorf("DB path = %q, want %q", app.DB.Path(), dbPath)
	}
	if app.Log.LogFile == "" {
		t.Error("expected a log file")
	}
}

func TestBootstrap_InvalidLogLevel(t *testing.T) {
	t.Setenv("MOMCHECK_DB_DRIVER", "sqlite")
	t.Setenv("MOMCHECK_SQLITE_PATH", filepath.Join(t.TempDir(), "test.db"))

	cmd := testCommand(t)
	if err := cmd.Flags().Set("log-level", "loud"); err != nil {
		t.Fatal(err)
	}
	if _, err := Bootstrap(cmd, Options{}); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}
