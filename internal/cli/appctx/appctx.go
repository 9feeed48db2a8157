// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup and database opening
// to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/momcheck/internal/config"
	"github.com/lherron/momcheck/internal/db"
	"github.com/lherron/momcheck/internal/logging"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration, with flag overrides applied
	Config *config.Config

	// Log is the run logger
	Log *logging.Run

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Started is when the command began
	Started time.Time
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
	if a.Log != nil {
		a.Log.Close()
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool

	// LogFile writes the log to a per-run file under the configured log directory
	LogFile bool
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{Started: time.Now()}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app.Config = cfg

	logDir := ""
	if opts.LogFile {
		logDir = cfg.LogDir
	}
	app.Log, err = logging.New(cmd.ErrOrStderr(), logDir, cfg.LogLevel, app.Started)
	if err != nil {
		return nil, err
	}

	if opts.NeedsDB {
		database, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		app.DB = database
	}

	return app, nil
}

// applyFlags overrides config values with flags the user set
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := map[string]*string{
		"driver":      &cfg.DBDriver,
		"sqlite-path": &cfg.SQLitePath,
		"db-name":     &cfg.DBName,
		"log-level":   &cfg.LogLevel,
		"log-dir":     &cfg.LogDir,
		"backup":      &cfg.BackupZip,
		"images":      &cfg.ImagesFile,
		"report":      &cfg.ReportPath,
	}
	for name, target := range overrides {
		if f := cmd.Flag(name); f != nil && f.Changed {
			*target = f.Value.String()
		}
	}
}
