// Package logging sets up the run logger: console plus one log file per run.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Run is the logger of one import run
type Run struct {
	*logrus.Entry
	ID      string
	LogFile string
	file    *os.File
}

// New creates a logger writing to console and to <dir>/log_<timestamp>.log.
// An empty dir logs to console only.
func New(console io.Writer, dir, level string, now time.Time) (*Run, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(console)

	run := &Run{ID: uuid.NewString()}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		run.LogFile = filepath.Join(dir, "log_"+now.Format("2006-01-02_15-04-05")+".log")
		f, err := os.OpenFile(run.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		run.file = f
		logger.SetOutput(io.MultiWriter(console, f))
	}

	run.Entry = logger.WithField("run_id", run.ID)
	return run, nil
}

// Close closes the log file
func (r *Run) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
