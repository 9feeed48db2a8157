// Package bulk runs a per-record function over the documents of one
// pipeline stage and separates recoverable failures from fatal ones.
package bulk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Recoverable is implemented by errors that only invalidate the current item
type Recoverable interface {
	Recoverable() bool
}

// IsRecoverable reports whether err, or an error it wraps, is recoverable
func IsRecoverable(err error) bool {
	var rec Recoverable
	return errors.As(err, &rec) && rec.Recoverable()
}

// Operation configures one stage run
type Operation struct {
	Stage        string
	Logger       logrus.FieldLogger
	ShowProgress bool
}

// Result holds the items that were produced and the items that were skipped
type Result[T any] struct {
	Items      []T
	TotalItems int
	Succeeded  int
	Skipped    int
	Errors     []ItemError
}

// ItemError represents an error for a specific item
type ItemError struct {
	Item  string
	Error error
}

// Collect calls fn for each item in order. Recoverable errors are logged and
// the item is skipped; any other error stops the stage and is returned.
func Collect[T any](op *Operation, items []string, fn func(item string) (T, error)) (*Result[T], error) {
	result := &Result[T]{
		TotalItems: len(items),
	}

	progress := op.ShowProgress && isatty(os.Stderr)
	defer func() {
		if progress {
			fmt.Fprintf(os.Stderr, "\r\033[K")
		}
	}()

	for i, item := range items {
		if progress {
			pct := (i + 1) * 100 / len(items)
			fmt.Fprintf(os.Stderr, "\r%s [%s] %d/%d", op.Stage, progressBar(pct, 20), i+1, len(items))
		}

		value, err := fn(item)
		if err == nil {
			result.Succeeded++
			result.Items = append(result.Items, value)
			continue
		}

		if !IsRecoverable(err) {
			return result, fmt.Errorf("%s: %s: %w", op.Stage, item, err)
		}

		result.Skipped++
		result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
		if op.Logger != nil {
			op.Logger.WithFields(logrus.Fields{
				"stage":  op.Stage,
				"path":   item,
				"reason": err.Error(),
			}).Warn("record skipped")
		}
	}

	return result, nil
}

// PrintSummary prints a human-readable summary of the result
func (r *Result[T]) PrintSummary(w io.Writer, stage string) {
	if r.Skipped == 0 {
		fmt.Fprintf(w, "✓ %s: all %d records imported\n", stage, r.TotalItems)
	} else {
		fmt.Fprintf(w, "⚠ %s: %d imported, %d skipped (out of %d)\n",
			stage, r.Succeeded, r.Skipped, r.TotalItems)
	}

	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "  showing first 10 skips (of %d):\n", len(shown))
		shown = shown[:10]
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
	}
}

// progressBar creates a simple ASCII progress bar
func progressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// isatty checks if the file descriptor is a terminal
func isatty(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
