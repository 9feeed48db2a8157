package bulk

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type skipErr struct{ reason string }

func (e *skipErr) Error() string     { return e.reason }
func (e *skipErr) Recoverable() bool { return true }

func TestCollectPreservesOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	result, err := Collect(&Operation{Stage: "test"}, items, func(item string) (string, error) {
		return strings.ToUpper(item), nil
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if result.TotalItems != 5 || result.Succeeded != 5 || result.Skipped != 0 {
		t.Errorf("unexpected counts: %+v", result)
	}
	for i, item := range items {
		if result.Items[i] != strings.ToUpper(item) {
			t.Errorf("Order not preserved: expected %s at index %d, got %s", strings.ToUpper(item), i, result.Items[i])
		}
	}
}

func TestCollectSkipsRecoverable(t *testing.T) {
	logger, hook := test.NewNullLogger()

	items := []string{"ok1", "bad", "ok2"}
	result, err := Collect(&Operation{Stage: "fonds", Logger: logger}, items, func(item string) (int, error) {
		if item == "bad" {
			return 0, fmt.Errorf("wrapped: %w", &skipErr{reason: "missing atom:id"})
		}
		return len(item), nil
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if result.Succeeded != 2 || result.Skipped != 1 {
		t.Errorf("Succeeded = %d, Skipped = %d", result.Succeeded, result.Skipped)
	}
	if len(result.Errors) != 1 || result.Errors[0].Item != "bad" {
		t.Errorf("Errors = %+v", result.Errors)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %+v", entry)
	}
	if entry.Data["path"] != "bad" || entry.Data["stage"] != "fonds" {
		t.Errorf("log fields = %v", entry.Data)
	}
}

func TestCollectStopsOnFatal(t *testing.T) {
	fatal := errors.New("connection lost")
	calls := 0

	result, err := Collect(&Operation{Stage: "users"}, []string{"a", "b", "c"}, func(item string) (string, error) {
		calls++
		if item == "b" {
			return "", fatal
		}
		return item, nil
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected processing to stop after the fatal item, got %d calls", calls)
	}
	if len(result.Items) != 1 {
		t.Errorf("expected the items before the failure, got %v", result.Items)
	}
}

func TestCollectEmpty(t *testing.T) {
	result, err := Collect(&Operation{}, nil, func(item string) (string, error) {
		t.Fatal("fn should not be called")
		return "", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalItems != 0 || len(result.Items) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestPrintSummary(t *testing.T) {
	r := &Result[int]{TotalItems: 3, Succeeded: 2, Skipped: 1, Errors: []ItemError{{Item: "x.xml", Error: errors.New("no idno")}}}

	var buf bytes.Buffer
	r.PrintSummary(&buf, "charters")

	out := buf.String()
	if !strings.Contains(out, "2 imported, 1 skipped") || !strings.Contains(out, "x.xml: no idno") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(50, 4); got != "██░░" {
		t.Errorf("progressBar(50, 4) = %q", got)
	}
	if got := progressBar(150, 2); got != "██" {
		t.Errorf("progressBar(150, 2) = %q", got)
	}
}
