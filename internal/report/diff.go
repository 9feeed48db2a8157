package report

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// Diff returns a unified diff of the run-independent content of two
// reports, or "" when they agree
func Diff(a, b *Report, fromName, toName string) (string, error) {
	left, err := stableYAML(a)
	if err != nil {
		return "", err
	}
	right, err := stableYAML(b)
	if err != nil {
		return "", err
	}
	if left == right {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff reports: %w", err)
	}
	return text, nil
}

func stableYAML(r *Report) (string, error) {
	m, err := stable(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return string(out), nil
}
