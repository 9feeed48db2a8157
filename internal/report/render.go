package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

// Format represents an output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (expected table, json or yaml)", s)
}

// Renderer handles report output
type Renderer struct {
	writer io.Writer
	format Format
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, format Format) *Renderer {
	return &Renderer{writer: writer, format: format}
}

// Render writes the report in the renderer's format
func (r *Renderer) Render(rep *Report) error {
	switch r.format {
	case FormatJSON:
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(r.writer, string(data))
		return err
	case FormatYAML:
		m, err := stable(rep)
		if err != nil {
			return err
		}
		m["run_id"] = rep.RunID
		encoder := yaml.NewEncoder(r.writer)
		defer encoder.Close()
		return encoder.Encode(m)
	default:
		return r.renderSummary(rep)
	}
}

func (r *Renderer) renderSummary(rep *Report) error {
	fmt.Fprintf(r.writer, "run %s: %s", rep.RunID, rep.Status)
	if rep.Error != "" {
		fmt.Fprintf(r.writer, " (%s)", rep.Error)
	}
	fmt.Fprintf(r.writer, "\nbackup %s -> %s, %s\n\n", rep.Backup, rep.Driver, rep.Finished.Sub(rep.Started).Round(time.Millisecond))

	if rep.Result != nil {
		rows := make([][]string, 0, len(rep.Result.Stages))
		for _, s := range rep.Result.Stages {
			rows = append(rows, []string{s.Stage, strconv.Itoa(s.Total), strconv.Itoa(s.Kept), strconv.Itoa(s.Skipped)})
		}
		r.RenderTable([]string{"STAGE", "TOTAL", "KEPT", "SKIPPED"}, rows)

		if drops := rep.Result.Crosslink.Keys(); len(drops) > 0 {
			fmt.Fprintln(r.writer)
			rows = rows[:0]
			for _, k := range drops {
				rows = append(rows, []string{k, strconv.Itoa(rep.Result.Crosslink.Dropped[k])})
			}
			r.RenderTable([]string{"DROPPED", "COUNT"}, rows)
		}

		fmt.Fprintf(r.writer, "\npersons %d, person names %d, identity conflicts %d, images %d\n",
			rep.Result.Persons, rep.Result.PersonNames, rep.Result.IdentityConflicts, rep.Result.Images)
	}

	if len(rep.Tables) > 0 {
		fmt.Fprintln(r.writer)
		names := make([]string, 0, len(rep.Tables))
		for t := range rep.Tables {
			names = append(names, t)
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, t := range names {
			rows = append(rows, []string{t, strconv.Itoa(rep.Tables[t])})
		}
		r.RenderTable([]string{"TABLE", "ROWS"}, rows)
	}
	return nil
}

// RenderTable renders rows as an aligned table
func (r *Renderer) RenderTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	r.renderTableRow(headers, widths)
	r.renderTableSeparator(widths)
	for _, row := range rows {
		r.renderTableRow(row, widths)
	}
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	for i, cell := range cells {
		if i < len(widths) {
			fmt.Fprintf(r.writer, "%-*s", widths[i], cell)
			if i < len(cells)-1 {
				fmt.Fprint(r.writer, "  ")
			}
		}
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) renderTableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(r.writer, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(r.writer, "  ")
		}
	}
	fmt.Fprintln(r.writer)
}
