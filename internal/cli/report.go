package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/momcheck/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect run reports",
}

var reportShowCmd = &cobra.Command{
	Use:   "show <report.json>",
	Short: "Print a run report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var reportDiffCmd = &cobra.Command{
	Use:   "diff <a.json> <b.json>",
	Short: "Compare two run reports",
	Long: `Compares the counts, drops and allocated ids of two runs, ignoring run id
and timestamps. Two imports of the same backup must agree; the command exits
non-zero when they do not.`,
	Args: cobra.ExactArgs(2),
	RunE: runReportDiff,
}

var reportFormat string

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportShowCmd, reportDiffCmd)

	reportShowCmd.Flags().StringVar(&reportFormat, "format", "table", "Output format: table, json or yaml")
}

func runReportShow(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	rep, err := report.Read(args[0])
	if err != nil {
		return err
	}
	return report.NewRenderer(cmd.OutOrStdout(), format).Render(rep)
}

func runReportDiff(cmd *cobra.Command, args []string) error {
	a, err := report.Read(args[0])
	if err != nil {
		return err
	}
	b, err := report.Read(args[1])
	if err != nil {
		return err
	}

	diff, err := report.Diff(a, b, args[0], args[1])
	if err != nil {
		return err
	}
	if diff != "" {
		fmt.Fprint(cmd.OutOrStdout(), diff)
		return errors.New("reports differ")
	}

	digest, err := report.Digest(a)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reports match (%s)\n", digest)
	return nil
}
