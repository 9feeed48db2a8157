package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/momcheck/internal/cli/appctx"
	"github.com/lherron/momcheck/internal/db"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema maintenance",
}

var schemaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every table and recreate the schema",
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.Options{NeedsDB: true}, runSchemaReset),
}

var schemaSequencesCmd = &cobra.Command{
	Use:   "sequences",
	Short: "Align id sequences with the highest existing ids",
	Long: `Rows are imported with explicit ids, which leaves generated id sequences
behind. This moves each lagging sequence up to the highest id of its table.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsDB: true}, runSchemaSequences),
}

var sequencesDryRun bool

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaResetCmd, schemaSequencesCmd)

	schemaSequencesCmd.Flags().BoolVar(&sequencesDryRun, "dry-run", false, "Only report lagging sequences")
}

func runSchemaReset(app *appctx.App, cmd *cobra.Command, args []string) error {
	if err := app.DB.Reset(cmd.Context()); err != nil {
		return err
	}
	version, err := app.DB.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema reset at %s (version %d)\n", app.DB.Path(), version)
	return nil
}

func runSchemaSequences(app *appctx.App, cmd *cobra.Command, args []string) error {
	var drifts []db.SequenceDrift
	var err error
	if sequencesDryRun {
		drifts, err = app.DB.SequenceDrifts(cmd.Context(), db.DefaultSequenceSpecs())
	} else {
		drifts, err = app.DB.ResetSequences(cmd.Context())
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(drifts) == 0 {
		fmt.Fprintln(out, "all sequences up to date")
		return nil
	}
	for _, d := range drifts {
		fmt.Fprintf(out, "%s: sequence %d, max id %d\n", d.Table, d.SeqValue, d.MaxID)
	}
	return nil
}
