package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/momcheck/internal/archive"
	"github.com/lherron/momcheck/internal/backup"
	"github.com/lherron/momcheck/internal/cli/appctx"
	"github.com/lherron/momcheck/internal/images"
	"github.com/lherron/momcheck/internal/loader"
	"github.com/lherron/momcheck/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run [backup.zip]",
	Short: "Reset the schema and import a backup",
	Long: `Drops every table, recreates the schema and imports the backup zip.

The backup path comes from the argument, --backup or MOMCHECK_BACKUP_ZIP.
A run report is written to --report, or next to the log file.

Examples:
  momcheck run full.zip
  momcheck run --driver sqlite --sqlite-path mom.sqlite3 --images images.txt.gz full.zip
`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.Options{NeedsDB: true, LogFile: true}, runImport),
}

var (
	runProgress bool
	runSummary  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("backup", "", "Backup zip (overrides MOMCHECK_BACKUP_ZIP)")
	runCmd.Flags().String("images", "", "Image list, plain or gzip (overrides MOMCHECK_IMAGES_FILE)")
	runCmd.Flags().String("report", "", "Run report path (overrides MOMCHECK_REPORT_PATH)")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "Show per-stage progress bars")
	runCmd.Flags().BoolVar(&runSummary, "summary", false, "Print kept and skipped records per stage")
}

func runImport(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := app.Config
	log := app.Log

	if len(args) == 1 {
		cfg.BackupZip = args[0]
	}

	rep := &report.Report{
		RunID:   log.ID,
		Started: app.Started,
		Driver:  cfg.DBDriver,
		Backup:  cfg.BackupZip,
		Status:  report.StatusAborted,
	}
	defer func() {
		rep.Finished = time.Now()
		path := reportPath(app)
		if err := report.Write(path, rep); err != nil {
			log.WithError(err).Error("failed to write run report")
			return
		}
		log.WithField("path", path).Debug("run report written")
	}()

	// abort records err in the report and ends the log the way a failed
	// stage does
	abort := func(err error) error {
		rep.Error = err.Error()
		log.WithError(err).Error("import aborted")
		return err
	}

	if cfg.BackupZip == "" {
		return abort(errors.New("no backup zip given (argument, --backup or MOMCHECK_BACKUP_ZIP)"))
	}

	src, err := archive.Open(cfg.BackupZip)
	if err != nil {
		return abort(err)
	}
	defer src.Close()

	var imageURLs []string
	if cfg.ImagesFile != "" {
		imageURLs, err = images.ReadFile(cfg.ImagesFile)
		if err != nil {
			return abort(err)
		}
		log.WithFields(logrus.Fields{"path": cfg.ImagesFile, "count": len(imageURLs)}).Info("image list loaded")
	}

	if err := app.DB.Reset(ctx); err != nil {
		return abort(fmt.Errorf("failed to reset schema: %w", err))
	}

	opts := backup.Options{
		ImageURLs:    imageURLs,
		Logger:       log,
		ShowProgress: runProgress,
	}
	if runSummary {
		opts.Summary = cmd.ErrOrStderr()
	}
	ld := loader.New(app.DB, log)
	o := backup.New(src, opts)

	res, runErr := o.Run(ctx, ld)
	rep.Result = res
	rep.Tables = ld.Counts()
	if runErr != nil {
		rep.Error = runErr.Error()
		return runErr
	}

	drifts, err := app.DB.ResetSequences(ctx)
	if err != nil {
		return abort(fmt.Errorf("failed to reset sequences: %w", err))
	}
	rep.Sequences = drifts
	rep.Status = report.StatusComplete
	return nil
}

func reportPath(app *appctx.App) string {
	if app.Config.ReportPath != "" {
		return app.Config.ReportPath
	}
	if app.Log.LogFile != "" {
		return report.PathFor(app.Log.LogFile)
	}
	return filepath.Join(app.Config.LogDir, "report_"+app.Started.Format("2006-01-02_15-04-05")+".json")
}
