package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "momcheck",
	Short: "Import the MOM XML backup into a relational database",
	Long: `momcheck reads the zip backup of the Monasterium.net eXist database and
loads archives, fonds, collections, charters, users and persons into
Postgres or SQLite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("driver", "", "Database driver: postgres or sqlite (overrides MOMCHECK_DB_DRIVER)")
	rootCmd.PersistentFlags().String("sqlite-path", "", "SQLite database file (overrides MOMCHECK_SQLITE_PATH)")
	rootCmd.PersistentFlags().String("db-name", "", "Postgres database name (overrides MOMCHECK_DB_NAME)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides MOMCHECK_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-dir", "", "Directory for per-run log files (overrides MOMCHECK_LOG_DIR)")
}
