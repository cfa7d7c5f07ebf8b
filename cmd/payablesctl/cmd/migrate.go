package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"payables/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		path := appConfig.SQLiteDBPath
		logger.Info("Running migrations", "path", path)
		exitOnError(storage.RunMigrations(path), "failed to run migrations")

		version, dirty, ok, err := storage.MigrationVersion(path)
		exitOnError(err, "failed to read migration version")
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty: %t)\n", version, dirty)
	},
}
