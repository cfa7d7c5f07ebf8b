// Package cmd provides CLI commands for payablesctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"payables/internal/cli"
	"payables/internal/config"
	"payables/internal/log"
)

var (
	cfgFile string
	debug   bool
)

var (
	appConfig *config.Config
	logger    *log.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "payablesctl",
	Short: "Administer the payables invoice store",
	Long: `payablesctl runs maintenance tasks against the payables database
and object store.

Example:
  payablesctl migrate
  payablesctl report aging --user u1 --print
  payablesctl reports list --user u1`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
		appConfig = cli.LoadAndValidateConfig(cfgFile)
		if debug {
			appConfig.LogLevel = "debug"
		}
		// Logs go to stderr so report output can be piped.
		logger = cli.SetupLoggerTo(appConfig, log.ComponentCLI, os.Stderr)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.yaml, .toml or .json; default is the environment)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reportsCmd)
}

func exitOnError(err error, msg string) {
	if err != nil {
		logger.Error(msg, log.FieldError, err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
