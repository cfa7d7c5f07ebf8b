package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"payables/internal/cli"
	"payables/internal/core"
)

var reportsUser string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect stored reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the aging reports recorded for a user",
	Run: func(cmd *cobra.Command, args []string) {
		repo := cli.InitSQLite(logger, appConfig.SQLiteDBPath)
		defer repo.Close()

		reps, err := repo.ListAgingReports(context.Background(), reportsUser)
		exitOnError(err, "failed to list reports")
		if len(reps) == 0 {
			pterm.Info.Println("No reports recorded for " + reportsUser)
			return
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(reportsTableData(reps)).Srender()
		exitOnError(err, "failed to render table")
		fmt.Fprintln(cmd.OutOrStdout(), table)
	},
}

func init() {
	reportsListCmd.Flags().StringVar(&reportsUser, "user", "", "user id")
	_ = reportsListCmd.MarkFlagRequired("user")
	reportsCmd.AddCommand(reportsListCmd)
}

func reportsTableData(reps []core.AgingReport) pterm.TableData {
	data := pterm.TableData{{"ID", "Created", "CSV"}}
	for _, r := range reps {
		data = append(data, []string{r.ID, r.CreatedOn.UTC().Format("2006-01-02 15:04:05"), r.CSVURI})
	}
	return data
}
