package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"payables/internal/aging"
	"payables/internal/cli"
	"payables/internal/objectstore"
)

var (
	reportUser   string
	reportFormat string
	reportOut    string
	reportPrint  bool
	reportUpload bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build reports",
}

var agingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Build the accounts payable aging report for a user",
	Long: `Build the aging report of a user's open invoices.

The report is written as CSV or PDF to --out, or to stdout when no file is
given. --print shows it as a table instead. --upload also stores the CSV in
the object store and records it, like the API does.

Example:
  payablesctl report aging --user u1 --format pdf --out aging.pdf
  payablesctl report aging --user u1 --print --upload`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		switch reportFormat {
		case "csv", "pdf":
			return nil
		}
		return fmt.Errorf("unsupported format %q: use csv or pdf", reportFormat)
	},
	Run: runAging,
}

func init() {
	agingCmd.Flags().StringVar(&reportUser, "user", "", "user id")
	agingCmd.Flags().StringVar(&reportFormat, "format", "csv", "output format: csv or pdf")
	agingCmd.Flags().StringVar(&reportOut, "out", "", "output file (default stdout)")
	agingCmd.Flags().BoolVar(&reportPrint, "print", false, "print the report as a table")
	agingCmd.Flags().BoolVar(&reportUpload, "upload", false, "upload and record the report")
	_ = agingCmd.MarkFlagRequired("user")
	reportCmd.AddCommand(agingCmd)
}

func runAging(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	repo := cli.InitSQLite(logger, appConfig.SQLiteDBPath)
	defer repo.Close()

	var store objectstore.Store
	if reportUpload {
		var closeStore objectstore.CleanupFunc
		store, closeStore = cli.InitObjectStore(ctx, logger, appConfig)
		defer closeStore()
	}
	gen := cli.NewGenerator(appConfig, repo, store)

	rep, err := gen.Build(ctx, reportUser)
	exitOnError(err, "failed to build aging report")

	if reportPrint {
		table, err := renderTable(rep, gen.Title())
		exitOnError(err, "failed to render table")
		fmt.Fprintln(cmd.OutOrStdout(), table)
	}
	if reportOut != "" || !reportPrint {
		exitOnError(writeOutput(cmd.OutOrStdout(), rep, reportFormat, gen.Title()), "failed to write report")
	}

	if reportUpload {
		rec, err := gen.Publish(ctx, reportUser, rep)
		exitOnError(err, "failed to upload aging report")
		pterm.Success.Printfln("Report %s stored at %s", rec.ID, rec.CSVURI)
	}
}

func writeOutput(stdout io.Writer, rep aging.Report, format, title string) error {
	if reportOut == "" {
		return writeReport(stdout, rep, format, title)
	}
	f, err := os.Create(reportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", reportOut, err)
	}
	if err := writeReport(f, rep, format, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeReport renders rep to w as csv or pdf.
func writeReport(w io.Writer, rep aging.Report, format, title string) error {
	switch format {
	case "pdf":
		return aging.RenderPDF(w, rep, title)
	case "csv":
		body, err := aging.RenderCSV(rep, title)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, bytes.NewReader(body))
		return err
	}
	return fmt.Errorf("unsupported format %q", format)
}

// reportTableData lays rep out as pterm rows under the report header.
func reportTableData(rep aging.Report) pterm.TableData {
	data := pterm.TableData{aging.Header}
	for _, r := range rep.Rows {
		cells := r.Cells()
		for i, c := range cells {
			cells[i] = strings.TrimSpace(c)
		}
		data = append(data, cells)
	}
	return data
}

func renderTable(rep aging.Report, title string) (string, error) {
	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(reportTableData(rep)).
		Srender()
	if err != nil {
		return "", err
	}
	return pterm.DefaultSection.Sprint(title) + table, nil
}
