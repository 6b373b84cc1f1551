package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"invoice-grn-reconciliation/cmd/reconciler/config"
	"invoice-grn-reconciliation/internal/store"
	apperrors "invoice-grn-reconciliation/pkg/errors"
)

var (
	reportBatchID        string
	reportDatabase       string
	reportOutputFormat   string
	reportOutputFile     string
	reportExceptionsOnly bool
	reportIncludePerfect bool
	reportMaxListItems   int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the report for a past reconciliation batch",
	Long: `Report re-renders the results of a batch that has already been
reconciled, reading everything from the database. Use it to get the same
batch in a different format or with different filtering than the original
run produced.`,
	Example: `  # Console report for a batch
  invoice-recon report --batch RECON_20240320T090000_abcd1234

  # Exceptions only, as CSV for a spreadsheet
  invoice-recon report --batch RECON_20240320T090000_abcd1234 \
    --format csv --exceptions-only --output exceptions.csv`,
	RunE: runBatchReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportBatchID, "batch", "", "batch id to report on (required)")
	reportCmd.Flags().StringVar(&reportDatabase, "db", "invoice-recon.db", "SQLite database path")
	reportCmd.Flags().StringVar(&reportOutputFormat, "format", "console", "report format: console, json, csv")
	reportCmd.Flags().StringVar(&reportOutputFile, "output", "", "write the report to this file instead of stdout")
	reportCmd.Flags().BoolVar(&reportExceptionsOnly, "exceptions-only", false, "report exception records only")
	reportCmd.Flags().BoolVar(&reportIncludePerfect, "include-perfect", false, "list perfect matches in the report")
	reportCmd.Flags().IntVar(&reportMaxListItems, "max-list", 0, "cap per-section record listings in console reports")

	reportCmd.MarkFlagRequired("batch")
}

func runBatchReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	reportConfig, err := config.CreateReportConfig(reportOutputFormat, reportExceptionsOnly, reportIncludePerfect, reportMaxListItems)
	if err != nil {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "report", nil, err)
	}

	s, err := store.Open(reportDatabase)
	if err != nil {
		return err
	}
	defer s.Close()

	return renderBatchReport(ctx, s, reportBatchID, reportConfig, reportOutputFile)
}
