package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-grn-reconciliation/cmd/reconciler/config"
	"invoice-grn-reconciliation/internal/loader"
	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/reconciler"
	"invoice-grn-reconciliation/internal/reporter"
	"invoice-grn-reconciliation/internal/store"
	apperrors "invoice-grn-reconciliation/pkg/errors"
	"invoice-grn-reconciliation/pkg/logger"
)

var (
	runInvoicesFile     string
	runInvoiceLinesFile string
	runGRNsFile         string
	runGRNLinesFile     string
	runDatabase         string
	runDelimiter        string
	runColumnAliases    []string

	runProfile       string
	runTolerance     float64
	runDateTolerance int
	runChunkSize     int
	runSkipLineItems bool

	runInvoiceIDs        []uint
	runIncludeMatched    bool
	runIncludeFailed     bool
	runIncludeDuplicates bool
	runNotes             string
	runProgress          bool

	runOutputFormat   string
	runOutputFile     string
	runExceptionsOnly bool
	runIncludePerfect bool
	runMaxListItems   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load CSV inputs and reconcile invoices against GRNs",
	Long: `Run loads invoices and goods receipt notes from CSV files, persists them
to the SQLite database, reconciles every eligible invoice, and renders a
batch report.

Line item files are optional: without them matching stops at the header
level, which is also what --skip-line-items forces.`,
	Example: `  # Full reconciliation with line items, console report
  invoice-recon run --invoices invoices.csv --invoice-lines invoice_lines.csv \
    --grns grns.csv --grn-lines grn_lines.csv

  # Header-only run with a relaxed profile, JSON report to a file
  invoice-recon run --invoices invoices.csv --grns grns.csv \
    --profile relaxed --skip-line-items --format json --output report.json

  # Re-reconcile two specific invoices, including already matched ones
  invoice-recon run --invoices invoices.csv --grns grns.csv \
    --invoice-ids 12,47 --include-matched`,
	PreRunE: validateRunFlags,
	RunE:    runReconciliation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runInvoicesFile, "invoices", "", "invoice CSV file (required)")
	runCmd.Flags().StringVar(&runInvoiceLinesFile, "invoice-lines", "", "invoice line item CSV file")
	runCmd.Flags().StringVar(&runGRNsFile, "grns", "", "goods receipt note CSV file (required)")
	runCmd.Flags().StringVar(&runGRNLinesFile, "grn-lines", "", "goods receipt line item CSV file")
	runCmd.Flags().StringVar(&runDatabase, "db", "invoice-recon.db", "SQLite database path")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "CSV field delimiter (default comma)")
	runCmd.Flags().StringSliceVar(&runColumnAliases, "column-alias", nil, "column alias as canonical=actual (repeatable)")

	runCmd.Flags().StringVar(&runProfile, "profile", "default", "matching profile: default, strict, relaxed")
	runCmd.Flags().Float64Var(&runTolerance, "tolerance", -1, "amount tolerance percent override (0 to 50)")
	runCmd.Flags().IntVar(&runDateTolerance, "date-tolerance", -1, "date tolerance in days override (0 to 365)")
	runCmd.Flags().IntVar(&runChunkSize, "chunk-size", 0, "invoices per processing chunk (5 to 500)")
	runCmd.Flags().BoolVar(&runSkipLineItems, "skip-line-items", false, "match at the header level only")

	runCmd.Flags().UintSliceVar(&runInvoiceIDs, "invoice-ids", nil, "restrict the run to these invoice ids")
	runCmd.Flags().BoolVar(&runIncludeMatched, "include-matched", false, "re-reconcile invoices already marked matched")
	runCmd.Flags().BoolVar(&runIncludeFailed, "include-failed", false, "include invoices flagged as extraction failures")
	runCmd.Flags().BoolVar(&runIncludeDuplicates, "include-duplicates", false, "include invoices flagged as duplicates")
	runCmd.Flags().StringVar(&runNotes, "notes", "", "free-form note stored on the batch")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "print progress while reconciling")

	runCmd.Flags().StringVar(&runOutputFormat, "format", "console", "report format: console, json, csv")
	runCmd.Flags().StringVar(&runOutputFile, "output", "", "write the report to this file instead of stdout")
	runCmd.Flags().BoolVar(&runExceptionsOnly, "exceptions-only", false, "report exception records only")
	runCmd.Flags().BoolVar(&runIncludePerfect, "include-perfect", false, "list perfect matches in the report")
	runCmd.Flags().IntVar(&runMaxListItems, "max-list", 0, "cap per-section record listings in console reports")

	runCmd.MarkFlagRequired("invoices")
	runCmd.MarkFlagRequired("grns")
}

func validateRunFlags(cmd *cobra.Command, args []string) error {
	required := map[string]string{
		"--invoices": runInvoicesFile,
		"--grns":     runGRNsFile,
	}
	for flag, path := range required {
		if err := validateFileExists(flag, path); err != nil {
			return err
		}
	}

	optional := map[string]string{
		"--invoice-lines": runInvoiceLinesFile,
		"--grn-lines":     runGRNLinesFile,
	}
	for flag, path := range optional {
		if path == "" {
			continue
		}
		if err := validateFileExists(flag, path); err != nil {
			return err
		}
	}

	if runTolerance > 50 {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "tolerance", runTolerance, nil).
			WithSuggestion("use a tolerance between 0 and 50 percent")
	}
	if runDateTolerance > 365 {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "date-tolerance", runDateTolerance, nil).
			WithSuggestion("use a date tolerance between 0 and 365 days")
	}

	return nil
}

func validateFileExists(flag, path string) error {
	if path == "" {
		return apperrors.ConfigurationError(apperrors.CodeMissingConfig, flag, path, nil).
			WithSuggestion(fmt.Sprintf("pass %s with the path to a CSV file", flag))
	}
	info, err := os.Stat(path)
	if err != nil {
		return apperrors.FileError(apperrors.CodeFileNotFound, path, err).
			WithContext("flag", flag)
	}
	if info.IsDir() {
		return apperrors.FileError(apperrors.CodeFileNotFound, path, nil).
			WithContext("flag", flag).
			WithSuggestion("the path names a directory, not a CSV file")
	}
	return nil
}

func runReconciliation(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.GetGlobalLogger().WithComponent("cli")

	loaderConfig, err := config.CreateLoaderConfig(runDelimiter, runColumnAliases)
	if err != nil {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "loader", nil, err)
	}

	matchingConfig, err := config.CreateMatchingConfig(runProfile, runTolerance, runDateTolerance, runChunkSize, runSkipLineItems)
	if err != nil {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "matching", nil, err)
	}

	reportConfig, err := config.CreateReportConfig(runOutputFormat, runExceptionsOnly, runIncludePerfect, runMaxListItems)
	if err != nil {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "report", nil, err)
	}

	invoices, invoiceLines, receipts, receiptLines, err := loadInputs(ctx, loaderConfig, log)
	if err != nil {
		return err
	}
	attachInvoiceLines(invoices, invoiceLines)

	s, err := store.Open(runDatabase)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SaveInvoices(ctx, invoices); err != nil {
		return err
	}
	if err := s.SaveReceipts(ctx, receipts); err != nil {
		return err
	}
	if len(receiptLines) > 0 {
		if err := s.SaveReceiptLines(ctx, receiptLines); err != nil {
			return err
		}
	}
	log.WithFields(logger.Fields{
		"invoices":      len(invoices),
		"invoice_lines": len(invoiceLines),
		"receipts":      len(receipts),
		"receipt_lines": len(receiptLines),
	}).Info("Input data persisted")

	request := &reconciler.RunRequest{
		InvoiceIDs:              runInvoiceIDs,
		Config:                  matchingConfig,
		IncludeMatched:          runIncludeMatched,
		IncludeExtractionFailed: runIncludeFailed,
		IncludeDuplicates:       runIncludeDuplicates,
		Notes:                   runNotes,
	}
	if runProgress {
		request.OnInvoiceProcessed = func(processed int) {
			fmt.Fprintf(os.Stderr, "\rProcessed %d invoices", processed)
		}
	}

	result, err := reconciler.NewOrchestrator(s, nil).Run(ctx, request)
	if runProgress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"batch_id":  result.BatchID,
		"status":    result.Status,
		"processed": result.Processed,
		"matched":   result.Matched,
		"unmatched": result.Unmatched,
		"errors":    result.Errors,
		"duration":  result.Duration.String(),
	}).Info("Reconciliation run finished")

	return renderBatchReport(ctx, s, result.BatchID, reportConfig, runOutputFile)
}

// loadInputs reads the four CSV inputs, tolerating bad rows but failing on
// unreadable or structurally invalid files.
func loadInputs(ctx context.Context, loaderConfig *loader.LoaderConfig, log logger.Logger) ([]*models.Invoice, []*models.InvoiceLineItem, []*models.GoodsReceiptSummary, []*models.GoodsReceiptLineItem, error) {
	invoiceLoader, err := loader.NewInvoiceLoader(loaderConfig)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	receiptLoader, err := loader.NewReceiptLoader(loaderConfig)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	invoices, stats, err := invoiceLoader.LoadInvoicesWithContext(ctx, runInvoicesFile)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	warnLoadErrors(log, runInvoicesFile, stats)

	var invoiceLines []*models.InvoiceLineItem
	if runInvoiceLinesFile != "" {
		invoiceLines, stats, err = invoiceLoader.LoadInvoiceLinesWithContext(ctx, runInvoiceLinesFile)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		warnLoadErrors(log, runInvoiceLinesFile, stats)
	}

	receipts, stats, err := receiptLoader.LoadReceiptsWithContext(ctx, runGRNsFile)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	warnLoadErrors(log, runGRNsFile, stats)

	var receiptLines []*models.GoodsReceiptLineItem
	if runGRNLinesFile != "" {
		receiptLines, stats, err = receiptLoader.LoadReceiptLinesWithContext(ctx, runGRNLinesFile)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		warnLoadErrors(log, runGRNLinesFile, stats)
	}

	return invoices, invoiceLines, receipts, receiptLines, nil
}

func warnLoadErrors(log logger.Logger, path string, stats *loader.LoadStats) {
	if stats == nil || !stats.HasErrors() {
		return
	}
	log.WithFields(logger.Fields{
		"file":    path,
		"skipped": len(stats.Errors),
		"samples": stats.SampleErrors(3),
	}).Warn("Some rows were skipped during loading")
}

// attachInvoiceLines groups line items by invoice id and hangs them off
// their parent invoices so the store persists the association.
func attachInvoiceLines(invoices []*models.Invoice, lines []*models.InvoiceLineItem) {
	if len(lines) == 0 {
		return
	}

	byInvoice := make(map[uint][]*models.InvoiceLineItem, len(invoices))
	for _, line := range lines {
		byInvoice[line.InvoiceID] = append(byInvoice[line.InvoiceID], line)
	}
	for _, invoice := range invoices {
		if grouped, ok := byInvoice[invoice.ID]; ok {
			invoice.LineItems = grouped
		}
	}
}

// renderBatchReport builds the batch report and writes it to the output
// file, or stdout when none is given.
func renderBatchReport(ctx context.Context, s store.Store, batchID string, reportConfig *reporter.ReportConfig, outputFile string) error {
	report, err := reporter.BuildBatchReport(ctx, s, batchID)
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, nil)
	if err != nil {
		return err
	}

	if outputFile != "" {
		return generator.WriteReportFile(report, outputFile)
	}
	return generator.GenerateReportSafely(report, os.Stdout)
}
