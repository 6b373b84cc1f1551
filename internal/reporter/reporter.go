// Package reporter renders reconciliation batch outcomes for people
// and for downstream tools.
//
// Three output formats are supported:
//   - Console: human-readable sections for terminal display
//   - JSON: the full batch report for programmatic consumption
//   - CSV: one row per reconciliation record for spreadsheets
//
// The detail listings can be narrowed to exceptions or the review
// queue; the summary sections always cover the whole batch.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/store"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludePerfectMatches bool `json:"include_perfect_matches"`
	ExceptionsOnly        bool `json:"exceptions_only"`

	// Console formatting options
	MaxListItems   int  `json:"max_list_items"`
	SortByVariance bool `json:"sort_by_variance"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                FormatConsole,
		IncludePerfectMatches: false,
		ExceptionsOnly:        false,
		MaxListItems:          10,
		SortByVariance:        false,
		CSVDelimiter:          ',',
		CSVHeaders:            true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items cannot be negative, got %d", c.MaxListItems)
	}
	return nil
}

// ReportGenerator renders batch reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a batch report and writes it to the provided writer
func (rg *ReportGenerator) GenerateReport(report *BatchReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("batch report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(report *BatchReport, writer io.Writer) error {
	batch := report.Batch

	fmt.Fprintf(writer, "INVOICE RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Batch:     %s\n", batch.BatchID)
	fmt.Fprintf(writer, "Status:    %s\n", batch.Status)
	fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	if duration := report.Duration(); duration > 0 {
		fmt.Fprintf(writer, "Duration:  %v\n", duration)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummaryTable(report.Summary, writer)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== FINANCIAL SUMMARY ===\n")
	rg.printFinancialSummary(report.Summary, writer)
	fmt.Fprintf(writer, "\n")

	unmatched := rg.filterRecords(report.Records, func(r *store.ReconciliationRecord) bool {
		return r.MatchStatus == models.MatchStatusNoGRNFound
	})
	if len(unmatched) > 0 {
		fmt.Fprintf(writer, "=== UNMATCHED INVOICES ===\n")
		rg.printRecordList(unmatched, writer)
		fmt.Fprintf(writer, "\n")
	}

	exceptions := rg.filterRecords(report.Records, func(r *store.ReconciliationRecord) bool {
		return r.IsException && r.MatchStatus != models.MatchStatusNoGRNFound
	})
	if len(exceptions) > 0 {
		fmt.Fprintf(writer, "=== EXCEPTIONS ===\n")
		rg.printRecordList(exceptions, writer)
		fmt.Fprintf(writer, "\n")
	}

	review := rg.filterRecords(report.Records, func(r *store.ReconciliationRecord) bool {
		return r.RequiresReview && !r.IsException && r.MatchStatus != models.MatchStatusNoGRNFound
	})
	if len(review) > 0 {
		fmt.Fprintf(writer, "=== REVIEW QUEUE ===\n")
		rg.printRecordList(review, writer)
		fmt.Fprintf(writer, "\n")
	}

	if batch.ErrorCount > 0 {
		fmt.Fprintf(writer, "=== ERRORS ===\n")
		fmt.Fprintf(writer, "Records that failed processing: %d\n", batch.ErrorCount)
	}

	return nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(report *BatchReport, writer io.Writer) error {
	filtered := &BatchReport{
		Batch:       report.Batch,
		Records:     rg.selectRecords(report.Records),
		Summary:     report.Summary,
		GeneratedAt: report.GeneratedAt,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(filtered)
}

// generateCSVReport generates a CSV report with one row per record
func (rg *ReportGenerator) generateCSVReport(report *BatchReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Invoice_ID",
			"PO_Number",
			"Invoice_Number",
			"Vendor_Name",
			"Matched_GRN",
			"Match_Status",
			"Match_Score",
			"Match_Strategy",
			"Invoice_Total",
			"Receipt_Total",
			"Total_Variance",
			"Variance_Pct",
			"Within_Tolerance",
			"Overall_Status",
			"Requires_Review",
			"Is_Exception",
			"Manual_Match",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, record := range rg.selectRecords(report.Records) {
		row := []string{
			strconv.FormatUint(uint64(record.InvoiceID), 10),
			record.PONumber,
			record.InvoiceNumber,
			record.VendorName,
			record.MatchedGRNNumber,
			string(record.MatchStatus),
			strconv.Itoa(record.MatchScore),
			record.MatchStrategy,
			record.InvoiceTotal.StringFixed(2),
			record.ReceiptTotal.StringFixed(2),
			record.TotalVariance.StringFixed(2),
			record.TotalVariancePc.StringFixed(2),
			strconv.FormatBool(record.WithinTolerance),
			string(record.OverallStatus),
			strconv.FormatBool(record.RequiresReview),
			strconv.FormatBool(record.IsException),
			strconv.FormatBool(record.ManualMatch),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write record row: %w", err)
		}
	}

	return nil
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummaryTable(summary *ReportSummary, writer io.Writer) {
	fmt.Fprintf(writer, "Invoices Reconciled: %d\n", summary.TotalRecords)
	fmt.Fprintf(writer, "  Perfect Matches:   %d (%.1f%%)\n",
		summary.PerfectMatches, rg.calculatePercentage(summary.PerfectMatches, summary.TotalRecords))
	fmt.Fprintf(writer, "  Partial Matches:   %d (%.1f%%)\n",
		summary.PartialMatches, rg.calculatePercentage(summary.PartialMatches, summary.TotalRecords))
	fmt.Fprintf(writer, "  Mismatches:        %d (%.1f%%)\n",
		summary.Mismatches, rg.calculatePercentage(summary.Mismatches, summary.TotalRecords))
	fmt.Fprintf(writer, "  No GRN Found:      %d (%.1f%%)\n",
		summary.UnmatchedNoGRN, rg.calculatePercentage(summary.UnmatchedNoGRN, summary.TotalRecords))

	fmt.Fprintf(writer, "\nFlags:\n")
	fmt.Fprintf(writer, "  Requires Review:   %d\n", summary.RequiresReview)
	fmt.Fprintf(writer, "  Exceptions:        %d\n", summary.Exceptions)
	fmt.Fprintf(writer, "  Out of Tolerance:  %d\n", summary.OutOfTolerance)
	if summary.ManualMatches > 0 {
		fmt.Fprintf(writer, "  Manual Matches:    %d\n", summary.ManualMatches)
	}
}

func (rg *ReportGenerator) printFinancialSummary(summary *ReportSummary, writer io.Writer) {
	fmt.Fprintf(writer, "Total Invoice Amount: %s\n", summary.InvoiceTotal.StringFixed(2))
	fmt.Fprintf(writer, "Total Receipt Amount: %s\n", summary.ReceiptTotal.StringFixed(2))
	fmt.Fprintf(writer, "Net Variance:         %s\n", summary.NetVariance.StringFixed(2))

	if !summary.NetVariance.IsZero() && !summary.ReceiptTotal.IsZero() {
		pct := summary.NetVariance.Abs().Div(summary.ReceiptTotal.Abs()).Mul(hundred)
		fmt.Fprintf(writer, "Variance Percentage:  %s%%\n", pct.StringFixed(2))
	}
}

func (rg *ReportGenerator) printRecordList(records []*store.ReconciliationRecord, writer io.Writer) {
	if rg.config.SortByVariance {
		sort.Slice(records, func(i, j int) bool {
			return records[i].TotalVariance.Abs().GreaterThan(records[j].TotalVariance.Abs())
		})
	}

	fmt.Fprintf(writer, "Total: %d\n", len(records))
	limit := len(records)
	if rg.config.MaxListItems > 0 && rg.config.MaxListItems < limit {
		limit = rg.config.MaxListItems
	}

	for i := 0; i < limit; i++ {
		record := records[i]
		fmt.Fprintf(writer, "  %d. Invoice %s (PO %s): %s, variance %s (%s%%)\n",
			i+1,
			record.InvoiceNumber,
			record.PONumber,
			record.MatchStatus,
			record.TotalVariance.StringFixed(2),
			record.TotalVariancePc.StringFixed(2))
	}
	if limit < len(records) {
		fmt.Fprintf(writer, "  ... and %d more\n", len(records)-limit)
	}
}

func (rg *ReportGenerator) filterRecords(records []*store.ReconciliationRecord, keep func(*store.ReconciliationRecord) bool) []*store.ReconciliationRecord {
	var out []*store.ReconciliationRecord
	for _, record := range records {
		if keep(record) {
			out = append(out, record)
		}
	}
	return out
}

// selectRecords applies the detail-level options to the record list
// used by the JSON and CSV outputs.
func (rg *ReportGenerator) selectRecords(records []*store.ReconciliationRecord) []*store.ReconciliationRecord {
	out := make([]*store.ReconciliationRecord, 0, len(records))
	for _, record := range records {
		if rg.config.ExceptionsOnly && !record.IsException {
			continue
		}
		if !rg.config.IncludePerfectMatches && record.MatchStatus == models.MatchStatusPerfect && !record.IsException {
			continue
		}
		out = append(out, record)
	}
	return out
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}
