package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-grn-reconciliation/internal/reconciler"
	"invoice-grn-reconciliation/internal/store"
)

var (
	matchInvoiceID uint
	matchPONumber  string
	matchReceiptID uint
	matchDirection string
	matchFields    []string
	matchNote      string
	matchBy        string
	matchDatabase  string
)

var matchCmd = &cobra.Command{
	Use:     "match",
	Aliases: []string{"manual-match"},
	Short:   "Manually resolve a reconciliation record",
	Long: `Match forces a reconciliation record into a perfect match by operator
decision. The chosen direction decides which side's amounts win: with
grn_to_invoice the invoice amounts are aligned to the receipt, with
invoice_to_grn the receipt snapshot is aligned to the invoice.

Records that automatic matching left without any receipt can be linked to
one with --receipt-id. Perfectly matched records are rejected.`,
	Example: `  # Accept the receipt amounts for invoice 12 on PO-1001
  invoice-recon match --invoice-id 12 --po PO-1001 --by ap-clerk

  # Align only the grand total, keeping tax variances visible
  invoice-recon match --invoice-id 12 --po PO-1001 \
    --direction invoice_to_grn --fields total --by ap-clerk

  # Link an unmatched invoice to receipt 9 first, then align everything
  invoice-recon match --invoice-id 31 --po PO-2040 --receipt-id 9 --by ap-clerk`,
	RunE: runManualMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().UintVar(&matchInvoiceID, "invoice-id", 0, "invoice id of the record (required)")
	matchCmd.Flags().StringVar(&matchPONumber, "po", "", "PO number of the record (required)")
	matchCmd.Flags().UintVar(&matchReceiptID, "receipt-id", 0, "receipt to link when the record has none")
	matchCmd.Flags().StringVar(&matchDirection, "direction", string(reconciler.DirectionGRNToInvoice), "alignment direction: grn_to_invoice or invoice_to_grn")
	matchCmd.Flags().StringSliceVar(&matchFields, "fields", nil, "amount fields to align: total, subtotal, cgst, sgst, igst, or all")
	matchCmd.Flags().StringVar(&matchNote, "note", "", "reason recorded in the audit note")
	matchCmd.Flags().StringVar(&matchBy, "by", "", "operator recorded in the audit note")
	matchCmd.Flags().StringVar(&matchDatabase, "db", "invoice-recon.db", "SQLite database path")

	matchCmd.MarkFlagRequired("invoice-id")
	matchCmd.MarkFlagRequired("po")
}

func runManualMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, err := store.Open(matchDatabase)
	if err != nil {
		return err
	}
	defer s.Close()

	request := &reconciler.ManualMatchRequest{
		InvoiceID:   matchInvoiceID,
		PONumber:    matchPONumber,
		ReceiptID:   matchReceiptID,
		Direction:   reconciler.MatchDirection(matchDirection),
		Fields:      matchFields,
		Note:        matchNote,
		PerformedBy: matchBy,
	}

	record, err := reconciler.NewOrchestrator(s, nil).ManualMatch(ctx, request)
	if err != nil {
		return err
	}

	printMatchedRecord(record)
	return nil
}

func printMatchedRecord(record *store.ReconciliationRecord) {
	fmt.Fprintf(os.Stdout, "Record for invoice %d / %s resolved manually\n\n", record.InvoiceID, record.PONumber)
	fmt.Fprintf(os.Stdout, "  Invoice number:   %s\n", record.InvoiceNumber)
	if record.MatchedGRNNumber != "" {
		fmt.Fprintf(os.Stdout, "  Matched GRN:      %s\n", record.MatchedGRNNumber)
	}
	fmt.Fprintf(os.Stdout, "  Match status:     %s\n", record.MatchStatus)
	fmt.Fprintf(os.Stdout, "  Overall status:   %s\n", record.OverallStatus)
	fmt.Fprintf(os.Stdout, "  Invoice total:    %s\n", record.InvoiceTotal.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  Receipt total:    %s\n", record.ReceiptTotal.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  Total variance:   %s\n", record.TotalVariance.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  Requires review:  %t\n", record.RequiresReview)
	fmt.Fprintf(os.Stdout, "  Is exception:     %t\n", record.IsException)
}
