// Package recorder translates scored evaluations into persisted
// reconciliation records. It snapshots both sides of each comparison so a
// record stays meaningful even after the source documents change.
package recorder

import (
	"context"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/matcher"
	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/store"
)

// Recorder writes reconciliation outcomes for one batch
type Recorder struct {
	store   store.Store
	batchID string
}

// New creates a recorder writing under the given batch id
func New(s store.Store, batchID string) *Recorder {
	return &Recorder{store: s, batchID: batchID}
}

// RecordHeader persists the outcome of a scored header match. The matched
// and total line counts are filled in by the caller once line matching for
// the invoice has finished.
func (r *Recorder) RecordHeader(ctx context.Context, inv *models.Invoice, eval *matcher.HeaderEvaluation, strategy string, matchedLines, totalLines int) (*store.ReconciliationRecord, error) {
	receipt := eval.Receipt
	receiptID := receipt.ID

	record := &store.ReconciliationRecord{
		BatchID:   r.batchID,
		InvoiceID: inv.ID,
		PONumber:  inv.PONumber,

		InvoiceNumber: inv.InvoiceNumber,
		VendorName:    inv.VendorName,
		InvoiceDate:   inv.InvoiceDate,

		MatchedReceiptID: &receiptID,
		MatchedGRNNumber: receipt.GRNNumber,

		MatchStatus:   eval.Status,
		MatchScore:    eval.Score,
		MatchStrategy: strategy,

		InvoiceTotal:    inv.TotalAmount,
		ReceiptTotal:    receipt.TotalAmount,
		TotalVariance:   eval.TotalVariance.Amount,
		TotalVariancePc: eval.TotalVariance.Percent,

		InvoiceSubtotal:  inv.SubtotalAmount,
		ReceiptSubtotal:  receipt.SubtotalAmount,
		SubtotalVariance: eval.SubtotalVariance.Amount,

		CGSTVariance: eval.CGSTVariance.Amount,
		SGSTVariance: eval.SGSTVariance.Amount,
		IGSTVariance: eval.IGSTVariance.Amount,

		WithinTolerance: eval.TotalVariance.WithinTolerance,
		DateValid:       eval.DateValid,
		VendorMatched:   eval.VendorMatched,

		MatchedLineCount: matchedLines,
		TotalLineCount:   totalLines,

		IsAutoMatched: true,
	}

	if err := r.store.SaveRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// RecordHeaderNoMatch persists a no-match outcome. The receipt side stays
// empty and the variances reflect the full invoice amounts.
func (r *Recorder) RecordHeaderNoMatch(ctx context.Context, inv *models.Invoice) (*store.ReconciliationRecord, error) {
	// With no receipt every amount deviates entirely
	fullVariance := matcher.ComputeVariance(inv.TotalAmount, decimal.Zero, decimal.Zero)

	record := &store.ReconciliationRecord{
		BatchID:   r.batchID,
		InvoiceID: inv.ID,
		PONumber:  inv.PONumber,

		InvoiceNumber: inv.InvoiceNumber,
		VendorName:    inv.VendorName,
		InvoiceDate:   inv.InvoiceDate,

		MatchStatus: models.MatchStatusNoGRNFound,

		InvoiceTotal:    inv.TotalAmount,
		TotalVariance:   fullVariance.Amount,
		TotalVariancePc: fullVariance.Percent,

		InvoiceSubtotal: inv.SubtotalAmount,

		WithinTolerance: false,
		IsAutoMatched:   true,
	}

	if err := r.store.SaveRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// RecordLine persists the outcome of a scored line match
func (r *Recorder) RecordLine(ctx context.Context, line *models.InvoiceLineItem, eval *matcher.LineEvaluation, strategy string) (*store.ItemReconciliationRecord, error) {
	receiptLine := eval.ReceiptLine
	receiptLineID := receiptLine.ID

	record := &store.ItemReconciliationRecord{
		BatchID:    r.batchID,
		LineItemID: line.ID,
		InvoiceID:  line.InvoiceID,

		PONumber:    line.PONumber,
		HSNCode:     line.HSNCode,
		Description: line.Description,

		MatchedReceiptLineID: &receiptLineID,

		MatchScore:    eval.Score,
		MatchStrategy: strategy,
		Similarity:    eval.Similarity,

		MatchStatus:   eval.MatchStatus,
		OverallStatus: eval.OverallStatus,

		InvoiceQty:  line.Quantity,
		ReceivedQty: receiptLine.ReceivedQty,
		QtyVariance: eval.QuantityVariance.Amount,

		InvoiceUnitPrice: line.UnitPrice,
		ReceiptUnitPrice: receiptLine.UnitPrice,
		PriceVariance:    eval.UnitPriceVariance.Amount,

		InvoiceSubtotal:    line.Subtotal,
		ReceiptSubtotal:    receiptLine.Subtotal,
		SubtotalVariance:   eval.SubtotalVariance.Amount,
		SubtotalVariancePc: eval.SubtotalVariance.Percent,

		WithinTolerance: eval.SubtotalVariance.WithinTolerance,
	}

	if err := r.store.SaveItemRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// RecordLineNoMatch persists a line that found no receipt candidate
func (r *Recorder) RecordLineNoMatch(ctx context.Context, line *models.InvoiceLineItem) (*store.ItemReconciliationRecord, error) {
	record := &store.ItemReconciliationRecord{
		BatchID:    r.batchID,
		LineItemID: line.ID,
		InvoiceID:  line.InvoiceID,

		PONumber:    line.PONumber,
		HSNCode:     line.HSNCode,
		Description: line.Description,

		MatchStatus:   string(models.MatchStatusNoGRNFound),
		OverallStatus: models.OverallMismatch,

		InvoiceQty:       line.Quantity,
		InvoiceUnitPrice: line.UnitPrice,
		InvoiceSubtotal:  line.Subtotal,

		WithinTolerance: false,
	}

	if err := r.store.SaveItemRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
