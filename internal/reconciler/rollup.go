package reconciler

import (
	"context"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/store"
)

// rollupOverallStatus combines the header status with the line outcomes.
// A perfect header whose lines all matched completely is a complete match;
// a perfect header with imperfect lines is conditional; anything else
// rolls up as a mismatch. An empty line set does not spoil a perfect
// header.
func rollupOverallStatus(header models.MatchStatus, lines []models.OverallMatchStatus) models.OverallMatchStatus {
	if header != models.MatchStatusPerfect {
		return models.OverallMismatch
	}

	for _, s := range lines {
		if s != models.OverallComplete {
			return models.OverallConditional
		}
	}
	return models.OverallComplete
}

// receiptRollupStatus aggregates a receipt's status over every header
// record linked to it. Matched requires all linked invoices to be perfect
// and in tolerance; any perfect or partial invoice short of that means
// variance. When no linked invoice matched at all the receipt is left
// untouched and the second return is false.
func receiptRollupStatus(records []*store.ReconciliationRecord) (models.ReceiptReconStatus, bool) {
	allPerfect := len(records) > 0
	anyMatched := false

	for _, record := range records {
		switch {
		case record.MatchStatus == models.MatchStatusPerfect && record.WithinTolerance:
			anyMatched = true
		case record.MatchStatus == models.MatchStatusPerfect || record.MatchStatus == models.MatchStatusPartial:
			anyMatched = true
			allPerfect = false
		default:
			allPerfect = false
		}
	}

	if !anyMatched {
		return "", false
	}
	if allPerfect {
		return models.ReceiptStatusMatched, true
	}
	return models.ReceiptStatusVariance, true
}

// applyRollup writes the combined status back onto the header record and
// propagates match state to the invoice. Receipt statuses are not touched
// here: they aggregate over all linked invoices once the batch pass is
// done.
func (o *Orchestrator) applyRollup(ctx context.Context, inv *models.Invoice, record *store.ReconciliationRecord, lineStatuses []models.OverallMatchStatus) error {
	record.OverallStatus = rollupOverallStatus(record.MatchStatus, lineStatuses)
	if err := o.store.SaveRecord(ctx, record); err != nil {
		return err
	}

	if record.MatchStatus == models.MatchStatusPerfect || record.MatchStatus == models.MatchStatusPartial {
		inv.Matched = true
		if err := o.store.SetInvoiceMatched(ctx, inv.ID, true); err != nil {
			return err
		}
	}

	return nil
}

// rollupReceipts recomputes the reconciliation status of every receipt a
// batch touched, aggregating across all header records linked to each
// receipt, including records written by earlier batches.
func (o *Orchestrator) rollupReceipts(ctx context.Context, batchID string) error {
	batchRecords, err := o.store.ListRecordsByBatch(ctx, batchID)
	if err != nil {
		return err
	}

	seen := make(map[uint]bool)
	for _, record := range batchRecords {
		if record.MatchedReceiptID == nil || seen[*record.MatchedReceiptID] {
			continue
		}
		seen[*record.MatchedReceiptID] = true

		if err := o.rollupReceipt(ctx, *record.MatchedReceiptID); err != nil {
			return err
		}
	}
	return nil
}

// rollupReceipt recomputes one receipt's status from all linked records
func (o *Orchestrator) rollupReceipt(ctx context.Context, receiptID uint) error {
	linked, err := o.store.ListRecordsByReceipt(ctx, receiptID)
	if err != nil {
		return err
	}

	status, ok := receiptRollupStatus(linked)
	if !ok {
		return nil
	}
	return o.store.SetReceiptStatus(ctx, receiptID, status)
}
