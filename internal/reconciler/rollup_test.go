package reconciler

import (
	"context"
	"testing"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/store"
	apperrors "invoice-grn-reconciliation/pkg/errors"
)

func TestReceiptRollupStatus(t *testing.T) {
	perfect := &store.ReconciliationRecord{MatchStatus: models.MatchStatusPerfect, WithinTolerance: true}
	overTolerance := &store.ReconciliationRecord{MatchStatus: models.MatchStatusPerfect, WithinTolerance: false}
	partial := &store.ReconciliationRecord{MatchStatus: models.MatchStatusPartial}
	noMatch := &store.ReconciliationRecord{MatchStatus: models.MatchStatusNoGRNFound}

	tests := []struct {
		name    string
		records []*store.ReconciliationRecord
		want    models.ReceiptReconStatus
		ok      bool
	}{
		{"no records", nil, "", false},
		{"only unmatched", []*store.ReconciliationRecord{noMatch}, "", false},
		{"single perfect", []*store.ReconciliationRecord{perfect, perfect}, models.ReceiptStatusMatched, true},
		{"partial drags down perfect", []*store.ReconciliationRecord{perfect, partial}, models.ReceiptStatusVariance, true},
		{"perfect over tolerance", []*store.ReconciliationRecord{overTolerance}, models.ReceiptStatusVariance, true},
		{"unmatched alongside perfect", []*store.ReconciliationRecord{perfect, noMatch}, models.ReceiptStatusVariance, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := receiptRollupStatus(tt.records)
			if ok != tt.ok || got != tt.want {
				t.Errorf("receiptRollupStatus() = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

// Two invoices matched against the same goods receipt must aggregate: a
// partial on either side keeps the receipt in variance even when the
// other invoice reconciled perfectly.
func TestReceiptStatusAggregatesAcrossInvoices(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()

	if err := s.SaveReceipts(ctx, []*models.GoodsReceiptSummary{seedReceipt(1, "PO-1001", "INV-001", "GRN-5001")}); err != nil {
		t.Fatalf("failed to seed receipt: %v", err)
	}

	receiptID := uint(1)
	records := []*store.ReconciliationRecord{
		{
			BatchID:          "RECON_A",
			InvoiceID:        1,
			PONumber:         "PO-1001",
			MatchedReceiptID: &receiptID,
			MatchStatus:      models.MatchStatusPartial,
			MatchScore:       70,
		},
		{
			BatchID:          "RECON_A",
			InvoiceID:        2,
			PONumber:         "PO-1002",
			MatchedReceiptID: &receiptID,
			MatchStatus:      models.MatchStatusPerfect,
			MatchScore:       100,
			WithinTolerance:  true,
		},
	}
	for _, record := range records {
		if err := s.SaveRecord(ctx, record); err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}
	}

	if err := o.rollupReceipts(ctx, "RECON_A"); err != nil {
		t.Fatalf("rollup failed: %v", err)
	}

	receipts, err := s.ListReceipts(ctx)
	if err != nil {
		t.Fatalf("failed to list receipts: %v", err)
	}
	if receipts[0].ReconciliationStatus != models.ReceiptStatusVariance {
		t.Errorf("expected variance receipt, got %s", receipts[0].ReconciliationStatus)
	}
	if receipts[0].IsReconciled {
		t.Error("expected receipt not flagged reconciled")
	}
}

// A receipt linked from an earlier batch stays in the aggregate when a
// later batch touches it again.
func TestReceiptRollupSpansBatches(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()

	if err := s.SaveReceipts(ctx, []*models.GoodsReceiptSummary{seedReceipt(3, "PO-2001", "INV-201", "GRN-6001")}); err != nil {
		t.Fatalf("failed to seed receipt: %v", err)
	}

	receiptID := uint(3)
	earlier := &store.ReconciliationRecord{
		BatchID:          "RECON_OLD",
		InvoiceID:        10,
		PONumber:         "PO-2001",
		MatchedReceiptID: &receiptID,
		MatchStatus:      models.MatchStatusPartial,
		MatchScore:       65,
	}
	current := &store.ReconciliationRecord{
		BatchID:          "RECON_NEW",
		InvoiceID:        11,
		PONumber:         "PO-2002",
		MatchedReceiptID: &receiptID,
		MatchStatus:      models.MatchStatusPerfect,
		MatchScore:       100,
		WithinTolerance:  true,
	}
	for _, record := range []*store.ReconciliationRecord{earlier, current} {
		if err := s.SaveRecord(ctx, record); err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}
	}

	if err := o.rollupReceipts(ctx, "RECON_NEW"); err != nil {
		t.Fatalf("rollup failed: %v", err)
	}

	receipts, err := s.ListReceipts(ctx)
	if err != nil {
		t.Fatalf("failed to list receipts: %v", err)
	}
	if receipts[0].ReconciliationStatus != models.ReceiptStatusVariance {
		t.Errorf("expected variance receipt, got %s", receipts[0].ReconciliationStatus)
	}
}

// panicOnSaveStore trips the first header record write of a run.
type panicOnSaveStore struct {
	store.Store
}

func (p *panicOnSaveStore) SaveRecord(ctx context.Context, record *store.ReconciliationRecord) error {
	panic("store write exploded")
}

func TestRunFailureMarksBatchFailed(t *testing.T) {
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.SaveInvoices(ctx, []*models.Invoice{seedInvoice(1, "PO-1001", "INV-001", "GRN-5001")}); err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	if err := s.SaveReceipts(ctx, []*models.GoodsReceiptSummary{seedReceipt(1, "PO-1001", "INV-001", "GRN-5001")}); err != nil {
		t.Fatalf("failed to seed receipt: %v", err)
	}

	o := NewOrchestrator(&panicOnSaveStore{Store: s}, nil)

	result, err := o.Run(ctx, defaultRequest())
	if err == nil {
		t.Fatal("expected run to fail")
	}
	appErr, ok := apperrors.AsReconcilerError(err)
	if !ok || appErr.Code != apperrors.CodeUnexpectedError {
		t.Errorf("expected unexpected error code, got %v", err)
	}
	if result == nil || result.Status != models.BatchStatusFailed {
		t.Fatalf("expected failed result, got %+v", result)
	}

	batch, err := s.GetBatch(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("failed to fetch batch: %v", err)
	}
	if batch.Status != models.BatchStatusFailed {
		t.Errorf("expected failed batch, got %s", batch.Status)
	}
}
