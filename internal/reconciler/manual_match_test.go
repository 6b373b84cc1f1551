package reconciler

import (
	"context"
	"strings"
	"testing"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/store"
	apperrors "invoice-grn-reconciliation/pkg/errors"
)

func seedPartialRecord(t *testing.T, s store.Store) *store.ReconciliationRecord {
	t.Helper()

	receiptID := uint(7)
	record := &store.ReconciliationRecord{
		BatchID:          "RECON_1",
		InvoiceID:        1,
		PONumber:         "PO-1001",
		InvoiceNumber:    "INV-001",
		MatchedReceiptID: &receiptID,
		MatchStatus:      models.MatchStatusPartial,
		MatchScore:       70,
		InvoiceTotal:     d("1262.60"),
		ReceiptTotal:     d("1180.00"),
		TotalVariance:    d("82.60"),
		TotalVariancePc:  d("7"),
		InvoiceSubtotal:  d("1070.00"),
		ReceiptSubtotal:  d("1000.00"),
		SubtotalVariance: d("70.00"),
		CGSTVariance:     d("6.30"),
		WithinTolerance:  false,
		IsAutoMatched:    true,
	}
	if err := s.SaveRecord(context.Background(), record); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
	return record
}

func TestManualMatchRequestValidate(t *testing.T) {
	valid := &ManualMatchRequest{
		InvoiceID: 1,
		PONumber:  "PO-1001",
		Direction: DirectionGRNToInvoice,
		Fields:    []string{FieldAll},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(*ManualMatchRequest)
	}{
		{"missing invoice id", func(r *ManualMatchRequest) { r.InvoiceID = 0 }},
		{"missing po number", func(r *ManualMatchRequest) { r.PONumber = " " }},
		{"bad direction", func(r *ManualMatchRequest) { r.Direction = "sideways" }},
		{"unknown field", func(r *ManualMatchRequest) { r.Fields = []string{"bogus"} }},
		{"all combined with others", func(r *ManualMatchRequest) { r.Fields = []string{FieldAll, FieldTotal} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &ManualMatchRequest{
				InvoiceID: 1,
				PONumber:  "PO-1001",
				Direction: DirectionGRNToInvoice,
			}
			tt.modify(req)
			if err := req.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestManualMatchAllFields(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	seedPartialRecord(t, s)

	record, err := o.ManualMatch(ctx, &ManualMatchRequest{
		InvoiceID:   1,
		PONumber:    "PO-1001",
		Direction:   DirectionGRNToInvoice,
		Note:        "verified against delivery docket",
		PerformedBy: "ap-clerk",
	})
	if err != nil {
		t.Fatalf("manual match failed: %v", err)
	}

	if record.MatchStatus != models.MatchStatusPerfect {
		t.Errorf("expected perfect match, got %s", record.MatchStatus)
	}
	if record.OverallStatus != models.OverallComplete {
		t.Errorf("expected complete match, got %s", record.OverallStatus)
	}
	if !record.ManualMatch || record.IsAutoMatched {
		t.Error("expected manual match flags set")
	}
	if !record.TotalVariance.IsZero() || !record.SubtotalVariance.IsZero() || !record.CGSTVariance.IsZero() {
		t.Error("expected all variances zeroed")
	}
	// GRN side is the truth, so the invoice snapshot takes its value
	if !record.InvoiceTotal.Equal(d("1180.00")) {
		t.Errorf("expected invoice total aligned to receipt, got %s", record.InvoiceTotal)
	}
	if !strings.Contains(record.Notes, "manual match") || !strings.Contains(record.Notes, "ap-clerk") {
		t.Errorf("expected audit note, got %q", record.Notes)
	}

	stored, err := s.GetRecord(ctx, 1, "PO-1001")
	if err != nil {
		t.Fatalf("failed to fetch record: %v", err)
	}
	if stored.RequiresReview || stored.IsException {
		t.Error("expected flags cleared after manual match")
	}
}

func TestManualMatchFieldSubset(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	seedPartialRecord(t, s)

	record, err := o.ManualMatch(ctx, &ManualMatchRequest{
		InvoiceID: 1,
		PONumber:  "PO-1001",
		Direction: DirectionInvoiceToGRN,
		Fields:    []string{FieldTotal},
	})
	if err != nil {
		t.Fatalf("manual match failed: %v", err)
	}

	// Invoice side is the truth for the total
	if !record.ReceiptTotal.Equal(d("1262.60")) {
		t.Errorf("expected receipt total aligned to invoice, got %s", record.ReceiptTotal)
	}
	if !record.TotalVariance.IsZero() {
		t.Errorf("expected total variance zeroed, got %s", record.TotalVariance)
	}
	// Fields outside the subset keep their variances
	if record.SubtotalVariance.IsZero() {
		t.Error("expected subtotal variance untouched")
	}
	if record.CGSTVariance.IsZero() {
		t.Error("expected cgst variance untouched")
	}
	if record.MatchStatus != models.MatchStatusPerfect {
		t.Errorf("expected perfect match, got %s", record.MatchStatus)
	}
}

func TestManualMatchResolvesItemRecords(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	seedPartialRecord(t, s)

	mismatched := &store.ItemReconciliationRecord{
		BatchID:          "RECON_1",
		LineItemID:       1,
		InvoiceID:        1,
		PONumber:         "PO-1001",
		MatchStatus:      "quantity,price",
		OverallStatus:    models.OverallMismatch,
		InvoiceQty:       d("12"),
		ReceivedQty:      d("10"),
		QtyVariance:      d("2"),
		InvoiceUnitPrice: d("89.17"),
		ReceiptUnitPrice: d("100.00"),
		PriceVariance:    d("-10.83"),
		InvoiceSubtotal:  d("1070.00"),
		ReceiptSubtotal:  d("1000.00"),
		SubtotalVariance: d("70.00"),
	}
	settled := &store.ItemReconciliationRecord{
		BatchID:         "RECON_1",
		LineItemID:      2,
		InvoiceID:       1,
		PONumber:        "PO-1001",
		MatchStatus:     models.LineStatusPerfect,
		OverallStatus:   models.OverallComplete,
		InvoiceQty:      d("5"),
		ReceivedQty:     d("5"),
		WithinTolerance: true,
	}
	for _, item := range []*store.ItemReconciliationRecord{mismatched, settled} {
		if err := s.SaveItemRecord(ctx, item); err != nil {
			t.Fatalf("failed to seed item record: %v", err)
		}
	}

	if _, err := o.ManualMatch(ctx, &ManualMatchRequest{
		InvoiceID: 1,
		PONumber:  "PO-1001",
		Direction: DirectionGRNToInvoice,
	}); err != nil {
		t.Fatalf("manual match failed: %v", err)
	}

	items, err := s.ListItemRecords(ctx, 1, "RECON_1")
	if err != nil {
		t.Fatalf("failed to list item records: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 item records, got %d", len(items))
	}

	for _, item := range items {
		if item.MatchStatus != models.LineStatusPerfect {
			t.Errorf("line %d: expected perfect status, got %s", item.LineItemID, item.MatchStatus)
		}
		if item.OverallStatus != models.OverallComplete || !item.WithinTolerance {
			t.Errorf("line %d: expected complete and in tolerance", item.LineItemID)
		}
		if item.IsException {
			t.Errorf("line %d: expected exception flag cleared", item.LineItemID)
		}

		switch item.LineItemID {
		case 1:
			if !item.ManualMatch {
				t.Error("expected resolved line flagged as manual")
			}
			// GRN side is the truth
			if !item.InvoiceQty.Equal(d("10")) || !item.InvoiceUnitPrice.Equal(d("100.00")) {
				t.Errorf("expected invoice snapshot aligned to receipt, got qty %s price %s",
					item.InvoiceQty, item.InvoiceUnitPrice)
			}
			if !item.QtyVariance.IsZero() || !item.PriceVariance.IsZero() || !item.SubtotalVariance.IsZero() {
				t.Error("expected line variances zeroed")
			}
		case 2:
			if item.ManualMatch {
				t.Error("expected already settled line left alone")
			}
		}
	}
}

func TestManualMatchRejectsPerfectMatch(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()

	record := seedPartialRecord(t, s)
	record.MatchStatus = models.MatchStatusPerfect
	record.WithinTolerance = true
	if err := s.SaveRecord(ctx, record); err != nil {
		t.Fatalf("failed to update record: %v", err)
	}

	_, err := o.ManualMatch(ctx, &ManualMatchRequest{
		InvoiceID: 1,
		PONumber:  "PO-1001",
		Direction: DirectionGRNToInvoice,
	})
	if err == nil {
		t.Fatal("expected rejection for already perfect record")
	}
	appErr, ok := apperrors.AsReconcilerError(err)
	if !ok || appErr.Code != apperrors.CodeAlreadyMatched {
		t.Errorf("expected already matched code, got %v", err)
	}
}

func TestManualMatchLinksReceiptToNoMatchRecord(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()

	record := &store.ReconciliationRecord{
		BatchID:      "RECON_1",
		InvoiceID:    1,
		PONumber:     "PO-1001",
		MatchStatus:  models.MatchStatusNoGRNFound,
		InvoiceTotal: d("1180.00"),
	}
	if err := s.SaveRecord(ctx, record); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
	receipt := &models.GoodsReceiptSummary{ID: 9, PONumber: "PO-1001", GRNNumber: "GRN-9"}
	if err := s.SaveReceipts(ctx, []*models.GoodsReceiptSummary{receipt}); err != nil {
		t.Fatalf("failed to seed receipt: %v", err)
	}

	matched, err := o.ManualMatch(ctx, &ManualMatchRequest{
		InvoiceID: 1,
		PONumber:  "PO-1001",
		ReceiptID: 9,
		Direction: DirectionInvoiceToGRN,
	})
	if err != nil {
		t.Fatalf("manual match failed: %v", err)
	}

	if matched.MatchedReceiptID == nil || *matched.MatchedReceiptID != 9 {
		t.Errorf("expected receipt linked, got %v", matched.MatchedReceiptID)
	}

	receipts, _ := s.ListReceipts(ctx)
	if receipts[0].ReconciliationStatus != models.ReceiptStatusMatched {
		t.Errorf("expected receipt marked matched, got %s", receipts[0].ReconciliationStatus)
	}
}

func TestManualMatchNotFound(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	_, err := o.ManualMatch(context.Background(), &ManualMatchRequest{
		InvoiceID: 42,
		PONumber:  "PO-NONE",
		Direction: DirectionGRNToInvoice,
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
	appErr, ok := apperrors.AsReconcilerError(err)
	if !ok || appErr.Code != apperrors.CodeRecordNotFound {
		t.Errorf("expected record not found, got %v", err)
	}
}
