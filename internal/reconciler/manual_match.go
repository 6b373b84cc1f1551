package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/store"
	apperrors "invoice-grn-reconciliation/pkg/errors"
)

// MatchDirection selects which side of a manual match is treated as the
// truth. The other side's snapshot is overwritten to agree with it.
type MatchDirection string

const (
	// DirectionInvoiceToGRN accepts the invoice figures
	DirectionInvoiceToGRN MatchDirection = "invoice_to_grn"

	// DirectionGRNToInvoice accepts the goods receipt figures
	DirectionGRNToInvoice MatchDirection = "grn_to_invoice"
)

// Manual match field names. "all" stands for every field at once.
const (
	FieldAll      = "all"
	FieldTotal    = "total"
	FieldSubtotal = "subtotal"
	FieldCGST     = "cgst"
	FieldSGST     = "sgst"
	FieldIGST     = "igst"
)

var manualMatchFields = map[string]bool{
	FieldTotal:    true,
	FieldSubtotal: true,
	FieldCGST:     true,
	FieldSGST:     true,
	FieldIGST:     true,
}

// ManualMatchRequest asks for a reconciliation record to be forced into a
// perfect match by an operator decision
type ManualMatchRequest struct {
	InvoiceID uint
	PONumber  string

	// ReceiptID links the record to a receipt when automatic matching
	// found none. Ignored when the record already has one.
	ReceiptID uint

	Direction MatchDirection

	// Fields names the amounts to align, or contains just "all".
	// An empty list means all fields.
	Fields []string

	Note        string
	PerformedBy string
}

// Validate checks the request shape before any record is touched
func (r *ManualMatchRequest) Validate() error {
	if r.InvoiceID == 0 {
		return apperrors.ValidationError(apperrors.CodeMissingField, "invoice_id", r.InvoiceID, nil)
	}
	if strings.TrimSpace(r.PONumber) == "" {
		return apperrors.ValidationError(apperrors.CodeMissingField, "po_number", r.PONumber, nil)
	}

	switch r.Direction {
	case DirectionInvoiceToGRN, DirectionGRNToInvoice:
	default:
		return apperrors.ValidationError(apperrors.CodeInvalidData, "direction", string(r.Direction), nil).
			WithSuggestion("use invoice_to_grn or grn_to_invoice")
	}

	for _, f := range r.Fields {
		if f == FieldAll {
			if len(r.Fields) != 1 {
				return apperrors.ValidationError(apperrors.CodeInvalidData, "fields", r.Fields, nil).
					WithSuggestion("'all' cannot be combined with other fields")
			}
			continue
		}
		if !manualMatchFields[f] {
			return apperrors.ValidationError(apperrors.CodeInvalidData, "fields", f, nil).
				WithSuggestion("valid fields are total, subtotal, cgst, sgst, igst, or all")
		}
	}

	return nil
}

// wantsField reports whether the request covers the named field
func (r *ManualMatchRequest) wantsField(name string) bool {
	if len(r.Fields) == 0 {
		return true
	}
	for _, f := range r.Fields {
		if f == FieldAll || f == name {
			return true
		}
	}
	return false
}

// ManualMatch forces the record for an invoice and PO into a perfect
// match, along with every line record from the invoice's last run, and
// re-aggregates the linked receipt's status. Records that are already
// perfect matches are rejected; there is nothing left to override.
func (o *Orchestrator) ManualMatch(ctx context.Context, req *ManualMatchRequest) (*store.ReconciliationRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record, err := o.store.GetRecord(ctx, req.InvoiceID, req.PONumber)
	if err != nil {
		return nil, err
	}

	if record.MatchStatus == models.MatchStatusPerfect {
		return nil, apperrors.ReconciliationError(apperrors.CodeAlreadyMatched, "manual match", nil).
			WithContext("invoice_id", req.InvoiceID).
			WithContext("po_number", req.PONumber)
	}

	if record.MatchedReceiptID == nil && req.ReceiptID != 0 {
		receiptID := req.ReceiptID
		record.MatchedReceiptID = &receiptID
	}

	if req.wantsField(FieldTotal) {
		alignAmounts(&record.InvoiceTotal, &record.ReceiptTotal, req.Direction)
		record.TotalVariance = decimal.Zero
		record.TotalVariancePc = decimal.Zero
	}
	if req.wantsField(FieldSubtotal) {
		alignAmounts(&record.InvoiceSubtotal, &record.ReceiptSubtotal, req.Direction)
		record.SubtotalVariance = decimal.Zero
	}
	// The header record stores tax variances only, not per-side tax
	// amounts, so aligning a tax field reduces to clearing its variance.
	if req.wantsField(FieldCGST) {
		record.CGSTVariance = decimal.Zero
	}
	if req.wantsField(FieldSGST) {
		record.SGSTVariance = decimal.Zero
	}
	if req.wantsField(FieldIGST) {
		record.IGSTVariance = decimal.Zero
	}

	record.MatchStatus = models.MatchStatusPerfect
	record.OverallStatus = models.OverallComplete
	record.WithinTolerance = true
	record.ManualMatch = true
	record.IsAutoMatched = false
	record.Notes = appendAuditNote(record.Notes, req)

	if err := o.store.SaveRecord(ctx, record); err != nil {
		return nil, err
	}

	if err := o.resolveItemRecords(ctx, record, req); err != nil {
		return nil, err
	}

	if err := o.store.SetInvoiceMatched(ctx, req.InvoiceID, true); err != nil {
		return nil, err
	}
	if record.MatchedReceiptID != nil {
		if err := o.rollupReceipt(ctx, *record.MatchedReceiptID); err != nil {
			return nil, err
		}
	}

	o.logger.WithField("invoice_id", req.InvoiceID).
		WithField("po_number", req.PONumber).
		WithField("direction", string(req.Direction)).
		Info("Manual match applied")

	return record, nil
}

// resolveItemRecords forces every line record the invoice's last run
// produced into a perfect match: the trusted side's quantity, price, and
// subtotal snapshots are copied across, variances recalculated (zero once
// both sides agree), and the mismatch tags replaced. Lines already
// perfect are left alone.
func (o *Orchestrator) resolveItemRecords(ctx context.Context, record *store.ReconciliationRecord, req *ManualMatchRequest) error {
	if record.BatchID == "" {
		return nil
	}

	items, err := o.store.ListItemRecords(ctx, record.InvoiceID, record.BatchID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.MatchStatus == models.LineStatusPerfect && item.WithinTolerance {
			continue
		}

		alignAmounts(&item.InvoiceQty, &item.ReceivedQty, req.Direction)
		alignAmounts(&item.InvoiceUnitPrice, &item.ReceiptUnitPrice, req.Direction)
		alignAmounts(&item.InvoiceSubtotal, &item.ReceiptSubtotal, req.Direction)
		item.QtyVariance = decimal.Zero
		item.PriceVariance = decimal.Zero
		item.SubtotalVariance = decimal.Zero
		item.SubtotalVariancePc = decimal.Zero

		item.MatchStatus = models.LineStatusPerfect
		item.OverallStatus = models.OverallComplete
		item.WithinTolerance = true
		item.ManualMatch = true

		if err := o.store.SaveItemRecord(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// alignAmounts copies the trusted side's amount over the other side
func alignAmounts(invoiceAmt, receiptAmt *decimal.Decimal, direction MatchDirection) {
	if direction == DirectionInvoiceToGRN {
		*receiptAmt = *invoiceAmt
	} else {
		*invoiceAmt = *receiptAmt
	}
}

// appendAuditNote adds a manual match audit line to the record's notes
func appendAuditNote(notes string, req *ManualMatchRequest) string {
	fields := "all"
	if len(req.Fields) > 0 {
		fields = strings.Join(req.Fields, ",")
	}

	line := fmt.Sprintf("[%s] manual match (%s, fields: %s)",
		time.Now().UTC().Format(time.RFC3339), req.Direction, fields)
	if req.PerformedBy != "" {
		line += " by " + req.PerformedBy
	}
	if req.Note != "" {
		line += ": " + req.Note
	}

	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
