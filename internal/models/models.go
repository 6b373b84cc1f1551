// Package models defines the input entities of the reconciliation
// subsystem: supplier invoices with their line items, and goods-receipt
// (GRN) records with theirs.
//
// These records arrive already normalized from the document-extraction
// and receipt-ingestion collaborators and are treated as read-only by
// the matching engine. All monetary amounts, quantities and rates use
// decimal.Decimal to avoid float drift in variance calculations.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptReconStatus describes the rollup state of a goods receipt
// after a reconciliation run has processed its linked invoices.
type ReceiptReconStatus string

const (
	// ReceiptStatusPending means no run has reconciled this receipt yet.
	ReceiptStatusPending ReceiptReconStatus = "pending"

	// ReceiptStatusMatched means every linked invoice reached a perfect
	// header match.
	ReceiptStatusMatched ReceiptReconStatus = "matched"

	// ReceiptStatusVariance means at least one linked invoice matched
	// (perfect or partial) but not all of them perfectly.
	ReceiptStatusVariance ReceiptReconStatus = "variance"
)

// Invoice is a supplier invoice header as extracted from the source
// document. Amounts are the invoice-side aggregates; the GST components
// (CGST/SGST/IGST) are kept separate because each is reconciled against
// its receipt-side counterpart individually.
type Invoice struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	PONumber      string `json:"po_number" gorm:"index"`
	InvoiceNumber string `json:"invoice_number" gorm:"index"`
	GRNNumber     string `json:"grn_number"`
	VendorName    string `json:"vendor_name"`
	VendorTaxID   string `json:"vendor_tax_id" gorm:"index"`

	InvoiceDate time.Time `json:"invoice_date"`

	SubtotalAmount decimal.Decimal `json:"subtotal_amount" gorm:"type:decimal(15,2)"`
	CGSTAmount     decimal.Decimal `json:"cgst_amount" gorm:"type:decimal(15,2)"`
	SGSTAmount     decimal.Decimal `json:"sgst_amount" gorm:"type:decimal(15,2)"`
	IGSTAmount     decimal.Decimal `json:"igst_amount" gorm:"type:decimal(15,2)"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,2)"`

	// Eligibility flags maintained by the ingestion side and the
	// post-run rollup. A default run skips invoices that are already
	// matched, flagged as duplicates, or failed extraction.
	Matched          bool `json:"matched"`
	DuplicateFlagged bool `json:"duplicate_flagged"`
	ExtractionFailed bool `json:"extraction_failed"`

	LineItems []*InvoiceLineItem `json:"line_items,omitempty" gorm:"foreignKey:InvoiceID"`
}

// InvoiceLineItem is one billed line of an invoice. PONumber and
// InvoiceNumber are denormalized from the header so line-level
// candidate search can filter on them directly.
type InvoiceLineItem struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	InvoiceID uint `json:"invoice_id" gorm:"index"`
	Sequence  int  `json:"sequence"`

	PONumber      string `json:"po_number" gorm:"index"`
	InvoiceNumber string `json:"invoice_number"`

	Description string `json:"description"`
	HSNCode     string `json:"hsn_code" gorm:"index"`
	Unit        string `json:"unit"`

	Quantity  decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4)"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,4)"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,2)"`

	CGSTRate   decimal.Decimal `json:"cgst_rate" gorm:"type:decimal(6,3)"`
	CGSTAmount decimal.Decimal `json:"cgst_amount" gorm:"type:decimal(15,2)"`
	SGSTRate   decimal.Decimal `json:"sgst_rate" gorm:"type:decimal(6,3)"`
	SGSTAmount decimal.Decimal `json:"sgst_amount" gorm:"type:decimal(15,2)"`
	IGSTRate   decimal.Decimal `json:"igst_rate" gorm:"type:decimal(6,3)"`
	IGSTAmount decimal.Decimal `json:"igst_amount" gorm:"type:decimal(15,2)"`

	LineTotal decimal.Decimal `json:"line_total" gorm:"type:decimal(15,2)"`
}

// GoodsReceiptSummary is the aggregated view of one goods-receipt note:
// what was physically received against a purchase order, with amount
// totals mirroring the invoice header.
type GoodsReceiptSummary struct {
	ID                  uint   `json:"id" gorm:"primaryKey"`
	PONumber            string `json:"po_number" gorm:"index"`
	GRNNumber           string `json:"grn_number" gorm:"index"`
	SellerInvoiceNumber string `json:"seller_invoice_number" gorm:"index"`
	VendorName          string `json:"vendor_name"`
	VendorTaxID         string `json:"vendor_tax_id" gorm:"index"`

	ReceiptDate time.Time `json:"receipt_date"`

	SubtotalAmount decimal.Decimal `json:"subtotal_amount" gorm:"type:decimal(15,2)"`
	CGSTAmount     decimal.Decimal `json:"cgst_amount" gorm:"type:decimal(15,2)"`
	SGSTAmount     decimal.Decimal `json:"sgst_amount" gorm:"type:decimal(15,2)"`
	IGSTAmount     decimal.Decimal `json:"igst_amount" gorm:"type:decimal(15,2)"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,2)"`

	ItemCount int `json:"item_count"`

	// Rollup state written back after each reconciliation run.
	IsReconciled         bool               `json:"is_reconciled"`
	ReconciliationStatus ReceiptReconStatus `json:"reconciliation_status" gorm:"default:pending"`
}

// GoodsReceiptLineItem is one received line of a goods-receipt note.
type GoodsReceiptLineItem struct {
	ID                  uint   `json:"id" gorm:"primaryKey"`
	PONumber            string `json:"po_number" gorm:"index"`
	GRNNumber           string `json:"grn_number"`
	SellerInvoiceNumber string `json:"seller_invoice_number"`
	Sequence            int    `json:"sequence"`

	Description string `json:"description"`
	HSNCode     string `json:"hsn_code" gorm:"index"`
	Unit        string `json:"unit"`

	ReceivedQty decimal.Decimal `json:"received_qty" gorm:"type:decimal(15,4)"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,4)"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,2)"`

	CGSTRate   decimal.Decimal `json:"cgst_rate" gorm:"type:decimal(6,3)"`
	CGSTAmount decimal.Decimal `json:"cgst_amount" gorm:"type:decimal(15,2)"`
	SGSTRate   decimal.Decimal `json:"sgst_rate" gorm:"type:decimal(6,3)"`
	SGSTAmount decimal.Decimal `json:"sgst_amount" gorm:"type:decimal(15,2)"`
	IGSTRate   decimal.Decimal `json:"igst_rate" gorm:"type:decimal(6,3)"`
	IGSTAmount decimal.Decimal `json:"igst_amount" gorm:"type:decimal(15,2)"`

	LineTotal decimal.Decimal `json:"line_total" gorm:"type:decimal(15,2)"`
}

// Validate performs basic sanity checks on an Invoice before it enters
// a reconciliation run.
func (i *Invoice) Validate() error {
	if strings.TrimSpace(i.InvoiceNumber) == "" && strings.TrimSpace(i.PONumber) == "" {
		return fmt.Errorf("invoice must carry at least an invoice number or a PO number")
	}

	if i.TotalAmount.IsNegative() {
		return fmt.Errorf("invoice total cannot be negative: %s", i.TotalAmount)
	}

	return nil
}

// Validate performs basic sanity checks on an InvoiceLineItem.
func (li *InvoiceLineItem) Validate() error {
	if li.InvoiceID == 0 {
		return fmt.Errorf("line item must reference an invoice")
	}

	if li.Quantity.IsNegative() {
		return fmt.Errorf("line quantity cannot be negative: %s", li.Quantity)
	}

	if li.UnitPrice.IsNegative() {
		return fmt.Errorf("unit price cannot be negative: %s", li.UnitPrice)
	}

	return nil
}

// Validate performs basic sanity checks on a GoodsReceiptSummary.
func (g *GoodsReceiptSummary) Validate() error {
	if strings.TrimSpace(g.GRNNumber) == "" {
		return fmt.Errorf("goods receipt must carry a GRN number")
	}

	if g.TotalAmount.IsNegative() {
		return fmt.Errorf("receipt total cannot be negative: %s", g.TotalAmount)
	}

	return nil
}

// String returns a compact representation used in log context.
func (i *Invoice) String() string {
	return fmt.Sprintf("Invoice{ID: %d, PO: %s, Number: %s, Total: %s}",
		i.ID, i.PONumber, i.InvoiceNumber, i.TotalAmount.String())
}

// String returns a compact representation used in log context.
func (g *GoodsReceiptSummary) String() string {
	return fmt.Sprintf("GoodsReceipt{ID: %d, PO: %s, GRN: %s, Total: %s}",
		g.ID, g.PONumber, g.GRNNumber, g.TotalAmount.String())
}
