// Package store persists reconciliation outcomes and the input documents
// they were derived from. The write paths recompute the derived review and
// exception flags on every save, so a record can never be stored with
// flags that disagree with its own figures.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/models"
)

// Flag thresholds. A header total variance above the exception threshold
// marks the record as an exception even when its status is not a mismatch.
var (
	headerExceptionPercent = decimal.NewFromInt(10)
	lineExceptionPercent   = decimal.NewFromInt(15)
)

// ReconciliationRecord is the header-level outcome of matching one invoice
// against goods receipts under a PO. Re-running reconciliation for the
// same invoice and PO updates the existing record in place.
type ReconciliationRecord struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	BatchID string `json:"batch_id" gorm:"index"`

	InvoiceID uint   `json:"invoice_id" gorm:"uniqueIndex:idx_recon_invoice_po"`
	PONumber  string `json:"po_number" gorm:"uniqueIndex:idx_recon_invoice_po"`

	// Invoice side snapshot
	InvoiceNumber string    `json:"invoice_number"`
	VendorName    string    `json:"vendor_name"`
	InvoiceDate   time.Time `json:"invoice_date"`

	// Receipt side, nil when nothing matched
	MatchedReceiptID *uint  `json:"matched_receipt_id"`
	MatchedGRNNumber string `json:"matched_grn_number"`

	MatchStatus   models.MatchStatus `json:"match_status" gorm:"index"`
	MatchScore    int                `json:"match_score"`
	MatchStrategy string             `json:"match_strategy"`

	InvoiceTotal    decimal.Decimal `json:"invoice_total" gorm:"type:decimal(15,2)"`
	ReceiptTotal    decimal.Decimal `json:"receipt_total" gorm:"type:decimal(15,2)"`
	TotalVariance   decimal.Decimal `json:"total_variance" gorm:"type:decimal(15,2)"`
	TotalVariancePc decimal.Decimal `json:"total_variance_pct" gorm:"type:decimal(8,4);column:total_variance_pct"`

	InvoiceSubtotal  decimal.Decimal `json:"invoice_subtotal" gorm:"type:decimal(15,2)"`
	ReceiptSubtotal  decimal.Decimal `json:"receipt_subtotal" gorm:"type:decimal(15,2)"`
	SubtotalVariance decimal.Decimal `json:"subtotal_variance" gorm:"type:decimal(15,2)"`

	CGSTVariance decimal.Decimal `json:"cgst_variance" gorm:"type:decimal(15,2)"`
	SGSTVariance decimal.Decimal `json:"sgst_variance" gorm:"type:decimal(15,2)"`
	IGSTVariance decimal.Decimal `json:"igst_variance" gorm:"type:decimal(15,2)"`

	WithinTolerance bool `json:"within_tolerance"`
	DateValid       bool `json:"date_valid"`
	VendorMatched   bool `json:"vendor_matched"`

	MatchedLineCount int `json:"matched_line_count"`
	TotalLineCount   int `json:"total_line_count"`

	OverallStatus models.OverallMatchStatus `json:"overall_status"`

	// Derived flags, recomputed on every save
	RequiresReview bool `json:"requires_review" gorm:"index"`
	IsException    bool `json:"is_exception" gorm:"index"`

	ManualMatch   bool `json:"manual_match"`
	IsAutoMatched bool `json:"is_auto_matched"`

	Notes string `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecomputeFlags derives the review and exception flags from the record's
// own figures. A record needs review when its status names a mismatch,
// when the total is out of tolerance, or when line matching ran but
// matched nothing. It is an exception when no receipt was found at all or
// the variance is past the exception threshold.
func (r *ReconciliationRecord) RecomputeFlags() {
	r.RequiresReview = r.MatchStatus.IsMismatch() ||
		!r.WithinTolerance ||
		(r.TotalLineCount > 0 && r.MatchedLineCount == 0)

	r.IsException = r.MatchStatus == models.MatchStatusNoGRNFound ||
		r.TotalVariancePc.GreaterThan(headerExceptionPercent)
}

// ItemReconciliationRecord is the line-level outcome of matching one
// invoice line item against receipt lines within a batch.
type ItemReconciliationRecord struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	BatchID string `json:"batch_id" gorm:"uniqueIndex:idx_item_recon_line_batch"`

	LineItemID uint `json:"line_item_id" gorm:"uniqueIndex:idx_item_recon_line_batch"`
	InvoiceID  uint `json:"invoice_id" gorm:"index"`

	PONumber    string `json:"po_number"`
	HSNCode     string `json:"hsn_code"`
	Description string `json:"description"`

	// Receipt side, nil when nothing matched
	MatchedReceiptLineID *uint `json:"matched_receipt_line_id"`

	MatchScore    int     `json:"match_score"`
	MatchStrategy string  `json:"match_strategy"`
	Similarity    float64 `json:"similarity"`

	// MatchStatus holds the comma-joined mismatch tags or "perfect_match"
	MatchStatus   string                    `json:"match_status"`
	OverallStatus models.OverallMatchStatus `json:"overall_status" gorm:"index"`

	InvoiceQty  decimal.Decimal `json:"invoice_qty" gorm:"type:decimal(15,4)"`
	ReceivedQty decimal.Decimal `json:"received_qty" gorm:"type:decimal(15,4)"`
	QtyVariance decimal.Decimal `json:"qty_variance" gorm:"type:decimal(15,4)"`

	InvoiceUnitPrice decimal.Decimal `json:"invoice_unit_price" gorm:"type:decimal(15,4)"`
	ReceiptUnitPrice decimal.Decimal `json:"receipt_unit_price" gorm:"type:decimal(15,4)"`
	PriceVariance    decimal.Decimal `json:"price_variance" gorm:"type:decimal(15,4)"`

	InvoiceSubtotal    decimal.Decimal `json:"invoice_subtotal" gorm:"type:decimal(15,2)"`
	ReceiptSubtotal    decimal.Decimal `json:"receipt_subtotal" gorm:"type:decimal(15,2)"`
	SubtotalVariance   decimal.Decimal `json:"subtotal_variance" gorm:"type:decimal(15,2)"`
	SubtotalVariancePc decimal.Decimal `json:"subtotal_variance_pct" gorm:"type:decimal(8,4);column:subtotal_variance_pct"`

	WithinTolerance bool `json:"within_tolerance"`

	// Derived flag, recomputed on every save
	IsException bool `json:"is_exception" gorm:"index"`

	ManualMatch bool `json:"manual_match"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecomputeFlags derives the exception flag. A line that found no receipt
// counterpart at all is always an exception, as is one whose subtotal
// variance is past the line threshold.
func (r *ItemReconciliationRecord) RecomputeFlags() {
	r.IsException = r.MatchStatus == string(models.MatchStatusNoGRNFound) ||
		r.SubtotalVariancePc.GreaterThan(lineExceptionPercent)
}

// ReconciliationBatch tracks one reconciliation run and the configuration
// it was frozen with
type ReconciliationBatch struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	BatchID string `json:"batch_id" gorm:"uniqueIndex"`

	Status models.BatchStatus `json:"status" gorm:"index"`

	// Frozen configuration
	TolerancePercent  float64 `json:"tolerance_percent"`
	DateToleranceDays int     `json:"date_tolerance_days"`
	ChunkSize         int     `json:"chunk_size"`
	SkipLineItems     bool    `json:"skip_line_items"`

	TotalInvoices  int `json:"total_invoices"`
	ProcessedCount int `json:"processed_count"`
	MatchedCount   int `json:"matched_count"`
	UnmatchedCount int `json:"unmatched_count"`
	ErrorCount     int `json:"error_count"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Notes string `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence boundary for reconciliation. Implementations
// must recompute derived flags on every record save.
type Store interface {
	// Input documents
	SaveInvoices(ctx context.Context, invoices []*models.Invoice) error
	SaveReceipts(ctx context.Context, receipts []*models.GoodsReceiptSummary) error
	SaveReceiptLines(ctx context.Context, lines []*models.GoodsReceiptLineItem) error
	ListEligibleInvoices(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, error)
	ListReceipts(ctx context.Context) ([]*models.GoodsReceiptSummary, error)
	ListReceiptLines(ctx context.Context) ([]*models.GoodsReceiptLineItem, error)
	SetInvoiceMatched(ctx context.Context, invoiceID uint, matched bool) error
	SetReceiptStatus(ctx context.Context, receiptID uint, status models.ReceiptReconStatus) error

	// Header records
	SaveRecord(ctx context.Context, record *ReconciliationRecord) error
	GetRecord(ctx context.Context, invoiceID uint, poNumber string) (*ReconciliationRecord, error)
	ListRecordsByBatch(ctx context.Context, batchID string) ([]*ReconciliationRecord, error)
	ListRecordsByReceipt(ctx context.Context, receiptID uint) ([]*ReconciliationRecord, error)

	// Line item records
	SaveItemRecord(ctx context.Context, record *ItemReconciliationRecord) error
	GetItemRecord(ctx context.Context, lineItemID uint, batchID string) (*ItemReconciliationRecord, error)
	ListItemRecords(ctx context.Context, invoiceID uint, batchID string) ([]*ItemReconciliationRecord, error)

	// Batches
	CreateBatch(ctx context.Context, batch *ReconciliationBatch) error
	GetBatch(ctx context.Context, batchID string) (*ReconciliationBatch, error)
	UpdateBatchCounts(ctx context.Context, batch *ReconciliationBatch) error
	FinishBatch(ctx context.Context, batchID string, status models.BatchStatus, note string) error

	Close() error
}

// InvoiceFilter narrows which invoices a batch run will process
type InvoiceFilter struct {
	// IDs restricts the run to specific invoices when non-empty
	IDs []uint

	// IncludeMatched reprocesses invoices already flagged as matched
	IncludeMatched bool

	// IncludeExtractionFailed includes invoices whose extraction failed
	IncludeExtractionFailed bool

	// IncludeDuplicates includes invoices flagged as duplicates
	IncludeDuplicates bool
}
