package store

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"invoice-grn-reconciliation/internal/models"
	apperrors "invoice-grn-reconciliation/pkg/errors"
)

// GormStore implements Store on a gorm-managed SQLite database
type GormStore struct {
	db *gorm.DB
}

// Open opens the database at the given DSN and migrates the schema.
// Use ":memory:" for an ephemeral database.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "database", err)
	}

	err = db.AutoMigrate(
		&models.Invoice{},
		&models.InvoiceLineItem{},
		&models.GoodsReceiptSummary{},
		&models.GoodsReceiptLineItem{},
		&ReconciliationRecord{},
		&ItemReconciliationRecord{},
		&ReconciliationBatch{},
	)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "schema migration", err)
	}

	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveInvoices upserts invoices and their line items by primary key
func (s *GormStore) SaveInvoices(ctx context.Context, invoices []*models.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(invoices).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "invoices", err)
	}
	return nil
}

// SaveReceipts upserts goods receipt summaries by primary key
func (s *GormStore) SaveReceipts(ctx context.Context, receipts []*models.GoodsReceiptSummary) error {
	if len(receipts) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(receipts).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "goods receipts", err)
	}
	return nil
}

// SaveReceiptLines upserts goods receipt line items by primary key
func (s *GormStore) SaveReceiptLines(ctx context.Context, lines []*models.GoodsReceiptLineItem) error {
	if len(lines) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(lines).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "goods receipt lines", err)
	}
	return nil
}

// ListEligibleInvoices returns invoices the filter admits, with their
// line items preloaded
func (s *GormStore) ListEligibleInvoices(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, error) {
	query := s.db.WithContext(ctx).Preload("LineItems").Order("id")

	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if !filter.IncludeMatched {
		query = query.Where("matched = ?", false)
	}
	if !filter.IncludeExtractionFailed {
		query = query.Where("extraction_failed = ?", false)
	}
	if !filter.IncludeDuplicates {
		query = query.Where("duplicate_flagged = ?", false)
	}

	var invoices []*models.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "invoices", err)
	}
	return invoices, nil
}

// ListReceipts returns all goods receipt summaries
func (s *GormStore) ListReceipts(ctx context.Context) ([]*models.GoodsReceiptSummary, error) {
	var receipts []*models.GoodsReceiptSummary
	if err := s.db.WithContext(ctx).Order("id").Find(&receipts).Error; err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "goods receipts", err)
	}
	return receipts, nil
}

// ListReceiptLines returns all goods receipt line items
func (s *GormStore) ListReceiptLines(ctx context.Context) ([]*models.GoodsReceiptLineItem, error) {
	var lines []*models.GoodsReceiptLineItem
	if err := s.db.WithContext(ctx).Order("id").Find(&lines).Error; err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "goods receipt lines", err)
	}
	return lines, nil
}

// SetInvoiceMatched updates the matched flag on an invoice
func (s *GormStore) SetInvoiceMatched(ctx context.Context, invoiceID uint, matched bool) error {
	err := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("matched", matched).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "invoice", err)
	}
	return nil
}

// SetReceiptStatus updates the reconciliation status on a goods receipt
func (s *GormStore) SetReceiptStatus(ctx context.Context, receiptID uint, status models.ReceiptReconStatus) error {
	err := s.db.WithContext(ctx).
		Model(&models.GoodsReceiptSummary{}).
		Where("id = ?", receiptID).
		Updates(map[string]interface{}{
			"reconciliation_status": status,
			"is_reconciled":         status == models.ReceiptStatusMatched,
		}).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "goods receipt", err)
	}
	return nil
}

// SaveRecord upserts a header record keyed on invoice and PO, recomputing
// the derived flags first
func (s *GormStore) SaveRecord(ctx context.Context, record *ReconciliationRecord) error {
	record.RecomputeFlags()

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_id"}, {Name: "po_number"}},
			DoUpdates: clause.AssignmentColumns(recordUpdateColumns),
		}).
		Create(record).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeConstraintConflict, "reconciliation record", err)
	}
	return nil
}

// recordUpdateColumns lists every column refreshed when a header record
// is reconciled again. The creation timestamp is deliberately absent.
var recordUpdateColumns = []string{
	"batch_id", "invoice_number", "vendor_name", "invoice_date",
	"matched_receipt_id", "matched_grn_number",
	"match_status", "match_score", "match_strategy",
	"invoice_total", "receipt_total", "total_variance", "total_variance_pct",
	"invoice_subtotal", "receipt_subtotal", "subtotal_variance",
	"cgst_variance", "sgst_variance", "igst_variance",
	"within_tolerance", "date_valid", "vendor_matched",
	"matched_line_count", "total_line_count", "overall_status",
	"requires_review", "is_exception",
	"manual_match", "is_auto_matched", "notes", "updated_at",
}

// GetRecord fetches the header record for an invoice and PO
func (s *GormStore) GetRecord(ctx context.Context, invoiceID uint, poNumber string) (*ReconciliationRecord, error) {
	var record ReconciliationRecord
	err := s.db.WithContext(ctx).
		Where("invoice_id = ? AND po_number = ?", invoiceID, poNumber).
		First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "reconciliation record", err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "reconciliation record", err)
	}
	return &record, nil
}

// ListRecordsByBatch returns all header records written by a batch
func (s *GormStore) ListRecordsByBatch(ctx context.Context, batchID string) ([]*ReconciliationRecord, error) {
	var records []*ReconciliationRecord
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "reconciliation records", err)
	}
	return records, nil
}

// ListRecordsByReceipt returns every header record linked to a receipt,
// across batches. Used to aggregate the receipt's reconciliation status
// over all of its invoices.
func (s *GormStore) ListRecordsByReceipt(ctx context.Context, receiptID uint) ([]*ReconciliationRecord, error) {
	var records []*ReconciliationRecord
	err := s.db.WithContext(ctx).
		Where("matched_receipt_id = ?", receiptID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "reconciliation records", err)
	}
	return records, nil
}

// SaveItemRecord upserts a line record keyed on line item and batch,
// recomputing the derived flag first
func (s *GormStore) SaveItemRecord(ctx context.Context, record *ItemReconciliationRecord) error {
	record.RecomputeFlags()

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "line_item_id"}, {Name: "batch_id"}},
			DoUpdates: clause.AssignmentColumns(itemRecordUpdateColumns),
		}).
		Create(record).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeConstraintConflict, "item reconciliation record", err)
	}
	return nil
}

var itemRecordUpdateColumns = []string{
	"invoice_id", "po_number", "hsn_code", "description",
	"matched_receipt_line_id",
	"match_score", "match_strategy", "similarity",
	"match_status", "overall_status",
	"invoice_qty", "received_qty", "qty_variance",
	"invoice_unit_price", "receipt_unit_price", "price_variance",
	"invoice_subtotal", "receipt_subtotal", "subtotal_variance", "subtotal_variance_pct",
	"within_tolerance", "is_exception", "manual_match", "updated_at",
}

// GetItemRecord fetches the line record for a line item within a batch
func (s *GormStore) GetItemRecord(ctx context.Context, lineItemID uint, batchID string) (*ItemReconciliationRecord, error) {
	var record ItemReconciliationRecord
	err := s.db.WithContext(ctx).
		Where("line_item_id = ? AND batch_id = ?", lineItemID, batchID).
		First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "item reconciliation record", err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "item reconciliation record", err)
	}
	return &record, nil
}

// ListItemRecords returns line records for an invoice within a batch
func (s *GormStore) ListItemRecords(ctx context.Context, invoiceID uint, batchID string) ([]*ItemReconciliationRecord, error) {
	var records []*ItemReconciliationRecord
	err := s.db.WithContext(ctx).
		Where("invoice_id = ? AND batch_id = ?", invoiceID, batchID).
		Order("line_item_id").
		Find(&records).Error
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "item reconciliation records", err)
	}
	return records, nil
}

// CreateBatch inserts a new batch in the running state
func (s *GormStore) CreateBatch(ctx context.Context, batch *ReconciliationBatch) error {
	if batch.Status == "" {
		batch.Status = models.BatchStatusRunning
	}
	if batch.StartedAt.IsZero() {
		batch.StartedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(batch).Error; err != nil {
		return apperrors.StorageError(apperrors.CodeConstraintConflict, "reconciliation batch", err)
	}
	return nil
}

// GetBatch fetches a batch by its external id
func (s *GormStore) GetBatch(ctx context.Context, batchID string) (*ReconciliationBatch, error) {
	var batch ReconciliationBatch
	err := s.db.WithContext(ctx).Where("batch_id = ?", batchID).First(&batch).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "reconciliation batch", err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "reconciliation batch", err)
	}
	return &batch, nil
}

// UpdateBatchCounts persists the progress counters of a running batch
func (s *GormStore) UpdateBatchCounts(ctx context.Context, batch *ReconciliationBatch) error {
	err := s.db.WithContext(ctx).
		Model(&ReconciliationBatch{}).
		Where("batch_id = ?", batch.BatchID).
		Updates(map[string]interface{}{
			"total_invoices":  batch.TotalInvoices,
			"processed_count": batch.ProcessedCount,
			"matched_count":   batch.MatchedCount,
			"unmatched_count": batch.UnmatchedCount,
			"error_count":     batch.ErrorCount,
		}).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "reconciliation batch", err)
	}
	return nil
}

// FinishBatch moves a running batch into a terminal state. A batch that
// has already left the running state stays as it is.
func (s *GormStore) FinishBatch(ctx context.Context, batchID string, status models.BatchStatus, note string) error {
	if !status.IsTerminal() {
		return apperrors.ReconciliationError(apperrors.CodeBatchNotRunning, "finish batch", nil).
			WithContext("status", string(status))
	}

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(&ReconciliationBatch{}).
		Where("batch_id = ? AND status = ?", batchID, models.BatchStatusRunning).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": &now,
			"notes":        note,
		})
	if result.Error != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "reconciliation batch", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ReconciliationError(apperrors.CodeBatchNotRunning, "finish batch", nil).
			WithContext("batch_id", batchID)
	}
	return nil
}
