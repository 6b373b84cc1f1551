package loader

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/pkg/errors"
	"invoice-grn-reconciliation/pkg/logger"
)

// ReceiptLoader reads goods-receipt summaries and receipt line items
// from CSV files.
type ReceiptLoader struct {
	*baseLoader
	config *LoaderConfig
}

// NewReceiptLoader creates a ReceiptLoader. A nil config means the
// canonical column names and a standard comma-separated file.
func NewReceiptLoader(config *LoaderConfig) (*ReceiptLoader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "receipt_loader_config", config, err)
	}
	return &ReceiptLoader{
		baseLoader: newBaseLoader(config.File, "receipt_loader"),
		config:     config,
	}, nil
}

// LoadReceipts reads goods-receipt summaries from a CSV file.
func (rl *ReceiptLoader) LoadReceipts(path string) ([]*models.GoodsReceiptSummary, *LoadStats, error) {
	return rl.LoadReceiptsWithContext(context.Background(), path)
}

// LoadReceiptsWithContext reads goods-receipt summaries with
// cancellation support. Rows that fail to parse or validate are
// skipped and recorded in the stats.
func (rl *ReceiptLoader) LoadReceiptsWithContext(ctx context.Context, path string) ([]*models.GoodsReceiptSummary, *LoadStats, error) {
	rl.logger.WithField("file_path", path).Info("Loading goods receipts")

	file, reader, err := rl.openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	lctx := newLoadContext(ctx)
	stats := newLoadStats()

	required := []string{
		rl.config.ColumnName(ColInvoiceID),
		rl.config.ColumnName(ColGRNNumber),
		rl.config.ColumnName(ColTotalAmount),
	}
	if err := rl.readHeaders(reader, lctx, required); err != nil {
		return nil, stats, err
	}

	var receipts []*models.GoodsReceiptSummary
	for {
		record, err := rl.readRecord(reader, lctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if errors.IsReconcilerError(err) {
				return receipts, stats, err
			}
			stats.AddError(&RowError{Line: lctx.LineNumber, Message: "failed to read record", Err: err})
			continue
		}
		stats.RecordsRead++

		receipt, rowErr := rl.parseReceipt(record, lctx)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}
		if err := receipt.Validate(); err != nil {
			stats.AddError(&RowError{Line: lctx.LineNumber, Message: "receipt validation failed", Err: err})
			continue
		}

		receipts = append(receipts, receipt)
		stats.RecordsValid++
	}
	stats.TotalLines = lctx.LineNumber

	rl.logger.WithFields(logger.Fields{
		"file_path":     path,
		"records_read":  stats.RecordsRead,
		"records_valid": stats.RecordsValid,
		"error_count":   len(stats.Errors),
	}).Info("Goods receipt loading completed")
	if stats.HasErrors() {
		rl.logger.WithField("sample_errors", stats.SampleErrors(3)).Warn("Some receipt rows were skipped")
	}

	return receipts, stats, nil
}

func (rl *ReceiptLoader) parseReceipt(record []string, lctx *loadContext) (*models.GoodsReceiptSummary, *RowError) {
	col := rl.config.ColumnName

	id, err := parseUint(lctx.fieldValue(record, col(ColInvoiceID)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColInvoiceID, lctx.fieldValue(record, col(ColInvoiceID)), err)
	}

	receiptDate, err := parseDate(lctx.fieldValue(record, col(ColReceiptDate)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColReceiptDate, lctx.fieldValue(record, col(ColReceiptDate)), err)
	}

	itemCount, err := parseInt(lctx.fieldValue(record, col(ColItemCount)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColItemCount, lctx.fieldValue(record, col(ColItemCount)), err)
	}

	receipt := &models.GoodsReceiptSummary{
		ID:                   id,
		PONumber:             lctx.fieldValue(record, col(ColPONumber)),
		GRNNumber:            lctx.fieldValue(record, col(ColGRNNumber)),
		SellerInvoiceNumber:  lctx.fieldValue(record, col(ColSellerInvoice)),
		VendorName:           lctx.fieldValue(record, col(ColVendorName)),
		VendorTaxID:          lctx.fieldValue(record, col(ColVendorTaxID)),
		ReceiptDate:          receiptDate,
		ItemCount:            itemCount,
		ReconciliationStatus: models.ReceiptStatusPending,
	}

	amounts := []struct {
		column string
		target *decimal.Decimal
	}{
		{ColSubtotalAmount, &receipt.SubtotalAmount},
		{ColCGSTAmount, &receipt.CGSTAmount},
		{ColSGSTAmount, &receipt.SGSTAmount},
		{ColIGSTAmount, &receipt.IGSTAmount},
		{ColTotalAmount, &receipt.TotalAmount},
	}
	for _, am := range amounts {
		value := lctx.fieldValue(record, col(am.column))
		parsed, err := parseAmount(value)
		if err != nil {
			return nil, rowError(lctx.LineNumber, am.column, value, err)
		}
		*am.target = parsed
	}

	return receipt, nil
}

// LoadReceiptLines reads goods-receipt line items from a CSV file.
func (rl *ReceiptLoader) LoadReceiptLines(path string) ([]*models.GoodsReceiptLineItem, *LoadStats, error) {
	return rl.LoadReceiptLinesWithContext(context.Background(), path)
}

// LoadReceiptLinesWithContext reads goods-receipt line items with
// cancellation support.
func (rl *ReceiptLoader) LoadReceiptLinesWithContext(ctx context.Context, path string) ([]*models.GoodsReceiptLineItem, *LoadStats, error) {
	rl.logger.WithField("file_path", path).Info("Loading goods receipt line items")

	file, reader, err := rl.openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	lctx := newLoadContext(ctx)
	stats := newLoadStats()

	required := []string{
		rl.config.ColumnName(ColInvoiceID),
		rl.config.ColumnName(ColPONumber),
		rl.config.ColumnName(ColDescription),
	}
	if err := rl.readHeaders(reader, lctx, required); err != nil {
		return nil, stats, err
	}

	var lines []*models.GoodsReceiptLineItem
	for {
		record, err := rl.readRecord(reader, lctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if errors.IsReconcilerError(err) {
				return lines, stats, err
			}
			stats.AddError(&RowError{Line: lctx.LineNumber, Message: "failed to read record", Err: err})
			continue
		}
		stats.RecordsRead++

		line, rowErr := rl.parseReceiptLine(record, lctx)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}

		lines = append(lines, line)
		stats.RecordsValid++
	}
	stats.TotalLines = lctx.LineNumber

	rl.logger.WithFields(logger.Fields{
		"file_path":     path,
		"records_read":  stats.RecordsRead,
		"records_valid": stats.RecordsValid,
		"error_count":   len(stats.Errors),
	}).Info("Goods receipt line loading completed")

	return lines, stats, nil
}

func (rl *ReceiptLoader) parseReceiptLine(record []string, lctx *loadContext) (*models.GoodsReceiptLineItem, *RowError) {
	col := rl.config.ColumnName

	id, err := parseUint(lctx.fieldValue(record, col(ColInvoiceID)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColInvoiceID, lctx.fieldValue(record, col(ColInvoiceID)), err)
	}
	sequence, err := parseInt(lctx.fieldValue(record, col(ColSequence)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColSequence, lctx.fieldValue(record, col(ColSequence)), err)
	}

	line := &models.GoodsReceiptLineItem{
		ID:                  id,
		PONumber:            lctx.fieldValue(record, col(ColPONumber)),
		GRNNumber:           lctx.fieldValue(record, col(ColGRNNumber)),
		SellerInvoiceNumber: lctx.fieldValue(record, col(ColSellerInvoice)),
		Sequence:            sequence,
		Description:         lctx.fieldValue(record, col(ColDescription)),
		HSNCode:             lctx.fieldValue(record, col(ColHSNCode)),
		Unit:                lctx.fieldValue(record, col(ColUnit)),
	}

	amounts := []struct {
		column string
		target *decimal.Decimal
	}{
		{ColReceivedQty, &line.ReceivedQty},
		{ColUnitPrice, &line.UnitPrice},
		{ColSubtotal, &line.Subtotal},
		{ColCGSTRate, &line.CGSTRate},
		{ColCGSTAmount, &line.CGSTAmount},
		{ColSGSTRate, &line.SGSTRate},
		{ColSGSTAmount, &line.SGSTAmount},
		{ColIGSTRate, &line.IGSTRate},
		{ColIGSTAmount, &line.IGSTAmount},
		{ColLineTotal, &line.LineTotal},
	}
	for _, am := range amounts {
		value := lctx.fieldValue(record, col(am.column))
		parsed, err := parseAmount(value)
		if err != nil {
			return nil, rowError(lctx.LineNumber, am.column, value, err)
		}
		*am.target = parsed
	}

	return line, nil
}
