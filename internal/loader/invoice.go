package loader

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/pkg/errors"
	"invoice-grn-reconciliation/pkg/logger"
)

// InvoiceLoader reads supplier invoice headers and invoice line items
// from CSV files.
type InvoiceLoader struct {
	*baseLoader
	config *LoaderConfig
}

// NewInvoiceLoader creates an InvoiceLoader. A nil config means the
// canonical column names and a standard comma-separated file.
func NewInvoiceLoader(config *LoaderConfig) (*InvoiceLoader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "invoice_loader_config", config, err)
	}
	return &InvoiceLoader{
		baseLoader: newBaseLoader(config.File, "invoice_loader"),
		config:     config,
	}, nil
}

// LoadInvoices reads invoice headers from a CSV file.
func (il *InvoiceLoader) LoadInvoices(path string) ([]*models.Invoice, *LoadStats, error) {
	return il.LoadInvoicesWithContext(context.Background(), path)
}

// LoadInvoicesWithContext reads invoice headers with cancellation
// support. Rows that fail to parse or validate are skipped and
// recorded in the stats.
func (il *InvoiceLoader) LoadInvoicesWithContext(ctx context.Context, path string) ([]*models.Invoice, *LoadStats, error) {
	il.logger.WithField("file_path", path).Info("Loading invoices")

	file, reader, err := il.openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	lctx := newLoadContext(ctx)
	stats := newLoadStats()

	required := []string{
		il.config.ColumnName(ColInvoiceID),
		il.config.ColumnName(ColInvoiceNumber),
		il.config.ColumnName(ColTotalAmount),
	}
	if err := il.readHeaders(reader, lctx, required); err != nil {
		return nil, stats, err
	}

	var invoices []*models.Invoice
	for {
		record, err := il.readRecord(reader, lctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if errors.IsReconcilerError(err) {
				return invoices, stats, err
			}
			stats.AddError(&RowError{Line: lctx.LineNumber, Message: "failed to read record", Err: err})
			continue
		}
		stats.RecordsRead++

		invoice, rowErr := il.parseInvoice(record, lctx)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}
		if err := invoice.Validate(); err != nil {
			stats.AddError(&RowError{Line: lctx.LineNumber, Message: "invoice validation failed", Err: err})
			continue
		}

		invoices = append(invoices, invoice)
		stats.RecordsValid++
	}
	stats.TotalLines = lctx.LineNumber

	il.logger.WithFields(logger.Fields{
		"file_path":     path,
		"records_read":  stats.RecordsRead,
		"records_valid": stats.RecordsValid,
		"error_count":   len(stats.Errors),
	}).Info("Invoice loading completed")
	if stats.HasErrors() {
		il.logger.WithField("sample_errors", stats.SampleErrors(3)).Warn("Some invoice rows were skipped")
	}

	return invoices, stats, nil
}

func (il *InvoiceLoader) parseInvoice(record []string, lctx *loadContext) (*models.Invoice, *RowError) {
	col := il.config.ColumnName

	id, err := parseUint(lctx.fieldValue(record, col(ColInvoiceID)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColInvoiceID, lctx.fieldValue(record, col(ColInvoiceID)), err)
	}

	invoiceDate, err := parseDate(lctx.fieldValue(record, col(ColInvoiceDate)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColInvoiceDate, lctx.fieldValue(record, col(ColInvoiceDate)), err)
	}

	invoice := &models.Invoice{
		ID:            id,
		PONumber:      lctx.fieldValue(record, col(ColPONumber)),
		InvoiceNumber: lctx.fieldValue(record, col(ColInvoiceNumber)),
		GRNNumber:     lctx.fieldValue(record, col(ColGRNNumber)),
		VendorName:    lctx.fieldValue(record, col(ColVendorName)),
		VendorTaxID:   lctx.fieldValue(record, col(ColVendorTaxID)),
		InvoiceDate:   invoiceDate,
	}

	amounts := []struct {
		column string
		target *decimal.Decimal
	}{
		{ColSubtotalAmount, &invoice.SubtotalAmount},
		{ColCGSTAmount, &invoice.CGSTAmount},
		{ColSGSTAmount, &invoice.SGSTAmount},
		{ColIGSTAmount, &invoice.IGSTAmount},
		{ColTotalAmount, &invoice.TotalAmount},
	}
	for _, am := range amounts {
		value := lctx.fieldValue(record, col(am.column))
		parsed, err := parseAmount(value)
		if err != nil {
			return nil, rowError(lctx.LineNumber, am.column, value, err)
		}
		*am.target = parsed
	}

	duplicate, err := parseBool(lctx.fieldValue(record, col(ColDuplicateFlagged)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColDuplicateFlagged, lctx.fieldValue(record, col(ColDuplicateFlagged)), err)
	}
	invoice.DuplicateFlagged = duplicate

	failed, err := parseBool(lctx.fieldValue(record, col(ColExtractionFailed)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColExtractionFailed, lctx.fieldValue(record, col(ColExtractionFailed)), err)
	}
	invoice.ExtractionFailed = failed

	return invoice, nil
}

// LoadInvoiceLines reads invoice line items from a CSV file.
func (il *InvoiceLoader) LoadInvoiceLines(path string) ([]*models.InvoiceLineItem, *LoadStats, error) {
	return il.LoadInvoiceLinesWithContext(context.Background(), path)
}

// LoadInvoiceLinesWithContext reads invoice line items with
// cancellation support.
func (il *InvoiceLoader) LoadInvoiceLinesWithContext(ctx context.Context, path string) ([]*models.InvoiceLineItem, *LoadStats, error) {
	il.logger.WithField("file_path", path).Info("Loading invoice line items")

	file, reader, err := il.openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	lctx := newLoadContext(ctx)
	stats := newLoadStats()

	required := []string{
		il.config.ColumnName(ColInvoiceID),
		il.config.ColumnName(ColLineInvoiceID),
		il.config.ColumnName(ColDescription),
	}
	if err := il.readHeaders(reader, lctx, required); err != nil {
		return nil, stats, err
	}

	var lines []*models.InvoiceLineItem
	for {
		record, err := il.readRecord(reader, lctx)
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

		line, rowErr := il.parseInvoiceLine(record, lctx)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}
		if err := line.Validate(); err != nil {
			stats.AddError(&RowError{Line: lctx.LineNumber, Message: "line item validation failed", Err: err})
			continue
		}

		lines = append(lines, line)
		stats.RecordsValid++
	}
	stats.TotalLines = lctx.LineNumber

	il.logger.WithFields(logger.Fields{
		"file_path":     path,
		"records_read":  stats.RecordsRead,
		"records_valid": stats.RecordsValid,
		"error_count":   len(stats.Errors),
	}).Info("Invoice line loading completed")

	return lines, stats, nil
}

func (il *InvoiceLoader) parseInvoiceLine(record []string, lctx *loadContext) (*models.InvoiceLineItem, *RowError) {
	col := il.config.ColumnName

	id, err := parseUint(lctx.fieldValue(record, col(ColInvoiceID)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColInvoiceID, lctx.fieldValue(record, col(ColInvoiceID)), err)
	}
	invoiceID, err := parseUint(lctx.fieldValue(record, col(ColLineInvoiceID)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColLineInvoiceID, lctx.fieldValue(record, col(ColLineInvoiceID)), err)
	}
	sequence, err := parseInt(lctx.fieldValue(record, col(ColSequence)))
	if err != nil {
		return nil, rowError(lctx.LineNumber, ColSequence, lctx.fieldValue(record, col(ColSequence)), err)
	}

	line := &models.InvoiceLineItem{
		ID:            id,
		InvoiceID:     invoiceID,
		Sequence:      sequence,
		PONumber:      lctx.fieldValue(record, col(ColPONumber)),
		InvoiceNumber: lctx.fieldValue(record, col(ColInvoiceNumber)),
		Description:   lctx.fieldValue(record, col(ColDescription)),
		HSNCode:       lctx.fieldValue(record, col(ColHSNCode)),
		Unit:          lctx.fieldValue(record, col(ColUnit)),
	}

	amounts := []struct {
		column string
		target *decimal.Decimal
	}{
		{ColQuantity, &line.Quantity},
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
