package loader

import (
	"fmt"
	"strings"
)

// Canonical column names for the invoice header file.
const (
	ColInvoiceID        = "id"
	ColPONumber         = "po_number"
	ColInvoiceNumber    = "invoice_number"
	ColGRNNumber        = "grn_number"
	ColVendorName       = "vendor_name"
	ColVendorTaxID      = "vendor_tax_id"
	ColInvoiceDate      = "invoice_date"
	ColReceiptDate      = "receipt_date"
	ColSubtotalAmount   = "subtotal_amount"
	ColCGSTAmount       = "cgst_amount"
	ColSGSTAmount       = "sgst_amount"
	ColIGSTAmount       = "igst_amount"
	ColTotalAmount      = "total_amount"
	ColDuplicateFlagged = "duplicate_flagged"
	ColExtractionFailed = "extraction_failed"
	ColSellerInvoice    = "seller_invoice_number"
	ColItemCount        = "item_count"
)

// Canonical column names for the line item files.
const (
	ColLineInvoiceID = "invoice_id"
	ColSequence      = "sequence"
	ColDescription   = "description"
	ColHSNCode       = "hsn_code"
	ColUnit          = "unit"
	ColQuantity      = "quantity"
	ColReceivedQty   = "received_qty"
	ColUnitPrice     = "unit_price"
	ColSubtotal      = "subtotal"
	ColCGSTRate      = "cgst_rate"
	ColSGSTRate      = "sgst_rate"
	ColIGSTRate      = "igst_rate"
	ColLineTotal     = "line_total"
)

// LoaderConfig describes how one input file maps onto a canonical
// column set. ColumnAliases remaps canonical names onto whatever the
// upstream export actually calls them.
type LoaderConfig struct {
	File          *FileConfig       `json:"file"`
	ColumnAliases map[string]string `json:"column_aliases,omitempty"`
}

// DefaultLoaderConfig returns a config for files that already use the
// canonical column names.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		File:          DefaultFileConfig(),
		ColumnAliases: make(map[string]string),
	}
}

// Validate checks the config shape.
func (c *LoaderConfig) Validate() error {
	if c.File == nil {
		return fmt.Errorf("file config cannot be nil")
	}
	if c.File.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	for canonical, alias := range c.ColumnAliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("alias for column %q cannot be empty", canonical)
		}
	}
	return nil
}

// ColumnName resolves a canonical column name through the alias map.
func (c *LoaderConfig) ColumnName(canonical string) string {
	if alias, ok := c.ColumnAliases[canonical]; ok {
		return alias
	}
	return canonical
}
