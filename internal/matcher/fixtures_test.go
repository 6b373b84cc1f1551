package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/models"
)

// Shared fixtures for matcher tests. Amounts follow a simple scheme:
// subtotal 1000, CGST and SGST 90 each, total 1180.

func testInvoice() *models.Invoice {
	return &models.Invoice{
		ID:             1,
		PONumber:       "PO-1001",
		InvoiceNumber:  "INV-2024-001",
		GRNNumber:      "GRN-5001",
		VendorName:     "Acme Industrial Supplies",
		VendorTaxID:    "29ABCDE1234F1Z5",
		InvoiceDate:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		SubtotalAmount: d("1000.00"),
		CGSTAmount:     d("90.00"),
		SGSTAmount:     d("90.00"),
		IGSTAmount:     decimal.Zero,
		TotalAmount:    d("1180.00"),
	}
}

func testReceipt() *models.GoodsReceiptSummary {
	return &models.GoodsReceiptSummary{
		ID:                  1,
		PONumber:            "PO-1001",
		GRNNumber:           "GRN-5001",
		SellerInvoiceNumber: "INV-2024-001",
		VendorName:          "Acme Industrial Supplies",
		VendorTaxID:         "29ABCDE1234F1Z5",
		ReceiptDate:         time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		SubtotalAmount:      d("1000.00"),
		CGSTAmount:          d("90.00"),
		SGSTAmount:          d("90.00"),
		IGSTAmount:          decimal.Zero,
		TotalAmount:         d("1180.00"),
	}
}

func testInvoiceLine() *models.InvoiceLineItem {
	return &models.InvoiceLineItem{
		ID:            1,
		InvoiceID:     1,
		Sequence:      1,
		PONumber:      "PO-1001",
		InvoiceNumber: "INV-2024-001",
		Description:   "Steel Rod 12mm",
		HSNCode:       "72142000",
		Unit:          "KG",
		Quantity:      d("100"),
		UnitPrice:     d("10.00"),
		Subtotal:      d("1000.00"),
		CGSTRate:      d("9.0"),
		SGSTRate:      d("9.0"),
		LineTotal:     d("1180.00"),
	}
}

func testReceiptLine() *models.GoodsReceiptLineItem {
	return &models.GoodsReceiptLineItem{
		ID:                  1,
		PONumber:            "PO-1001",
		GRNNumber:           "GRN-5001",
		SellerInvoiceNumber: "INV-2024-001",
		Sequence:            1,
		Description:         "Steel Rod 12mm",
		HSNCode:             "72142000",
		Unit:                "KG",
		ReceivedQty:         d("100"),
		UnitPrice:           d("10.00"),
		Subtotal:            d("1000.00"),
		CGSTRate:            d("9.0"),
		SGSTRate:            d("9.0"),
		LineTotal:           d("1180.00"),
	}
}
