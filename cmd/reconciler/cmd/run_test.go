package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"invoice-grn-reconciliation/internal/models"
	apperrors "invoice-grn-reconciliation/pkg/errors"
)

func TestValidateFileExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "invoices.csv")
	if err := os.WriteFile(existing, []byte("id,invoice_number,total_amount\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		wantCode apperrors.ErrorCode
	}{
		{name: "existing file", path: existing},
		{name: "empty path", path: "", wantCode: apperrors.CodeMissingConfig},
		{name: "missing file", path: filepath.Join(dir, "nope.csv"), wantCode: apperrors.CodeFileNotFound},
		{name: "directory", path: dir, wantCode: apperrors.CodeFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists("--invoices", tt.path)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("validateFileExists() error = %v", err)
				}
				return
			}
			reconcilerErr, ok := apperrors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("expected ReconcilerError, got %v", err)
			}
			if reconcilerErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", reconcilerErr.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateRunFlagsToleranceBounds(t *testing.T) {
	dir := t.TempDir()
	csvFile := filepath.Join(dir, "input.csv")
	if err := os.WriteFile(csvFile, []byte("id\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	restore := func(invoices, grns string, tolerance float64, dateTolerance int) {
		runInvoicesFile = invoices
		runGRNsFile = grns
		runTolerance = tolerance
		runDateTolerance = dateTolerance
	}
	t.Cleanup(func() { restore("", "", -1, -1) })

	restore(csvFile, csvFile, 75, -1)
	if err := validateRunFlags(runCmd, nil); err == nil {
		t.Error("expected error for tolerance above 50")
	}

	restore(csvFile, csvFile, -1, 400)
	if err := validateRunFlags(runCmd, nil); err == nil {
		t.Error("expected error for date tolerance above 365")
	}

	restore(csvFile, csvFile, 10, 30)
	if err := validateRunFlags(runCmd, nil); err != nil {
		t.Errorf("validateRunFlags() error = %v", err)
	}
}

func TestAttachInvoiceLines(t *testing.T) {
	invoices := []*models.Invoice{
		{ID: 1, PONumber: "PO-1001", InvoiceNumber: "INV-001"},
		{ID: 2, PONumber: "PO-1002", InvoiceNumber: "INV-002"},
	}
	lines := []*models.InvoiceLineItem{
		{ID: 10, InvoiceID: 1, Description: "Steel Rod 12mm"},
		{ID: 11, InvoiceID: 1, Description: "Hex Bolt M8"},
		{ID: 12, InvoiceID: 3, Description: "Orphan line"},
	}

	attachInvoiceLines(invoices, lines)

	if got := len(invoices[0].LineItems); got != 2 {
		t.Errorf("invoice 1 has %d lines, want 2", got)
	}
	if got := len(invoices[1].LineItems); got != 0 {
		t.Errorf("invoice 2 has %d lines, want 0", got)
	}
	if invoices[0].LineItems[0].Description != "Steel Rod 12mm" {
		t.Errorf("unexpected first line: %s", invoices[0].LineItems[0].Description)
	}
}

func TestAttachInvoiceLinesNoLines(t *testing.T) {
	invoices := []*models.Invoice{{ID: 1, PONumber: "PO-1001"}}
	attachInvoiceLines(invoices, nil)
	if invoices[0].LineItems != nil {
		t.Errorf("expected nil LineItems, got %v", invoices[0].LineItems)
	}
}
