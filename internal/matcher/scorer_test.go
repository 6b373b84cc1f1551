package matcher

import (
	"strings"
	"testing"
	"time"

	"invoice-grn-reconciliation/internal/models"
)

func TestEvaluateHeaderPerfectMatch(t *testing.T) {
	eval := NewEvaluator(DefaultMatchingConfig()).EvaluateHeader(testInvoice(), testReceipt())

	if eval.Score != 100 {
		t.Errorf("expected score 100, got %d", eval.Score)
	}
	if eval.Status != models.MatchStatusPerfect {
		t.Errorf("expected perfect match, got %s", eval.Status)
	}
	if !eval.TotalVariance.WithinTolerance {
		t.Error("expected total variance within tolerance")
	}
	if !eval.TotalVariance.Amount.IsZero() {
		t.Errorf("expected zero variance, got %s", eval.TotalVariance.Amount)
	}
}

func TestEvaluateHeaderPartialMatchWithoutGRN(t *testing.T) {
	// No GRN on either side and the total off by 7 percent: PO 25,
	// invoice 20, vendor 15, date 10 and 5 tiered amount points give 75
	inv := testInvoice()
	inv.GRNNumber = ""
	inv.TotalAmount = d("1262.60")

	receipt := testReceipt()
	receipt.GRNNumber = ""

	eval := NewEvaluator(DefaultMatchingConfig()).EvaluateHeader(inv, receipt)

	if eval.Score != 75 {
		t.Errorf("expected score 75, got %d", eval.Score)
	}
	if eval.Status != models.MatchStatusPartial {
		t.Errorf("expected partial match, got %s", eval.Status)
	}
	if eval.GRNMatched {
		t.Error("expected empty GRN references not to match")
	}
}

func TestEvaluateHeaderMismatchPrecedence(t *testing.T) {
	base := func() (*models.Invoice, *models.GoodsReceiptSummary) {
		inv := testInvoice()
		inv.InvoiceNumber = "INV-DIFFERENT"
		inv.GRNNumber = "GRN-DIFFERENT"
		return inv, testReceipt()
	}

	t.Run("amount mismatch wins", func(t *testing.T) {
		inv, receipt := base()
		inv.VendorName = "Other Vendor"
		inv.VendorTaxID = "00OTHER0000A1Z1"
		inv.InvoiceDate = inv.InvoiceDate.AddDate(0, 6, 0)
		inv.TotalAmount = d("2000.00")

		eval := NewEvaluator(DefaultMatchingConfig()).EvaluateHeader(inv, receipt)
		if eval.Score >= partialMatchThreshold {
			t.Fatalf("expected score below partial threshold, got %d", eval.Score)
		}
		if eval.Status != models.MatchStatusAmountMismatch {
			t.Errorf("expected amount mismatch, got %s", eval.Status)
		}
	})

	t.Run("vendor mismatch when amount within tolerance", func(t *testing.T) {
		inv, receipt := base()
		inv.VendorName = "Other Vendor"
		inv.VendorTaxID = "00OTHER0000A1Z1"
		inv.InvoiceDate = inv.InvoiceDate.AddDate(0, 6, 0)

		eval := NewEvaluator(DefaultMatchingConfig()).EvaluateHeader(inv, receipt)
		if eval.Score >= partialMatchThreshold {
			t.Fatalf("expected score below partial threshold, got %d", eval.Score)
		}
		if eval.Status != models.MatchStatusVendorMismatch {
			t.Errorf("expected vendor mismatch, got %s", eval.Status)
		}
	})

	t.Run("date mismatch when amount and vendor pass", func(t *testing.T) {
		inv, receipt := base()
		inv.InvoiceDate = inv.InvoiceDate.AddDate(0, 6, 0)

		eval := NewEvaluator(DefaultMatchingConfig()).EvaluateHeader(inv, receipt)
		if eval.Score >= partialMatchThreshold {
			t.Fatalf("expected score below partial threshold, got %d", eval.Score)
		}
		if eval.Status != models.MatchStatusDateMismatch {
			t.Errorf("expected date mismatch, got %s", eval.Status)
		}
	})
}

func TestVendorMatching(t *testing.T) {
	tests := []struct {
		name          string
		invoiceVendor string
		receiptVendor string
		invoiceTaxID  string
		receiptTaxID  string
		expect        bool
	}{
		{"exact name", "Acme Supplies", "Acme Supplies", "", "", true},
		{"case insensitive name", "ACME SUPPLIES", "acme supplies", "", "", true},
		{"invoice name contains receipt name", "Acme Supplies Pvt Ltd", "Acme Supplies", "", "", true},
		{"receipt name contains invoice name", "Acme", "Acme Supplies", "", "", true},
		{"different names no tax id", "Acme Supplies", "Zenith Traders", "", "", false},
		{"different names same tax id", "Acme Supplies", "Zenith Traders", "29ABCDE1234F1Z5", "29ABCDE1234F1Z5", true},
		{"both names empty", "", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testInvoice()
			inv.VendorName = tt.invoiceVendor
			inv.VendorTaxID = tt.invoiceTaxID

			receipt := testReceipt()
			receipt.VendorName = tt.receiptVendor
			receipt.VendorTaxID = tt.receiptTaxID

			if got := vendorsMatch(inv, receipt); got != tt.expect {
				t.Errorf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestBestHeaderMatchKeepsFirstOnTie(t *testing.T) {
	first := testReceipt()
	second := testReceipt()
	second.ID = 2

	best := NewEvaluator(DefaultMatchingConfig()).BestHeaderMatch(
		testInvoice(), []*models.GoodsReceiptSummary{first, second})

	if best == nil {
		t.Fatal("expected a best match")
	}
	if best.Receipt.ID != 1 {
		t.Errorf("expected first candidate kept on tie, got receipt %d", best.Receipt.ID)
	}
}

func TestBestHeaderMatchPrefersHigherScore(t *testing.T) {
	weaker := testReceipt()
	weaker.GRNNumber = "GRN-OTHER"
	weaker.ReceiptDate = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	stronger := testReceipt()
	stronger.ID = 2

	best := NewEvaluator(DefaultMatchingConfig()).BestHeaderMatch(
		testInvoice(), []*models.GoodsReceiptSummary{weaker, stronger})

	if best == nil || best.Receipt.ID != 2 {
		t.Errorf("expected the higher scoring candidate, got %+v", best)
	}
}

func TestBestHeaderMatchNoCandidates(t *testing.T) {
	if best := NewEvaluator(nil).BestHeaderMatch(testInvoice(), nil); best != nil {
		t.Errorf("expected nil for no candidates, got %+v", best)
	}
}

func TestEvaluateLinePerfectMatch(t *testing.T) {
	eval := NewEvaluator(DefaultMatchingConfig()).EvaluateLine(testInvoiceLine(), testReceiptLine())

	if eval.Score != 115 {
		t.Errorf("expected full score 115, got %d", eval.Score)
	}
	if eval.MatchStatus != models.LineStatusPerfect {
		t.Errorf("expected perfect match status, got %s", eval.MatchStatus)
	}
	if eval.OverallStatus != models.OverallComplete {
		t.Errorf("expected complete match, got %s", eval.OverallStatus)
	}
	if eval.Similarity != 1.0 {
		t.Errorf("expected similarity 1.0, got %f", eval.Similarity)
	}
}

func TestEvaluateLineMismatchTagsOrdered(t *testing.T) {
	line := testInvoiceLine()
	line.HSNCode = "99999999"
	line.CGSTRate = d("12.0")
	line.Quantity = d("200")
	line.UnitPrice = d("20.00")
	line.Subtotal = d("4000.00")

	eval := NewEvaluator(DefaultMatchingConfig()).EvaluateLine(line, testReceiptLine())

	expected := strings.Join([]string{
		models.LineTagHSNMismatch,
		models.LineTagTaxRateMismatch,
		models.LineTagSubtotalMismatch,
		models.LineTagQuantityMismatch,
		models.LineTagPriceMismatch,
	}, ",")

	if eval.MatchStatus != expected {
		t.Errorf("expected tags %q, got %q", expected, eval.MatchStatus)
	}
	if eval.OverallStatus != models.OverallMismatch {
		t.Errorf("expected mismatch, got %s", eval.OverallStatus)
	}
}

func TestEvaluateLineConditionalMatch(t *testing.T) {
	// Core checks pass while quantity and price drift beyond tolerance
	// in offsetting directions, keeping the subtotal intact
	line := testInvoiceLine()
	line.Quantity = d("90")
	line.UnitPrice = d("11.12")
	line.Subtotal = d("1000.80")

	eval := NewEvaluator(DefaultMatchingConfig()).EvaluateLine(line, testReceiptLine())

	if eval.OverallStatus != models.OverallConditional {
		t.Errorf("expected conditional match, got %s", eval.OverallStatus)
	}
	if !strings.Contains(eval.MatchStatus, models.LineTagQuantityMismatch) {
		t.Errorf("expected quantity mismatch tag, got %s", eval.MatchStatus)
	}
	if !strings.Contains(eval.MatchStatus, models.LineTagPriceMismatch) {
		t.Errorf("expected price mismatch tag, got %s", eval.MatchStatus)
	}
	if strings.Contains(eval.MatchStatus, models.LineTagSubtotalMismatch) {
		t.Errorf("did not expect subtotal mismatch tag, got %s", eval.MatchStatus)
	}
}

func TestTaxRatesAgree(t *testing.T) {
	tests := []struct {
		name        string
		invoiceCGST string
		receiptCGST string
		expect      bool
	}{
		{"equal rates", "9.0", "9.0", true},
		{"within a tenth of a point", "9.05", "9.0", true},
		{"at the tolerance boundary", "9.1", "9.0", true},
		{"past the boundary", "9.11", "9.0", false},
		{"invoice rate absent", "0", "9.0", true},
		{"receipt rate absent", "9.0", "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := testInvoiceLine()
			line.CGSTRate = d(tt.invoiceCGST)
			line.SGSTRate = d("0")

			receiptLine := testReceiptLine()
			receiptLine.CGSTRate = d(tt.receiptCGST)
			receiptLine.SGSTRate = d("0")

			if got := taxRatesAgree(line, receiptLine); got != tt.expect {
				t.Errorf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestBestLineMatchKeepsFirstOnTie(t *testing.T) {
	first := testReceiptLine()
	second := testReceiptLine()
	second.ID = 2

	best := NewEvaluator(DefaultMatchingConfig()).BestLineMatch(
		testInvoiceLine(), []*models.GoodsReceiptLineItem{first, second})

	if best == nil {
		t.Fatal("expected a best match")
	}
	if best.ReceiptLine.ID != 1 {
		t.Errorf("expected first candidate kept on tie, got line %d", best.ReceiptLine.ID)
	}
}
