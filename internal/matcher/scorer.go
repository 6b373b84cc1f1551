package matcher

import (
	"strings"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/models"
)

// Header score weights. The maximum attainable score is 100.
const (
	headerPOWeight      = 25
	headerInvoiceWeight = 20
	headerVendorWeight  = 15
	headerGRNWeight     = 15
	headerAmountWeight  = 15
	headerDateWeight    = 10

	perfectMatchThreshold = 85
	partialMatchThreshold = 60
)

// Line score weights. Line status comes from the mismatch tags rather
// than score bands, so the maximum of 115 is never compared to a threshold.
const (
	lineHSNWeight     = 25
	lineDescWeight    = 20
	lineTaxRateWeight = 15
	lineUnitWeight    = 10
)

// taxRateTolerance is the maximum percentage point difference between an
// invoice tax rate and a receipt tax rate that still counts as agreement
var taxRateTolerance = decimal.NewFromFloat(0.1)

// HeaderEvaluation is the scored comparison of an invoice against one
// goods receipt candidate.
type HeaderEvaluation struct {
	Receipt *models.GoodsReceiptSummary

	Score  int
	Status models.MatchStatus

	POMatched      bool
	InvoiceMatched bool
	GRNMatched     bool
	VendorMatched  bool
	DateValid      bool

	TotalVariance    Variance
	SubtotalVariance Variance
	CGSTVariance     Variance
	SGSTVariance     Variance
	IGSTVariance     Variance
}

// LineEvaluation is the scored comparison of an invoice line item against
// one receipt line candidate.
type LineEvaluation struct {
	ReceiptLine *models.GoodsReceiptLineItem

	Score      int
	Similarity float64

	// MatchStatus is a comma-joined list of mismatch tags in a fixed
	// order, or "perfect_match" when nothing mismatched
	MatchStatus   string
	OverallStatus models.OverallMatchStatus

	HSNMatched      bool
	TaxRatesMatched bool
	UnitMatched     bool

	QuantityVariance  Variance
	UnitPriceVariance Variance
	SubtotalVariance  Variance
}

// Evaluator scores invoice/receipt pairs under a matching configuration
type Evaluator struct {
	config *MatchingConfig
}

// NewEvaluator creates an evaluator for the given configuration
func NewEvaluator(config *MatchingConfig) *Evaluator {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &Evaluator{config: config}
}

// EvaluateHeader scores an invoice against a single receipt candidate
func (e *Evaluator) EvaluateHeader(inv *models.Invoice, receipt *models.GoodsReceiptSummary) HeaderEvaluation {
	tolerance := e.config.ToleranceDecimal()

	eval := HeaderEvaluation{
		Receipt:          receipt,
		TotalVariance:    ComputeVariance(inv.TotalAmount, receipt.TotalAmount, tolerance),
		SubtotalVariance: ComputeVariance(inv.SubtotalAmount, receipt.SubtotalAmount, tolerance),
		CGSTVariance:     ComputeVariance(inv.CGSTAmount, receipt.CGSTAmount, tolerance),
		SGSTVariance:     ComputeVariance(inv.SGSTAmount, receipt.SGSTAmount, tolerance),
		IGSTVariance:     ComputeVariance(inv.IGSTAmount, receipt.IGSTAmount, tolerance),
	}

	score := 0

	if eval.POMatched = referencesEqual(inv.PONumber, receipt.PONumber); eval.POMatched {
		score += headerPOWeight
	}
	if eval.InvoiceMatched = referencesEqual(inv.InvoiceNumber, receipt.SellerInvoiceNumber); eval.InvoiceMatched {
		score += headerInvoiceWeight
	}
	if eval.GRNMatched = referencesEqual(inv.GRNNumber, receipt.GRNNumber); eval.GRNMatched {
		score += headerGRNWeight
	}
	if eval.VendorMatched = vendorsMatch(inv, receipt); eval.VendorMatched {
		score += headerVendorWeight
	}
	if eval.DateValid = e.config.IsWithinDateTolerance(inv.InvoiceDate, receipt.ReceiptDate); eval.DateValid {
		score += headerDateWeight
	}
	score += TieredScore(eval.TotalVariance, tolerance)

	eval.Score = score
	eval.Status = e.headerStatus(&eval)

	return eval
}

// headerStatus maps a scored evaluation to a match status. Below the
// partial threshold the mismatch reasons are checked in precedence order:
// amount, then vendor, then date.
func (e *Evaluator) headerStatus(eval *HeaderEvaluation) models.MatchStatus {
	switch {
	case eval.Score >= perfectMatchThreshold:
		return models.MatchStatusPerfect
	case eval.Score >= partialMatchThreshold:
		return models.MatchStatusPartial
	case !eval.TotalVariance.WithinTolerance:
		return models.MatchStatusAmountMismatch
	case !eval.VendorMatched:
		return models.MatchStatusVendorMismatch
	case !eval.DateValid:
		return models.MatchStatusDateMismatch
	default:
		return models.MatchStatusPartial
	}
}

// BestHeaderMatch evaluates every candidate and returns the one with the
// strictly highest score. On a tie the earliest candidate wins. Returns
// nil when there are no candidates.
func (e *Evaluator) BestHeaderMatch(inv *models.Invoice, candidates []*models.GoodsReceiptSummary) *HeaderEvaluation {
	var best *HeaderEvaluation

	for _, c := range candidates {
		eval := e.EvaluateHeader(inv, c)
		if best == nil || eval.Score > best.Score {
			copied := eval
			best = &copied
		}
	}

	return best
}

// EvaluateLine scores an invoice line item against a single receipt line
// candidate
func (e *Evaluator) EvaluateLine(line *models.InvoiceLineItem, receiptLine *models.GoodsReceiptLineItem) LineEvaluation {
	tolerance := e.config.ToleranceDecimal()

	eval := LineEvaluation{
		ReceiptLine:       receiptLine,
		Similarity:        DescriptionSimilarity(line.Description, receiptLine.Description),
		QuantityVariance:  ComputeVariance(line.Quantity, receiptLine.ReceivedQty, tolerance),
		UnitPriceVariance: ComputeVariance(line.UnitPrice, receiptLine.UnitPrice, tolerance),
		SubtotalVariance:  ComputeVariance(line.Subtotal, receiptLine.Subtotal, tolerance),
	}

	score := 0

	if eval.HSNMatched = referencesEqual(line.HSNCode, receiptLine.HSNCode); eval.HSNMatched {
		score += lineHSNWeight
	}
	if eval.TaxRatesMatched = taxRatesAgree(line, receiptLine); eval.TaxRatesMatched {
		score += lineTaxRateWeight
	}
	if eval.UnitMatched = referencesEqual(line.Unit, receiptLine.Unit); eval.UnitMatched {
		score += lineUnitWeight
	}
	score += int(eval.Similarity * lineDescWeight)
	score += TieredScore(eval.QuantityVariance, tolerance)
	score += TieredScore(eval.UnitPriceVariance, tolerance)
	score += TieredScore(eval.SubtotalVariance, tolerance)

	eval.Score = score
	eval.MatchStatus = lineMatchStatus(&eval)
	eval.OverallStatus = lineOverallStatus(&eval)

	return eval
}

// BestLineMatch evaluates every candidate and returns the one with the
// strictly highest score, keeping the earliest on ties. Returns nil when
// there are no candidates.
func (e *Evaluator) BestLineMatch(line *models.InvoiceLineItem, candidates []*models.GoodsReceiptLineItem) *LineEvaluation {
	var best *LineEvaluation

	for _, c := range candidates {
		eval := e.EvaluateLine(line, c)
		if best == nil || eval.Score > best.Score {
			copied := eval
			best = &copied
		}
	}

	return best
}

// lineMatchStatus joins the applicable mismatch tags in a fixed order, or
// reports a perfect match when none apply
func lineMatchStatus(eval *LineEvaluation) string {
	var tags []string

	if !eval.HSNMatched {
		tags = append(tags, models.LineTagHSNMismatch)
	}
	if !eval.TaxRatesMatched {
		tags = append(tags, models.LineTagTaxRateMismatch)
	}
	if !eval.SubtotalVariance.WithinTolerance {
		tags = append(tags, models.LineTagSubtotalMismatch)
	}
	if !eval.QuantityVariance.WithinTolerance {
		tags = append(tags, models.LineTagQuantityMismatch)
	}
	if !eval.UnitPriceVariance.WithinTolerance {
		tags = append(tags, models.LineTagPriceMismatch)
	}

	if len(tags) == 0 {
		return models.LineStatusPerfect
	}
	return strings.Join(tags, ",")
}

// lineOverallStatus classifies the line. All five checks passing is a
// complete match; the core checks (HSN, tax rate, subtotal) passing alone
// is a conditional match; anything else is a mismatch.
func lineOverallStatus(eval *LineEvaluation) models.OverallMatchStatus {
	core := eval.HSNMatched && eval.TaxRatesMatched && eval.SubtotalVariance.WithinTolerance

	if core && eval.QuantityVariance.WithinTolerance && eval.UnitPriceVariance.WithinTolerance {
		return models.OverallComplete
	}
	if core {
		return models.OverallConditional
	}
	return models.OverallMismatch
}

// taxRatesAgree compares each tax rate pair where both sides carry a
// nonzero rate. All comparable pairs must agree within the rate tolerance.
// With no comparable pair there is nothing to contradict, so they agree.
func taxRatesAgree(line *models.InvoiceLineItem, receiptLine *models.GoodsReceiptLineItem) bool {
	pairs := [][2]decimal.Decimal{
		{line.CGSTRate, receiptLine.CGSTRate},
		{line.SGSTRate, receiptLine.SGSTRate},
		{line.IGSTRate, receiptLine.IGSTRate},
	}

	for _, p := range pairs {
		if p[0].IsZero() || p[1].IsZero() {
			continue
		}
		if p[0].Sub(p[1]).Abs().GreaterThan(taxRateTolerance) {
			return false
		}
	}

	return true
}

// referencesEqual compares two document references ignoring case and
// surrounding whitespace. Two empty references do not match.
func referencesEqual(a, b string) bool {
	na, nb := normalizeKey(a), normalizeKey(b)
	return na != "" && na == nb
}

// vendorsMatch accepts a case-insensitive exact name match, a name that
// contains the other, or equal vendor tax ids
func vendorsMatch(inv *models.Invoice, receipt *models.GoodsReceiptSummary) bool {
	a := strings.ToLower(strings.TrimSpace(inv.VendorName))
	b := strings.ToLower(strings.TrimSpace(receipt.VendorName))

	if a != "" && b != "" {
		if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
			return true
		}
	}

	return referencesEqual(inv.VendorTaxID, receipt.VendorTaxID)
}
