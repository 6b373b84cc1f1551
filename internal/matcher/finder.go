package matcher

import (
	"invoice-grn-reconciliation/internal/models"
)

// Header candidate strategy names, in lookup order
const (
	StrategyPOGRNInvoice = "po_grn_invoice"
	StrategyPOInvoice    = "po_invoice"
	StrategyPOGRN        = "po_grn"
	StrategyPO           = "po"
	StrategyInvoiceOnly  = "invoice_only"
	StrategyVendorTaxID  = "vendor_tax_id"
)

// Line candidate strategy names, in lookup order
const (
	LineStrategyPOInvoiceHSN  = "po_invoice_hsn"
	LineStrategyPOHSN         = "po_hsn"
	LineStrategyPOInvoice     = "po_invoice"
	LineStrategyPODescription = "po_description"
	LineStrategyPOSequence    = "po_sequence"
)

// CandidateFinder walks a fixed hierarchy of lookup strategies from most to
// least specific and stops at the first strategy that yields candidates.
// A less specific strategy is never consulted once a more specific one has
// produced results, so a wrong-but-specific reference wins over a
// right-but-vague one by construction.
type CandidateFinder struct {
	receipts *ReceiptIndex
	lines    *ReceiptLineIndex
	config   *MatchingConfig

	// invocations counts lookups per strategy name, for diagnostics
	invocations map[string]int
}

// NewCandidateFinder creates a finder over the given indexes
func NewCandidateFinder(receipts *ReceiptIndex, lines *ReceiptLineIndex, config *MatchingConfig) *CandidateFinder {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &CandidateFinder{
		receipts:    receipts,
		lines:       lines,
		config:      config,
		invocations: make(map[string]int),
	}
}

// HeaderCandidates returns goods receipt candidates for the invoice along
// with the name of the strategy that produced them. An empty result with an
// empty strategy name means the whole hierarchy was exhausted.
func (cf *CandidateFinder) HeaderCandidates(inv *models.Invoice) ([]*models.GoodsReceiptSummary, string) {
	type headerStrategy struct {
		name   string
		lookup func() []*models.GoodsReceiptSummary
	}

	strategies := []headerStrategy{
		{StrategyPOGRNInvoice, func() []*models.GoodsReceiptSummary {
			return cf.receipts.ByPOGRNInvoice(inv.PONumber, inv.GRNNumber, inv.InvoiceNumber)
		}},
		{StrategyPOInvoice, func() []*models.GoodsReceiptSummary {
			return cf.receipts.ByPOInvoice(inv.PONumber, inv.InvoiceNumber)
		}},
		{StrategyPOGRN, func() []*models.GoodsReceiptSummary {
			return cf.receipts.ByPOGRN(inv.PONumber, inv.GRNNumber)
		}},
		{StrategyPO, func() []*models.GoodsReceiptSummary {
			return cf.receipts.ByPO(inv.PONumber)
		}},
		{StrategyInvoiceOnly, func() []*models.GoodsReceiptSummary {
			return cf.receipts.ByInvoice(inv.InvoiceNumber)
		}},
		{StrategyVendorTaxID, func() []*models.GoodsReceiptSummary {
			return cf.receipts.ByVendorTaxID(inv.VendorTaxID)
		}},
	}

	for _, s := range strategies {
		cf.invocations[s.name]++
		if candidates := s.lookup(); len(candidates) > 0 {
			return candidates, s.name
		}
	}

	return nil, ""
}

// LineCandidates returns receipt line candidates for the invoice line along
// with the producing strategy name. A line without a PO number gets no
// candidates at all since every line strategy keys on the PO.
func (cf *CandidateFinder) LineCandidates(line *models.InvoiceLineItem) ([]*models.GoodsReceiptLineItem, string) {
	if normalizeKey(line.PONumber) == "" {
		return nil, ""
	}

	type lineStrategy struct {
		name   string
		lookup func() []*models.GoodsReceiptLineItem
	}

	strategies := []lineStrategy{
		{LineStrategyPOInvoiceHSN, func() []*models.GoodsReceiptLineItem {
			candidates := intersectByHSN(
				cf.lines.ByPOInvoice(line.PONumber, line.InvoiceNumber), line.HSNCode)
			return cf.filterBySimilarity(candidates, line.Description, cf.config.DescriptionSimilarityFloor)
		}},
		{LineStrategyPOHSN, func() []*models.GoodsReceiptLineItem {
			return cf.lines.ByPOHSN(line.PONumber, line.HSNCode)
		}},
		{LineStrategyPOInvoice, func() []*models.GoodsReceiptLineItem {
			return cf.lines.ByPOInvoice(line.PONumber, line.InvoiceNumber)
		}},
		{LineStrategyPODescription, func() []*models.GoodsReceiptLineItem {
			return cf.filterBySimilarity(
				cf.lines.ByPO(line.PONumber), line.Description, cf.config.DescriptionMatchThreshold)
		}},
		{LineStrategyPOSequence, func() []*models.GoodsReceiptLineItem {
			return cf.lines.ByPO(line.PONumber)
		}},
	}

	for _, s := range strategies {
		cf.invocations[s.name]++
		if candidates := s.lookup(); len(candidates) > 0 {
			return candidates, s.name
		}
	}

	return nil, ""
}

// Invocations returns how many times each strategy has been consulted
func (cf *CandidateFinder) Invocations() map[string]int {
	counts := make(map[string]int, len(cf.invocations))
	for name, n := range cf.invocations {
		counts[name] = n
	}
	return counts
}

// filterBySimilarity keeps candidates whose description similarity to the
// invoice line meets the threshold
func (cf *CandidateFinder) filterBySimilarity(candidates []*models.GoodsReceiptLineItem, description string, threshold float64) []*models.GoodsReceiptLineItem {
	if len(candidates) == 0 {
		return nil
	}

	var kept []*models.GoodsReceiptLineItem
	for _, c := range candidates {
		if DescriptionSimilarity(description, c.Description) >= threshold {
			kept = append(kept, c)
		}
	}
	return kept
}

// intersectByHSN keeps candidates whose HSN code matches
func intersectByHSN(candidates []*models.GoodsReceiptLineItem, hsn string) []*models.GoodsReceiptLineItem {
	hsn = normalizeKey(hsn)
	if hsn == "" || len(candidates) == 0 {
		return nil
	}

	var kept []*models.GoodsReceiptLineItem
	for _, c := range candidates {
		if normalizeKey(c.HSNCode) == hsn {
			kept = append(kept, c)
		}
	}
	return kept
}
