package matcher

import (
	"sort"
	"strings"

	"invoice-grn-reconciliation/internal/models"
)

// ReceiptIndex provides O(1) candidate lookups over goods receipt summaries.
// Receipts are indexed under every key combination the finder's hierarchy
// uses, from the most specific (PO + GRN + seller invoice) down to vendor
// tax id alone. Keys are normalized so whitespace and letter case in
// document numbers do not split otherwise identical references.
type ReceiptIndex struct {
	byPOGRNInvoice map[string][]*models.GoodsReceiptSummary
	byPOInvoice    map[string][]*models.GoodsReceiptSummary
	byPOGRN        map[string][]*models.GoodsReceiptSummary
	byPO           map[string][]*models.GoodsReceiptSummary
	byInvoice      map[string][]*models.GoodsReceiptSummary
	byVendorTaxID  map[string][]*models.GoodsReceiptSummary
}

// BuildReceiptIndex indexes the given receipts for candidate lookup.
// Receipts missing a key field are simply absent from that index.
func BuildReceiptIndex(receipts []*models.GoodsReceiptSummary) *ReceiptIndex {
	idx := &ReceiptIndex{
		byPOGRNInvoice: make(map[string][]*models.GoodsReceiptSummary),
		byPOInvoice:    make(map[string][]*models.GoodsReceiptSummary),
		byPOGRN:        make(map[string][]*models.GoodsReceiptSummary),
		byPO:           make(map[string][]*models.GoodsReceiptSummary),
		byInvoice:      make(map[string][]*models.GoodsReceiptSummary),
		byVendorTaxID:  make(map[string][]*models.GoodsReceiptSummary),
	}

	for _, r := range receipts {
		po := normalizeKey(r.PONumber)
		grn := normalizeKey(r.GRNNumber)
		inv := normalizeKey(r.SellerInvoiceNumber)
		taxID := normalizeKey(r.VendorTaxID)

		if po != "" {
			idx.byPO[po] = append(idx.byPO[po], r)
			if grn != "" {
				key := compoundKey(po, grn)
				idx.byPOGRN[key] = append(idx.byPOGRN[key], r)
			}
			if inv != "" {
				key := compoundKey(po, inv)
				idx.byPOInvoice[key] = append(idx.byPOInvoice[key], r)
			}
			if grn != "" && inv != "" {
				key := compoundKey(po, grn, inv)
				idx.byPOGRNInvoice[key] = append(idx.byPOGRNInvoice[key], r)
			}
		}
		if inv != "" {
			idx.byInvoice[inv] = append(idx.byInvoice[inv], r)
		}
		if taxID != "" {
			idx.byVendorTaxID[taxID] = append(idx.byVendorTaxID[taxID], r)
		}
	}

	return idx
}

// ByPOGRNInvoice returns receipts matching all three document references
func (idx *ReceiptIndex) ByPOGRNInvoice(po, grn, invoice string) []*models.GoodsReceiptSummary {
	po, grn, invoice = normalizeKey(po), normalizeKey(grn), normalizeKey(invoice)
	if po == "" || grn == "" || invoice == "" {
		return nil
	}
	return idx.byPOGRNInvoice[compoundKey(po, grn, invoice)]
}

// ByPOInvoice returns receipts matching PO and seller invoice number
func (idx *ReceiptIndex) ByPOInvoice(po, invoice string) []*models.GoodsReceiptSummary {
	po, invoice = normalizeKey(po), normalizeKey(invoice)
	if po == "" || invoice == "" {
		return nil
	}
	return idx.byPOInvoice[compoundKey(po, invoice)]
}

// ByPOGRN returns receipts matching PO and GRN number
func (idx *ReceiptIndex) ByPOGRN(po, grn string) []*models.GoodsReceiptSummary {
	po, grn = normalizeKey(po), normalizeKey(grn)
	if po == "" || grn == "" {
		return nil
	}
	return idx.byPOGRN[compoundKey(po, grn)]
}

// ByPO returns receipts matching the PO number
func (idx *ReceiptIndex) ByPO(po string) []*models.GoodsReceiptSummary {
	po = normalizeKey(po)
	if po == "" {
		return nil
	}
	return idx.byPO[po]
}

// ByInvoice returns receipts matching the seller invoice number alone
func (idx *ReceiptIndex) ByInvoice(invoice string) []*models.GoodsReceiptSummary {
	invoice = normalizeKey(invoice)
	if invoice == "" {
		return nil
	}
	return idx.byInvoice[invoice]
}

// ByVendorTaxID returns receipts matching the vendor tax id alone
func (idx *ReceiptIndex) ByVendorTaxID(taxID string) []*models.GoodsReceiptSummary {
	taxID = normalizeKey(taxID)
	if taxID == "" {
		return nil
	}
	return idx.byVendorTaxID[taxID]
}

// Size returns the number of distinct PO numbers indexed
func (idx *ReceiptIndex) Size() int {
	return len(idx.byPO)
}

// ReceiptLineIndex provides candidate lookups over goods receipt line items.
// All keys require a PO number since line matching without one is
// meaningless.
type ReceiptLineIndex struct {
	byPOHSN     map[string][]*models.GoodsReceiptLineItem
	byPOInvoice map[string][]*models.GoodsReceiptLineItem
	byPO        map[string][]*models.GoodsReceiptLineItem
}

// BuildReceiptLineIndex indexes the given receipt lines for candidate
// lookup. Lines under each PO keep their receipt sequence order.
func BuildReceiptLineIndex(lines []*models.GoodsReceiptLineItem) *ReceiptLineIndex {
	idx := &ReceiptLineIndex{
		byPOHSN:     make(map[string][]*models.GoodsReceiptLineItem),
		byPOInvoice: make(map[string][]*models.GoodsReceiptLineItem),
		byPO:        make(map[string][]*models.GoodsReceiptLineItem),
	}

	for _, l := range lines {
		po := normalizeKey(l.PONumber)
		if po == "" {
			continue
		}

		idx.byPO[po] = append(idx.byPO[po], l)

		if hsn := normalizeKey(l.HSNCode); hsn != "" {
			key := compoundKey(po, hsn)
			idx.byPOHSN[key] = append(idx.byPOHSN[key], l)
		}
		if inv := normalizeKey(l.SellerInvoiceNumber); inv != "" {
			key := compoundKey(po, inv)
			idx.byPOInvoice[key] = append(idx.byPOInvoice[key], l)
		}
	}

	for po := range idx.byPO {
		lines := idx.byPO[po]
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].Sequence < lines[j].Sequence
		})
	}

	return idx
}

// ByPOHSN returns receipt lines matching PO and HSN code
func (idx *ReceiptLineIndex) ByPOHSN(po, hsn string) []*models.GoodsReceiptLineItem {
	po, hsn = normalizeKey(po), normalizeKey(hsn)
	if po == "" || hsn == "" {
		return nil
	}
	return idx.byPOHSN[compoundKey(po, hsn)]
}

// ByPOInvoice returns receipt lines matching PO and seller invoice number
func (idx *ReceiptLineIndex) ByPOInvoice(po, invoice string) []*models.GoodsReceiptLineItem {
	po, invoice = normalizeKey(po), normalizeKey(invoice)
	if po == "" || invoice == "" {
		return nil
	}
	return idx.byPOInvoice[compoundKey(po, invoice)]
}

// ByPO returns receipt lines for the PO in receipt sequence order
func (idx *ReceiptLineIndex) ByPO(po string) []*models.GoodsReceiptLineItem {
	po = normalizeKey(po)
	if po == "" {
		return nil
	}
	return idx.byPO[po]
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func compoundKey(parts ...string) string {
	return strings.Join(parts, "|")
}
