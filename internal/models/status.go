package models

// MatchStatus classifies a header-level reconciliation outcome
type MatchStatus string

const (
	MatchStatusPerfect        MatchStatus = "perfect_match"
	MatchStatusPartial        MatchStatus = "partial_match"
	MatchStatusAmountMismatch MatchStatus = "amount_mismatch"
	MatchStatusVendorMismatch MatchStatus = "vendor_mismatch"
	MatchStatusDateMismatch   MatchStatus = "date_mismatch"
	MatchStatusNoGRNFound     MatchStatus = "no_grn_found"
)

// IsMismatch reports whether the status names a specific mismatch reason
func (s MatchStatus) IsMismatch() bool {
	switch s {
	case MatchStatusAmountMismatch, MatchStatusVendorMismatch, MatchStatusDateMismatch:
		return true
	}
	return false
}

// OverallMatchStatus classifies the combined header and line item outcome
type OverallMatchStatus string

const (
	OverallComplete    OverallMatchStatus = "complete_match"
	OverallConditional OverallMatchStatus = "conditional_match"
	OverallMismatch    OverallMatchStatus = "mismatch"
)

// Line item mismatch tags, in the order they appear in a match status string
const (
	LineTagHSNMismatch      = "hsn_mismatch"
	LineTagTaxRateMismatch  = "tax_rate_mismatch"
	LineTagSubtotalMismatch = "subtotal_mismatch"
	LineTagQuantityMismatch = "quantity_mismatch"
	LineTagPriceMismatch    = "price_mismatch"
)

// LineStatusPerfect is the line match status when no mismatch tag applies
const LineStatusPerfect = "perfect_match"

// BatchStatus tracks the lifecycle of a reconciliation batch. A batch
// leaves the running state exactly once.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// IsTerminal reports whether the batch can no longer change state
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed || s == BatchStatusCancelled
}
