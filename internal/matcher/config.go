// Package matcher provides the invoice matching engine and its configuration.
//
// This package implements the algorithms for matching supplier invoices
// against goods receipt notes, handling various real-world scenarios including:
//   - Amount tolerances for rounding and rate differences
//   - Date tolerances for delayed invoicing
//   - Fuzzy description matching for imperfect line item data
//   - Hierarchical candidate lookup from most to least specific keys
//
// The matching engine uses a multi-stage approach:
//  1. Candidate selection using indexed lookups, most specific key first
//  2. Weighted scoring of each candidate across identity, date, and amount
//  3. Best-match selection keeping the strictly highest scoring candidate
//  4. Variance classification against the configured tolerance
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.TolerancePercent = 5.0
//
//	finder := matcher.NewCandidateFinder(matcher.BuildReceiptIndex(receipts), matcher.BuildReceiptLineIndex(receiptLines))
//	eval := matcher.NewEvaluator(config)
//	best, candidates := eval.BestHeaderMatch(invoice, finder.HeaderCandidates(invoice))
package matcher

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MatchingConfig holds configuration parameters for invoice matching.
// A batch freezes a copy of this configuration at start, so changing the
// source config mid-run never affects records already being processed.
//
// Use the provided factory functions for common scenarios:
//   - DefaultMatchingConfig(): balanced approach for most use cases
//   - StrictMatchingConfig(): tight tolerances for critical reconciliation
//   - RelaxedMatchingConfig(): loose tolerances for exploratory matching
type MatchingConfig struct {
	// TolerancePercent defines the acceptable percentage variance for
	// amount comparisons (0.0 to 50.0). The boundary itself is acceptable.
	TolerancePercent float64 `json:"tolerance_percent"`

	// DateToleranceDays defines the number of days an invoice date may
	// fall on either side of the receipt date (0 to 365)
	DateToleranceDays int `json:"date_tolerance_days"`

	// ChunkSize defines how many invoices are processed per chunk
	// during a batch run (5 to 500)
	ChunkSize int `json:"chunk_size"`

	// SkipLineItems disables line item matching, producing header-level
	// records only
	SkipLineItems bool `json:"skip_line_items"`

	// DescriptionSimilarityFloor filters line candidates found through the
	// most specific key when their descriptions diverge too far (0.0 to 1.0)
	DescriptionSimilarityFloor float64 `json:"description_similarity_floor"`

	// DescriptionMatchThreshold is the minimum similarity for a line
	// candidate found through description matching alone (0.0 to 1.0)
	DescriptionMatchThreshold float64 `json:"description_match_threshold"`
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		TolerancePercent:           2.0,
		DateToleranceDays:          30,
		ChunkSize:                  100,
		SkipLineItems:              false,
		DescriptionSimilarityFloor: 0.6,
		DescriptionMatchThreshold:  0.7,
	}
}

// StrictMatchingConfig returns a configuration for strict matching
func StrictMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		TolerancePercent:           0.5,
		DateToleranceDays:          7,
		ChunkSize:                  100,
		SkipLineItems:              false,
		DescriptionSimilarityFloor: 0.8,
		DescriptionMatchThreshold:  0.9,
	}
}

// RelaxedMatchingConfig returns a configuration for relaxed matching
func RelaxedMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		TolerancePercent:           10.0,
		DateToleranceDays:          90,
		ChunkSize:                  100,
		SkipLineItems:              false,
		DescriptionSimilarityFloor: 0.5,
		DescriptionMatchThreshold:  0.6,
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.TolerancePercent < 0.0 || mc.TolerancePercent > 50.0 {
		return fmt.Errorf("tolerance percent must be between 0.0 and 50.0: %f", mc.TolerancePercent)
	}

	if mc.DateToleranceDays < 0 || mc.DateToleranceDays > 365 {
		return fmt.Errorf("date tolerance days must be between 0 and 365: %d", mc.DateToleranceDays)
	}

	if mc.ChunkSize < 5 || mc.ChunkSize > 500 {
		return fmt.Errorf("chunk size must be between 5 and 500: %d", mc.ChunkSize)
	}

	if mc.DescriptionSimilarityFloor < 0.0 || mc.DescriptionSimilarityFloor > 1.0 {
		return fmt.Errorf("description similarity floor must be between 0.0 and 1.0: %f", mc.DescriptionSimilarityFloor)
	}

	if mc.DescriptionMatchThreshold < 0.0 || mc.DescriptionMatchThreshold > 1.0 {
		return fmt.Errorf("description match threshold must be between 0.0 and 1.0: %f", mc.DescriptionMatchThreshold)
	}

	return nil
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}

	copied := *mc
	return &copied
}

// ToleranceDecimal returns the tolerance as a decimal percentage
func (mc *MatchingConfig) ToleranceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(mc.TolerancePercent)
}

// IsWithinDateTolerance checks if two dates fall within the configured
// tolerance. Only the calendar dates are compared, time of day is ignored.
// A missing date on either side passes: there is nothing to validate.
func (mc *MatchingConfig) IsWithinDateTolerance(invoiceDate, receiptDate time.Time) bool {
	if invoiceDate.IsZero() || receiptDate.IsZero() {
		return true
	}

	d1 := truncateToDay(invoiceDate)
	d2 := truncateToDay(receiptDate)

	diff := d1.Sub(d2)
	if diff < 0 {
		diff = -diff
	}

	maxDiff := time.Duration(mc.DateToleranceDays) * 24 * time.Hour
	return diff <= maxDiff
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Tolerance: %.2f%%, DateTolerance: %d days, ChunkSize: %d, SkipLineItems: %v}",
		mc.TolerancePercent, mc.DateToleranceDays, mc.ChunkSize, mc.SkipLineItems)
}
