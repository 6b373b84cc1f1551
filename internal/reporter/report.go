package reporter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/store"
)

var hundred = decimal.NewFromInt(100)

// BatchReport is the renderable view of one reconciliation batch: the
// batch row, its header records and the derived summary figures.
type BatchReport struct {
	Batch       *store.ReconciliationBatch    `json:"batch"`
	Records     []*store.ReconciliationRecord `json:"records,omitempty"`
	Summary     *ReportSummary                `json:"summary"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

// ReportSummary aggregates the batch outcome for the summary sections.
type ReportSummary struct {
	TotalRecords   int `json:"total_records"`
	PerfectMatches int `json:"perfect_matches"`
	PartialMatches int `json:"partial_matches"`
	Mismatches     int `json:"mismatches"`
	UnmatchedNoGRN int `json:"unmatched_no_grn"`
	RequiresReview int `json:"requires_review"`
	Exceptions     int `json:"exceptions"`
	ManualMatches  int `json:"manual_matches"`
	OutOfTolerance int `json:"out_of_tolerance"`

	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	ReceiptTotal decimal.Decimal `json:"receipt_total"`
	NetVariance  decimal.Decimal `json:"net_variance"`
}

// BuildBatchReport loads a batch and its records and derives the
// summary figures.
func BuildBatchReport(ctx context.Context, s store.Store, batchID string) (*BatchReport, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	records, err := s.ListRecordsByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return &BatchReport{
		Batch:       batch,
		Records:     records,
		Summary:     summarize(records),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func summarize(records []*store.ReconciliationRecord) *ReportSummary {
	summary := &ReportSummary{TotalRecords: len(records)}

	for _, record := range records {
		switch record.MatchStatus {
		case models.MatchStatusPerfect:
			summary.PerfectMatches++
		case models.MatchStatusPartial:
			summary.PartialMatches++
		case models.MatchStatusNoGRNFound:
			summary.UnmatchedNoGRN++
		default:
			summary.Mismatches++
		}

		if record.RequiresReview {
			summary.RequiresReview++
		}
		if record.IsException {
			summary.Exceptions++
		}
		if record.ManualMatch {
			summary.ManualMatches++
		}
		if !record.WithinTolerance {
			summary.OutOfTolerance++
		}

		summary.InvoiceTotal = summary.InvoiceTotal.Add(record.InvoiceTotal)
		summary.ReceiptTotal = summary.ReceiptTotal.Add(record.ReceiptTotal)
		summary.NetVariance = summary.NetVariance.Add(record.TotalVariance)
	}

	return summary
}

// Duration returns the batch wall time, zero when still running.
func (r *BatchReport) Duration() time.Duration {
	if r.Batch == nil || r.Batch.CompletedAt == nil {
		return 0
	}
	return r.Batch.CompletedAt.Sub(r.Batch.StartedAt)
}
