// Package reconciler orchestrates reconciliation batches. It ties the
// candidate finder, evaluator, and recorder together, walking eligible
// invoices in chunks and recording one outcome per invoice and per line
// item. A failure on one invoice is counted and logged, never fatal to
// the batch.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoice-grn-reconciliation/internal/matcher"
	"invoice-grn-reconciliation/internal/models"
	"invoice-grn-reconciliation/internal/recorder"
	"invoice-grn-reconciliation/internal/store"
	apperrors "invoice-grn-reconciliation/pkg/errors"
	"invoice-grn-reconciliation/pkg/logger"
)

// RunRequest describes one reconciliation run
type RunRequest struct {
	// InvoiceIDs restricts the run to specific invoices when non-empty
	InvoiceIDs []uint

	// Config is the matching configuration. The run freezes a copy at
	// start; later changes to the original do not affect the batch.
	Config *matcher.MatchingConfig

	// IncludeMatched reprocesses invoices already flagged as matched
	IncludeMatched bool

	// IncludeExtractionFailed includes invoices whose extraction failed
	IncludeExtractionFailed bool

	// IncludeDuplicates includes invoices flagged as duplicates
	IncludeDuplicates bool

	// OnInvoiceProcessed, when set, is called after every invoice with
	// the running processed count
	OnInvoiceProcessed func(processed int)

	Notes string
}

// Validate checks the request before a batch is created
func (r *RunRequest) Validate() error {
	if r.Config == nil {
		return apperrors.ConfigurationError(apperrors.CodeMissingConfig, "matching config", nil, nil)
	}
	if err := r.Config.Validate(); err != nil {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "matching config", r.Config.String(), err)
	}
	return nil
}

// RunResult summarizes a finished batch
type RunResult struct {
	BatchID string
	Status  models.BatchStatus

	Processed int
	Matched   int
	Unmatched int
	Errors    int

	// RecordErrors holds the per-invoice failures the run survived
	RecordErrors []*apperrors.ReconcilerError

	Duration time.Duration
}

// Orchestrator runs reconciliation batches against a store
type Orchestrator struct {
	store  store.Store
	logger logger.Logger
}

// NewOrchestrator creates an orchestrator. A nil logger falls back to the
// global logger.
func NewOrchestrator(s store.Store, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Orchestrator{
		store:  s,
		logger: log.WithComponent("orchestrator"),
	}
}

// Run executes a full reconciliation batch. Cancellation through the
// context is honored between invoices: records already written stay
// written and the batch finishes in the cancelled state. An unexpected
// top-level failure after batch creation marks the batch failed.
func (o *Orchestrator) Run(ctx context.Context, req *RunRequest) (result *RunResult, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	config := req.Config.Clone()
	batchID := newBatchID(started)

	log := o.logger.WithField("batch_id", batchID)
	log.WithField("config", config.String()).Info("Starting reconciliation run")

	receipts, err := o.store.ListReceipts(ctx)
	if err != nil {
		return nil, err
	}
	var receiptLines []*models.GoodsReceiptLineItem
	if !config.SkipLineItems {
		receiptLines, err = o.store.ListReceiptLines(ctx)
		if err != nil {
			return nil, err
		}
	}

	invoices, err := o.store.ListEligibleInvoices(ctx, store.InvoiceFilter{
		IDs:                     req.InvoiceIDs,
		IncludeMatched:          req.IncludeMatched,
		IncludeExtractionFailed: req.IncludeExtractionFailed,
		IncludeDuplicates:       req.IncludeDuplicates,
	})
	if err != nil {
		return nil, err
	}

	batch := &store.ReconciliationBatch{
		BatchID:           batchID,
		TolerancePercent:  config.TolerancePercent,
		DateToleranceDays: config.DateToleranceDays,
		ChunkSize:         config.ChunkSize,
		SkipLineItems:     config.SkipLineItems,
		TotalInvoices:     len(invoices),
		Notes:             req.Notes,
	}
	if err := o.store.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		log.WithField("panic", fmt.Sprint(r)).Error("Reconciliation run panicked")
		err = apperrors.InternalError(apperrors.CodeUnexpectedError, "reconciliation run",
			fmt.Errorf("panic: %v", r))
		result = &RunResult{BatchID: batchID, Status: models.BatchStatusFailed, Duration: time.Since(started)}
		o.failBatch(ctx, batchID, fmt.Sprintf("run panicked: %v", r))
	}()

	finder := matcher.NewCandidateFinder(
		matcher.BuildReceiptIndex(receipts),
		matcher.BuildReceiptLineIndex(receiptLines),
		config,
	)
	evaluator := matcher.NewEvaluator(config)
	rec := recorder.New(o.store, batchID)
	progress := logger.NewBatchProgress(logger.BatchProgressConfig{
		BatchID: batchID,
		Total:   int64(len(invoices)),
		Logger:  o.logger,
	})

	result = &RunResult{BatchID: batchID}
	cancelled := false

	for chunkStart := 0; chunkStart < len(invoices) && !cancelled; chunkStart += config.ChunkSize {
		chunkEnd := chunkStart + config.ChunkSize
		if chunkEnd > len(invoices) {
			chunkEnd = len(invoices)
		}

		for _, inv := range invoices[chunkStart:chunkEnd] {
			if ctx.Err() != nil {
				cancelled = true
				break
			}

			matched, procErr := o.processInvoice(ctx, inv, config, finder, evaluator, rec)
			result.Processed++

			switch {
			case procErr != nil:
				result.Errors++
				progress.RecordError()
				recErr := apperrors.WrapIfNeeded(procErr, apperrors.CategoryReconciliation,
					apperrors.CodeProcessingError, "invoice processing failed").
					WithContext("invoice_id", inv.ID)
				result.RecordErrors = append(result.RecordErrors, recErr)
				log.WithError(procErr).WithField("invoice_id", inv.ID).
					Error("Invoice failed, continuing with the rest")
			case matched:
				result.Matched++
				progress.RecordMatched()
			default:
				result.Unmatched++
				progress.RecordUnmatched()
			}

			if req.OnInvoiceProcessed != nil {
				req.OnInvoiceProcessed(result.Processed)
			}
		}

		batch.ProcessedCount = result.Processed
		batch.MatchedCount = result.Matched
		batch.UnmatchedCount = result.Unmatched
		batch.ErrorCount = result.Errors
		if err := o.store.UpdateBatchCounts(context.WithoutCancel(ctx), batch); err != nil {
			log.WithError(err).Warn("Failed to persist batch progress")
		}
	}

	if err := o.rollupReceipts(context.WithoutCancel(ctx), batchID); err != nil {
		log.WithError(err).Error("Receipt rollup failed, marking batch failed")
		result.Status = models.BatchStatusFailed
		result.Duration = time.Since(started)
		o.failBatch(ctx, batchID, fmt.Sprintf("receipt rollup failed: %v", err))
		return result, err
	}

	result.Duration = time.Since(started)

	if cancelled {
		result.Status = models.BatchStatusCancelled
		progress.CompleteWithError(ctx.Err())
	} else {
		result.Status = models.BatchStatusCompleted
		progress.Complete()
	}

	note := fmt.Sprintf("processed %d, matched %d, unmatched %d, errors %d",
		result.Processed, result.Matched, result.Unmatched, result.Errors)
	if err := o.store.FinishBatch(context.WithoutCancel(ctx), batchID, result.Status, note); err != nil {
		return result, err
	}

	return result, nil
}

// failBatch moves a batch to the failed state, logging when even that is
// impossible
func (o *Orchestrator) failBatch(ctx context.Context, batchID, note string) {
	if err := o.store.FinishBatch(context.WithoutCancel(ctx), batchID, models.BatchStatusFailed, note); err != nil {
		o.logger.WithError(err).WithField("batch_id", batchID).
			Error("Failed to mark batch as failed")
	}
}

// processInvoice reconciles one invoice and reports whether it counts as
// matched for the batch totals
func (o *Orchestrator) processInvoice(ctx context.Context, inv *models.Invoice, config *matcher.MatchingConfig, finder *matcher.CandidateFinder, evaluator *matcher.Evaluator, rec *recorder.Recorder) (bool, error) {
	candidates, strategy := finder.HeaderCandidates(inv)

	if len(candidates) == 0 {
		if _, err := rec.RecordHeaderNoMatch(ctx, inv); err != nil {
			return false, err
		}
		return false, nil
	}

	best := evaluator.BestHeaderMatch(inv, candidates)

	matchedLines := 0
	totalLines := 0
	var lineStatuses []models.OverallMatchStatus

	if !config.SkipLineItems {
		totalLines = len(inv.LineItems)

		for _, line := range inv.LineItems {
			lineCandidates, lineStrategy := finder.LineCandidates(line)
			if len(lineCandidates) == 0 {
				if _, err := rec.RecordLineNoMatch(ctx, line); err != nil {
					return false, err
				}
				lineStatuses = append(lineStatuses, models.OverallMismatch)
				continue
			}

			bestLine := evaluator.BestLineMatch(line, lineCandidates)
			if _, err := rec.RecordLine(ctx, line, bestLine, lineStrategy); err != nil {
				return false, err
			}
			matchedLines++
			lineStatuses = append(lineStatuses, bestLine.OverallStatus)
		}
	}

	record, err := rec.RecordHeader(ctx, inv, best, strategy, matchedLines, totalLines)
	if err != nil {
		return false, err
	}

	if err := o.applyRollup(ctx, inv, record, lineStatuses); err != nil {
		return false, err
	}

	return record.MatchStatus == models.MatchStatusPerfect ||
		record.MatchStatus == models.MatchStatusPartial, nil
}

// newBatchID builds an external batch id like RECON_20240315T120000_1a2b3c4d
func newBatchID(t time.Time) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("RECON_%s_%s", t.UTC().Format("20060102T150405"), short)
}
