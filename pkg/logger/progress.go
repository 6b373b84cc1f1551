package logger

import (
	"fmt"
	"sync"
	"time"
)

// BatchProgress tracks a reconciliation batch as it works through invoices.
// It logs at intervals rather than per record so large batches stay readable.
type BatchProgress struct {
	logger      Logger
	batchID     string
	total       int64
	processed   int64
	matched     int64
	failed      int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.RWMutex
}

// BatchProgressConfig configures batch progress tracking
type BatchProgressConfig struct {
	BatchID     string        `json:"batch_id"`
	Total       int64         `json:"total"`
	LogInterval time.Duration `json:"log_interval"`
	Logger      Logger        `json:"-"`
}

// NewBatchProgress creates a progress tracker for a reconciliation batch
func NewBatchProgress(config BatchProgressConfig) *BatchProgress {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval == 0 {
		config.LogInterval = 5 * time.Second
	}

	tracker := &BatchProgress{
		logger:      config.Logger.WithComponent("batch"),
		batchID:     config.BatchID,
		total:       config.Total,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: config.LogInterval,
	}

	tracker.logger.WithFields(Fields{
		"batch_id": config.BatchID,
		"total":    config.Total,
	}).Info("Starting reconciliation batch")

	return tracker
}

// RecordMatched counts an invoice that produced a match record
func (p *BatchProgress) RecordMatched() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.processed++
	p.matched++
	p.maybeLog(time.Now())
}

// RecordUnmatched counts an invoice that produced no match
func (p *BatchProgress) RecordUnmatched() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.processed++
	p.maybeLog(time.Now())
}

// RecordError counts an invoice that failed to process
func (p *BatchProgress) RecordError() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.processed++
	p.failed++
	p.maybeLog(time.Now())
}

// Complete logs final statistics for the batch
func (p *BatchProgress) Complete() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	duration := time.Since(p.startTime)
	rate := float64(p.processed) / duration.Seconds()

	p.logger.WithFields(Fields{
		"batch_id":  p.batchID,
		"total":     p.total,
		"processed": p.processed,
		"matched":   p.matched,
		"errors":    p.failed,
		"duration":  duration.String(),
		"rate":      fmt.Sprintf("%.2f/sec", rate),
	}).Info("Reconciliation batch completed")
}

// CompleteWithError logs final statistics when the batch ends in failure
func (p *BatchProgress) CompleteWithError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	duration := time.Since(p.startTime)

	p.logger.WithError(err).WithFields(Fields{
		"batch_id":  p.batchID,
		"total":     p.total,
		"processed": p.processed,
		"matched":   p.matched,
		"errors":    p.failed,
		"duration":  duration.String(),
	}).Error("Reconciliation batch failed")
}

// GetStats returns a snapshot of the batch progress
func (p *BatchProgress) GetStats() BatchStats {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	duration := time.Since(p.startTime)
	var rate float64
	if duration.Seconds() > 0 {
		rate = float64(p.processed) / duration.Seconds()
	}

	var percentage float64
	if p.total > 0 {
		percentage = float64(p.processed) / float64(p.total) * 100
	}

	return BatchStats{
		BatchID:    p.batchID,
		Total:      p.total,
		Processed:  p.processed,
		Matched:    p.matched,
		Errors:     p.failed,
		Percentage: percentage,
		Duration:   duration,
		Rate:       rate,
	}
}

// maybeLog logs progress if enough time has passed. Caller holds the lock.
func (p *BatchProgress) maybeLog(now time.Time) {
	if now.Sub(p.lastLogTime) < p.logInterval {
		return
	}
	p.lastLogTime = now

	duration := now.Sub(p.startTime)
	var rate float64
	if duration.Seconds() > 0 {
		rate = float64(p.processed) / duration.Seconds()
	}

	fields := Fields{
		"batch_id":  p.batchID,
		"processed": p.processed,
		"matched":   p.matched,
		"errors":    p.failed,
		"rate":      fmt.Sprintf("%.2f/sec", rate),
	}

	if p.total > 0 {
		fields["total"] = p.total
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(p.processed)/float64(p.total)*100)
	}

	p.logger.WithFields(fields).Info("Batch progress")
}

// BatchStats contains batch progress statistics
type BatchStats struct {
	BatchID    string        `json:"batch_id"`
	Total      int64         `json:"total"`
	Processed  int64         `json:"processed"`
	Matched    int64         `json:"matched"`
	Errors     int64         `json:"errors"`
	Percentage float64       `json:"percentage"`
	Duration   time.Duration `json:"duration"`
	Rate       float64       `json:"rate"`
}

// String returns a human-readable representation of the batch progress
func (bs BatchStats) String() string {
	if bs.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.1f%%), %d matched, %d errors, %.2f/sec",
			bs.BatchID, bs.Processed, bs.Total, bs.Percentage, bs.Matched, bs.Errors, bs.Rate)
	}
	return fmt.Sprintf("%s: %d processed, %d matched, %d errors, elapsed: %v",
		bs.BatchID, bs.Processed, bs.Matched, bs.Errors, bs.Duration)
}

// OperationLogger provides structured logging for operations with timing
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    logger.WithComponent("operation"),
		operation: operation,
		fields:    make(Fields),
		startTime: time.Now(),
	}

	ol.logger.WithField("operation", operation).Info("Starting operation")
	return ol
}

// WithField adds a field to the operation context
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Step logs a step within the operation
func (ol *OperationLogger) Step(step string) {
	fields := Fields{
		"operation": ol.operation,
		"step":      step,
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithFields(fields).Info("Operation step")
}

// Success completes the operation successfully
func (ol *OperationLogger) Success(message string) {
	duration := time.Since(ol.startTime)
	fields := Fields{
		"operation": ol.operation,
		"duration":  duration.String(),
		"status":    "success",
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithFields(fields).Info(message)
}

// Error completes the operation with an error
func (ol *OperationLogger) Error(err error, message string) {
	duration := time.Since(ol.startTime)
	fields := Fields{
		"operation": ol.operation,
		"duration":  duration.String(),
		"status":    "error",
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithError(err).WithFields(fields).Error(message)
}
