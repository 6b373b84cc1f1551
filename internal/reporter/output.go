package reporter

import (
	"fmt"
	"io"
	"os"

	"invoice-grn-reconciliation/pkg/errors"
	"invoice-grn-reconciliation/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and a console
// fallback when a structured format fails to render.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a report generator that logs its work
// and degrades to console output on format errors.
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report configuration values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders a report, falling back to the console
// format if the configured structured format fails.
func (srg *SafeReportGenerator) GenerateReportSafely(report *BatchReport, writer io.Writer) error {
	if report == nil {
		return errors.ValidationError(errors.CodeMissingField, "report", nil, nil).
			WithSuggestion("Provide a batch report")
	}
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil).
			WithSuggestion("Provide a valid output writer")
	}

	srg.logger.WithFields(logger.Fields{
		"format":   srg.config.Format,
		"batch_id": report.Batch.BatchID,
		"output":   writerDescription(writer),
	}).Info("Generating batch report")

	err := srg.GenerateReport(report, writer)
	if err == nil {
		srg.logger.Info("Report generation completed")
		return nil
	}

	if srg.config.Format == FormatConsole {
		return srg.wrapGenerationError(err)
	}

	srg.logger.WithError(err).Warn("Structured report generation failed, falling back to console format")

	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole
	fallback, fallbackErr := NewReportGenerator(&fallbackConfig)
	if fallbackErr != nil {
		return srg.wrapGenerationError(err)
	}

	fmt.Fprintf(writer, "NOTE: Report rendered in console format; %s output failed: %v\n\n", srg.config.Format, err)
	if fallbackErr := fallback.GenerateReport(report, writer); fallbackErr != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", err, fallbackErr),
		)
	}

	srg.logger.Info("Report generated using console fallback")
	return nil
}

// WriteReportFile renders the report to a file, creating it fresh.
func (srg *SafeReportGenerator) WriteReportFile(report *BatchReport, path string) error {
	file, err := os.Create(path)
	if err != nil {
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	defer file.Close()

	return srg.GenerateReportSafely(report, file)
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return errors.InternalError(
		errors.CodeProcessingError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func writerDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return "file:" + w.Name()
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
