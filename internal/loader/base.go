// Package loader reads the four reconciliation input files from CSV:
// invoice headers, invoice line items, goods-receipt summaries and
// goods-receipt line items.
//
// The loaders tolerate per-row problems. A row that fails to parse or
// validate is recorded in the LoadStats and skipped; only file-level
// problems (missing file, missing headers) abort a load. Column names
// are configurable so exports from different upstream systems can be
// ingested without reshaping the file first.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"invoice-grn-reconciliation/pkg/errors"
	"invoice-grn-reconciliation/pkg/logger"
)

// RowError describes a problem with a single CSV row. Rows with errors
// are skipped, not fatal.
type RowError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("row error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func rowError(line int, field, value string, err error) *RowError {
	return &RowError{
		Line:    line,
		Field:   field,
		Value:   value,
		Message: "invalid field value",
		Err:     err,
	}
}

// FileConfig holds the CSV shape options shared by all loaders.
type FileConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
}

// DefaultFileConfig returns the shape of a standard comma-separated
// export with a header row.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// baseLoader provides the CSV plumbing shared by the entity loaders.
type baseLoader struct {
	config *FileConfig
	logger logger.Logger
}

func newBaseLoader(config *FileConfig, component string) *baseLoader {
	if config == nil {
		config = DefaultFileConfig()
	}
	return &baseLoader{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent(component),
	}
}

// loadContext holds state while walking one file.
type loadContext struct {
	LineNumber int
	Headers    []string
	headerMap  map[string]int
	ctx        context.Context
}

func newLoadContext(ctx context.Context) *loadContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &loadContext{
		headerMap: make(map[string]int),
		ctx:       ctx,
	}
}

func (lc *loadContext) cancelled() bool {
	select {
	case <-lc.ctx.Done():
		return true
	default:
		return false
	}
}

// columnIndex resolves a header name case-insensitively, -1 if absent.
func (lc *loadContext) columnIndex(name string) int {
	if index, ok := lc.headerMap[name]; ok {
		return index
	}
	lower := strings.ToLower(name)
	for header, index := range lc.headerMap {
		if strings.ToLower(header) == lower {
			return index
		}
	}
	return -1
}

// openFile opens the CSV and configures a reader for it.
func (bl *baseLoader) openFile(path string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		bl.logger.WithError(err).WithField("file_path", path).Error("Failed to open CSV file")
		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = bl.config.Delimiter
	reader.TrimLeadingSpace = bl.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// readHeaders consumes the header row and checks the required columns
// are present.
func (bl *baseLoader) readHeaders(reader *csv.Reader, lctx *loadContext, required []string) error {
	if !bl.config.HasHeader {
		lctx.Headers = append([]string(nil), required...)
		bl.buildHeaderMap(lctx)
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.ValidationError(errors.CodeMissingField, "file_content", "empty", nil).
				WithSuggestion("Ensure the file contains a header row and data rows")
		}
		return errors.ParseError(errors.CodeInvalidFormat, "", 1, "headers", "", err).
			WithSuggestion("Check that the file is a valid CSV")
	}

	lctx.LineNumber++
	lctx.Headers = make([]string, len(headers))
	for i, header := range headers {
		lctx.Headers[i] = strings.TrimSpace(header)
	}
	bl.buildHeaderMap(lctx)

	var missing []string
	for _, name := range required {
		if lctx.columnIndex(name) == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		bl.logger.WithFields(logger.Fields{
			"missing_headers":   missing,
			"available_headers": lctx.Headers,
		}).Error("Required headers are missing")
		return errors.ParseError(
			errors.CodeMissingColumn, "", lctx.LineNumber,
			"headers", strings.Join(missing, ", "), nil,
		).WithSuggestion("Ensure the CSV file contains these headers: " + strings.Join(missing, ", "))
	}

	return nil
}

func (bl *baseLoader) buildHeaderMap(lctx *loadContext) {
	lctx.headerMap = make(map[string]int, len(lctx.Headers))
	for i, header := range lctx.Headers {
		lctx.headerMap[header] = i
	}
}

// readRecord returns the next non-empty row, or io.EOF.
func (bl *baseLoader) readRecord(reader *csv.Reader, lctx *loadContext) ([]string, error) {
	for {
		if lctx.cancelled() {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "csv_loading",
				fmt.Errorf("loading cancelled"))
		}

		record, err := reader.Read()
		if err != nil {
			return nil, err
		}
		lctx.LineNumber++

		if bl.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// fieldValue fetches a named column from a row, trimmed. Missing
// optional columns come back empty without error.
func (lc *loadContext) fieldValue(record []string, name string) string {
	index := lc.columnIndex(name)
	if index == -1 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// LoadStats summarizes one load: how many rows were seen, how many
// produced valid entities, and what went wrong with the rest.
type LoadStats struct {
	TotalLines   int
	RecordsRead  int
	RecordsValid int
	Errors       []*RowError
}

func newLoadStats() *LoadStats {
	return &LoadStats{Errors: make([]*RowError, 0)}
}

// AddError records a skipped row.
func (ls *LoadStats) AddError(err *RowError) {
	ls.Errors = append(ls.Errors, err)
}

// HasErrors reports whether any rows were skipped.
func (ls *LoadStats) HasErrors() bool {
	return len(ls.Errors) > 0
}

// String returns a one-line load summary.
func (ls *LoadStats) String() string {
	return fmt.Sprintf("Read %d lines, %d records (%d valid), %d errors",
		ls.TotalLines, ls.RecordsRead, ls.RecordsValid, len(ls.Errors))
}

// SampleErrors returns up to maxSamples row error messages for logging.
func (ls *LoadStats) SampleErrors(maxSamples int) []string {
	if len(ls.Errors) == 0 {
		return nil
	}
	limit := len(ls.Errors)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}
	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ls.Errors[i].Error())
	}
	return samples
}
