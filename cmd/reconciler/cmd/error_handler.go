package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	apperrors "invoice-grn-reconciliation/pkg/errors"
)

// CLIErrorHandler formats errors for terminal users
type CLIErrorHandler struct {
	verbose bool
	writer  io.Writer
}

// NewCLIErrorHandler creates an error handler writing to the given writer
func NewCLIErrorHandler(verbose bool, writer io.Writer) *CLIErrorHandler {
	return &CLIErrorHandler{
		verbose: verbose,
		writer:  writer,
	}
}

// HandleError prints a user-facing description of the error
func (h *CLIErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}

	if reconcilerErr, ok := apperrors.AsReconcilerError(err); ok {
		h.handleReconcilerError(reconcilerErr)
		return
	}
	h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleReconcilerError(err *apperrors.ReconcilerError) {
	fmt.Fprintf(h.writer, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintln(h.writer, "\nDetails:")
		for _, key := range keys {
			fmt.Fprintf(h.writer, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.writer, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := categoryHelp(err.Category); help != "" {
		fmt.Fprintf(h.writer, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.writer, "\nCaused by: %v\n", err.Cause)
	}
}

func (h *CLIErrorHandler) handleGenericError(err error) {
	message := err.Error()
	fmt.Fprintf(h.writer, "Error: %s\n", message)

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "no such file"):
		fmt.Fprintln(h.writer, "\nSuggestion: check that the file path is correct and the file exists")
	case strings.Contains(lower, "permission denied"):
		fmt.Fprintln(h.writer, "\nSuggestion: check that you have read access to the input files and write access to the database")
	case strings.Contains(lower, "no space left"):
		fmt.Fprintln(h.writer, "\nSuggestion: free up disk space and retry")
	}
}

// categoryHelp returns general guidance for an error category
func categoryHelp(category apperrors.ErrorCategory) string {
	switch category {
	case apperrors.CategoryFile:
		return "File errors usually mean a missing or unreadable input. Verify the paths passed to --invoices, --invoice-lines, --grns, and --grn-lines."
	case apperrors.CategoryParse:
		return "Parse errors point at malformed CSV content. Check the reported line and column, and use --column-alias if your headers differ from the defaults."
	case apperrors.CategoryValidation:
		return "Validation errors mean a record or flag value failed a consistency check. The details above name the offending field."
	case apperrors.CategoryConfiguration:
		return "Configuration errors come from flag or config file values. Run with --help to review the accepted ranges."
	case apperrors.CategoryReconciliation:
		return "Reconciliation errors occur while matching records. Rerun with --verbose for per-invoice details."
	case apperrors.CategoryStorage:
		return "Storage errors come from the SQLite database. Verify the --db path is writable and not locked by another process."
	default:
		return ""
	}
}

// ExitCode maps an error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if reconcilerErr, ok := apperrors.AsReconcilerError(err); ok {
		return reconcilerErr.GetExitCode()
	}
	return 1
}
