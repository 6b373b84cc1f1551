// Package config assembles the runtime configurations of the CLI from
// flag values.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"invoice-grn-reconciliation/internal/loader"
	"invoice-grn-reconciliation/internal/matcher"
	"invoice-grn-reconciliation/internal/reporter"
)

// CreateMatchingConfig builds a matching configuration from the named
// profile, then applies the CLI tolerance overrides on top.
func CreateMatchingConfig(profile string, tolerancePercent float64, dateToleranceDays, chunkSize int, skipLineItems bool) (*matcher.MatchingConfig, error) {
	var config *matcher.MatchingConfig

	switch profile {
	case "", "default":
		config = matcher.DefaultMatchingConfig()
	case "strict":
		config = matcher.StrictMatchingConfig()
	case "relaxed":
		config = matcher.RelaxedMatchingConfig()
	default:
		return nil, fmt.Errorf("unknown matching profile %q, valid profiles: default, strict, relaxed", profile)
	}

	if tolerancePercent >= 0 {
		config.TolerancePercent = tolerancePercent
	}
	if dateToleranceDays >= 0 {
		config.DateToleranceDays = dateToleranceDays
	}
	if chunkSize > 0 {
		config.ChunkSize = chunkSize
	}
	config.SkipLineItems = skipLineItems

	return config, nil
}

// CreateLoaderConfig builds a loader configuration from the delimiter
// flag and any column alias overrides.
func CreateLoaderConfig(delimiter string, aliases []string) (*loader.LoaderConfig, error) {
	config := loader.DefaultLoaderConfig()

	if delimiter != "" {
		if utf8.RuneCountInString(delimiter) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
		}
		r, _ := utf8.DecodeRuneInString(delimiter)
		config.File.Delimiter = r
	}

	parsed, err := ParseColumnAliases(aliases)
	if err != nil {
		return nil, err
	}
	for canonical, actual := range parsed {
		config.ColumnAliases[canonical] = actual
	}

	return config, nil
}

// ParseColumnAliases parses "canonical=actual" pairs from the CLI into
// an alias map.
func ParseColumnAliases(pairs []string) (map[string]string, error) {
	aliases := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		canonical, actual, found := strings.Cut(pair, "=")
		canonical = strings.TrimSpace(canonical)
		actual = strings.TrimSpace(actual)
		if !found || canonical == "" || actual == "" {
			return nil, fmt.Errorf("invalid column alias %q, expected canonical=actual", pair)
		}
		aliases[canonical] = actual
	}
	return aliases, nil
}

// CreateReportConfig builds a report configuration for the requested
// output format.
func CreateReportConfig(format string, exceptionsOnly, includePerfect bool, maxListItems int) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	default:
		return nil, fmt.Errorf("invalid output format %q, valid formats: console, json, csv", format)
	}

	config.ExceptionsOnly = exceptionsOnly
	config.IncludePerfectMatches = includePerfect
	if maxListItems > 0 {
		config.MaxListItems = maxListItems
	}

	return config, nil
}
