// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"rollscan/internal/detector"
	"rollscan/internal/formatters"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(report detector.Report, options formatters.FormatterOptions) (string, error) {
	records := formatters.FilterBySeverity(report.Flagged, options)

	headers := []string{"Voter ID", "Name", "Record Type", "Severity", "Confidence", "Group", "Primary Reason", "Recommended Action"}
	if options.Verbose {
		headers = append(headers, "Contributing Factors")
	}

	csvRows := []string{strings.Join(headers, ",")}
	for _, rec := range records {
		csvRows = append(csvRows, f.createCSVRow(rec, options))
	}

	return strings.Join(csvRows, "\n"), nil
}

// createCSVRow creates a CSV row for one flagged record
func (f *Formatter) createCSVRow(rec detector.FlaggedRecord, options formatters.FormatterOptions) string {
	row := []string{
		f.escapeCSVField(rec.VoterID),
		f.escapeCSVField(rec.Name),
		f.escapeCSVField(string(rec.RecordType)),
		f.escapeCSVField(detector.Severity(rec.Confidence)),
		fmt.Sprintf("%.3f", rec.Confidence),
		f.escapeCSVField(rec.GroupID),
		f.escapeCSVField(rec.PrimaryReason),
		f.escapeCSVField(rec.RecommendedAction),
	}

	if options.Verbose {
		parts := make([]string, 0, len(rec.ContributingFactors))
		for _, factor := range rec.ContributingFactors {
			parts = append(parts, fmt.Sprintf("%s=%s (%.2f)", factor.Name, factor.Value, factor.Weight))
		}
		row = append(row, f.escapeCSVField(strings.Join(parts, "; ")))
	}

	return strings.Join(row, ",")
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	// Prevent CSV injection by sanitizing formula characters
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.Contains(field, ",") || strings.Contains(field, "\"") || strings.Contains(field, "\n") || strings.Contains(field, "\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prevents CSV injection attacks by sanitizing formula characters
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		// Prefix with single quote to prevent formula execution
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
