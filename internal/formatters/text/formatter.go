// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"rollscan/internal/detector"
	"rollscan/internal/formatters"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and a run summary"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report detector.Report, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	records := formatters.FilterBySeverity(report.Flagged, options)
	if len(records) == 0 {
		var builder strings.Builder
		if len(report.Flagged) == 0 {
			builder.WriteString("No suspicious records found.\n")
		} else {
			builder.WriteString("No suspicious records at the selected confidence levels.\n")
		}
		f.appendSummary(&builder, report.Summary, options)
		return builder.String(), nil
	}

	var builder strings.Builder
	sorted := f.sortRecords(records)

	if options.Verbose {
		for _, rec := range sorted {
			f.appendDetailedRecord(&builder, rec, options)
		}
	} else {
		f.appendHeaders(&builder, options)
		for _, rec := range sorted {
			f.appendSummaryLine(&builder, rec, options)
		}
	}

	f.appendSummary(&builder, report.Summary, options)
	return builder.String(), nil
}

// sortRecords orders records by severity band, then by confidence within a
// band. Ordering is stable so equal records keep their pipeline order.
func (f *Formatter) sortRecords(records []detector.FlaggedRecord) []detector.FlaggedRecord {
	sorted := make([]detector.FlaggedRecord, len(records))
	copy(sorted, records)

	bandPriority := map[string]int{"high": 0, "medium": 1, "low": 2}
	sort.SliceStable(sorted, func(i, j int) bool {
		bi := bandPriority[detector.Severity(sorted[i].Confidence)]
		bj := bandPriority[detector.Severity(sorted[j].Confidence)]
		if bi != bj {
			return bi < bj
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, options formatters.FormatterOptions) {
	headerStr := fmt.Sprintf("%-8s %-10s %-12s %-22s %-7s %-10s %s\n",
		"LEVEL", "TYPE", "VOTER ID", "NAME", "CONF%", "GROUP", "REASON")
	if !options.NoColor {
		headerStr = f.colors["white"].Sprintf("%-8s %-10s %-12s %-22s %-7s %-10s %s\n",
			"LEVEL", "TYPE", "VOTER ID", "NAME", "CONF%", "GROUP", "REASON")
	}
	builder.WriteString(headerStr)

	separator := strings.Repeat("-", 100) + "\n"
	if !options.NoColor {
		separator = f.colors["white"].Sprint(strings.Repeat("-", 100) + "\n")
	}
	builder.WriteString(separator)
}

// appendSummaryLine adds a single line summary to the string builder
func (f *Formatter) appendSummaryLine(builder *strings.Builder, rec detector.FlaggedRecord, options formatters.FormatterOptions) {
	band := detector.Severity(rec.Confidence)

	levelStr := fmt.Sprintf("[%-6s]", strings.ToUpper(band))
	if !options.NoColor {
		levelStr = f.bandColor(band).Sprintf("[%-6s]", strings.ToUpper(band))
	}

	typeStr := fmt.Sprintf("%-10s", rec.RecordType)
	if !options.NoColor {
		typeStr = f.colors["cyan"].Sprintf("%-10s", rec.RecordType)
	}

	idStr := fmt.Sprintf("%-12s", truncate(rec.VoterID, 12))

	name := truncate(rec.Name, 22)
	nameStr := fmt.Sprintf("%-22s", name)
	if !options.NoColor {
		nameStr = f.colors["white"].Sprintf("%-22s", name)
	}

	confidenceStr := fmt.Sprintf("%5.1f%%", rec.Confidence*100)
	if !options.NoColor {
		confidenceStr = f.colors["blue"].Sprintf("%5.1f%%", rec.Confidence*100)
	}

	group := rec.GroupID
	if group == "" {
		group = "-"
	}
	groupStr := fmt.Sprintf("%-10s", truncate(group, 10))
	if !options.NoColor {
		groupStr = f.colors["magenta"].Sprintf("%-10s", truncate(group, 10))
	}

	fmt.Fprintf(builder, "%s %s %s %s %s  %s %s\n",
		levelStr, typeStr, idStr, nameStr, confidenceStr, groupStr, rec.PrimaryReason)
}

// appendDetailedRecord adds the full evidence block for one flagged record
func (f *Formatter) appendDetailedRecord(builder *strings.Builder, rec detector.FlaggedRecord, options formatters.FormatterOptions) {
	band := detector.Severity(rec.Confidence)

	if !options.NoColor {
		f.colors["white"].Fprintf(builder, "=== Flagged Record ===\n")
		f.colors["cyan"].Fprintf(builder, "Voter: ")
		f.colors["white"].Fprintf(builder, "%s", rec.VoterID)
		if rec.Name != "" {
			f.colors["white"].Fprintf(builder, " (%s)", rec.Name)
		}
		fmt.Fprintln(builder)
		f.colors["cyan"].Fprintf(builder, "Type: ")
		f.colors["white"].Fprintf(builder, "%s\n", rec.RecordType)
		f.colors["cyan"].Fprintf(builder, "Confidence: ")
		f.colors["blue"].Fprintf(builder, "%.1f%% ", rec.Confidence*100)
		f.bandColor(band).Fprintf(builder, "(%s)\n", strings.ToUpper(band))
		f.colors["cyan"].Fprintf(builder, "Reason: ")
		f.colors["white"].Fprintf(builder, "%s\n", rec.PrimaryReason)
	} else {
		fmt.Fprintf(builder, "=== Flagged Record ===\n")
		fmt.Fprintf(builder, "Voter: %s", rec.VoterID)
		if rec.Name != "" {
			fmt.Fprintf(builder, " (%s)", rec.Name)
		}
		fmt.Fprintln(builder)
		fmt.Fprintf(builder, "Type: %s\n", rec.RecordType)
		fmt.Fprintf(builder, "Confidence: %.1f%% (%s)\n", rec.Confidence*100, strings.ToUpper(band))
		fmt.Fprintf(builder, "Reason: %s\n", rec.PrimaryReason)
	}

	if rec.GroupID != "" {
		if !options.NoColor {
			f.colors["cyan"].Fprintf(builder, "Duplicate group: ")
			f.colors["magenta"].Fprintf(builder, "%s\n", rec.GroupID)
		} else {
			fmt.Fprintf(builder, "Duplicate group: %s\n", rec.GroupID)
		}
	}

	if len(rec.ContributingFactors) > 0 {
		if !options.NoColor {
			f.colors["cyan"].Fprintf(builder, "Contributing factors:\n")
		} else {
			fmt.Fprintf(builder, "Contributing factors:\n")
		}
		for _, factor := range rec.ContributingFactors {
			if !options.NoColor {
				fmt.Fprintf(builder, "- %s: ", factor.Name)
				f.colors["white"].Fprintf(builder, "%s ", factor.Value)
				f.colors["blue"].Fprintf(builder, "(weight %.2f)\n", factor.Weight)
			} else {
				fmt.Fprintf(builder, "- %s: %s (weight %.2f)\n", factor.Name, factor.Value, factor.Weight)
			}
		}
	}

	if rec.RecommendedAction != "" {
		if !options.NoColor {
			f.colors["cyan"].Fprintf(builder, "Recommended action: ")
			f.colors["white"].Fprintf(builder, "%s\n", rec.RecommendedAction)
		} else {
			fmt.Fprintf(builder, "Recommended action: %s\n", rec.RecommendedAction)
		}
	}

	fmt.Fprintln(builder)
}

// appendSummary renders the run summary block
func (f *Formatter) appendSummary(builder *strings.Builder, summary detector.Summary, options formatters.FormatterOptions) {
	fmt.Fprintln(builder)
	if !options.NoColor {
		f.colors["white"].Fprintf(builder, "=== Screening Summary ===\n")
	} else {
		fmt.Fprintf(builder, "=== Screening Summary ===\n")
	}

	fmt.Fprintf(builder, "Records evaluated: %d\n", summary.TotalEvaluated)
	fmt.Fprintf(builder, "Flagged: %d (ghost %d, duplicate %d, both %d)\n",
		summary.TotalFlagged, summary.GhostCount, summary.DuplicateCount, summary.BothCount)
	fmt.Fprintf(builder, "Duplicate groups: %d\n", summary.DuplicateGroups)

	if len(summary.Skipped) > 0 {
		fmt.Fprintf(builder, "Skipped records: %d\n", len(summary.Skipped))
		for _, issue := range summary.Skipped {
			if !options.NoColor {
				f.colors["yellow"].Fprintf(builder, "- %s\n", issue)
			} else {
				fmt.Fprintf(builder, "- %s\n", issue)
			}
		}
	}
}

func (f *Formatter) bandColor(band string) *color.Color {
	switch band {
	case "high":
		return f.colors["red"]
	case "medium":
		return f.colors["yellow"]
	default:
		return f.colors["green"]
	}
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
