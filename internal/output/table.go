// Package output provides terminal output utilities for brewmetrics.
//
// Report tables use ASCII layout with ANSI color for the rank column,
// gated by TTY detection and the NO_COLOR convention.
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/brewmetrics/internal/report"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorGray  = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderReportTable renders a ranked category report as a fixed-width table.
func RenderReportTable(r *report.Report) string {
	if r == nil || len(r.Items) == 0 {
		return "No data.\n"
	}

	var sb strings.Builder

	sb.WriteString(colorize(colorBold, fmt.Sprintf("%s (%s to %s)",
		r.Category,
		r.StartDate.Format("2006-01-02"),
		r.EndDate.Format("2006-01-02"))))
	sb.WriteString("\n")

	header := fmt.Sprintf("%-6s %-40s %15s %9s\n", "#", dimensionHeading(r.DimensionKey), "Count", "Percent")
	sb.WriteString(header)
	sb.WriteString(strings.Repeat("─", 73))
	sb.WriteString("\n")

	for _, it := range r.Items {
		sb.WriteString(fmt.Sprintf("%-6d %-40s %15s %8.2f%%\n",
			it.Number,
			truncate(it.Value, 40),
			humanize.Comma(it.Count),
			it.Percent))
	}

	sb.WriteString(strings.Repeat("─", 73))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Total: %s across %d %s\n",
		humanize.Comma(r.TotalCount), len(r.Items), pluralize(r.DimensionKey, len(r.Items))))

	return sb.String()
}

// dimensionHeading maps a dimension key to its column heading.
func dimensionHeading(key string) string {
	switch key {
	case "formula":
		return "Formula"
	case "cask":
		return "Cask"
	case "os_version":
		return "OS Version"
	case "command":
		return "Command"
	default:
		return "Dimension"
	}
}

// pluralize returns a rough plural of the dimension key for the footer.
func pluralize(key string, n int) string {
	name := strings.ReplaceAll(key, "_", " ")
	if n == 1 {
		return name
	}
	if strings.HasSuffix(name, "s") {
		return name + "es"
	}
	return name + "s"
}

// truncate truncates a string to maxLen runes, adding "..." if truncated.
// Counting runes keeps multi-byte dimension values from being split
// mid-sequence.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
