package report

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats exact byte counts with thousands separators.
var printer = message.NewPrinter(language.English)

// formatBytes returns a human readable size such as "1.2 MB".
func formatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

// formatExact returns n with thousands separators, e.g. "1,234,567 bytes".
func formatExact(n int64) string {
	return printer.Sprintf("%d bytes", n)
}

// formatPercent renders a ratio as a percentage with one decimal.
func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// formatDelta renders a size change with an explicit sign.
func formatDelta(delta int64) string {
	switch {
	case delta > 0:
		return "+" + formatBytes(delta)
	case delta < 0:
		return formatBytes(delta)
	default:
		return "±0 B"
	}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
