package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/assetship/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display: plain ASCII rules and
// aligned columns so that it can be piped into CI logs unchanged.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to say are shown.
	showEmpty bool

	// verbose adds paths, digests and the build output tail.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the build report in human-readable format.
func (w *SimpleWriter) Write(report *model.BuildReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "ASSETSHIP BUILD REPORT")
	w.writeBuildInfo(&sb, report)
	w.writeArtifacts(&sb, report)
	w.writeTotals(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes a centered title between two rules.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, title string) {
	pad := (ruleWidth - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

// writeSection writes a section title followed by a dashed rule.
func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBuildInfo(sb *strings.Builder, report *model.BuildReport) {
	fmt.Fprintf(sb, "Project:        %s\n", report.Project)
	fmt.Fprintf(sb, "Build Date:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration().Round(time.Millisecond))

	switch {
	case report.Build == nil:
		if w.showEmpty {
			sb.WriteString("Build Command:  none\n")
		}
	case report.Build.Skipped:
		sb.WriteString("Build Command:  skipped\n")
	default:
		fmt.Fprintf(sb, "Build Command:  %s (exit %d, %s)\n",
			strings.Join(report.Build.Command, " "),
			report.Build.ExitCode,
			report.Build.Duration.Round(time.Millisecond))
	}

	switch {
	case report.TimedOut:
		sb.WriteString("Status:         TIMED OUT (partial results)\n")
	case report.ErrorMessage != "":
		fmt.Fprintf(sb, "Status:         ERROR - %s\n", report.ErrorMessage)
	case report.Failed():
		sb.WriteString("Status:         FAILED\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")

	if w.verbose && report.Build != nil && report.Build.Output != "" {
		w.writeSection(sb, "BUILD OUTPUT")
		for _, line := range strings.Split(strings.TrimRight(report.Build.Output, "\n"), "\n") {
			sb.WriteString("  " + line + "\n")
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, report *model.BuildReport) {
	if len(report.Artifacts) == 0 {
		if w.showEmpty {
			w.writeSection(sb, "ARTIFACTS")
			sb.WriteString("  No artifacts processed.\n\n")
		}
		return
	}

	w.writeSection(sb, "ARTIFACTS")
	for _, a := range report.Artifacts {
		if a == nil {
			continue
		}
		fmt.Fprintf(sb, "  [%s] %s  %s (%s)\n",
			a.Status().Symbol(), a.Name, formatBytes(a.OriginalSize), formatExact(a.OriginalSize))

		if w.verbose {
			if a.SourcePath != "" {
				fmt.Fprintf(sb, "      from:   %s\n", a.SourcePath)
			}
			if a.DestPath != "" {
				fmt.Fprintf(sb, "      to:     %s\n", a.DestPath)
			}
			if a.Digest != "" {
				fmt.Fprintf(sb, "      sha3:   %s\n", a.Digest)
			}
		}

		for _, e := range a.Encoded {
			verified := "verified"
			if !e.Verified {
				verified = "not verified"
			}
			fmt.Fprintf(sb, "      %-6s %10s  %6s  %s\n",
				e.Encoding, formatBytes(e.Size), formatPercent(e.Ratio), verified)
		}

		for _, p := range a.Patches {
			fmt.Fprintf(sb, "      patch %s: %s\n", p.File, patchState(p))
		}
		if len(a.Patches) == 0 && w.showEmpty {
			sb.WriteString("      no patches\n")
		}

		for _, warn := range a.Warnings {
			fmt.Fprintf(sb, "      warning: %s\n", warn)
		}
		if a.ErrorMessage != "" {
			fmt.Fprintf(sb, "      error: %s\n", a.ErrorMessage)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, report *model.BuildReport) {
	s := report.Summary()

	w.writeSection(sb, "TOTAL")
	fmt.Fprintf(sb, "  Artifacts:    %d (%d failed)\n", s.Artifacts, s.Failed)
	fmt.Fprintf(sb, "  Original:     %s\n", formatBytes(s.OriginalBytes))
	fmt.Fprintf(sb, "  Compressed:   %s (%s)\n", formatBytes(s.CompressedBytes), formatPercent(s.Ratio))
	fmt.Fprintf(sb, "  Saved:        %s\n", formatBytes(report.Savings()))
	if s.PatchesApplied+s.PatchesMissed > 0 || w.showEmpty {
		fmt.Fprintf(sb, "  Patches:      %d applied, %d missed\n", s.PatchesApplied, s.PatchesMissed)
	}
	sb.WriteString("\n")
}

// WriteComparison outputs the size changes between two builds.
func (w *SimpleWriter) WriteComparison(c *Comparison) (int, error) {
	var sb strings.Builder
	title := cases.Title(language.English)

	w.writeHeader(&sb, "ASSETSHIP BUILD COMPARISON")
	fmt.Fprintf(&sb, "Project:        %s\n", c.Project)
	fmt.Fprintf(&sb, "Previous Build: %s\n", formatRef(c.Previous))
	fmt.Fprintf(&sb, "Current Build:  %s\n\n", formatRef(c.Current))

	w.writeSection(&sb, "ARTIFACTS")
	if len(c.Artifacts) == 0 {
		sb.WriteString("  No artifacts in either build.\n")
	}
	for _, d := range c.Artifacts {
		fmt.Fprintf(&sb, "  %-24s %-10s original %s (%s)  compressed %s (%s)\n",
			truncateString(d.Name, 24),
			title.String(string(d.State)),
			formatBytes(d.Original.Current), formatDelta(d.Original.Bytes()),
			formatBytes(d.Compressed.Current), formatDelta(d.Compressed.Bytes()))
	}
	sb.WriteString("\n")

	w.writeSection(&sb, "TOTAL")
	fmt.Fprintf(&sb, "  Original:     %s -> %s (%s)\n",
		formatBytes(c.Total.Original.Previous), formatBytes(c.Total.Original.Current), formatDelta(c.Total.Original.Bytes()))
	fmt.Fprintf(&sb, "  Compressed:   %s -> %s (%s, %s)\n",
		formatBytes(c.Total.Compressed.Previous), formatBytes(c.Total.Compressed.Current),
		formatDelta(c.Total.Compressed.Bytes()), formatPercent(c.Total.Compressed.Percent()))
	if !c.Changed() {
		sb.WriteString("\n  No size changes.\n")
	}
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func patchState(p model.PatchResult) string {
	switch {
	case p.Patched:
		return "applied"
	case p.AlreadyApplied:
		return "already applied"
	default:
		return "pattern not found"
	}
}

func formatRef(r BuildRef) string {
	s := r.Timestamp.Format("2006-01-02 15:04:05")
	if r.ID > 0 {
		s = fmt.Sprintf("#%d %s", r.ID, s)
	}
	if r.Failed {
		s += " (failed)"
	}
	return s
}
