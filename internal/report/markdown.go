package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/assetship/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// The output is meant for CI job summaries and pull request comments,
// so it uses GitHub-flavored alerts and a mermaid size chart.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the build report in Markdown format.
func (w *MarkdownWriter) Write(report *model.BuildReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeArtifacts(md, report)
	w.writePatches(md, report)
	w.writeBuildOutput(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with build information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.BuildReport) {
	md.H1("Assetship Build Report")
	md.PlainText("")

	build := "-"
	if report.Build != nil {
		if report.Build.Skipped {
			build = "skipped"
		} else {
			build = "`" + strings.Join(report.Build.Command, " ") + "`"
		}
	}

	s := report.Summary()
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project", "`" + report.Project + "`"},
			{"Build Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Build Command", build},
			{"Original Size", formatBytes(s.OriginalBytes)},
			{"Compressed Size", formatBytes(s.CompressedBytes) + " (" + formatPercent(s.Ratio) + ")"},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.BuildReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	if report.Failed() {
		return "❌ Failed"
	}
	return "✅ Complete"
}

// writeAlert writes an alert summarizing the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.BuildReport) {
	s := report.Summary()
	warnings := 0
	for _, a := range report.Artifacts {
		if a != nil && a.Status() == model.StatusWarning {
			warnings++
		}
	}

	switch {
	case report.ErrorMessage != "":
		md.Cautionf("The build was aborted: %s", report.ErrorMessage)
	case s.Failed > 0:
		md.Cautionf("%d of %d artifact(s) failed to ship.", s.Failed, s.Artifacts)
	case warnings > 0:
		md.Warningf("%d artifact(s) shipped with warnings. %d patch(es) did not find their pattern.",
			warnings, s.PatchesMissed)
	default:
		md.Tip("All artifacts shipped. Saved " + formatBytes(report.Savings()) + ".")
	}
	md.PlainText("")
}

// writeArtifacts writes one row per compressed sibling and the size chart.
func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown, report *model.BuildReport) {
	md.H2("Artifacts")
	md.PlainText("")

	if len(report.Artifacts) == 0 {
		md.PlainText("No artifacts processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Artifacts))
	for _, a := range report.Artifacts {
		if a == nil {
			continue
		}
		status := a.Status().Symbol() + " " + a.Status().String()
		if len(a.Encoded) == 0 {
			rows = append(rows, []string{"`" + a.Name + "`", formatBytes(a.OriginalSize), "-", "-", "-", status})
			continue
		}
		for _, e := range a.Encoded {
			verified := "yes"
			if !e.Verified {
				verified = "no"
			}
			rows = append(rows, []string{
				"`" + a.Name + "`",
				formatBytes(a.OriginalSize),
				e.Encoding,
				formatBytes(e.Size) + " (" + formatPercent(e.Ratio) + ")",
				verified,
				status,
			})
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Artifact", "Original", "Encoding", "Compressed", "Verified", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)

	for _, a := range report.Artifacts {
		if a == nil {
			continue
		}
		if a.ErrorMessage != "" {
			md.Details(a.Name+" error", a.ErrorMessage)
		}
		if len(a.Warnings) > 0 {
			md.Details(a.Name+" warnings", strings.Join(a.Warnings, "\n"))
		}
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of compressed sizes per artifact.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.BuildReport) {
	if len(report.Artifacts) < 2 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Compressed Size by Artifact"),
		piechart.WithShowData(true),
	)
	for _, a := range report.Artifacts {
		if a == nil || a.CompressedSize() <= 0 {
			continue
		}
		chart.LabelAndIntValue(a.Name, uint64(a.CompressedSize()))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePatches writes the loader edits of every artifact.
func (w *MarkdownWriter) writePatches(md *markdown.Markdown, report *model.BuildReport) {
	var rows [][]string
	for _, a := range report.Artifacts {
		if a == nil {
			continue
		}
		for _, p := range a.Patches {
			rows = append(rows, []string{
				"`" + a.Name + "`",
				"`" + p.File + "`",
				"`" + truncateString(p.Find, 40) + "`",
				patchState(p),
			})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Patches")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Artifact", "File", "Find", "Result"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeBuildOutput writes the tail of the compile output when the build failed.
func (w *MarkdownWriter) writeBuildOutput(md *markdown.Markdown, report *model.BuildReport) {
	if report.Build == nil || report.Build.Output == "" || report.ErrorMessage == "" {
		return
	}
	md.H2("Build Output")
	md.PlainText("")
	md.PlainText("Exit code: " + strconv.Itoa(report.Build.ExitCode))
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightText, report.Build.Output)
	md.PlainText("")
}

// WriteComparison outputs the size changes between two builds in Markdown format.
func (w *MarkdownWriter) WriteComparison(c *Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Assetship Build Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project", "`" + c.Project + "`"},
			{"Previous Build", formatRef(c.Previous)},
			{"Current Build", formatRef(c.Current)},
		},
	})
	md.PlainText("")

	delta := c.Total.Compressed.Bytes()
	switch {
	case !c.Changed():
		md.Note("No size changes between the two builds.")
	case delta > 0:
		md.Warningf("Compressed size grew by %s (%s).", formatBytes(delta), formatPercent(c.Total.Compressed.Percent()))
	default:
		md.Tip("Compressed size shrank by " + formatBytes(-delta) + ".")
	}
	md.PlainText("")

	rows := make([][]string, 0, len(c.Artifacts)+1)
	for _, d := range c.Artifacts {
		rows = append(rows, []string{
			"`" + d.Name + "`",
			string(d.State),
			formatBytes(d.Original.Current),
			formatDelta(d.Original.Bytes()),
			formatBytes(d.Compressed.Current),
			formatDelta(d.Compressed.Bytes()),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		string(c.Total.State),
		formatBytes(c.Total.Original.Current),
		formatDelta(c.Total.Original.Bytes()),
		formatBytes(c.Total.Compressed.Current),
		formatDelta(c.Total.Compressed.Bytes()),
	})

	md.H2("Size Changes")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Artifact", "State", "Original", "Δ", "Compressed", "Δ"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [assetship](https://github.com/nao1215/assetship)*")
}
