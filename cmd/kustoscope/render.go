package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"kustoscope/internal/types"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
	queryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	colHeadStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func renderWarning(msg string) string {
	return warnStyle.Render("! " + msg)
}

func renderError(err error) string {
	return errorStyle.Render("error: ") + err.Error()
}

// renderMarkdown renders markdown for the terminal, falling back to the
// raw text when the renderer is unavailable.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

// renderCandidate shows the query under review with its confidence and
// reasoning.
func renderCandidate(c *types.Candidate, warning string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Proposed query") + "\n\n")
	b.WriteString("  " + queryStyle.Render(c.Query) + "\n\n")
	fmt.Fprintf(&b, "  confidence: %.2f\n", c.Confidence)
	if c.Reasoning != "" {
		b.WriteString(mutedStyle.Render("  "+c.Reasoning) + "\n")
	}
	if warning != "" {
		b.WriteString("\n" + renderWarning(warning) + "\n")
	}
	return b.String()
}

const maxRenderRows = 50

// renderResult prints the first table as aligned columns.
func renderResult(result *types.ExecutionResult, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n",
		headerStyle.Render(fmt.Sprintf("%d row(s)", result.TotalRows())),
		mutedStyle.Render(elapsed.Round(time.Millisecond).String()))

	for _, tbl := range result.Tables {
		b.WriteString(renderTable(tbl))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTable(tbl types.Table) string {
	if len(tbl.Columns) == 0 {
		return mutedStyle.Render("(no columns)") + "\n"
	}

	widths := make([]int, len(tbl.Columns))
	for i, col := range tbl.Columns {
		widths[i] = len(col.Name)
	}
	shown := tbl.Rows
	if len(shown) > maxRenderRows {
		shown = shown[:maxRenderRows]
	}
	cells := make([][]string, len(shown))
	for ri, row := range shown {
		cells[ri] = make([]string, len(tbl.Columns))
		for ci := range tbl.Columns {
			s := formatCell(row[ci])
			cells[ri][ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}

	var b strings.Builder
	for i, col := range tbl.Columns {
		b.WriteString(colHeadStyle.Render(pad(col.Name, widths[i])))
		if i < len(tbl.Columns)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for _, row := range cells {
		for i, s := range row {
			b.WriteString(pad(s, widths[i]))
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	if len(tbl.Rows) > maxRenderRows {
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("... %d more row(s)", len(tbl.Rows)-maxRenderRows)))
	}
	return b.String()
}

func formatCell(v types.Value) string {
	if types.IsNull(v) {
		return "null"
	}
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%g", f)
	}
	return fmt.Sprintf("%v", v)
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

// renderAnalysis prints the deterministic statistics followed by any AI
// findings.
func renderAnalysis(res *types.AnalysisResult) string {
	var b strings.Builder

	if res.Statistical != nil {
		b.WriteString(headerStyle.Render("Statistics") + "\n")
		s := res.Statistical
		fmt.Fprintf(&b, "  rows: %d, tables: %d\n", s.Summary.TotalRows, s.Summary.TableCount)
		if n := s.Numerical; n != nil {
			fmt.Fprintf(&b, "  %s: min=%g max=%g mean=%.4g median=%g stddev=%.4g (%s)\n",
				n.Column, n.Min, n.Max, n.Mean, n.Median, n.StdDev, n.Distribution)
			if len(n.Outliers) > 0 {
				fmt.Fprintf(&b, "  outliers: %v\n", n.Outliers)
			}
		}
		if t := s.Temporal; t != nil {
			fmt.Fprintf(&b, "  %s: %s to %s, trend %s\n",
				t.Column, t.Start.Format(time.RFC3339), t.End.Format(time.RFC3339), t.Trend)
			if len(t.Gaps) > 0 {
				fmt.Fprintf(&b, "  gaps after: %v\n", t.Gaps)
			}
		}
		b.WriteString("\n")
	}

	if res.Patterns != nil {
		b.WriteString(headerStyle.Render("Patterns") + "\n")
		p := res.Patterns
		for _, tr := range p.Trends {
			fmt.Fprintf(&b, "  trend [%s]: %s\n", tr.Direction, tr.Description)
		}
		for _, an := range p.Anomalies {
			fmt.Fprintf(&b, "  anomaly [%s]: %s\n", an.Severity, an.Description)
		}
		for _, c := range p.Correlations {
			fmt.Fprintf(&b, "  correlation: %s\n", c.Description)
		}
		if len(p.Trends)+len(p.Anomalies)+len(p.Correlations) == 0 {
			b.WriteString(mutedStyle.Render("  none reported") + "\n")
		}
		b.WriteString("\n")
	}

	if res.Insights != nil {
		b.WriteString(headerStyle.Render("Insights") + "\n")
		for _, f := range res.Insights.KeyFindings {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
		if res.Insights.Interpretation != "" {
			b.WriteString(mutedStyle.Render("  "+res.Insights.Interpretation) + "\n")
		}
		if res.Insights.DataQuality != "" {
			b.WriteString(mutedStyle.Render("  data quality: "+res.Insights.DataQuality) + "\n")
		}
		b.WriteString("\n")
	}
	if res.AIInsights != "" {
		b.WriteString(renderMarkdown(res.AIInsights))
	}
	for _, r := range res.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	if len(res.FollowUps) > 0 {
		b.WriteString("\n" + headerStyle.Render("Follow-up queries") + "\n")
		for _, f := range res.FollowUps {
			fmt.Fprintf(&b, "  [%s] %s\n", f.Priority, f.Purpose)
			b.WriteString("    " + queryStyle.Render(f.Query) + "\n")
		}
	}
	return b.String()
}

// renderHistory lists the session's action records for selection.
func renderHistory(records []types.ActionRecord) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("History") + "\n")
	for i, r := range records {
		fmt.Fprintf(&b, "  %d. [%s] (%.2f) %s", i, r.Action, r.Confidence, r.Query)
		if r.Reason != "" {
			b.WriteString(mutedStyle.Render(" -- " + r.Reason))
		}
		b.WriteString("\n")
	}
	return b.String()
}
