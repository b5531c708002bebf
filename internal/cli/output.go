package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/fatih/color"
)

// printResult renders a build result for a terminal.
func printResult(w io.Writer, res *core.BuildResult) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	resp := res.Response()
	errs := res.Report.Count(core.SeverityError)
	warns := res.Report.Count(core.SeverityWarning)

	fmt.Fprintf(w, "%s %s (%s)\n", resp.ObjectName, cyan.Sprint(resp.Schema), shortID(resp.BuildID))
	if res.Report.Validated() {
		green.Fprint(w, "validated")
	} else {
		red.Fprint(w, "failed")
	}
	fmt.Fprintf(w, ": %d error(s), %d warning(s)\n", errs, warns)

	for _, m := range resp.Messages {
		label := yellow.Sprint("warning")
		if m.Severity == core.SeverityError {
			label = red.Sprint("error  ")
		}
		fmt.Fprintf(w, "  %s %-28s %s", label, m.Code, m.Message)
		if loc := location(m); loc != "" {
			fmt.Fprintf(w, " %s", cyan.Sprintf("(%s)", loc))
		}
		fmt.Fprintln(w)
	}

	switch res.Outcome {
	case core.OutcomeCreated:
		fmt.Fprintf(w, "\ncreated %s\n", resp.Path)
		fmt.Fprintf(w, "  id:      %s\n", resp.ID)
		fmt.Fprintf(w, "  version: %s\n", resp.VersionID)
	case core.OutcomeDryRun:
		fmt.Fprintln(w, "\ndry run, nothing stored")
	case core.OutcomeRejected:
		fmt.Fprintln(w, "\nnothing stored")
	}
}

func location(m core.Message) string {
	var parts []string
	if m.Table != "" {
		parts = append(parts, m.Table)
	}
	if m.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", m.Line))
	}
	if m.Column != "" {
		parts = append(parts, m.Column)
	}
	if m.HoleID != "" {
		parts = append(parts, "hole "+m.HoleID)
	}
	return strings.Join(parts, ", ")
}

// printPreview renders a table preview as aligned text.
func printPreview(w io.Writer, p *core.TablePreview) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprintf(w, "%s", p.Path)
	fmt.Fprintf(w, ": %d row(s), %d column(s)\n\n", p.TotalRows, len(p.Columns))

	fmt.Fprintf(w, "  %-24s %-8s %6s %8s  %s\n", "COLUMN", "TYPE", "EMPTY", "DISTINCT", "SAMPLE")
	for _, c := range p.Columns {
		fmt.Fprintf(w, "  %-24s %-8s %6d %8d  %s\n", c.Name, c.Type, c.Empty, c.Distinct, c.Sample)
	}

	if len(p.Rows) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, row := range p.Rows {
		faint.Fprintf(w, "  %5d ", row.Line)
		vals := make([]string, len(p.Columns))
		for i, c := range p.Columns {
			vals[i] = row.Values[c.Name].String()
		}
		fmt.Fprintln(w, strings.Join(vals, " | "))
	}
}
