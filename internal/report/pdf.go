package report

import (
	"bytes"
	"fmt"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/jung-kurt/gofpdf"
)

// maxMessageChars keeps each message on one table row.
const maxMessageChars = 70

// BuildPDF renders a build response as a one-table PDF report.
func BuildPDF(resp core.Response) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Build Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	lines := []string{
		fmt.Sprintf("Object: %s", resp.ObjectName),
		fmt.Sprintf("Schema: %s", resp.Schema),
		fmt.Sprintf("Build: %s", resp.BuildID),
		fmt.Sprintf("Status: %s (%s)", resp.Status, resp.Outcome),
		fmt.Sprintf("Errors: %d  Warnings: %d",
			count(resp.Messages, core.SeverityError),
			count(resp.Messages, core.SeverityWarning)),
	}
	if resp.Path != "" {
		lines = append(lines,
			fmt.Sprintf("Path: %s", resp.Path),
			fmt.Sprintf("Version: %s", resp.VersionID))
	}
	for _, l := range lines {
		pdf.Cell(0, 6, l)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	if len(resp.Messages) == 0 {
		pdf.Cell(0, 6, "No validation messages.")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(18, 6, "Severity", "1", 0, "C", false, 0, "")
		pdf.CellFormat(42, 6, "Code", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Location", "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 6, "Message", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
		for _, m := range resp.Messages {
			pdf.CellFormat(18, 6, string(m.Severity), "1", 0, "L", false, 0, "")
			pdf.CellFormat(42, 6, m.Code, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, truncate(locate(m), 28), "1", 0, "L", false, 0, "")
			pdf.CellFormat(90, 6, truncate(m.Message, maxMessageChars), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
