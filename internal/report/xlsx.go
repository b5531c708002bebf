package report

import (
	"bytes"
	"fmt"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	messagesSheet = "Messages"
)

// BuildXLSX renders a build response as a workbook with a summary sheet
// and one row per validation message.
func BuildXLSX(resp core.Response) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(messagesSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	summary := [][2]any{
		{"Build Report", ""},
		{"", ""},
		{"Build ID", resp.BuildID},
		{"Object", resp.ObjectName},
		{"Schema", resp.Schema},
		{"Status", string(resp.Status)},
		{"Outcome", string(resp.Outcome)},
		{"Errors", count(resp.Messages, core.SeverityError)},
		{"Warnings", count(resp.Messages, core.SeverityWarning)},
	}
	if resp.Path != "" {
		summary = append(summary,
			[2]any{"Path", resp.Path},
			[2]any{"Object ID", resp.ID},
			[2]any{"Version", resp.VersionID},
		)
	}
	for i, kv := range summary {
		row := i + 1
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	header := []any{"Severity", "Code", "Message", "Table", "Line", "Column", "Hole"}
	if err := f.SetSheetRow(messagesSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, m := range resp.Messages {
		var line any
		if m.Line > 0 {
			line = m.Line
		}
		row := []any{string(m.Severity), m.Code, m.Message, m.Table, line, m.Column, m.HoleID}
		if err := f.SetSheetRow(messagesSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("write message %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func count(msgs []core.Message, sev core.Severity) int {
	n := 0
	for _, m := range msgs {
		if m.Severity == sev {
			n++
		}
	}
	return n
}
