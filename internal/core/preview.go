package core

// preview.go lets callers inspect a source file before writing a column
// mapping for it: the detected headers, the inferred column types and the
// first few rows, as the loader sees them.

import "time"

// DefaultPreviewRows is the number of sample rows returned when the caller
// does not ask for a specific count.
const DefaultPreviewRows = 10

// maxPreviewRows caps the sample regardless of what the caller asks for.
const maxPreviewRows = 200

// ColumnPreview describes one header of a previewed table.
type ColumnPreview struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Empty    int        `json:"empty"`     // null cells across all rows
	Distinct int        `json:"distinct"`  // distinct non-null values across all rows
	Sample   string     `json:"sample"`    // first non-null value
}

// RowPreview is a single sampled row.
type RowPreview struct {
	Line   int              `json:"line"`
	Values map[string]Value `json:"values"`
}

// TablePreview is the response of a table preview.
type TablePreview struct {
	Path             string          `json:"path"`
	Role             string          `json:"role,omitempty"`
	TotalRows        int             `json:"total_rows"`
	Columns          []ColumnPreview `json:"columns"`
	Rows             []RowPreview    `json:"rows"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}

// PreviewTableFile loads path through src and summarises it. maxRows <= 0
// selects DefaultPreviewRows.
func PreviewTableFile(src FileSource, path, role string, maxRows int, opts LoadOptions) (*TablePreview, error) {
	start := time.Now()

	t, err := LoadTableFile(src, path, role, opts)
	if err != nil {
		return nil, err
	}

	p := PreviewTable(t, maxRows)
	p.Path = path
	p.ProcessingTimeMs = time.Since(start).Milliseconds()
	return p, nil
}

// PreviewTable summarises an already loaded table.
func PreviewTable(t *Table, maxRows int) *TablePreview {
	switch {
	case maxRows <= 0:
		maxRows = DefaultPreviewRows
	case maxRows > maxPreviewRows:
		maxRows = maxPreviewRows
	}

	p := &TablePreview{
		Role:      t.Role,
		TotalRows: t.Len(),
		Columns:   make([]ColumnPreview, 0, len(t.Columns)),
		Rows:      make([]RowPreview, 0, min(maxRows, t.Len())),
	}

	for _, col := range t.Columns {
		cp := ColumnPreview{Name: col, Type: t.Types[col]}
		seen := make(map[string]struct{})
		for _, row := range t.Rows {
			v := row[col]
			if v.IsNull() {
				cp.Empty++
				continue
			}
			if cp.Sample == "" {
				cp.Sample = v.String()
			}
			seen[v.String()] = struct{}{}
		}
		cp.Distinct = len(seen)
		p.Columns = append(p.Columns, cp)
	}

	for i := 0; i < t.Len() && i < maxRows; i++ {
		values := make(map[string]Value, len(t.Columns))
		for _, col := range t.Columns {
			values[col] = t.Rows[i][col]
		}
		p.Rows = append(p.Rows, RowPreview{Line: t.Line(i), Values: values})
	}

	return p
}
