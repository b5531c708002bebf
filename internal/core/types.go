package core

import (
	"encoding/json"
	"strconv"
)

// ValueKind identifies which field of a Value is meaningful.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueNumber
	ValueText
)

// Value is a single typed table cell. Raw holds the cleaned source text
// of a number cell; identifiers and attribute copies are taken from it so
// that "001" stays "001" even in a numeric column.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Raw  string
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Number wraps a float64.
func Number(f float64) Value { return Value{Kind: ValueNumber, Num: f} }

// NumberCell is a number read from source text raw.
func NumberCell(f float64, raw string) Value {
	return Value{Kind: ValueNumber, Num: f, Raw: raw}
}

// Text wraps a string.
func Text(s string) Value { return Value{Kind: ValueText, Str: s} }

// IsNull reports whether the cell was empty.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// String returns the cell as it would appear in the source file.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		if v.Raw != "" {
			return v.Raw
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case ValueText:
		return v.Str
	default:
		return ""
	}
}

// MarshalJSON encodes null cells as null and text as JSON strings. A
// number read from a file is written as its source text: as a JSON number
// when that text is one ("1e3", "0.50"), otherwise as a string ("007",
// "1,250.5").
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNumber:
		if v.Raw == "" {
			return json.Marshal(v.Num)
		}
		if isJSONNumber(v.Raw) {
			return []byte(v.Raw), nil
		}
		return json.Marshal(v.Raw)
	case ValueText:
		return json.Marshal(v.Str)
	default:
		return []byte("null"), nil
	}
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

// ColumnType is the inferred type of a table column.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnNumeric ColumnType = "numeric"
)

// Row maps column name to cell value.
type Row map[string]Value

// Table is a fully loaded tabular source.
// Row order is significant: it defines the positional indices used by
// vertex and segment references.
type Table struct {
	Role    string
	Source  string
	Columns []string
	Types   map[string]ColumnType
	Rows    []Row
	Lines   []int // 1-based source line of each row
}

// HasColumn reports whether name is one of the table's headers.
// Matching is exact and case-sensitive.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Types[name]
	return ok
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Line returns the 1-based source line of the 0-based data row.
// Tables built in memory without line information assume one line per
// row after a single header line.
func (t *Table) Line(row int) int {
	if row >= 0 && row < len(t.Lines) {
		return t.Lines[row]
	}
	return row + 2
}

// TableSet holds the loaded tables of one build request keyed by logical
// table name (points, vertices, segments, collar, survey,
// intervals.<name>, intervals).
type TableSet map[string]*Table

// ObjectType names a buildable geoscience object.
type ObjectType string

const (
	ObjectPointset           ObjectType = "pointset"
	ObjectLineSegments       ObjectType = "line_segments"
	ObjectDownholeCollection ObjectType = "downhole_collection"
	ObjectDownholeIntervals  ObjectType = "downhole_intervals"
)

// Content is the schema-specific payload of an ObjectDraft.
type Content interface {
	ObjectType() ObjectType
}

// ObjectDraft is the in-memory candidate object produced by a builder.
// It is created fresh per request and never mutated after validation.
type ObjectDraft struct {
	ObjectType  ObjectType `json:"object_type"`
	SchemaID    string     `json:"schema"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CRS         string     `json:"crs"`
	Content     Content    `json:"content"`
}

// Document renders the draft as the JSON-shaped content document handed
// to the persistence sink.
func (d *ObjectDraft) Document() ([]byte, error) {
	body, err := json.Marshal(d.Content)
	if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}

	meta := map[string]string{
		"schema":      d.SchemaID,
		"name":        d.Name,
		"description": d.Description,
		"crs":         d.CRS,
	}
	for k, v := range meta {
		raw, _ := json.Marshal(v)
		doc[k] = raw
	}
	return json.Marshal(doc)
}

// BoundingBox is the axis-aligned extent of a set of 3D coordinates.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
	MinZ float64 `json:"min_z"`
	MaxZ float64 `json:"max_z"`
}

// Point3 is a 3D coordinate.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}
