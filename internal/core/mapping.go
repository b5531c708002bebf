package core

// mapping.go binds a declared column mapping onto loaded tables.
//
// Each object type declares its mapping as its own struct (see
// internal/core/objects); all of them reduce to a list of TableBindings,
// one per logical table. Resolution is exact and case-sensitive and is
// all-or-nothing: either every binding resolves or the request fails
// before any builder runs.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RoleColumn pairs a semantic role with the column declared for it.
type RoleColumn struct {
	Role   string
	Column string
}

// TableBinding declares what one logical table must provide.
type TableBinding struct {
	Table      string       // logical table name, e.g. "collar" or "intervals.assay"
	Required   []RoleColumn // roles that must name an existing column
	Optional   []RoleColumn // roles resolved only when a column is named
	Attributes []string     // every listed column must exist
}

// ColumnMapping is a per-object-type mapping variant.
type ColumnMapping interface {
	ObjectType() ObjectType
	Bindings() []TableBinding
}

// ResolvedTable is a loaded table with its roles bound to columns.
type ResolvedTable struct {
	Name       string
	Table      *Table
	Columns    map[string]string // role -> column
	Attributes []string
}

// Has reports whether role was bound to a column.
func (r *ResolvedTable) Has(role string) bool {
	_, ok := r.Columns[role]
	return ok
}

// Value returns the cell bound to role in the given row.
// Unbound roles yield a null Value.
func (r *ResolvedTable) Value(row int, role string) Value {
	col, ok := r.Columns[role]
	if !ok {
		return Null()
	}
	return r.Table.Rows[row][col]
}

// AttributeValues copies the attribute columns of a row, in declared order.
func (r *ResolvedTable) AttributeValues(row int) map[string]Value {
	if len(r.Attributes) == 0 {
		return nil
	}
	attrs := make(map[string]Value, len(r.Attributes))
	for _, col := range r.Attributes {
		attrs[col] = r.Table.Rows[row][col]
	}
	return attrs
}

// Number coerces the role's cell to a float64, failing with a
// MalformedInputError that names the table, line and column.
func (r *ResolvedTable) Number(row int, role string) (float64, error) {
	v := r.Value(row, role)
	f, ok := AsNumber(v)
	if !ok {
		if v.IsNull() {
			return 0, malformed(r.Name, r.Table.Line(row), r.Columns[role], "%s is empty; a number is required", role)
		}
		return 0, malformed(r.Name, r.Table.Line(row), r.Columns[role], "value %q for %s is not a number", v.String(), role)
	}
	return f, nil
}

// Integer coerces the role's cell to an int.
func (r *ResolvedTable) Integer(row int, role string) (int, error) {
	v := r.Value(row, role)
	n, ok := AsInteger(v)
	if !ok {
		return 0, malformed(r.Name, r.Table.Line(row), r.Columns[role], "value %q for %s is not an integer", v.String(), role)
	}
	return n, nil
}

// Text returns the role's cell as a string; null is empty.
func (r *ResolvedTable) Text(row int, role string) string {
	return r.Value(row, role).String()
}

// Line returns the source line of row.
func (r *ResolvedTable) Line(row int) int {
	return r.Table.Line(row)
}

// ResolvedMapping holds every bound table of a request.
type ResolvedMapping struct {
	Mapping ColumnMapping
	Order   []string
	Tables  map[string]*ResolvedTable
}

// Table returns the bound table by logical name, or nil.
func (m *ResolvedMapping) Table(name string) *ResolvedTable {
	return m.Tables[name]
}

// ResolveMapping binds every role of m onto the tables in ts.
// It returns the first unresolved role as a *MissingColumnError; tables
// loaded without a corresponding binding are rejected the same way.
func ResolveMapping(m ColumnMapping, ts TableSet) (*ResolvedMapping, error) {
	bindings := m.Bindings()
	out := &ResolvedMapping{
		Mapping: m,
		Tables:  make(map[string]*ResolvedTable, len(bindings)),
	}

	for _, b := range bindings {
		t, ok := ts[b.Table]
		if !ok {
			return nil, &MissingColumnError{Table: b.Table, Detail: "no file was supplied for this table"}
		}

		rt := &ResolvedTable{
			Name:    b.Table,
			Table:   t,
			Columns: make(map[string]string, len(b.Required)+len(b.Optional)),
		}

		for _, rc := range b.Required {
			if rc.Column == "" || !t.HasColumn(rc.Column) {
				return nil, &MissingColumnError{Table: b.Table, Role: rc.Role, Column: rc.Column}
			}
			rt.Columns[rc.Role] = rc.Column
		}
		for _, rc := range b.Optional {
			if rc.Column == "" {
				continue
			}
			if !t.HasColumn(rc.Column) {
				return nil, &MissingColumnError{Table: b.Table, Role: rc.Role, Column: rc.Column}
			}
			rt.Columns[rc.Role] = rc.Column
		}
		for _, col := range b.Attributes {
			if !t.HasColumn(col) {
				return nil, &MissingColumnError{Table: b.Table, Role: "attributes", Column: col}
			}
		}
		rt.Attributes = append([]string(nil), b.Attributes...)

		out.Tables[b.Table] = rt
		out.Order = append(out.Order, b.Table)
	}

	for _, name := range sortedKeys(ts) {
		if _, bound := out.Tables[name]; !bound {
			return nil, &MissingColumnError{Table: name, Detail: "a file was supplied but the column mapping has no entry for it"}
		}
	}

	return out, nil
}

// DecodeMapping decodes raw into the mapping variant registered for t.
func DecodeMapping(t ObjectType, raw json.RawMessage) (ColumnMapping, error) {
	def, ok := Get(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, t)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("invalid column mapping: empty document: %w", ErrInvalidRequest)
	}
	m, err := def.DecodeMapping(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid column mapping for %s: %w: %w", t, err, ErrInvalidRequest)
	}
	return m, nil
}

// DecodeStrict unmarshals raw into v rejecting unknown fields, so a
// misspelled role fails instead of silently going unmapped.
func DecodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
