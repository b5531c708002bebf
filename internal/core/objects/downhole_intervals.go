package objects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/core"
)

// DownholeIntervalsSchema is written into every downhole intervals
// document.
const DownholeIntervalsSchema = "/objects/downhole-intervals/1.0.1/downhole-intervals.schema.json"

// midTolerance scales with segment length; short segments use an
// absolute floor of the same value.
const midTolerance = 1e-6

// CompositedFlag is the is_composited mapping entry. It is either a JSON
// boolean applied to every interval or the name of a per-row column.
type CompositedFlag struct {
	Value  bool
	Column string
}

func (f *CompositedFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = CompositedFlag{}
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err == nil {
		f.Column = ""
		return nil
	}
	if err := json.Unmarshal(data, &f.Column); err != nil {
		return fmt.Errorf("is_composited must be a boolean or a column name")
	}
	f.Value = false
	return nil
}

func (f CompositedFlag) MarshalJSON() ([]byte, error) {
	if f.Column != "" {
		return json.Marshal(f.Column)
	}
	return json.Marshal(f.Value)
}

// DownholeIntervalsMapping is the flat mapping of a single interval table
// with pre-computed coordinates. Each of start, mid and end is either
// mapped with all three axes or left out.
type DownholeIntervalsMapping struct {
	HoleID       string         `json:"hole_id"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	StartX       string         `json:"start_x,omitempty"`
	StartY       string         `json:"start_y,omitempty"`
	StartZ       string         `json:"start_z,omitempty"`
	MidX         string         `json:"mid_x,omitempty"`
	MidY         string         `json:"mid_y,omitempty"`
	MidZ         string         `json:"mid_z,omitempty"`
	EndX         string         `json:"end_x,omitempty"`
	EndY         string         `json:"end_y,omitempty"`
	EndZ         string         `json:"end_z,omitempty"`
	Attributes   []string       `json:"attributes,omitempty"`
	IsComposited CompositedFlag `json:"is_composited"`
}

func (m *DownholeIntervalsMapping) ObjectType() core.ObjectType {
	return core.ObjectDownholeIntervals
}

func (m *DownholeIntervalsMapping) Bindings() []core.TableBinding {
	optional := make([]core.RoleColumn, 0, 10)
	optional = append(optional, xyz("start_", m.StartX, m.StartY, m.StartZ)...)
	optional = append(optional, xyz("mid_", m.MidX, m.MidY, m.MidZ)...)
	optional = append(optional, xyz("end_", m.EndX, m.EndY, m.EndZ)...)
	optional = append(optional, core.RoleColumn{Role: "is_composited", Column: m.IsComposited.Column})

	return []core.TableBinding{{
		Table: TableIntervals,
		Required: []core.RoleColumn{
			{Role: "hole_id", Column: m.HoleID},
			{Role: "from", Column: m.From},
			{Role: "to", Column: m.To},
		},
		Optional:   optional,
		Attributes: m.Attributes,
	}}
}

func (m *DownholeIntervalsMapping) checkTriples() error {
	triples := []struct {
		name    string
		x, y, z string
	}{
		{"start", m.StartX, m.StartY, m.StartZ},
		{"mid", m.MidX, m.MidY, m.MidZ},
		{"end", m.EndX, m.EndY, m.EndZ},
	}
	for _, t := range triples {
		set := 0
		for _, c := range []string{t.x, t.y, t.z} {
			if c != "" {
				set++
			}
		}
		if set != 0 && set != 3 {
			return fmt.Errorf("%s coordinates must map %s_x, %s_y and %s_z together", t.name, t.name, t.name, t.name)
		}
	}
	return nil
}

// SpatialInterval is an interval with coordinates supplied by the caller.
type SpatialInterval struct {
	HoleID       string                `json:"hole_id"`
	From         float64               `json:"from"`
	To           float64               `json:"to"`
	Start        *core.Point3          `json:"start,omitempty"`
	Mid          *core.Point3          `json:"mid,omitempty"`
	End          *core.Point3          `json:"end,omitempty"`
	IsComposited bool                  `json:"is_composited"`
	Attributes   map[string]core.Value `json:"attributes,omitempty"`

	row, line int
}

// DownholeIntervalSet is the content of a downhole intervals draft.
type DownholeIntervalSet struct {
	BoundingBox      *core.BoundingBox `json:"bounding_box,omitempty"`
	AttributeColumns []string          `json:"attribute_columns,omitempty"`
	Intervals        []SpatialInterval `json:"intervals"`
}

func (d *DownholeIntervalSet) ObjectType() core.ObjectType { return core.ObjectDownholeIntervals }

// AttributeSets implements the shared attribute check.
func (d *DownholeIntervalSet) AttributeSets() []core.AttributeSet {
	set := core.AttributeSet{Table: TableIntervals, Columns: d.AttributeColumns}
	if len(set.Columns) > 0 {
		set.Rows = make([]map[string]core.Value, len(d.Intervals))
		for i, iv := range d.Intervals {
			set.Rows[i] = iv.Attributes
		}
	}
	return []core.AttributeSet{set}
}

func decodeDownholeIntervalsMapping(raw json.RawMessage) (core.ColumnMapping, error) {
	var m DownholeIntervalsMapping
	if err := core.DecodeStrict(raw, &m); err != nil {
		return nil, err
	}
	if err := m.checkTriples(); err != nil {
		return nil, err
	}
	return &m, nil
}

// readOptionalPoint returns nil when the triple is unmapped or empty in
// this row. A partially empty triple is malformed.
func readOptionalPoint(t *core.ResolvedTable, row int, prefix string) (*core.Point3, error) {
	if !t.Has(prefix + "x") {
		return nil, nil
	}
	nulls := 0
	for _, axis := range []string{"x", "y", "z"} {
		if t.Value(row, prefix+axis).IsNull() {
			nulls++
		}
	}
	switch nulls {
	case 3:
		return nil, nil
	case 0:
		p, err := readPoint(t, row, prefix)
		if err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, &core.MalformedInputError{
			Table:  t.Name,
			Line:   t.Line(row),
			Column: t.Columns[prefix+"x"],
			Reason: fmt.Sprintf("%s coordinates are partially empty; supply x, y and z or none", strings.TrimSuffix(prefix, "_")),
		}
	}
}

func buildDownholeIntervals(m *core.ResolvedMapping) (core.Content, error) {
	mapping := m.Mapping.(*DownholeIntervalsMapping)
	t := m.Table(TableIntervals)
	ext := newExtent()

	out := &DownholeIntervalSet{
		AttributeColumns: t.Attributes,
		Intervals:        make([]SpatialInterval, 0, t.Table.Len()),
	}

	for row := 0; row < t.Table.Len(); row++ {
		id, err := holeIDRole(t, row, "hole_id")
		if err != nil {
			return nil, err
		}
		iv := SpatialInterval{
			HoleID:       id,
			IsComposited: mapping.IsComposited.Value,
			Attributes:   t.AttributeValues(row),
			row:          row,
			line:         t.Line(row),
		}
		if iv.From, err = t.Number(row, "from"); err != nil {
			return nil, err
		}
		if iv.To, err = t.Number(row, "to"); err != nil {
			return nil, err
		}
		if iv.Start, err = readOptionalPoint(t, row, "start_"); err != nil {
			return nil, err
		}
		if iv.Mid, err = readOptionalPoint(t, row, "mid_"); err != nil {
			return nil, err
		}
		if iv.End, err = readOptionalPoint(t, row, "end_"); err != nil {
			return nil, err
		}
		if t.Has("is_composited") {
			v := t.Value(row, "is_composited")
			flag, ok := core.AsBool(v)
			if !ok {
				return nil, &core.MalformedInputError{
					Table:  t.Name,
					Line:   t.Line(row),
					Column: t.Columns["is_composited"],
					Reason: fmt.Sprintf("value %q for is_composited is not a boolean", v.String()),
				}
			}
			iv.IsComposited = flag
		}

		for _, p := range []*core.Point3{iv.Start, iv.Mid, iv.End} {
			if p != nil {
				ext.add(*p)
			}
		}
		out.Intervals = append(out.Intervals, iv)
	}

	out.BoundingBox = ext.box()
	return out, nil
}

func validateDownholeIntervals(c core.Content, r *core.ValidationReport) {
	d := c.(*DownholeIntervalSet)
	for _, iv := range d.Intervals {
		ref := core.Ref{Table: TableIntervals, Row: iv.row, Line: iv.line, HoleID: iv.HoleID}

		switch {
		case iv.From < 0:
			r.Errorf(core.CodeInvalidInterval, ref,
				"hole %q: interval from depth %g is negative", iv.HoleID, iv.From)
		case iv.From >= iv.To:
			r.Errorf(core.CodeInvalidInterval, ref,
				"hole %q: interval from %g must be less than to %g", iv.HoleID, iv.From, iv.To)
		}

		if iv.Start == nil || iv.End == nil || iv.Mid == nil {
			continue
		}
		dist, length := distanceToSegment(*iv.Mid, *iv.Start, *iv.End)
		if tol := midTolerance * math.Max(1, length); dist > tol {
			r.Warnf(core.CodeMidOutsideSegment, ref,
				"hole %q: mid point of interval %g-%g lies %.6g off its start-end segment",
				iv.HoleID, iv.From, iv.To, dist)
		}
	}
}

// distanceToSegment returns the distance from p to the closed segment ab
// and the segment's length.
func distanceToSegment(p, a, b core.Point3) (dist, length float64) {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	l2 := dx*dx + dy*dy + dz*dz

	t := 0.0
	if l2 > 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy + (p.Z-a.Z)*dz) / l2
		t = math.Max(0, math.Min(1, t))
	}
	cx, cy, cz := a.X+t*dx-p.X, a.Y+t*dy-p.Y, a.Z+t*dz-p.Z
	return math.Sqrt(cx*cx + cy*cy + cz*cz), math.Sqrt(l2)
}

func init() {
	core.Register(core.ObjectDefinition{
		Type:          core.ObjectDownholeIntervals,
		Label:         "Downhole intervals",
		SchemaID:      DownholeIntervalsSchema,
		Files:         []string{TableIntervals},
		DecodeMapping: decodeDownholeIntervalsMapping,
		Build:         buildDownholeIntervals,
		Validate:      validateDownholeIntervals,
	})
}
