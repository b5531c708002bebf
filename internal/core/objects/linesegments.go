package objects

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/core"
)

// LineSegmentsSchema is written into every line segments document.
const LineSegmentsSchema = "/objects/line-segments/2.1.0/line-segments.schema.json"

// LineSegmentsMapping binds the vertices and segments tables:
//
//	{"x": "X", "y": "Y", "z": "Z", "start_index": "FROM_V", "end_index": "TO_V"}
//
// attributes is accepted as an alias of vertex_attributes.
type LineSegmentsMapping struct {
	X                 string   `json:"x"`
	Y                 string   `json:"y"`
	Z                 string   `json:"z"`
	StartIndex        string   `json:"start_index"`
	EndIndex          string   `json:"end_index"`
	Attributes        []string `json:"attributes,omitempty"`
	VertexAttributes  []string `json:"vertex_attributes,omitempty"`
	SegmentAttributes []string `json:"segment_attributes,omitempty"`
}

func (m *LineSegmentsMapping) ObjectType() core.ObjectType { return core.ObjectLineSegments }

func (m *LineSegmentsMapping) Bindings() []core.TableBinding {
	return []core.TableBinding{
		{
			Table:      TableVertices,
			Required:   xyz("", m.X, m.Y, m.Z),
			Attributes: m.vertexAttributes(),
		},
		{
			Table: TableSegments,
			Required: []core.RoleColumn{
				{Role: "start_index", Column: m.StartIndex},
				{Role: "end_index", Column: m.EndIndex},
			},
			Attributes: m.SegmentAttributes,
		},
	}
}

func (m *LineSegmentsMapping) vertexAttributes() []string {
	out := make([]string, 0, len(m.Attributes)+len(m.VertexAttributes))
	seen := make(map[string]bool)
	for _, col := range append(append([]string(nil), m.Attributes...), m.VertexAttributes...) {
		if !seen[col] {
			seen[col] = true
			out = append(out, col)
		}
	}
	return out
}

// Segment joins two vertices by position.
type Segment struct {
	Start      int                   `json:"start_index"`
	End        int                   `json:"end_index"`
	Attributes map[string]core.Value `json:"attributes,omitempty"`
}

// LineSegments is the content of a line segments draft.
type LineSegments struct {
	BoundingBox             *core.BoundingBox `json:"bounding_box,omitempty"`
	VertexAttributeColumns  []string          `json:"vertex_attribute_columns,omitempty"`
	SegmentAttributeColumns []string          `json:"segment_attribute_columns,omitempty"`
	Vertices                []Vertex          `json:"vertices"`
	Segments                []Segment         `json:"segments"`

	segmentLines []int
	startColumn  string
	endColumn    string
}

func (l *LineSegments) ObjectType() core.ObjectType { return core.ObjectLineSegments }

// AttributeSets implements the shared attribute check.
func (l *LineSegments) AttributeSets() []core.AttributeSet {
	segs := core.AttributeSet{Table: TableSegments, Columns: l.SegmentAttributeColumns}
	if len(segs.Columns) > 0 {
		segs.Rows = make([]map[string]core.Value, len(l.Segments))
		for i, s := range l.Segments {
			segs.Rows[i] = s.Attributes
		}
	}
	return []core.AttributeSet{
		vertexAttributes(TableVertices, l.VertexAttributeColumns, l.Vertices),
		segs,
	}
}

func decodeLineSegmentsMapping(raw json.RawMessage) (core.ColumnMapping, error) {
	var m LineSegmentsMapping
	if err := core.DecodeStrict(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func buildLineSegments(m *core.ResolvedMapping) (core.Content, error) {
	vt := m.Table(TableVertices)
	vertices, ext, err := buildVertices(vt)
	if err != nil {
		return nil, err
	}

	st := m.Table(TableSegments)
	n := st.Table.Len()
	out := &LineSegments{
		BoundingBox:             ext.box(),
		VertexAttributeColumns:  vt.Attributes,
		SegmentAttributeColumns: st.Attributes,
		Vertices:                vertices,
		Segments:                make([]Segment, 0, n),
		segmentLines:            make([]int, 0, n),
		startColumn:             st.Columns["start_index"],
		endColumn:               st.Columns["end_index"],
	}

	// Indices are taken as given; range checks belong to validation.
	for row := 0; row < n; row++ {
		start, err := st.Integer(row, "start_index")
		if err != nil {
			return nil, err
		}
		end, err := st.Integer(row, "end_index")
		if err != nil {
			return nil, err
		}
		out.Segments = append(out.Segments, Segment{
			Start:      start,
			End:        end,
			Attributes: st.AttributeValues(row),
		})
		out.segmentLines = append(out.segmentLines, st.Line(row))
	}
	return out, nil
}

func validateLineSegments(c core.Content, r *core.ValidationReport) {
	l := c.(*LineSegments)
	n := len(l.Vertices)
	first := make(map[[2]int]int, len(l.Segments))

	for i, s := range l.Segments {
		ref := core.RowRef(TableSegments, i, l.line(i))

		var bad []string
		var cols []string
		if s.Start < 0 || s.Start >= n {
			bad = append(bad, fmt.Sprintf("start_index %d", s.Start))
			cols = append(cols, l.startColumn)
		}
		if s.End < 0 || s.End >= n {
			bad = append(bad, fmt.Sprintf("end_index %d", s.End))
			cols = append(cols, l.endColumn)
		}
		if len(bad) > 0 {
			ref.Column = strings.Join(cols, ",")
			r.Errorf(core.CodeIndexOutOfRange, ref,
				"segment %d: %s out of range; %d vertices exist (valid indices 0 to %d)",
				i, strings.Join(bad, " and "), n, n-1)
			continue
		}

		if s.Start == s.End {
			r.Warnf(core.CodeSelfReferentialSegment, ref,
				"segment %d starts and ends at vertex %d", i, s.Start)
			continue
		}

		key := [2]int{min(s.Start, s.End), max(s.Start, s.End)}
		if prev, dup := first[key]; dup {
			r.Warnf(core.CodeDuplicateSegment, ref,
				"segment %d duplicates segment %d (vertices %d and %d)", i, prev, key[0], key[1])
			continue
		}
		first[key] = i
	}
}

func (l *LineSegments) line(i int) int {
	if i < len(l.segmentLines) {
		return l.segmentLines[i]
	}
	return i + 2
}

func init() {
	core.Register(core.ObjectDefinition{
		Type:          core.ObjectLineSegments,
		Label:         "Line segments",
		SchemaID:      LineSegmentsSchema,
		Files:         []string{TableVertices, TableSegments},
		DecodeMapping: decodeLineSegmentsMapping,
		Build:         buildLineSegments,
		Validate:      validateLineSegments,
	})
}
