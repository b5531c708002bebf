package objects

import (
	"encoding/json"

	"github.com/JonMunkholm/geobuild/internal/core"
)

// PointsetSchema is written into every pointset document.
const PointsetSchema = "/objects/pointset/1.2.0/pointset.schema.json"

// PointsetMapping is the flat column mapping of a pointset:
//
//	{"x": "EAST", "y": "NORTH", "z": "RL", "attributes": ["AU_PPM"]}
type PointsetMapping struct {
	X          string   `json:"x"`
	Y          string   `json:"y"`
	Z          string   `json:"z"`
	Attributes []string `json:"attributes,omitempty"`
}

func (m *PointsetMapping) ObjectType() core.ObjectType { return core.ObjectPointset }

func (m *PointsetMapping) Bindings() []core.TableBinding {
	return []core.TableBinding{{
		Table:      TablePoints,
		Required:   xyz("", m.X, m.Y, m.Z),
		Attributes: m.Attributes,
	}}
}

// Vertex is a 3D coordinate with the attribute values of its row.
type Vertex struct {
	X          float64               `json:"x"`
	Y          float64               `json:"y"`
	Z          float64               `json:"z"`
	Attributes map[string]core.Value `json:"attributes,omitempty"`
}

// Pointset is the content of a pointset draft.
type Pointset struct {
	BoundingBox      *core.BoundingBox `json:"bounding_box,omitempty"`
	AttributeColumns []string          `json:"attribute_columns,omitempty"`
	Points           []Vertex          `json:"points"`
}

func (p *Pointset) ObjectType() core.ObjectType { return core.ObjectPointset }

// AttributeSets implements the shared attribute check.
func (p *Pointset) AttributeSets() []core.AttributeSet {
	return []core.AttributeSet{vertexAttributes(TablePoints, p.AttributeColumns, p.Points)}
}

func decodePointsetMapping(raw json.RawMessage) (core.ColumnMapping, error) {
	var m PointsetMapping
	if err := core.DecodeStrict(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func buildPointset(m *core.ResolvedMapping) (core.Content, error) {
	t := m.Table(TablePoints)
	points, ext, err := buildVertices(t)
	if err != nil {
		return nil, err
	}
	return &Pointset{
		BoundingBox:      ext.box(),
		AttributeColumns: t.Attributes,
		Points:           points,
	}, nil
}

// buildVertices reads one vertex per row, in row order. A null or
// non-numeric coordinate aborts the build.
func buildVertices(t *core.ResolvedTable) ([]Vertex, *extent, error) {
	ext := newExtent()
	vertices := make([]Vertex, 0, t.Table.Len())
	for row := 0; row < t.Table.Len(); row++ {
		p, err := readPoint(t, row, "")
		if err != nil {
			return nil, nil, err
		}
		ext.add(p)
		vertices = append(vertices, Vertex{
			X:          p.X,
			Y:          p.Y,
			Z:          p.Z,
			Attributes: t.AttributeValues(row),
		})
	}
	return vertices, ext, nil
}

func vertexAttributes(table string, columns []string, vertices []Vertex) core.AttributeSet {
	set := core.AttributeSet{Table: table, Columns: columns}
	if len(columns) == 0 {
		return set
	}
	set.Rows = make([]map[string]core.Value, len(vertices))
	for i, v := range vertices {
		set.Rows[i] = v.Attributes
	}
	return set
}

func init() {
	core.Register(core.ObjectDefinition{
		Type:          core.ObjectPointset,
		Label:         "Pointset",
		SchemaID:      PointsetSchema,
		Files:         []string{TablePoints},
		DecodeMapping: decodePointsetMapping,
		Build:         buildPointset,
	})
}
