package objects

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/core"
)

// DownholeCollectionSchema is written into every downhole collection
// document.
const DownholeCollectionSchema = "/objects/downhole-collection/1.3.0/downhole-collection.schema.json"

// CollarMapping binds the collar table.
type CollarMapping struct {
	ID         string   `json:"id"`
	X          string   `json:"x"`
	Y          string   `json:"y"`
	Z          string   `json:"z"`
	Attributes []string `json:"attributes,omitempty"`
}

// SurveyMapping binds the survey table.
type SurveyMapping struct {
	ID      string `json:"id"`
	Depth   string `json:"depth"`
	Azimuth string `json:"azimuth"`
	Dip     string `json:"dip"`
}

// IntervalMapping binds one named interval table.
type IntervalMapping struct {
	ID         string   `json:"id"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Attributes []string `json:"attributes,omitempty"`
}

// DownholeCollectionMapping nests one sub-mapping per logical table:
//
//	{
//	  "collar":    {"id": "HOLEID", "x": "EAST", "y": "NORTH", "z": "RL"},
//	  "survey":    {"id": "HOLEID", "depth": "DEPTH", "azimuth": "AZI", "dip": "DIP"},
//	  "intervals": {"assay": {"id": "HOLEID", "from": "FROM", "to": "TO", "attributes": ["AU"]}}
//	}
type DownholeCollectionMapping struct {
	Collar    CollarMapping              `json:"collar"`
	Survey    SurveyMapping              `json:"survey"`
	Intervals map[string]IntervalMapping `json:"intervals,omitempty"`
}

func (m *DownholeCollectionMapping) ObjectType() core.ObjectType {
	return core.ObjectDownholeCollection
}

func (m *DownholeCollectionMapping) Bindings() []core.TableBinding {
	bindings := []core.TableBinding{
		{
			Table: TableCollar,
			Required: append([]core.RoleColumn{{Role: "id", Column: m.Collar.ID}},
				xyz("", m.Collar.X, m.Collar.Y, m.Collar.Z)...),
			Attributes: m.Collar.Attributes,
		},
		{
			Table: TableSurvey,
			Required: []core.RoleColumn{
				{Role: "id", Column: m.Survey.ID},
				{Role: "depth", Column: m.Survey.Depth},
				{Role: "azimuth", Column: m.Survey.Azimuth},
				{Role: "dip", Column: m.Survey.Dip},
			},
		},
	}
	for _, name := range m.intervalNames() {
		im := m.Intervals[name]
		bindings = append(bindings, core.TableBinding{
			Table: IntervalTable(name),
			Required: []core.RoleColumn{
				{Role: "id", Column: im.ID},
				{Role: "from", Column: im.From},
				{Role: "to", Column: im.To},
			},
			Attributes: im.Attributes,
		})
	}
	return bindings
}

func (m *DownholeCollectionMapping) intervalNames() []string {
	names := make([]string, 0, len(m.Intervals))
	for name := range m.Intervals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collar is the surface location of a hole.
type Collar struct {
	X          float64               `json:"x"`
	Y          float64               `json:"y"`
	Z          float64               `json:"z"`
	Attributes map[string]core.Value `json:"attributes,omitempty"`

	line int
}

// SurveyStation is one depth/azimuth/dip measurement.
type SurveyStation struct {
	Depth   float64 `json:"depth"`
	Azimuth float64 `json:"azimuth"`
	Dip     float64 `json:"dip"`

	row, line int
}

// Interval is a depth-bounded run of a hole from one interval table.
type Interval struct {
	From       float64               `json:"from"`
	To         float64               `json:"to"`
	Attributes map[string]core.Value `json:"attributes,omitempty"`

	row, line int
}

// Hole aggregates everything known about one hole identifier. Collar is
// nil for holes that appear only in survey or interval tables.
type Hole struct {
	HoleID    string                `json:"hole_id"`
	Collar    *Collar               `json:"collar,omitempty"`
	Survey    []SurveyStation       `json:"survey"`
	Intervals map[string][]Interval `json:"intervals,omitempty"`
}

// DownholeCollection is the content of a downhole collection draft.
type DownholeCollection struct {
	BoundingBox              *core.BoundingBox   `json:"bounding_box,omitempty"`
	CollarAttributeColumns   []string            `json:"collar_attribute_columns,omitempty"`
	IntervalTables           []string            `json:"interval_tables,omitempty"`
	IntervalAttributeColumns map[string][]string `json:"interval_attribute_columns,omitempty"`
	Holes                    []*Hole             `json:"holes"`
}

func (d *DownholeCollection) ObjectType() core.ObjectType { return core.ObjectDownholeCollection }

// Hole returns the hole with the given identifier, or nil.
func (d *DownholeCollection) Hole(id string) *Hole {
	for _, h := range d.Holes {
		if h.HoleID == id {
			return h
		}
	}
	return nil
}

// AttributeSets implements the shared attribute check.
func (d *DownholeCollection) AttributeSets() []core.AttributeSet {
	sets := make([]core.AttributeSet, 0, 1+len(d.IntervalTables))

	collars := core.AttributeSet{Table: TableCollar, Columns: d.CollarAttributeColumns}
	for _, h := range d.Holes {
		if h.Collar != nil {
			collars.Rows = append(collars.Rows, h.Collar.Attributes)
		}
	}
	sets = append(sets, collars)

	for _, name := range d.IntervalTables {
		set := core.AttributeSet{Table: IntervalTable(name), Columns: d.IntervalAttributeColumns[name]}
		for _, h := range d.Holes {
			for _, iv := range h.Intervals[name] {
				set.Rows = append(set.Rows, iv.Attributes)
			}
		}
		sets = append(sets, set)
	}
	return sets
}

func decodeDownholeCollectionMapping(raw json.RawMessage) (core.ColumnMapping, error) {
	var m DownholeCollectionMapping
	if err := core.DecodeStrict(raw, &m); err != nil {
		return nil, err
	}
	for name := range m.Intervals {
		if strings.TrimSpace(name) == "" || strings.Contains(name, ".") {
			return nil, fmt.Errorf("interval table name %q must be non-empty and must not contain '.'", name)
		}
	}
	return &m, nil
}

// holeIndex maps hole identifiers to their assembled entries. Order
// records first appearance, collars first.
type holeIndex struct {
	holes map[string]*Hole
	order []string
}

func (x *holeIndex) get(id string) *Hole {
	h, ok := x.holes[id]
	if !ok {
		h = &Hole{HoleID: id, Survey: []SurveyStation{}}
		x.holes[id] = h
		x.order = append(x.order, id)
	}
	return h
}

func holeID(t *core.ResolvedTable, row int) (string, error) {
	return holeIDRole(t, row, "id")
}

// holeIDRole reads a hole identifier; an empty identifier is malformed.
func holeIDRole(t *core.ResolvedTable, row int, role string) (string, error) {
	id := strings.TrimSpace(t.Text(row, role))
	if id == "" {
		return "", &core.MalformedInputError{
			Table:  t.Name,
			Line:   t.Line(row),
			Column: t.Columns[role],
			Reason: "hole id is empty",
		}
	}
	return id, nil
}

func buildDownholeCollection(m *core.ResolvedMapping) (core.Content, error) {
	mapping := m.Mapping.(*DownholeCollectionMapping)
	idx := &holeIndex{holes: make(map[string]*Hole)}
	ext := newExtent()

	ct := m.Table(TableCollar)
	for row := 0; row < ct.Table.Len(); row++ {
		id, err := holeID(ct, row)
		if err != nil {
			return nil, err
		}
		if h, dup := idx.holes[id]; dup {
			return nil, &core.MalformedInputError{
				Table:  TableCollar,
				Line:   ct.Line(row),
				Column: ct.Columns["id"],
				Reason: fmt.Sprintf("duplicate hole id %q (first seen at line %d)", id, h.Collar.line),
			}
		}
		p, err := readPoint(ct, row, "")
		if err != nil {
			return nil, err
		}
		ext.add(p)
		idx.get(id).Collar = &Collar{
			X:          p.X,
			Y:          p.Y,
			Z:          p.Z,
			Attributes: ct.AttributeValues(row),
			line:       ct.Line(row),
		}
	}

	st := m.Table(TableSurvey)
	for row := 0; row < st.Table.Len(); row++ {
		id, err := holeID(st, row)
		if err != nil {
			return nil, err
		}
		station := SurveyStation{row: row, line: st.Line(row)}
		if station.Depth, err = st.Number(row, "depth"); err != nil {
			return nil, err
		}
		if station.Azimuth, err = st.Number(row, "azimuth"); err != nil {
			return nil, err
		}
		if station.Dip, err = st.Number(row, "dip"); err != nil {
			return nil, err
		}
		h := idx.get(id)
		h.Survey = append(h.Survey, station)
	}
	for _, h := range idx.holes {
		sort.SliceStable(h.Survey, func(i, j int) bool {
			return h.Survey[i].Depth < h.Survey[j].Depth
		})
	}

	names := mapping.intervalNames()
	attrCols := make(map[string][]string, len(names))
	for _, name := range names {
		it := m.Table(IntervalTable(name))
		attrCols[name] = it.Attributes
		for row := 0; row < it.Table.Len(); row++ {
			id, err := holeID(it, row)
			if err != nil {
				return nil, err
			}
			iv := Interval{Attributes: it.AttributeValues(row), row: row, line: it.Line(row)}
			if iv.From, err = it.Number(row, "from"); err != nil {
				return nil, err
			}
			if iv.To, err = it.Number(row, "to"); err != nil {
				return nil, err
			}
			h := idx.get(id)
			if h.Intervals == nil {
				h.Intervals = make(map[string][]Interval)
			}
			h.Intervals[name] = append(h.Intervals[name], iv)
		}
	}

	out := &DownholeCollection{
		BoundingBox:            ext.box(),
		CollarAttributeColumns: ct.Attributes,
		IntervalTables:         names,
		Holes:                  make([]*Hole, 0, len(idx.order)),
	}
	if len(names) > 0 {
		out.IntervalAttributeColumns = attrCols
	}
	for _, id := range idx.order {
		out.Holes = append(out.Holes, idx.holes[id])
	}
	return out, nil
}

func validateDownholeCollection(c core.Content, r *core.ValidationReport) {
	d := c.(*DownholeCollection)
	for _, h := range d.Holes {
		if h.Collar == nil {
			checkOrphan(r, d, h)
		}
		checkSurvey(r, h)
		for _, name := range d.IntervalTables {
			checkIntervals(r, IntervalTable(name), h.HoleID, h.Intervals[name])
		}
	}
}

func checkOrphan(r *core.ValidationReport, d *DownholeCollection, h *Hole) {
	if len(h.Survey) > 0 {
		ref := core.TableRef(TableSurvey)
		ref.HoleID = h.HoleID
		r.Warnf(core.CodeOrphanedReference, ref,
			"hole %q has %d survey stations but no collar", h.HoleID, len(h.Survey))
	}
	for _, name := range d.IntervalTables {
		if n := len(h.Intervals[name]); n > 0 {
			ref := core.TableRef(IntervalTable(name))
			ref.HoleID = h.HoleID
			r.Warnf(core.CodeOrphanedReference, ref,
				"hole %q has %d intervals in table %q but no collar", h.HoleID, n, name)
		}
	}
}

func checkSurvey(r *core.ValidationReport, h *Hole) {
	ref := func(s SurveyStation) core.Ref {
		return core.Ref{Table: TableSurvey, Row: s.row, Line: s.line, HoleID: h.HoleID}
	}

	// Stations are stored sorted by depth; ordering is checked against
	// the order they were supplied in.
	supplied := append([]SurveyStation(nil), h.Survey...)
	sort.SliceStable(supplied, func(i, j int) bool { return supplied[i].row < supplied[j].row })

	for _, s := range supplied {
		if s.Depth < 0 {
			r.Errorf(core.CodeDepthOutOfRange, ref(s),
				"hole %q: survey depth %g is negative", h.HoleID, s.Depth)
		}
		if s.Azimuth < 0 || s.Azimuth >= 360 {
			r.Errorf(core.CodeAzimuthOutOfRange, ref(s),
				"hole %q: azimuth %g at depth %g is outside [0, 360)", h.HoleID, s.Azimuth, s.Depth)
		}
		if s.Dip < -90 || s.Dip > 90 {
			r.Errorf(core.CodeDipOutOfRange, ref(s),
				"hole %q: dip %g at depth %g is outside [-90, 90]", h.HoleID, s.Dip, s.Depth)
		}
	}

	for i := 1; i < len(supplied); i++ {
		prev, cur := supplied[i-1], supplied[i]
		if cur.Depth <= prev.Depth {
			r.Errorf(core.CodeNonMonotonicDepth, ref(cur),
				"hole %q: survey depths are not strictly increasing (%g at line %d follows %g at line %d)",
				h.HoleID, cur.Depth, cur.line, prev.Depth, prev.line)
			break
		}
	}
}

// checkIntervals validates the intervals of one hole from one table.
// Intervals of other tables are never compared against these.
func checkIntervals(r *core.ValidationReport, table, hole string, intervals []Interval) {
	ref := func(iv Interval) core.Ref {
		return core.Ref{Table: table, Row: iv.row, Line: iv.line, HoleID: hole}
	}

	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		switch {
		case iv.From < 0:
			r.Errorf(core.CodeInvalidInterval, ref(iv),
				"hole %q: interval from depth %g is negative", hole, iv.From)
		case iv.From >= iv.To:
			r.Errorf(core.CodeInvalidInterval, ref(iv),
				"hole %q: interval from %g must be less than to %g", hole, iv.From, iv.To)
		default:
			valid = append(valid, iv)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].From < valid[j].From })
	// reach is the interval extending deepest among those already seen.
	var reach Interval
	for i, cur := range valid {
		if i > 0 && cur.From < reach.To {
			r.Warnf(core.CodeOverlappingInterval, ref(cur),
				"hole %q: interval %g-%g (line %d) overlaps %g-%g (line %d)",
				hole, cur.From, cur.To, cur.line, reach.From, reach.To, reach.line)
		}
		if i == 0 || cur.To > reach.To {
			reach = cur
		}
	}
}

func init() {
	core.Register(core.ObjectDefinition{
		Type:          core.ObjectDownholeCollection,
		Label:         "Downhole collection",
		SchemaID:      DownholeCollectionSchema,
		Files:         []string{TableCollar, TableSurvey, IntervalTable("<name>")},
		DecodeMapping: decodeDownholeCollectionMapping,
		Build:         buildDownholeCollection,
		Validate:      validateDownholeCollection,
	})
}
