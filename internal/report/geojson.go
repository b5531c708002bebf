package report

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/JonMunkholm/geobuild/internal/core/objects"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoGeometry is returned for drafts without plottable coordinates.
var ErrNoGeometry = errors.New("draft has no geometry to export")

// BuildGeoJSON renders the planar geometry of a draft as a GeoJSON
// FeatureCollection. Elevations travel as a "z" property because orb
// geometries are two-dimensional.
//
// Segments with out-of-range indices and intervals without coordinates
// are skipped.
func BuildGeoJSON(d *core.ObjectDraft) ([]byte, error) {
	if d == nil {
		return nil, ErrNoGeometry
	}
	fc := geojson.NewFeatureCollection()

	switch c := d.Content.(type) {
	case *objects.Pointset:
		for i, p := range c.Points {
			f := geojson.NewFeature(orb.Point{p.X, p.Y})
			f.Properties = properties(p.Attributes)
			f.Properties["index"] = i
			f.Properties["z"] = p.Z
			fc.Append(f)
		}

	case *objects.LineSegments:
		n := len(c.Vertices)
		for i, s := range c.Segments {
			if s.Start < 0 || s.Start >= n || s.End < 0 || s.End >= n {
				continue
			}
			a, b := c.Vertices[s.Start], c.Vertices[s.End]
			f := geojson.NewFeature(orb.LineString{{a.X, a.Y}, {b.X, b.Y}})
			f.Properties = properties(s.Attributes)
			f.Properties["index"] = i
			f.Properties["z"] = []float64{a.Z, b.Z}
			fc.Append(f)
		}

	case *objects.DownholeCollection:
		for _, h := range c.Holes {
			if h.Collar == nil {
				continue
			}
			f := geojson.NewFeature(orb.Point{h.Collar.X, h.Collar.Y})
			f.Properties = properties(h.Collar.Attributes)
			f.Properties["hole_id"] = h.HoleID
			f.Properties["z"] = h.Collar.Z
			f.Properties["survey_stations"] = len(h.Survey)
			fc.Append(f)
		}

	case *objects.DownholeIntervalSet:
		for i, iv := range c.Intervals {
			f := intervalFeature(iv)
			if f == nil {
				continue
			}
			f.Properties["index"] = i
			f.Properties["hole_id"] = iv.HoleID
			f.Properties["from"] = iv.From
			f.Properties["to"] = iv.To
			fc.Append(f)
		}

	default:
		return nil, fmt.Errorf("geojson export of %T: %w", d.Content, ErrNoGeometry)
	}

	if len(fc.Features) == 0 {
		return nil, ErrNoGeometry
	}
	return fc.MarshalJSON()
}

// intervalFeature prefers the start-end trace and falls back to the
// mid point.
func intervalFeature(iv objects.SpatialInterval) *geojson.Feature {
	var f *geojson.Feature
	switch {
	case iv.Start != nil && iv.End != nil:
		f = geojson.NewFeature(orb.LineString{{iv.Start.X, iv.Start.Y}, {iv.End.X, iv.End.Y}})
		f.Properties = properties(iv.Attributes)
		f.Properties["z"] = []float64{iv.Start.Z, iv.End.Z}
	case iv.Mid != nil:
		f = geojson.NewFeature(orb.Point{iv.Mid.X, iv.Mid.Y})
		f.Properties = properties(iv.Attributes)
		f.Properties["z"] = iv.Mid.Z
	}
	return f
}

func properties(attrs map[string]core.Value) geojson.Properties {
	props := make(geojson.Properties, len(attrs)+2)
	for k, v := range attrs {
		props[k] = v
	}
	return props
}
