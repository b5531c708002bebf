package objects

import (
	"math"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/paulmach/orb"
)

// extent accumulates the bounding box of a coordinate set: the planar
// bound through orb and the vertical range alongside it.
type extent struct {
	bound orb.Bound
	minZ  float64
	maxZ  float64
	empty bool
}

func newExtent() *extent {
	return &extent{empty: true, minZ: math.Inf(1), maxZ: math.Inf(-1)}
}

func (e *extent) add(p core.Point3) {
	pt := orb.Point{p.X, p.Y}
	if e.empty {
		e.bound = pt.Bound()
		e.empty = false
	} else {
		e.bound = e.bound.Extend(pt)
	}
	e.minZ = math.Min(e.minZ, p.Z)
	e.maxZ = math.Max(e.maxZ, p.Z)
}

// box returns nil when no coordinate was added.
func (e *extent) box() *core.BoundingBox {
	if e.empty {
		return nil
	}
	return &core.BoundingBox{
		MinX: e.bound.Min.X(),
		MaxX: e.bound.Max.X(),
		MinY: e.bound.Min.Y(),
		MaxY: e.bound.Max.Y(),
		MinZ: e.minZ,
		MaxZ: e.maxZ,
	}
}

// readPoint reads the x/y/z roles (with an optional prefix such as
// "start_") of a row.
func readPoint(t *core.ResolvedTable, row int, prefix string) (core.Point3, error) {
	x, err := t.Number(row, prefix+"x")
	if err != nil {
		return core.Point3{}, err
	}
	y, err := t.Number(row, prefix+"y")
	if err != nil {
		return core.Point3{}, err
	}
	z, err := t.Number(row, prefix+"z")
	if err != nil {
		return core.Point3{}, err
	}
	return core.Point3{X: x, Y: y, Z: z}, nil
}

// xyz returns the role bindings of a coordinate triple.
func xyz(prefix, x, y, z string) []core.RoleColumn {
	return []core.RoleColumn{
		{Role: prefix + "x", Column: x},
		{Role: prefix + "y", Column: y},
		{Role: prefix + "z", Column: z},
	}
}
