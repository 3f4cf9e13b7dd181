// Package kernel defines the abstract geometry kernel interface used to
// turn floor sketches into slab solids. The sdfx subpackage is the only
// implementation.
package kernel

import "errors"

// ErrOutline is returned by Slab when the outline cannot bound a solid.
var ErrOutline = errors.New("kernel: outline needs at least 3 distinct points")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Slab extrudes a closed XY outline, given without a repeated closing
	// point, into a solid spanning z=0 to z=thickness.
	Slab(outline [][2]float64, thickness float64) (Solid, error)

	Union(a, b Solid) Solid
	Translate(s Solid, x, y, z float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
