// Package footprint derives the rectangular floor outline that sits under a
// door opening, spanning the door width and the host wall thickness.
package footprint

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/threshold/pkg/geom"
	"github.com/chazu/threshold/pkg/model"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrDegenerate is returned when the width or thickness cannot produce a
// footprint with area.
var ErrDegenerate = errors.New("footprint: degenerate dimensions")

// Footprint is the boundary under one door together with the data needed
// to place the floor built from it.
type Footprint struct {
	Boundary geom.Loop `json:"boundary"` // 4 edges, unrotated, corner at Anchor
	Centroid v3.Vec    `json:"centroid"`
	Anchor   v3.Vec    `json:"anchor"`
	Rotation float64   `json:"rotation"` // radians about +Z
}

// Build constructs the footprint for a door at anchor with the given
// rotation, width and wall thickness. The rectangle is built in the door's
// unrotated frame with anchor as its first corner:
//
//	P1 = anchor
//	P2 = P1 + (width, 0, 0)
//	P3 = P2 + (0, thickness, 0)
//	P4 = P1 + (0, thickness, 0)
//
// and edges P1→P2, P2→P3, P3→P4, P4→P1. Rotation is not applied here; see
// Placement.
func Build(anchor v3.Vec, rotation, width, thickness float64) (Footprint, error) {
	if !positive(width) {
		return Footprint{}, fmt.Errorf("%w: width %g", ErrDegenerate, width)
	}
	if !positive(thickness) {
		return Footprint{}, fmt.Errorf("%w: wall thickness %g", ErrDegenerate, thickness)
	}

	p1 := anchor
	p2 := v3.Vec{X: p1.X + width, Y: p1.Y, Z: p1.Z}
	p3 := v3.Vec{X: p2.X, Y: p2.Y + thickness, Z: p1.Z}
	p4 := v3.Vec{X: p1.X, Y: p1.Y + thickness, Z: p1.Z}

	boundary, err := geom.NewLoop(
		geom.Line{Start: p1, End: p2},
		geom.Line{Start: p2, End: p3},
		geom.Line{Start: p3, End: p4},
		geom.Line{Start: p4, End: p1},
	)
	if err != nil {
		return Footprint{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	return Footprint{
		Boundary: boundary,
		Centroid: p1.Add(p2).Add(p3).Add(p4).DivScalar(4),
		Anchor:   anchor,
		Rotation: rotation,
	}, nil
}

func positive(v float64) bool {
	return v > geom.Tolerance && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Placement returns the motion that puts a floor built from Boundary in
// its final position: first translate by Anchor−Centroid, then rotate by
// Rotation about the vertical axis through Anchor.
func (fp Footprint) Placement() geom.Placement {
	return geom.Placement{
		Offset: fp.Anchor.Sub(fp.Centroid),
		Pivot:  fp.Anchor,
		Angle:  fp.Rotation,
	}
}

// Placed returns the boundary after Placement has been applied.
func (fp Footprint) Placed() geom.Loop {
	return fp.Placement().Apply(fp.Boundary)
}

// Area returns the boundary area.
func (fp Footprint) Area() float64 {
	return fp.Boundary.Area()
}

// FromDoor reads the door's anchor, rotation and width and its host wall's
// thickness from doc and builds the footprint.
func FromDoor(doc *model.Document, doorID model.ElementID) (Footprint, error) {
	door, ok := doc.Door(doorID)
	if !ok {
		return Footprint{}, fmt.Errorf("door %s: %w", doorID.Short(), model.ErrNotFound)
	}
	wall, ok := doc.Wall(door.HostID)
	if !ok {
		return Footprint{}, fmt.Errorf("door %q host wall %s: %w", door.Name, door.HostID.Short(), model.ErrNotFound)
	}
	fp, err := Build(door.Anchor, door.Rotation, door.Width, wall.Thickness)
	if err != nil {
		return Footprint{}, fmt.Errorf("door %q: %w", door.Name, err)
	}
	return fp, nil
}
