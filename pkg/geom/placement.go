package geom

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Placement is a two-step rigid motion: a translation by Offset followed by
// a rotation of Angle radians about the vertical axis through Pivot.
// The two steps are not interchangeable when Pivot differs from the point
// the offset was measured from.
type Placement struct {
	Offset v3.Vec  `json:"offset"`
	Pivot  v3.Vec  `json:"pivot"`
	Angle  float64 `json:"angle"` // radians, counter-clockwise about +Z
}

// Translation returns the first step as a matrix.
func (p Placement) Translation() sdf.M44 {
	return sdf.Translate3d(p.Offset)
}

// Rotation returns the second step as a matrix.
func (p Placement) Rotation() sdf.M44 {
	return RotationAbout(p.Pivot, p.Angle)
}

// Matrix returns both steps composed, translation applied first.
func (p Placement) Matrix() sdf.M44 {
	return p.Rotation().Mul(p.Translation())
}

// Apply returns lp placed by p.
func (p Placement) Apply(lp Loop) Loop {
	return lp.Transform(p.Matrix())
}

// RotationAbout returns the rotation by angle radians about the vertical
// axis passing through pivot.
func RotationAbout(pivot v3.Vec, angle float64) sdf.M44 {
	back := v3.Vec{}.Sub(pivot)
	return sdf.Translate3d(pivot).Mul(sdf.RotateZ(angle)).Mul(sdf.Translate3d(back))
}
