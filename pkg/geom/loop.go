package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Tolerance is the distance below which two points are treated as the same
// point. It is expressed in internal units (feet) and matches the short
// curve tolerance of typical BIM hosts.
const Tolerance = 1e-6

var (
	// ErrEmptyLoop is returned when a loop is built from no segments.
	ErrEmptyLoop = errors.New("geom: loop has no segments")
	// ErrShortSegment is returned for a segment shorter than Tolerance.
	ErrShortSegment = errors.New("geom: segment is too short")
	// ErrOpenLoop is returned when consecutive segments do not connect.
	ErrOpenLoop = errors.New("geom: loop is not closed")
)

// Line is a straight, bound segment between two points.
type Line struct {
	Start v3.Vec `json:"start"`
	End   v3.Vec `json:"end"`
}

// NewLine returns the bound segment from a to b. It fails when the two
// points coincide.
func NewLine(a, b v3.Vec) (Line, error) {
	if a.Sub(b).Length() < Tolerance {
		return Line{}, fmt.Errorf("%w: (%g,%g,%g)", ErrShortSegment, a.X, a.Y, a.Z)
	}
	return Line{Start: a, End: b}, nil
}

// Length returns the segment length.
func (l Line) Length() float64 {
	return l.End.Sub(l.Start).Length()
}

// Direction returns the unit vector from Start to End.
func (l Line) Direction() v3.Vec {
	d := l.End.Sub(l.Start)
	n := d.Length()
	if n == 0 {
		return v3.Vec{}
	}
	return d.DivScalar(n)
}

// Transform applies m to both endpoints.
func (l Line) Transform(m sdf.M44) Line {
	return Line{Start: m.MulPosition(l.Start), End: m.MulPosition(l.End)}
}

// Loop is a closed sequence of connected segments. The end of each segment
// is the start of the next, and the last segment ends where the first one
// starts.
type Loop []Line

// NewLoop validates that lines form a closed chain and returns them as a
// Loop. The input order is preserved exactly.
func NewLoop(lines ...Line) (Loop, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyLoop
	}
	for i, l := range lines {
		if l.Length() < Tolerance {
			return nil, fmt.Errorf("%w: segment %d", ErrShortSegment, i)
		}
		next := lines[(i+1)%len(lines)]
		if !SamePoint(l.End, next.Start) {
			return nil, fmt.Errorf("%w: segment %d does not meet segment %d", ErrOpenLoop, i, (i+1)%len(lines))
		}
	}
	loop := make(Loop, len(lines))
	copy(loop, lines)
	return loop, nil
}

// LoopFromPoints connects pts in order and closes the chain back to the
// first point.
func LoopFromPoints(pts ...v3.Vec) (Loop, error) {
	if len(pts) < 3 {
		return nil, ErrEmptyLoop
	}
	lines := make([]Line, len(pts))
	for i := range pts {
		l, err := NewLine(pts[i], pts[(i+1)%len(pts)])
		if err != nil {
			return nil, err
		}
		lines[i] = l
	}
	return NewLoop(lines...)
}

// SamePoint reports whether a and b are within Tolerance of each other.
func SamePoint(a, b v3.Vec) bool {
	return a.Sub(b).Length() < Tolerance
}

// Vertices returns the start point of every segment, in order.
func (lp Loop) Vertices() []v3.Vec {
	pts := make([]v3.Vec, len(lp))
	for i, l := range lp {
		pts[i] = l.Start
	}
	return pts
}

// Centroid returns the average of the loop's vertices.
func (lp Loop) Centroid() v3.Vec {
	var sum v3.Vec
	if len(lp) == 0 {
		return sum
	}
	for _, l := range lp {
		sum = sum.Add(l.Start)
	}
	return sum.DivScalar(float64(len(lp)))
}

// SignedArea returns the shoelace area of the loop projected onto the XY
// plane. Counter-clockwise loops are positive.
func (lp Loop) SignedArea() float64 {
	var a float64
	for _, l := range lp {
		a += l.Start.X*l.End.Y - l.End.X*l.Start.Y
	}
	return a / 2
}

// Area returns the unsigned XY area enclosed by the loop.
func (lp Loop) Area() float64 {
	return math.Abs(lp.SignedArea())
}

// Lengths returns the length of every segment, in order.
func (lp Loop) Lengths() []float64 {
	out := make([]float64, len(lp))
	for i, l := range lp {
		out[i] = l.Length()
	}
	return out
}

// Perimeter returns the sum of segment lengths.
func (lp Loop) Perimeter() float64 {
	var p float64
	for _, l := range lp {
		p += l.Length()
	}
	return p
}

// Elevation returns the Z of the first vertex.
func (lp Loop) Elevation() float64 {
	if len(lp) == 0 {
		return 0
	}
	return lp[0].Start.Z
}

// IsHorizontal reports whether every vertex lies at the same elevation.
func (lp Loop) IsHorizontal() bool {
	z := lp.Elevation()
	for _, l := range lp {
		if math.Abs(l.Start.Z-z) > Tolerance || math.Abs(l.End.Z-z) > Tolerance {
			return false
		}
	}
	return true
}

// IsSimple reports whether no two non-adjacent segments touch when
// projected onto the XY plane.
func (lp Loop) IsSimple() bool {
	n := len(lp)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsTouch(lp[i], lp[j]) {
				return false
			}
		}
	}
	return true
}

// Transform returns a copy of the loop with m applied to every segment.
func (lp Loop) Transform(m sdf.M44) Loop {
	out := make(Loop, len(lp))
	for i, l := range lp {
		out[i] = l.Transform(m)
	}
	return out
}

// Clone returns a deep copy of the loop.
func (lp Loop) Clone() Loop {
	out := make(Loop, len(lp))
	copy(out, lp)
	return out
}

// Equal reports whether both loops have the same segments in the same
// order, within tol.
func (lp Loop) Equal(other Loop, tol float64) bool {
	if len(lp) != len(other) {
		return false
	}
	for i := range lp {
		if lp[i].Start.Sub(other[i].Start).Length() > tol || lp[i].End.Sub(other[i].End).Length() > tol {
			return false
		}
	}
	return true
}

// Bounds returns the XY bounding box of the loop.
func (lp Loop) Bounds() (min, max v3.Vec) {
	if len(lp) == 0 {
		return min, max
	}
	min, max = lp[0].Start, lp[0].Start
	for _, l := range lp {
		for _, p := range [2]v3.Vec{l.Start, l.End} {
			min = v3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
			max = v3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
		}
	}
	return min, max
}

// orient returns the sign of the XY cross product (b-a)x(c-a).
func orient(a, b, c v3.Vec) int {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case v > Tolerance:
		return 1
	case v < -Tolerance:
		return -1
	}
	return 0
}

// onSegment reports whether c, known to be collinear with a-b, lies within
// the segment's XY extent.
func onSegment(a, b, c v3.Vec) bool {
	return c.X <= math.Max(a.X, b.X)+Tolerance && c.X >= math.Min(a.X, b.X)-Tolerance &&
		c.Y <= math.Max(a.Y, b.Y)+Tolerance && c.Y >= math.Min(a.Y, b.Y)-Tolerance
}

func segmentsTouch(p, q Line) bool {
	o1 := orient(p.Start, p.End, q.Start)
	o2 := orient(p.Start, p.End, q.End)
	o3 := orient(q.Start, q.End, p.Start)
	o4 := orient(q.Start, q.End, p.End)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(p.Start, p.End, q.Start):
		return true
	case o2 == 0 && onSegment(p.Start, p.End, q.End):
		return true
	case o3 == 0 && onSegment(q.Start, q.End, p.Start):
		return true
	case o4 == 0 && onSegment(q.Start, q.End, p.End):
		return true
	}
	return false
}

// LoopsTouch reports whether any segment of a touches any segment of b
// when both are projected onto the XY plane.
func LoopsTouch(a, b Loop) bool {
	for _, p := range a {
		for _, q := range b {
			if segmentsTouch(p, q) {
				return true
			}
		}
	}
	return false
}
