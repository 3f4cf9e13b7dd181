package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/threshold/pkg/geom"
)

// ErrInvalidSketch is the error every SketchError unwraps to.
var ErrInvalidSketch = errors.New("model: invalid floor sketch")

// SketchError describes why a set of boundary loops cannot become a floor.
type SketchError struct {
	Loop   int // index of the offending loop, -1 for sketch-level problems
	Reason string
}

func (e *SketchError) Error() string {
	if e.Loop < 0 {
		return fmt.Sprintf("invalid floor sketch: %s", e.Reason)
	}
	return fmt.Sprintf("invalid floor sketch: loop %d: %s", e.Loop, e.Reason)
}

func (e *SketchError) Unwrap() error {
	return ErrInvalidSketch
}

// ValidateSketch checks the loops the way a host would before creating a
// floor: at least one loop; every loop closed, horizontal, simple and of
// non-zero area; all loops at one elevation; no two loops touching.
// It is read-only.
func ValidateSketch(loops []geom.Loop) error {
	if len(loops) == 0 {
		return &SketchError{Loop: -1, Reason: "no boundary loops"}
	}

	z := loops[0].Elevation()
	for i, lp := range loops {
		if len(lp) < 3 {
			return &SketchError{Loop: i, Reason: fmt.Sprintf("%d segments, need at least 3", len(lp))}
		}
		if _, err := geom.NewLoop(lp...); err != nil {
			return &SketchError{Loop: i, Reason: err.Error()}
		}
		if !lp.IsHorizontal() {
			return &SketchError{Loop: i, Reason: "loop is not horizontal"}
		}
		if math.Abs(lp.Elevation()-z) > geom.Tolerance {
			return &SketchError{Loop: i, Reason: fmt.Sprintf("elevation %.6f differs from %.6f", lp.Elevation(), z)}
		}
		if lp.Area() < geom.Tolerance {
			return &SketchError{Loop: i, Reason: "loop encloses no area"}
		}
		if !lp.IsSimple() {
			return &SketchError{Loop: i, Reason: "loop intersects itself"}
		}
	}

	for i := 0; i < len(loops); i++ {
		for j := i + 1; j < len(loops); j++ {
			if geom.LoopsTouch(loops[i], loops[j]) {
				return &SketchError{Loop: j, Reason: fmt.Sprintf("loop touches loop %d", i)}
			}
		}
	}
	return nil
}
