// Package geom holds the planar geometry used to describe floor sketches:
// bound line segments, closed loops, rigid placements about the vertical
// axis, and the display/internal unit conversion.
package geom
