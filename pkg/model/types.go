// Package model is the in-memory building document that the floor tools
// operate on: levels, walls, doors, floor types and the floor elements
// created from them. Every core operation receives a *Document explicitly.
package model

import (
	"fmt"

	"github.com/chazu/threshold/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ElementID identifies an element in a Document.
type ElementID string

// ZeroID is the empty element ID.
const ZeroID ElementID = ""

// NewElementID returns a fresh random element ID.
func NewElementID() ElementID {
	return ElementID(uuid.NewString())
}

// IsZero reports whether the ID is unset.
func (id ElementID) IsZero() bool {
	return id == ZeroID
}

// Short returns the first 8 characters of the ID for log output.
func (id ElementID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// String implements fmt.Stringer.
func (id ElementID) String() string {
	return string(id)
}

// WallKind classifies a wall type.
type WallKind int

const (
	WallBasic WallKind = iota
	WallStacked
	WallCurtain
	WallUnknown
)

func (k WallKind) String() string {
	switch k {
	case WallBasic:
		return "basic"
	case WallStacked:
		return "stacked"
	case WallCurtain:
		return "curtain"
	case WallUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("WallKind(%d)", int(k))
	}
}

// ParseWallKind maps a name ("basic", "stacked", "curtain", "unknown") to
// a WallKind.
func ParseWallKind(s string) (WallKind, error) {
	switch s {
	case "basic":
		return WallBasic, nil
	case "stacked":
		return WallStacked, nil
	case "curtain":
		return WallCurtain, nil
	case "unknown":
		return WallUnknown, nil
	}
	return 0, fmt.Errorf("invalid wall kind %q, expected basic, stacked, curtain or unknown", s)
}

// HostsFloors reports whether doors hosted by this kind of wall can carry
// a floor footprint. Curtain walls have no single thickness.
func (k WallKind) HostsFloors() bool {
	return k == WallBasic || k == WallStacked || k == WallUnknown
}

// Level is a horizontal datum that floors are anchored to.
type Level struct {
	ID        ElementID `json:"id"`
	Name      string    `json:"name"`
	Elevation float64   `json:"elevation"` // internal units
}

// Wall is the host of a door. Thickness is read as a single scalar.
type Wall struct {
	ID        ElementID `json:"id"`
	Name      string    `json:"name"`
	Thickness float64   `json:"thickness"` // internal units
	Kind      WallKind  `json:"kind"`
}

// Door is a door instance placed in a wall.
type Door struct {
	ID       ElementID `json:"id"`
	Name     string    `json:"name"`
	Anchor   v3.Vec    `json:"anchor"`   // insertion point, internal units
	Rotation float64   `json:"rotation"` // radians about +Z
	Width    float64   `json:"width"`    // internal units
	HostID   ElementID `json:"host_id"`
	LevelID  ElementID `json:"level_id"`
}

// FloorType is a named catalog entry for floors.
type FloorType struct {
	ID        ElementID `json:"id"`
	Name      string    `json:"name"`
	Thickness float64   `json:"thickness"` // internal units
}

// Floor is a floor element. Sketch holds the boundary loops exactly as
// they were created and subsequently moved or rotated.
type Floor struct {
	ID           ElementID   `json:"id"`
	TypeID       ElementID   `json:"type_id"`
	LevelID      ElementID   `json:"level_id"`
	Sketch       []geom.Loop `json:"sketch"`
	HeightOffset float64     `json:"height_offset"` // internal units above level
}

// LoopCount returns the number of boundary loops in the sketch.
func (f *Floor) LoopCount() int {
	return len(f.Sketch)
}

// Area returns the summed area of all sketch loops.
func (f *Floor) Area() float64 {
	return lo.SumBy(f.Sketch, func(lp geom.Loop) float64 { return lp.Area() })
}

// Clone returns a deep copy of the floor.
func (f *Floor) Clone() *Floor {
	c := *f
	c.Sketch = lo.Map(f.Sketch, func(lp geom.Loop, _ int) geom.Loop { return lp.Clone() })
	return &c
}

// Defaults contains document-wide settings.
type Defaults struct {
	Units         string  `json:"units"`          // display units, "mm" only
	SlabThickness float64 `json:"slab_thickness"` // internal units, used when a floor type has none
	HostVersion   int     `json:"host_version"`   // host API version the document emulates
}

// DefaultHostVersion is the host version assumed when none is configured.
const DefaultHostVersion = 2024

// DefaultSlabThickness is 150 mm expressed in internal units.
var DefaultSlabThickness = geom.ToInternal(150)
