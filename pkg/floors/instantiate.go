// Package floors turns footprints into floor elements and merges floors
// that share a type and level into one multi-loop floor.
//
// Hosts come in two capability tiers. Modern hosts accept a list of closed
// loops; legacy hosts accept one flat curve list and therefore only one
// loop. Only the modern instantiator implements LoopCreator, so a Merger
// cannot be built for a legacy host.
package floors

import (
	"errors"
	"fmt"

	"github.com/chazu/threshold/pkg/footprint"
	"github.com/chazu/threshold/pkg/geom"
	"github.com/chazu/threshold/pkg/model"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrFloorTypeNotFound is returned when no floor type has the requested
// name.
var ErrFloorTypeNotFound = errors.New("floors: floor type not found")

// Document is the part of the host document used to create, place and
// delete floors.
type Document interface {
	FindFloorTypeByName(name string) (model.ElementID, bool)
	NewFloor(loops []geom.Loop, typeID, levelID model.ElementID) (*model.Floor, error)
	NewFloorFromCurves(curves []geom.Line, typeID, levelID model.ElementID) (*model.Floor, error)
	MoveElement(id model.ElementID, delta v3.Vec) error
	RotateElement(id model.ElementID, pivot v3.Vec, angle float64) error
	SetHeightOffset(id model.ElementID, offset float64) error
	Sketch(id model.ElementID) ([]geom.Loop, error)
	Floor(id model.ElementID) (*model.Floor, bool)
	Delete(id model.ElementID) error
	Begin(name string) *model.Transaction
}

// Compile-time interface check.
var _ Document = (*model.Document)(nil)

// Tier is the floor-creation capability of a host.
type Tier int

const (
	TierLegacy Tier = iota // single flat curve list, one loop
	TierModern             // list of closed loops
)

func (t Tier) String() string {
	switch t {
	case TierLegacy:
		return "legacy"
	case TierModern:
		return "modern"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// TierForVersion maps a host version number to its capability tier.
// Multi-loop creation appeared after version 2021.
func TierForVersion(version int) Tier {
	if version > 2021 {
		return TierModern
	}
	return TierLegacy
}

// Instantiator creates one placed floor per door footprint.
type Instantiator interface {
	Tier() Tier
	// Instantiate creates a floor of the named type on levelID from fp's
	// boundary, applies fp's placement and sets the height offset, given
	// in display millimetres.
	Instantiate(doc Document, fp footprint.Footprint, floorTypeName string, levelID model.ElementID, heightOffset float64) (*model.Floor, error)
}

// LoopCreator is an Instantiator that can also create a floor carrying
// several independent loops. The loops are used as given and not placed.
type LoopCreator interface {
	Instantiator
	CreateLoops(doc Document, loops []geom.Loop, typeID, levelID model.ElementID, heightOffset float64) (*model.Floor, error)
}

// New returns the instantiator for tier.
func New(tier Tier) Instantiator {
	if tier == TierModern {
		return Modern{}
	}
	return Legacy{}
}

// Modern creates floors from lists of closed loops.
type Modern struct{}

// Compile-time interface checks.
var (
	_ LoopCreator  = Modern{}
	_ Instantiator = Legacy{}
)

// Tier returns TierModern.
func (Modern) Tier() Tier { return TierModern }

// Instantiate implements Instantiator.
func (Modern) Instantiate(doc Document, fp footprint.Footprint, floorTypeName string, levelID model.ElementID, heightOffset float64) (*model.Floor, error) {
	return instantiate(doc, fp, floorTypeName, levelID, heightOffset, func(typeID model.ElementID) (*model.Floor, error) {
		return doc.NewFloor([]geom.Loop{fp.Boundary}, typeID, levelID)
	})
}

// CreateLoops implements LoopCreator.
func (Modern) CreateLoops(doc Document, loops []geom.Loop, typeID, levelID model.ElementID, heightOffset float64) (*model.Floor, error) {
	f, err := doc.NewFloor(loops, typeID, levelID)
	if err != nil {
		return nil, fmt.Errorf("create floor: %w", err)
	}
	if err := doc.SetHeightOffset(f.ID, geom.ToInternal(heightOffset)); err != nil {
		return nil, fmt.Errorf("set height offset: %w", err)
	}
	return refresh(doc, f.ID)
}

// Legacy creates floors from a single flat curve list.
type Legacy struct{}

// Tier returns TierLegacy.
func (Legacy) Tier() Tier { return TierLegacy }

// Instantiate implements Instantiator.
func (Legacy) Instantiate(doc Document, fp footprint.Footprint, floorTypeName string, levelID model.ElementID, heightOffset float64) (*model.Floor, error) {
	return instantiate(doc, fp, floorTypeName, levelID, heightOffset, func(typeID model.ElementID) (*model.Floor, error) {
		curves := make([]geom.Line, len(fp.Boundary))
		copy(curves, fp.Boundary)
		return doc.NewFloorFromCurves(curves, typeID, levelID)
	})
}

// instantiate resolves the floor type, creates the floor with create and
// places it. All changes happen in a sub-transaction that is rolled back
// on failure, so a failed door leaves nothing behind. A failed rollback is
// joined into the returned error.
func instantiate(
	doc Document,
	fp footprint.Footprint,
	floorTypeName string,
	levelID model.ElementID,
	heightOffset float64,
	create func(typeID model.ElementID) (*model.Floor, error),
) (*model.Floor, error) {
	typeID, ok := doc.FindFloorTypeByName(floorTypeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFloorTypeNotFound, floorTypeName)
	}

	tx := doc.Begin("Create floor")
	f, err := create(typeID)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create floor: %w", err), tx.Rollback())
	}
	if err := place(doc, f.ID, fp, heightOffset); err != nil {
		return nil, errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return refresh(doc, f.ID)
}

// place moves the floor so its centroid sits on the anchor, rotates it
// about the anchor, then sets its height offset.
func place(doc Document, id model.ElementID, fp footprint.Footprint, heightOffset float64) error {
	p := fp.Placement()
	if err := doc.MoveElement(id, p.Offset); err != nil {
		return fmt.Errorf("move floor: %w", err)
	}
	if err := doc.RotateElement(id, p.Pivot, p.Angle); err != nil {
		return fmt.Errorf("rotate floor: %w", err)
	}
	if err := doc.SetHeightOffset(id, geom.ToInternal(heightOffset)); err != nil {
		return fmt.Errorf("set height offset: %w", err)
	}
	return nil
}

func refresh(doc Document, id model.ElementID) (*model.Floor, error) {
	f, ok := doc.Floor(id)
	if !ok {
		return nil, fmt.Errorf("floor %s: %w", id.Short(), model.ErrNotFound)
	}
	return f, nil
}
