package model

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/chazu/threshold/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	// ErrNotFound is returned when an element ID does not resolve.
	ErrNotFound = errors.New("model: element not found")
	// ErrNoTransaction is returned when a floor is mutated outside a
	// transaction.
	ErrNoTransaction = errors.New("model: no open transaction")
	// ErrDuplicateName is returned when a named element already exists.
	ErrDuplicateName = errors.New("model: duplicate name")
)

// Document holds every element of a building model. Floors may only be
// created, changed or deleted while a transaction is open.
type Document struct {
	mu sync.RWMutex

	Defaults Defaults

	levels     map[ElementID]*Level
	walls      map[ElementID]*Wall
	doors      map[ElementID]*Door
	floorTypes map[ElementID]*FloorType
	floors     map[ElementID]*Floor

	doorOrder  []ElementID
	floorOrder []ElementID
	names      map[string]ElementID // "kind/name" -> ID

	txns []*Transaction
}

// New creates an empty Document with default settings.
func New() *Document {
	return &Document{
		Defaults: Defaults{
			Units:         "mm",
			SlabThickness: DefaultSlabThickness,
			HostVersion:   DefaultHostVersion,
		},
		levels:     make(map[ElementID]*Level),
		walls:      make(map[ElementID]*Wall),
		doors:      make(map[ElementID]*Door),
		floorTypes: make(map[ElementID]*FloorType),
		floors:     make(map[ElementID]*Floor),
		names:      make(map[string]ElementID),
	}
}

// copyOf returns a shallow copy of an element so callers cannot change
// the document's own value outside a transaction.
func copyOf[T any](p *T) *T {
	c := *p
	return &c
}

func nameKey(kind, name string) string {
	return kind + "/" + name
}

// claimName registers kind/name for id. Caller holds d.mu.
func (d *Document) claimName(kind, name string, id ElementID) error {
	if name == "" {
		return nil
	}
	k := nameKey(kind, name)
	if _, exists := d.names[k]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateName, kind, name)
	}
	d.names[k] = id
	return nil
}

// AddLevel adds a level at the given elevation (internal units).
func (d *Document) AddLevel(name string, elevation float64) (*Level, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l := &Level{ID: NewElementID(), Name: name, Elevation: elevation}
	if err := d.claimName("level", name, l.ID); err != nil {
		return nil, err
	}
	d.levels[l.ID] = l
	return copyOf(l), nil
}

// AddWall adds a wall of the given thickness (internal units) and kind.
func (d *Document) AddWall(name string, thickness float64, kind WallKind) (*Wall, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := &Wall{ID: NewElementID(), Name: name, Thickness: thickness, Kind: kind}
	if err := d.claimName("wall", name, w.ID); err != nil {
		return nil, err
	}
	d.walls[w.ID] = w
	return copyOf(w), nil
}

// AddFloorType adds a floor type to the catalog.
func (d *Document) AddFloorType(name string, thickness float64) (*FloorType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ft := &FloorType{ID: NewElementID(), Name: name, Thickness: thickness}
	if err := d.claimName("floor-type", name, ft.ID); err != nil {
		return nil, err
	}
	d.floorTypes[ft.ID] = ft
	return copyOf(ft), nil
}

// AddDoor adds a door. The host wall and level must already exist.
func (d *Document) AddDoor(door Door) (*Door, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.walls[door.HostID]; !ok {
		return nil, fmt.Errorf("door %q: host wall %s: %w", door.Name, door.HostID.Short(), ErrNotFound)
	}
	if _, ok := d.levels[door.LevelID]; !ok {
		return nil, fmt.Errorf("door %q: level %s: %w", door.Name, door.LevelID.Short(), ErrNotFound)
	}
	nd := door
	if nd.ID.IsZero() {
		nd.ID = NewElementID()
	}
	if err := d.claimName("door", nd.Name, nd.ID); err != nil {
		return nil, err
	}
	d.doors[nd.ID] = &nd
	d.doorOrder = append(d.doorOrder, nd.ID)
	return copyOf(&nd), nil
}

// Lookup returns the ID of the element of the given kind ("level", "wall",
// "door", "floor-type") and name.
func (d *Document) Lookup(kind, name string) (ElementID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.names[nameKey(kind, name)]
	return id, ok
}

// Level returns a copy of the level with the given ID.
func (d *Document) Level(id ElementID) (*Level, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.levels[id]
	if !ok {
		return nil, false
	}
	return copyOf(l), true
}

// Wall returns a copy of the wall with the given ID.
func (d *Document) Wall(id ElementID) (*Wall, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.walls[id]
	if !ok {
		return nil, false
	}
	return copyOf(w), true
}

// Door returns a copy of the door with the given ID.
func (d *Document) Door(id ElementID) (*Door, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dr, ok := d.doors[id]
	if !ok {
		return nil, false
	}
	return copyOf(dr), true
}

// FloorType returns a copy of the floor type with the given ID.
func (d *Document) FloorType(id ElementID) (*FloorType, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ft, ok := d.floorTypes[id]
	if !ok {
		return nil, false
	}
	return copyOf(ft), true
}

// Floor returns a copy of the floor with the given ID.
func (d *Document) Floor(id ElementID) (*Floor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.floors[id]
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// Doors returns copies of all doors in insertion order.
func (d *Document) Doors() []*Door {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Door, 0, len(d.doorOrder))
	for _, id := range d.doorOrder {
		out = append(out, copyOf(d.doors[id]))
	}
	return out
}

// Floors returns copies of all floors in creation order.
func (d *Document) Floors() []*Floor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Floor, 0, len(d.floorOrder))
	for _, id := range d.floorOrder {
		out = append(out, d.floors[id].Clone())
	}
	return out
}

// FloorCount returns the number of floors in the document.
func (d *Document) FloorCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.floors)
}

// FloorTypeNames returns the names of all floor types in ascending order.
func (d *Document) FloorTypeNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.floorTypes))
	for _, ft := range d.floorTypes {
		names = append(names, ft.Name)
	}
	slices.Sort(names)
	return names
}

// FindFloorTypeByName returns the ID of the floor type whose name matches
// exactly.
func (d *Document) FindFloorTypeByName(name string) (ElementID, bool) {
	return d.Lookup("floor-type", name)
}

// NewFloor creates a floor from one or more closed loops. Each loop
// becomes one boundary of the floor's cross-section.
func (d *Document) NewFloor(loops []geom.Loop, typeID, levelID ElementID) (*Floor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireTxn(); err != nil {
		return nil, err
	}
	if _, ok := d.floorTypes[typeID]; !ok {
		return nil, fmt.Errorf("floor type %s: %w", typeID.Short(), ErrNotFound)
	}
	if _, ok := d.levels[levelID]; !ok {
		return nil, fmt.Errorf("level %s: %w", levelID.Short(), ErrNotFound)
	}
	if err := ValidateSketch(loops); err != nil {
		return nil, err
	}

	f := &Floor{
		ID:      NewElementID(),
		TypeID:  typeID,
		LevelID: levelID,
	}
	for _, lp := range loops {
		f.Sketch = append(f.Sketch, lp.Clone())
	}
	d.floors[f.ID] = f
	d.floorOrder = append(d.floorOrder, f.ID)
	return f.Clone(), nil
}

// NewFloorFromCurves creates a single-loop floor from a flat list of
// curves that must chain into exactly one closed loop.
func (d *Document) NewFloorFromCurves(curves []geom.Line, typeID, levelID ElementID) (*Floor, error) {
	lp, err := geom.NewLoop(curves...)
	if err != nil {
		return nil, &SketchError{Loop: 0, Reason: err.Error()}
	}
	return d.NewFloor([]geom.Loop{lp}, typeID, levelID)
}

// Sketch returns deep copies of the boundary loops of a floor, in their
// stored order.
func (d *Document) Sketch(id ElementID) ([]geom.Loop, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.floors[id]
	if !ok {
		return nil, fmt.Errorf("floor %s: %w", id.Short(), ErrNotFound)
	}
	out := make([]geom.Loop, len(f.Sketch))
	for i, lp := range f.Sketch {
		out[i] = lp.Clone()
	}
	return out, nil
}

// transformFloor replaces every loop of a floor with apply(loop).
func (d *Document) transformFloor(id ElementID, apply func(geom.Loop) geom.Loop) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireTxn(); err != nil {
		return err
	}
	f, ok := d.floors[id]
	if !ok {
		return fmt.Errorf("floor %s: %w", id.Short(), ErrNotFound)
	}
	for i, lp := range f.Sketch {
		f.Sketch[i] = apply(lp)
	}
	return nil
}

// MoveElement translates a floor by delta.
func (d *Document) MoveElement(id ElementID, delta v3.Vec) error {
	p := geom.Placement{Offset: delta}
	return d.transformFloor(id, func(lp geom.Loop) geom.Loop {
		return lp.Transform(p.Translation())
	})
}

// RotateElement rotates a floor by angle radians about the vertical axis
// through pivot.
func (d *Document) RotateElement(id ElementID, pivot v3.Vec, angle float64) error {
	m := geom.RotationAbout(pivot, angle)
	return d.transformFloor(id, func(lp geom.Loop) geom.Loop {
		return lp.Transform(m)
	})
}

// SetHeightOffset sets a floor's height above its level, in internal units.
func (d *Document) SetHeightOffset(id ElementID, offset float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireTxn(); err != nil {
		return err
	}
	f, ok := d.floors[id]
	if !ok {
		return fmt.Errorf("floor %s: %w", id.Short(), ErrNotFound)
	}
	f.HeightOffset = offset
	return nil
}

// Delete removes a floor from the document.
func (d *Document) Delete(id ElementID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireTxn(); err != nil {
		return err
	}
	if _, ok := d.floors[id]; !ok {
		return fmt.Errorf("floor %s: %w", id.Short(), ErrNotFound)
	}
	delete(d.floors, id)
	d.floorOrder = slices.DeleteFunc(d.floorOrder, func(fid ElementID) bool { return fid == id })
	return nil
}
