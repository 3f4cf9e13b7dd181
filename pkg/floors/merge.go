package floors

import (
	"errors"
	"fmt"

	"github.com/chazu/threshold/pkg/geom"
	"github.com/chazu/threshold/pkg/model"
	"github.com/samber/lo"
)

var (
	// ErrEmptyBatch is returned when Merge is called with no floors.
	ErrEmptyBatch = errors.New("floors: nothing to merge")
	// ErrMixedFloors is returned when the floors to merge do not all share
	// one floor type and one level.
	ErrMixedFloors = errors.New("floors: floors differ in type or level")
)

// Merger replaces several floors with one floor carrying all of their
// boundary loops.
type Merger struct {
	creator LoopCreator
}

// NewMerger returns a Merger that creates the replacement floor with c.
func NewMerger(c LoopCreator) *Merger {
	return &Merger{creator: c}
}

// Merge extracts every boundary loop of floors, deletes the floors and
// creates one floor of the same type and level with all loops and the
// given height offset (display millimetres).
//
// The loops are validated before anything is deleted, and the deletions
// and creation run in one sub-transaction: if creation fails the originals
// are restored and the error is returned.
func (m *Merger) Merge(doc Document, floors []*model.Floor, heightOffset float64) (*model.Floor, error) {
	if len(floors) == 0 {
		return nil, ErrEmptyBatch
	}
	typeID, levelID := floors[0].TypeID, floors[0].LevelID
	if !lo.EveryBy(floors, func(f *model.Floor) bool {
		return f.TypeID == typeID && f.LevelID == levelID
	}) {
		return nil, ErrMixedFloors
	}

	var loops []geom.Loop
	for _, f := range floors {
		sk, err := doc.Sketch(f.ID)
		if err != nil {
			return nil, fmt.Errorf("extract sketch: %w", err)
		}
		loops = append(loops, sk...)
	}
	if err := model.ValidateSketch(loops); err != nil {
		return nil, fmt.Errorf("merged sketch: %w", err)
	}

	tx := doc.Begin("Combine floors")
	for _, f := range floors {
		if err := doc.Delete(f.ID); err != nil {
			return nil, errors.Join(fmt.Errorf("delete floor %s: %w", f.ID.Short(), err), tx.Rollback())
		}
	}
	merged, err := m.creator.CreateLoops(doc, loops, typeID, levelID, heightOffset)
	if err != nil {
		return nil, errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Batches groups floors by floor type and level, keeping the order in
// which each group first appears and the order of floors inside a group.
func Batches(floors []*model.Floor) [][]*model.Floor {
	type key struct{ typeID, levelID model.ElementID }
	keyOf := func(f *model.Floor) key { return key{f.TypeID, f.LevelID} }

	groups := lo.GroupBy(floors, keyOf)
	order := lo.Uniq(lo.Map(floors, func(f *model.Floor, _ int) key { return keyOf(f) }))
	return lo.Map(order, func(k key, _ int) []*model.Floor { return groups[k] })
}
