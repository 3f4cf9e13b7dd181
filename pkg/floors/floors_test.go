package floors_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/threshold/pkg/floors"
	"github.com/chazu/threshold/pkg/footprint"
	"github.com/chazu/threshold/pkg/geom"
	"github.com/chazu/threshold/pkg/model"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type fixture struct {
	doc      *model.Document
	level    *model.Level
	concrete *model.FloorType
	timber   *model.FloorType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc := model.New()
	lvl, err := doc.AddLevel("Level 1", 0)
	if err != nil {
		t.Fatalf("AddLevel: %v", err)
	}
	concrete, err := doc.AddFloorType("Concrete", 0.5)
	if err != nil {
		t.Fatalf("AddFloorType: %v", err)
	}
	timber, err := doc.AddFloorType("Timber", 0.1)
	if err != nil {
		t.Fatalf("AddFloorType: %v", err)
	}
	return &fixture{doc: doc, level: lvl, concrete: concrete, timber: timber}
}

func mustFootprint(t *testing.T, x, y, rot float64) footprint.Footprint {
	t.Helper()
	fp, err := footprint.Build(v3.Vec{X: x, Y: y}, rot, 3, 0.5)
	if err != nil {
		t.Fatalf("footprint.Build: %v", err)
	}
	return fp
}

// createFloors instantiates one modern floor per anchor x position.
func createFloors(t *testing.T, fx *fixture, typeName string, xs ...float64) []*model.Floor {
	t.Helper()
	var out []*model.Floor
	for _, x := range xs {
		f, err := floors.Modern{}.Instantiate(fx.doc, mustFootprint(t, x, 0, 0), typeName, fx.level.ID, 0)
		if err != nil {
			t.Fatalf("Instantiate at x=%v: %v", x, err)
		}
		out = append(out, f)
	}
	return out
}

// ---------------------------------------------------------------------------
// Tiers
// ---------------------------------------------------------------------------

func TestTierForVersion(t *testing.T) {
	tests := []struct {
		version int
		want    floors.Tier
	}{
		{2019, floors.TierLegacy},
		{2021, floors.TierLegacy},
		{2022, floors.TierModern},
		{2025, floors.TierModern},
	}
	for _, tt := range tests {
		if got := floors.TierForVersion(tt.version); got != tt.want {
			t.Errorf("TierForVersion(%d) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestOnlyModernCreatesLoops(t *testing.T) {
	if _, ok := floors.New(floors.TierModern).(floors.LoopCreator); !ok {
		t.Error("modern instantiator should implement LoopCreator")
	}
	if _, ok := floors.New(floors.TierLegacy).(floors.LoopCreator); ok {
		t.Error("legacy instantiator must not implement LoopCreator")
	}
}

// ---------------------------------------------------------------------------
// Instantiation
// ---------------------------------------------------------------------------

func TestInstantiatePlacesFloor(t *testing.T) {
	for _, tier := range []floors.Tier{floors.TierModern, floors.TierLegacy} {
		t.Run(tier.String(), func(t *testing.T) {
			fx := newFixture(t)
			tx := fx.doc.Begin("test")
			defer tx.Commit()

			fp := mustFootprint(t, 10, 20, math.Pi/2)
			f, err := floors.New(tier).Instantiate(fx.doc, fp, "Concrete", fx.level.ID, 1000)
			if err != nil {
				t.Fatalf("Instantiate: %v", err)
			}
			if f.TypeID != fx.concrete.ID || f.LevelID != fx.level.ID {
				t.Errorf("floor type/level = %s/%s, want %s/%s", f.TypeID, f.LevelID, fx.concrete.ID, fx.level.ID)
			}
			if f.LoopCount() != 1 {
				t.Fatalf("LoopCount() = %d, want 1", f.LoopCount())
			}
			if !f.Sketch[0].Equal(fp.Placed(), 1e-9) {
				t.Error("floor sketch does not match the placed footprint")
			}
			if math.Abs(f.HeightOffset-1000/304.8) > 1e-12 {
				t.Errorf("HeightOffset = %f, want %f", f.HeightOffset, 1000/304.8)
			}
			if math.Abs(f.Area()-1.5) > 1e-9 {
				t.Errorf("Area() = %f, want 1.5", f.Area())
			}
		})
	}
}

func TestInstantiateUnknownFloorType(t *testing.T) {
	fx := newFixture(t)
	tx := fx.doc.Begin("test")
	defer tx.Commit()

	_, err := floors.Modern{}.Instantiate(fx.doc, mustFootprint(t, 0, 0, 0), "Marble", fx.level.ID, 0)
	if !errors.Is(err, floors.ErrFloorTypeNotFound) {
		t.Fatalf("err = %v, want ErrFloorTypeNotFound", err)
	}
	if fx.doc.FloorCount() != 0 {
		t.Errorf("FloorCount() = %d, want 0", fx.doc.FloorCount())
	}
}

func TestInstantiateRejectedGeometryLeavesNothing(t *testing.T) {
	fx := newFixture(t)
	tx := fx.doc.Begin("test")
	defer tx.Commit()

	bowtie, err := geom.LoopFromPoints(
		v3.Vec{X: 0, Y: 0}, v3.Vec{X: 2, Y: 1}, v3.Vec{X: 2, Y: 0}, v3.Vec{X: 0, Y: 2},
	)
	if err != nil {
		t.Fatalf("LoopFromPoints: %v", err)
	}
	fp := footprint.Footprint{Boundary: bowtie, Centroid: bowtie.Centroid()}

	for _, tier := range []floors.Tier{floors.TierModern, floors.TierLegacy} {
		_, err := floors.New(tier).Instantiate(fx.doc, fp, "Concrete", fx.level.ID, 0)
		if !errors.Is(err, model.ErrInvalidSketch) {
			t.Errorf("%v: err = %v, want ErrInvalidSketch", tier, err)
		}
	}
	if fx.doc.FloorCount() != 0 {
		t.Errorf("FloorCount() = %d, want 0", fx.doc.FloorCount())
	}
}

// ---------------------------------------------------------------------------
// Merge
// ---------------------------------------------------------------------------

func TestMergeThreeFloors(t *testing.T) {
	fx := newFixture(t)
	tx := fx.doc.Begin("test")
	defer tx.Commit()

	originals := createFloors(t, fx, "Concrete", 0, 10, 20)
	var wantArea float64
	var wantLoops []geom.Loop
	for _, f := range originals {
		wantArea += f.Area()
		wantLoops = append(wantLoops, f.Sketch...)
	}

	merged, err := floors.NewMerger(floors.Modern{}).Merge(fx.doc, originals, 250)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.LoopCount() != 3 {
		t.Errorf("LoopCount() = %d, want 3", merged.LoopCount())
	}
	if math.Abs(merged.Area()-wantArea) > 1e-9 {
		t.Errorf("Area() = %f, want %f", merged.Area(), wantArea)
	}
	for i, lp := range merged.Sketch {
		if !lp.Equal(wantLoops[i], 0) {
			t.Errorf("loop %d differs from original sketch", i)
		}
	}
	if merged.TypeID != fx.concrete.ID || merged.LevelID != fx.level.ID {
		t.Error("merged floor lost its type or level")
	}
	if math.Abs(merged.HeightOffset-250/304.8) > 1e-12 {
		t.Errorf("HeightOffset = %f, want %f", merged.HeightOffset, 250/304.8)
	}

	all := fx.doc.Floors()
	if len(all) != 1 || all[0].ID != merged.ID {
		t.Errorf("document floors = %d, want only the merged floor", len(all))
	}
	for _, f := range originals {
		if _, ok := fx.doc.Floor(f.ID); ok {
			t.Errorf("original floor %s still exists", f.ID.Short())
		}
	}
}

func TestMergeMixedTypesRejected(t *testing.T) {
	fx := newFixture(t)
	tx := fx.doc.Begin("test")
	defer tx.Commit()

	batch := append(createFloors(t, fx, "Concrete", 0), createFloors(t, fx, "Timber", 10)...)
	_, err := floors.NewMerger(floors.Modern{}).Merge(fx.doc, batch, 0)
	if !errors.Is(err, floors.ErrMixedFloors) {
		t.Fatalf("err = %v, want ErrMixedFloors", err)
	}
	if fx.doc.FloorCount() != 2 {
		t.Errorf("FloorCount() = %d, want 2 (nothing deleted)", fx.doc.FloorCount())
	}
}

func TestMergeEmpty(t *testing.T) {
	fx := newFixture(t)
	if _, err := floors.NewMerger(floors.Modern{}).Merge(fx.doc, nil, 0); !errors.Is(err, floors.ErrEmptyBatch) {
		t.Fatalf("err = %v, want ErrEmptyBatch", err)
	}
}

func TestMergeFailureKeepsOriginals(t *testing.T) {
	fx := newFixture(t)
	tx := fx.doc.Begin("test")
	defer tx.Commit()

	// Footprints 3 wide placed 2 apart overlap, so the merged sketch is invalid.
	originals := createFloors(t, fx, "Concrete", 0, 2)
	_, err := floors.NewMerger(floors.Modern{}).Merge(fx.doc, originals, 0)
	if !errors.Is(err, model.ErrInvalidSketch) {
		t.Fatalf("err = %v, want ErrInvalidSketch", err)
	}
	for _, f := range originals {
		got, ok := fx.doc.Floor(f.ID)
		if !ok {
			t.Fatalf("original floor %s was deleted", f.ID.Short())
		}
		if !got.Sketch[0].Equal(f.Sketch[0], 0) {
			t.Errorf("original floor %s sketch changed", f.ID.Short())
		}
	}
}

func TestMergeSharedJambKeepsOriginals(t *testing.T) {
	fx := newFixture(t)
	tx := fx.doc.Begin("test")
	defer tx.Commit()

	// Footprints 3 wide placed 3 apart share an edge.
	originals := createFloors(t, fx, "Concrete", 0, 3)
	_, err := floors.NewMerger(floors.Modern{}).Merge(fx.doc, originals, 0)
	if !errors.Is(err, model.ErrInvalidSketch) {
		t.Fatalf("err = %v, want ErrInvalidSketch", err)
	}
	if fx.doc.FloorCount() != 2 {
		t.Errorf("FloorCount() = %d, want both originals kept", fx.doc.FloorCount())
	}
}

// failingCreator always fails, so Merge has to roll back after the
// originals were already deleted.
type failingCreator struct{ floors.Modern }

func (failingCreator) CreateLoops(floors.Document, []geom.Loop, model.ElementID, model.ElementID, float64) (*model.Floor, error) {
	return nil, errors.New("host refused")
}

func TestMergeRollsBackAfterDeletion(t *testing.T) {
	fx := newFixture(t)
	tx := fx.doc.Begin("test")
	defer tx.Commit()

	originals := createFloors(t, fx, "Concrete", 0, 10)
	if _, err := floors.NewMerger(failingCreator{}).Merge(fx.doc, originals, 0); err == nil {
		t.Fatal("expected error from failing creator")
	}
	if fx.doc.FloorCount() != 2 {
		t.Errorf("FloorCount() = %d, want 2 after rollback", fx.doc.FloorCount())
	}
}

// strandingCreator opens a transaction it never closes before failing, so
// the merge's own rollback is no longer the innermost one.
type strandingCreator struct{ floors.Modern }

func (strandingCreator) CreateLoops(doc floors.Document, _ []geom.Loop, _, _ model.ElementID, _ float64) (*model.Floor, error) {
	doc.Begin("stranded")
	return nil, errors.New("host refused")
}

// strandingDocument does the same for single-door floor creation.
type strandingDocument struct{ *model.Document }

func (d strandingDocument) NewFloor([]geom.Loop, model.ElementID, model.ElementID) (*model.Floor, error) {
	d.Begin("stranded")
	return nil, errors.New("host refused")
}

func TestFailedRollbackIsReported(t *testing.T) {
	tests := []struct {
		name string
		run  func(fx *fixture) error
	}{
		{"merge", func(fx *fixture) error {
			originals := createFloors(t, fx, "Concrete", 0, 10)
			_, err := floors.NewMerger(strandingCreator{}).Merge(fx.doc, originals, 0)
			return err
		}},
		{"instantiate", func(fx *fixture) error {
			_, err := floors.Modern{}.Instantiate(strandingDocument{fx.doc}, mustFootprint(t, 0, 0, 0), "Concrete", fx.level.ID, 0)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.doc.Begin("test")

			err := tt.run(fx)
			if err == nil {
				t.Fatal("expected error from failing host")
			}
			if !errors.Is(err, model.ErrTransactionClosed) {
				t.Errorf("err = %v, want the rollback failure joined in", err)
			}
		})
	}
}

func TestBatches(t *testing.T) {
	fx := newFixture(t)
	lvl2, _ := fx.doc.AddLevel("Level 2", 10)

	a := &model.Floor{ID: "a", TypeID: fx.concrete.ID, LevelID: fx.level.ID}
	b := &model.Floor{ID: "b", TypeID: fx.concrete.ID, LevelID: lvl2.ID}
	c := &model.Floor{ID: "c", TypeID: fx.concrete.ID, LevelID: fx.level.ID}
	d := &model.Floor{ID: "d", TypeID: fx.timber.ID, LevelID: fx.level.ID}

	got := floors.Batches([]*model.Floor{a, b, c, d})
	want := [][]model.ElementID{{"a", "c"}, {"b"}, {"d"}}
	if len(got) != len(want) {
		t.Fatalf("Batches() returned %d groups, want %d", len(got), len(want))
	}
	for i, group := range got {
		if len(group) != len(want[i]) {
			t.Fatalf("group %d has %d floors, want %d", i, len(group), len(want[i]))
		}
		for j, f := range group {
			if f.ID != want[i][j] {
				t.Errorf("group %d floor %d = %s, want %s", i, j, f.ID, want[i][j])
			}
		}
	}
}
