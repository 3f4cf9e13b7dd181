package tessellate_test

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/threshold/pkg/floors"
	"github.com/chazu/threshold/pkg/footprint"
	"github.com/chazu/threshold/pkg/kernel"
	"github.com/chazu/threshold/pkg/kernel/sdfx"
	"github.com/chazu/threshold/pkg/model"
	"github.com/chazu/threshold/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// newKernel returns a coarse sdfx kernel so tests stay fast.
func newKernel() kernel.Kernel {
	return sdfx.NewWithCells(40)
}

var defaults = model.Defaults{Units: "mm", SlabThickness: 0.25, HostVersion: model.DefaultHostVersion}

type scene struct {
	doc   *model.Document
	level *model.Level
}

// newScene returns a document with level "L1" at elevation 10 and floor
// types "Concrete" (0.5 thick) and "Bare" (no thickness).
func newScene(t *testing.T) *scene {
	t.Helper()
	doc := model.New()
	lvl, err := doc.AddLevel("L1", 10)
	if err != nil {
		t.Fatalf("AddLevel: %v", err)
	}
	if _, err := doc.AddFloorType("Concrete", 0.5); err != nil {
		t.Fatalf("AddFloorType: %v", err)
	}
	if _, err := doc.AddFloorType("Bare", 0); err != nil {
		t.Fatalf("AddFloorType: %v", err)
	}
	return &scene{doc: doc, level: lvl}
}

// addFloor creates a 3 x 0.5 floor centered on (x, 0) with the height
// offset given in millimetres.
func (s *scene) addFloor(t *testing.T, typeName string, x, offsetMM float64) *model.Floor {
	t.Helper()
	fp, err := footprint.Build(v3.Vec{X: x}, 0, 3, 0.5)
	if err != nil {
		t.Fatalf("footprint.Build: %v", err)
	}
	tx := s.doc.Begin("test")
	defer tx.Commit()
	f, err := floors.Modern{}.Instantiate(s.doc, fp, typeName, s.level.ID, offsetMM)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return f
}

func TestSingleFloor(t *testing.T) {
	s := newScene(t)
	s.addFloor(t, "Concrete", 0, 0)

	meshes, err := tessellate.Tessellate(s.doc, newKernel(), defaults)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if !strings.HasPrefix(m.Name, "Concrete @ L1 #") {
		t.Errorf("mesh name = %q, want Concrete @ L1 prefix", m.Name)
	}
}

func TestSlabSitsBelowLevelPlusOffset(t *testing.T) {
	tests := []struct {
		name      string
		typeName  string
		offsetMM  float64
		wantTop   float64
		thickness float64
	}{
		{"no offset", "Concrete", 0, 10, 0.5},
		{"raised", "Concrete", 304.8, 11, 0.5},
		{"default thickness", "Bare", 0, 10, defaults.SlabThickness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t)
			f := s.addFloor(t, tt.typeName, 0, tt.offsetMM)

			solid, err := tessellate.Slab(s.doc, newKernel(), f, defaults)
			if err != nil {
				t.Fatalf("Slab: %v", err)
			}
			min, max := solid.BoundingBox()
			const tol = 1e-6
			if math.Abs(max[2]-tt.wantTop) > tol {
				t.Errorf("top = %f, want %f", max[2], tt.wantTop)
			}
			if math.Abs(max[2]-min[2]-tt.thickness) > tol {
				t.Errorf("thickness = %f, want %f", max[2]-min[2], tt.thickness)
			}
			if math.Abs(min[0]+1.5) > tol || math.Abs(max[0]-1.5) > tol {
				t.Errorf("X extent = [%f, %f], want [-1.5, 1.5]", min[0], max[0])
			}
		})
	}
}

func TestMergedFloorIsOnePart(t *testing.T) {
	s := newScene(t)
	a := s.addFloor(t, "Concrete", 0, 0)
	b := s.addFloor(t, "Concrete", 10, 0)

	tx := s.doc.Begin("merge")
	if _, err := floors.NewMerger(floors.Modern{}).Merge(s.doc, []*model.Floor{a, b}, 0); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	tx.Commit()

	parts, err := tessellate.Parts(s.doc, newKernel(), defaults)
	if err != nil {
		t.Fatalf("Parts: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	min, max := parts[0].Solid.BoundingBox()
	if math.Abs(min[0]+1.5) > 1e-6 || math.Abs(max[0]-11.5) > 1e-6 {
		t.Errorf("merged X extent = [%f, %f], want [-1.5, 11.5]", min[0], max[0])
	}
}

func TestTwoFloors(t *testing.T) {
	s := newScene(t)
	s.addFloor(t, "Concrete", 0, 0)
	s.addFloor(t, "Concrete", 10, 0)

	meshes, err := tessellate.Tessellate(s.doc, newKernel(), defaults)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].Name == meshes[1].Name {
		t.Error("meshes of different floors share a name")
	}
	_, max0 := meshes[0].Bounds()
	min1, _ := meshes[1].Bounds()
	if max0[0] >= min1[0] {
		t.Errorf("first mesh max X %f should be left of second mesh min X %f", max0[0], min1[0])
	}
}

func TestEmptyDocument(t *testing.T) {
	meshes, err := tessellate.Tessellate(model.New(), newKernel(), defaults)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 0 {
		t.Errorf("expected 0 meshes, got %d", len(meshes))
	}

	meshes, err = tessellate.Tessellate(nil, newKernel(), defaults)
	if err != nil || meshes != nil {
		t.Errorf("nil document: got %v, %v", meshes, err)
	}
}

func TestFloorWithoutSketch(t *testing.T) {
	s := newScene(t)
	if _, err := tessellate.Slab(s.doc, newKernel(), &model.Floor{ID: "f"}, defaults); err == nil {
		t.Fatal("expected error for a floor without sketch")
	}
}
