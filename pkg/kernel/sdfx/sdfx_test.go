package sdfx

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/threshold/pkg/kernel"
)

var rect = [][2]float64{{0, 0}, {100, 0}, {100, 50}, {0, 50}}

func TestSlab(t *testing.T) {
	k := New()
	slab, err := k.Slab(rect, 25)
	if err != nil {
		t.Fatalf("Slab failed: %v", err)
	}
	mesh, err := k.ToMesh(slab)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestSlabBoundingBox(t *testing.T) {
	k := New()
	slab, err := k.Slab(rect, 25)
	if err != nil {
		t.Fatalf("Slab failed: %v", err)
	}
	min, max := slab.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{0, 0, 0}
	expectMax := [3]float64{100, 50, 25}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestSlabClosedOutline(t *testing.T) {
	k := New()
	closed := append(append([][2]float64{}, rect...), rect[0])
	if _, err := k.Slab(closed, 10); err != nil {
		t.Fatalf("Slab with repeated closing point: %v", err)
	}
}

func TestSlabRejectsBadInput(t *testing.T) {
	k := New()
	tests := []struct {
		name      string
		outline   [][2]float64
		thickness float64
		outline3  bool
	}{
		{"two points", [][2]float64{{0, 0}, {1, 0}}, 1, true},
		{"repeated points", [][2]float64{{0, 0}, {0, 0}, {1, 1}, {0, 0}}, 1, true},
		{"zero thickness", rect, 0, false},
		{"negative thickness", rect, -5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Slab(tt.outline, tt.thickness)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.outline3 && !errors.Is(err, kernel.ErrOutline) {
				t.Errorf("err = %v, want ErrOutline", err)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	k := New()
	a, _ := k.Slab(rect, 25)
	b, _ := k.Slab(rect, 25)
	u := k.Union(a, k.Translate(b, 200, 0, 0))

	min, max := u.BoundingBox()
	if math.Abs(min[0]) > 0.01 || math.Abs(max[0]-300) > 0.01 {
		t.Errorf("union X extent = [%f, %f], want [0, 300]", min[0], max[0])
	}
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
	t.Logf("union triangle count: %d", mesh.TriangleCount())
}

func TestTranslate(t *testing.T) {
	k := New()
	slab, _ := k.Slab([][2]float64{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}}, 10)
	translated := k.Translate(slab, 100, 200, 300)

	min, max := translated.BoundingBox()

	const tol = 0.5
	expectMin := [3]float64{95, 195, 300}
	expectMax := [3]float64{105, 205, 310}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestMeshResolution(t *testing.T) {
	slab, _ := New().Slab(rect, 25)
	coarse, err := NewWithCells(20).ToMesh(slab)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	fine, err := NewWithCells(80).ToMesh(slab)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if coarse.IsEmpty() || fine.IsEmpty() {
		t.Fatal("expected non-empty meshes")
	}
	if NewWithCells(0).cells != defaultMeshCells {
		t.Error("NewWithCells(0) should use the default resolution")
	}
}

func TestSaveSTL(t *testing.T) {
	k := NewWithCells(40)
	slab, _ := k.Slab(rect, 25)
	path := filepath.Join(t.TempDir(), "slab.stl")
	if err := k.SaveSTL(slab, path); err != nil {
		t.Fatalf("SaveSTL failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("STL file is empty")
	}
}
