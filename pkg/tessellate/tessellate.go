// Package tessellate turns the floors of a document into slab solids and
// triangle meshes using a geometry kernel. One mesh is produced per floor.
package tessellate

import (
	"fmt"

	"github.com/chazu/threshold/pkg/geom"
	"github.com/chazu/threshold/pkg/kernel"
	"github.com/chazu/threshold/pkg/model"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Part is the solid of one floor.
type Part struct {
	FloorID model.ElementID
	Name    string
	Solid   kernel.Solid
}

// Slab builds the solid of one floor: every sketch loop is extruded
// downward from the floor's top, at level elevation plus height offset,
// by the floor type thickness. Loops of a multi-loop floor are unioned.
func Slab(doc *model.Document, k kernel.Kernel, f *model.Floor, defaults model.Defaults) (kernel.Solid, error) {
	if len(f.Sketch) == 0 {
		return nil, fmt.Errorf("floor %s has no sketch", f.ID.Short())
	}

	thickness := defaults.SlabThickness
	if ft, ok := doc.FloorType(f.TypeID); ok && ft.Thickness > 0 {
		thickness = ft.Thickness
	}
	var elevation float64
	if lvl, ok := doc.Level(f.LevelID); ok {
		elevation = lvl.Elevation
	}
	bottom := elevation + f.HeightOffset - thickness

	var solid kernel.Solid
	for i, lp := range f.Sketch {
		s, err := k.Slab(outline(lp), thickness)
		if err != nil {
			return nil, fmt.Errorf("floor %s loop %d: %w", f.ID.Short(), i, err)
		}
		if solid == nil {
			solid = s
		} else {
			solid = k.Union(solid, s)
		}
	}
	return k.Translate(solid, 0, 0, bottom), nil
}

// outline projects a loop onto the XY plane.
func outline(lp geom.Loop) [][2]float64 {
	return lo.Map(lp.Vertices(), func(v v3.Vec, _ int) [2]float64 { return [2]float64{v.X, v.Y} })
}

// Parts builds the solid of every floor in the document, in creation order.
// A nil document has no parts.
func Parts(doc *model.Document, k kernel.Kernel, defaults model.Defaults) ([]Part, error) {
	if doc == nil {
		return nil, nil
	}
	var parts []Part
	for _, f := range doc.Floors() {
		s, err := Slab(doc, k, f, defaults)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
		parts = append(parts, Part{FloorID: f.ID, Name: partName(doc, f), Solid: s})
	}
	return parts, nil
}

// Tessellate produces one triangle mesh per floor. The tessellator is
// read-only and never mutates the document. A nil document yields nil
// meshes; a document without floors yields an empty slice.
func Tessellate(doc *model.Document, k kernel.Kernel, defaults model.Defaults) ([]*kernel.Mesh, error) {
	if doc == nil {
		return nil, nil
	}
	parts, err := Parts(doc, k, defaults)
	if err != nil {
		return nil, err
	}
	meshes := make([]*kernel.Mesh, 0, len(parts))
	for _, p := range parts {
		mesh, err := k.ToMesh(p.Solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for floor %s: %w", p.FloorID.Short(), err)
		}
		mesh.Name = p.Name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// partName labels a floor as "<type> @ <level> #<short id>".
func partName(doc *model.Document, f *model.Floor) string {
	typeName, levelName := f.TypeID.Short(), f.LevelID.Short()
	if ft, ok := doc.FloorType(f.TypeID); ok {
		typeName = ft.Name
	}
	if lvl, ok := doc.Level(f.LevelID); ok {
		levelName = lvl.Name
	}
	return fmt.Sprintf("%s @ %s #%s", typeName, levelName, f.ID.Short())
}
