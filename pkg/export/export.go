// Package export writes the floors of a document to files: a DXF plan of
// the floor sketches and an STL of the slab solids.
package export

import (
	"errors"
	"fmt"
	"log"

	"github.com/chazu/threshold/pkg/geom"
	"github.com/chazu/threshold/pkg/kernel"
	"github.com/chazu/threshold/pkg/model"
	"github.com/chazu/threshold/pkg/tessellate"
	"github.com/samber/lo"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"
)

// ErrNoFloors is returned when there is nothing to export.
var ErrNoFloors = errors.New("export: document has no floors")

// STLKernel is a kernel that can write solids as STL.
type STLKernel interface {
	kernel.Kernel
	SaveSTL(s kernel.Solid, path string) error
}

// PlanDXF writes every floor sketch loop as lines on one layer per level.
// Coordinates are written in display millimetres.
func PlanDXF(doc *model.Document, path string) error {
	fls := doc.Floors()
	if len(fls) == 0 {
		return ErrNoFloors
	}

	d := dxf.NewDrawing()
	byLevel := lo.GroupBy(fls, func(f *model.Floor) model.ElementID { return f.LevelID })
	levels := lo.Uniq(lo.Map(fls, func(f *model.Floor, _ int) model.ElementID { return f.LevelID }))

	lines := 0
	for _, levelID := range levels {
		if err := useLayer(d, layerName(doc, levelID)); err != nil {
			return err
		}
		for _, f := range byLevel[levelID] {
			for _, lp := range f.Sketch {
				for _, l := range lp {
					_, err := d.Line(
						geom.FromInternal(l.Start.X), geom.FromInternal(l.Start.Y), geom.FromInternal(l.Start.Z),
						geom.FromInternal(l.End.X), geom.FromInternal(l.End.Y), geom.FromInternal(l.End.Z),
					)
					if err != nil {
						return fmt.Errorf("export: dxf line: %w", err)
					}
					lines++
				}
			}
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	log.Printf("export: wrote %d lines on %d layers to %s", lines, len(levels), path)
	return nil
}

func useLayer(d *drawing.Drawing, name string) error {
	if _, err := d.AddLayer(name, dxf.DefaultColor, dxf.DefaultLineType, true); err != nil {
		// The layer already exists; switch to it.
		if cerr := d.ChangeLayer(name); cerr != nil {
			return fmt.Errorf("export: layer %q: %w", name, err)
		}
	}
	return nil
}

// layerName names a level's layer after the level, falling back to its ID.
func layerName(doc *model.Document, levelID model.ElementID) string {
	if lvl, ok := doc.Level(levelID); ok && lvl.Name != "" {
		return "FLOORS_" + lvl.Name
	}
	return "FLOORS_" + levelID.Short()
}

// SolidsSTL unions the slab of every floor and writes it to path.
func SolidsSTL(doc *model.Document, k STLKernel, defaults model.Defaults, path string) error {
	parts, err := tessellate.Parts(doc, k, defaults)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return ErrNoFloors
	}
	solid := parts[0].Solid
	for _, p := range parts[1:] {
		solid = k.Union(solid, p.Solid)
	}
	if err := k.SaveSTL(solid, path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	log.Printf("export: wrote %d slabs to %s", len(parts), path)
	return nil
}
