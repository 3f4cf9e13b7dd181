package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/chazu/threshold/pkg/batch"
	"github.com/chazu/threshold/pkg/engine"
	"github.com/chazu/threshold/pkg/export"
	"github.com/chazu/threshold/pkg/kernel/sdfx"
	"github.com/chazu/threshold/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to floors.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// errNoScript is returned by exports before any script evaluated cleanly.
var errNoScript = errors.New("nothing evaluated yet")

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	kernel export.STLKernel

	mu   sync.Mutex
	last *engine.Script // most recent script that evaluated without errors
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// BatchData summarizes one create-floors batch for the frontend.
type BatchData struct {
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Merged  int    `json:"merged"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Batches  []BatchData     `json:"batches"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp() *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// Evaluate takes script source, runs the floor batches it requests and
// returns the floor meshes, errors and per-batch summaries.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
		Batches:  []BatchData{},
	}

	// Step 1: Evaluate the source into a document and batch requests.
	script, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Run the requested batches. Their failures are warnings.
	for _, r := range script.Run() {
		result.Batches = append(result.Batches, summarize(r))
		result.Warnings = append(result.Warnings, warnings(r)...)
	}

	a.mu.Lock()
	a.last = script
	a.mu.Unlock()

	// Step 3: Tessellate the floors into triangle meshes.
	meshes, err := tessellate.Tessellate(script.Doc, a.kernel, script.Doc.Defaults)
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	// Step 4: Convert kernel meshes to the frontend MeshData format.
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}

	return result
}

func summarize(r *batch.Report) BatchData {
	merged := 0
	for _, m := range r.Merges {
		if m.Err == nil {
			merged++
		}
	}
	return BatchData{
		Created: r.Created(),
		Skipped: r.Failed() + len(r.Rejected),
		Merged:  merged,
		Message: r.Message,
	}
}

// warnings lists every door, selection and merge failure of a batch.
func warnings(r *batch.Report) []EvalErrorData {
	var out []EvalErrorData
	if r.Err != nil {
		out = append(out, EvalErrorData{Message: r.Err.Error()})
	}
	for _, rej := range r.Rejected {
		out = append(out, EvalErrorData{Message: fmt.Sprintf("door %s: %s", rej.DoorID.Short(), rej.Reason)})
	}
	for _, d := range r.Doors {
		if !d.OK() {
			out = append(out, EvalErrorData{Message: fmt.Sprintf("door %q: %v", d.DoorName, d.Err)})
		}
	}
	for _, m := range r.Merges {
		if m.Err != nil {
			out = append(out, EvalErrorData{Message: fmt.Sprintf("combine %d floors: %v", m.Inputs, m.Err)})
		}
	}
	return out
}

// FloorTypeNames returns the floor type catalog of the last evaluated
// script, in ascending order.
func (a *App) FloorTypeNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return []string{}
	}
	return a.last.Doc.FloorTypeNames()
}

// ExportDXF writes a plan of the last evaluated floors to path.
func (a *App) ExportDXF(path string) error {
	script, err := a.lastScript()
	if err != nil {
		return err
	}
	return export.PlanDXF(script.Doc, path)
}

// ExportSTL writes the slabs of the last evaluated floors to path.
func (a *App) ExportSTL(path string) error {
	script, err := a.lastScript()
	if err != nil {
		return err
	}
	return export.SolidsSTL(script.Doc, a.kernel, script.Doc.Defaults, path)
}

func (a *App) lastScript() (*engine.Script, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return nil, errNoScript
	}
	return a.last, nil
}
