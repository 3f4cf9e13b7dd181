// Package batch runs one "create floors under doors" command against a
// document: a floor per selected door, then an optional merge of the new
// floors per floor type and level.
package batch

import (
	"errors"
	"log"

	"github.com/chazu/threshold/pkg/floors"
	"github.com/chazu/threshold/pkg/footprint"
	"github.com/chazu/threshold/pkg/model"
)

// CompletedMessage is reported at the end of every batch, whatever the
// individual outcomes were.
const CompletedMessage = "Completed!"

var (
	// ErrNoDoors is reported when the selection contains no eligible door.
	ErrNoDoors = errors.New("batch: no eligible doors selected")
	// ErrMergeUnavailable is reported when combining is requested on a host
	// that can only create single-loop floors.
	ErrMergeUnavailable = errors.New("batch: host cannot create multi-loop floors")
)

// Request holds the user's choices for one batch.
type Request struct {
	Doors         []model.ElementID `json:"doors"`          // empty selects every door
	FloorTypeName string            `json:"floor_type"`     // must match one floor type exactly
	HeightOffset  float64           `json:"height_offset"`  // display millimetres
	Combine       bool              `json:"combine"`        // merge new floors per type and level
	Tier          floors.Tier       `json:"tier"`
}

// DoorResult is the outcome for one door.
type DoorResult struct {
	DoorID   model.ElementID
	DoorName string
	FloorID  model.ElementID // zero when Err is set
	Err      error
}

// OK reports whether a floor was created for the door.
func (r DoorResult) OK() bool {
	return r.Err == nil
}

// MergeResult is the outcome of merging one group of floors.
type MergeResult struct {
	TypeID  model.ElementID
	LevelID model.ElementID
	Inputs  int
	FloorID model.ElementID // zero when Err is set
	Err     error
}

// Report collects everything a batch did.
type Report struct {
	Doors    []DoorResult
	Rejected []model.Rejection
	Merges   []MergeResult
	Err      error // set when the batch stopped before touching the document
	Message  string
}

// Created returns the number of doors that received a floor.
func (r *Report) Created() int {
	n := 0
	for _, d := range r.Doors {
		if d.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of doors that were skipped.
func (r *Report) Failed() int {
	return len(r.Doors) - r.Created()
}

// Run executes req against doc inside one transaction. Per-door and merge
// failures are recorded in the report and logged; they never stop the
// batch.
func Run(doc *model.Document, req Request) *Report {
	report := &Report{}
	defer func() { report.Message = CompletedMessage }()

	doors, rejected := doc.SelectDoors(req.Doors)
	report.Rejected = rejected
	for _, r := range rejected {
		log.Printf("batch: skipping %s: %s", r.DoorID.Short(), r.Reason)
	}
	if len(doors) == 0 {
		report.Err = ErrNoDoors
		log.Printf("batch: %v", ErrNoDoors)
		return report
	}

	tx := doc.Begin("Create floors")
	inst := floors.New(req.Tier)

	var created []*model.Floor
	for _, door := range doors {
		res := DoorResult{DoorID: door.ID, DoorName: door.Name}
		f, err := createForDoor(doc, inst, door, req)
		if err != nil {
			res.Err = err
			log.Printf("batch: door %q skipped: %v", door.Name, err)
		} else {
			res.FloorID = f.ID
			created = append(created, f)
		}
		report.Doors = append(report.Doors, res)
	}

	if req.Combine && len(created) > 0 {
		report.Merges = combine(doc, inst, created, req.HeightOffset)
	}

	if err := tx.Commit(); err != nil {
		log.Printf("batch: commit: %v", err)
	}
	log.Printf("batch: %d floors created, %d doors skipped, %d merges", report.Created(), report.Failed(), len(report.Merges))
	return report
}

func createForDoor(doc *model.Document, inst floors.Instantiator, door *model.Door, req Request) (*model.Floor, error) {
	fp, err := footprint.FromDoor(doc, door.ID)
	if err != nil {
		return nil, err
	}
	return inst.Instantiate(doc, fp, req.FloorTypeName, door.LevelID, req.HeightOffset)
}

// combine merges created floors per floor type and level. Groups with a
// single floor are left alone.
func combine(doc *model.Document, inst floors.Instantiator, created []*model.Floor, heightOffset float64) []MergeResult {
	lc, ok := inst.(floors.LoopCreator)
	if !ok {
		log.Printf("batch: combine requested on %s host: %v", inst.Tier(), ErrMergeUnavailable)
		return []MergeResult{{Inputs: len(created), Err: ErrMergeUnavailable}}
	}

	merger := floors.NewMerger(lc)
	var results []MergeResult
	for _, group := range floors.Batches(created) {
		if len(group) < 2 {
			continue
		}
		res := MergeResult{TypeID: group[0].TypeID, LevelID: group[0].LevelID, Inputs: len(group)}
		merged, err := merger.Merge(doc, group, heightOffset)
		if err != nil {
			res.Err = err
			log.Printf("batch: merge of %d floors on level %s failed, originals kept: %v", len(group), res.LevelID.Short(), err)
		} else {
			res.FloorID = merged.ID
		}
		results = append(results, res)
	}
	return results
}
