package model

import "fmt"

// Rejection explains why a requested door was left out of a selection.
type Rejection struct {
	DoorID ElementID
	Reason string
}

// SelectDoors resolves ids to doors whose host wall can carry a floor
// footprint. Unknown IDs and doors in curtain walls are returned as
// rejections. The order of ids is preserved. An empty ids selects every
// door in the document.
func (d *Document) SelectDoors(ids []ElementID) ([]*Door, []Rejection) {
	if len(ids) == 0 {
		for _, dr := range d.Doors() {
			ids = append(ids, dr.ID)
		}
	}

	var doors []*Door
	var rejected []Rejection
	for _, id := range ids {
		dr, ok := d.Door(id)
		if !ok {
			rejected = append(rejected, Rejection{DoorID: id, Reason: "not a door"})
			continue
		}
		w, ok := d.Wall(dr.HostID)
		if !ok {
			rejected = append(rejected, Rejection{DoorID: id, Reason: "host wall missing"})
			continue
		}
		if !w.Kind.HostsFloors() {
			rejected = append(rejected, Rejection{
				DoorID: id,
				Reason: fmt.Sprintf("host wall %q is a %s wall", w.Name, w.Kind),
			})
			continue
		}
		doors = append(doors, dr)
	}
	return doors, rejected
}
