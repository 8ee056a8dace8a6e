package gear

import "encoding/json"

// equipmentJSON is the wire shape for a Loadout: an object with exactly the
// eleven slot keys, each either an EquipmentPiece or null.
type equipmentJSON map[Slot]*EquipmentPiece

// MarshalJSON renders r per the stable result shape: equipment, metrics,
// cost and meta as sibling keys, with equipment expanded to all eleven slots.
func (r OptimizerResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Equipment equipmentJSON `json:"equipment"`
		Metrics   Metrics       `json:"metrics"`
		Cost      Cost          `json:"cost"`
		Meta      Meta          `json:"meta"`
	}{
		Equipment: equipmentJSON(r.Equipment.Slots),
		Metrics:   r.Metrics,
		Cost:      r.Cost,
		Meta:      r.Meta,
	}
	return json.Marshal(out)
}
