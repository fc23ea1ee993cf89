package domain

type NodeType string

const (
	NodeElectricity NodeType = "electricity"
	NodeWater       NodeType = "water"
	NodeCustom      NodeType = "custom"
	// NodeUnassigned marks a meter stored without a type. The import-nodes
	// command assigns one.
	NodeUnassigned NodeType = ""
)

func (t NodeType) Valid() bool {
	switch t {
	case NodeElectricity, NodeWater, NodeCustom:
		return true
	default:
		return false
	}
}

// Metered reports whether calibration applies to meters of t.
func (t NodeType) Metered() bool {
	return t == NodeElectricity || t == NodeWater
}

// Node is a meter attached to a room.
type Node struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        NodeType     `json:"type"`
	Calibration *Calibration `json:"calibration,omitempty"`
}
