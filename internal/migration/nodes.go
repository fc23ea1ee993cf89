package migration

import (
	"context"
	"strings"

	"github.com/railzwaylabs/roomledger/internal/layout"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
	"go.uber.org/zap"
)

var (
	electricHints = []string{"electric", "elec", "dien", "điện"}
	waterHints    = []string{"water", "wat", "nuoc", "nước"}
)

type NodeImportReport struct {
	Building string                      `json:"building"`
	Assigned map[roomdomain.NodeType]int `json:"assigned"`
	// Typed counts nodes that already carried a valid type.
	Typed  int  `json:"typed"`
	DryRun bool `json:"dry_run"`
}

// ImportNodeKinds stores an explicit type on every meter node that has
// none, guessing it from the node id and its last reported fields.
func (m *DataMigrations) ImportNodeKinds(ctx context.Context, buildingID string, dryRun bool) (*NodeImportReport, error) {
	if err := layout.ValidID(buildingID); err != nil {
		return nil, roomdomain.ErrInvalidBuilding
	}
	rooms, err := m.store.Shallow(ctx, layout.Rooms(buildingID))
	if err != nil {
		return nil, err
	}

	report := &NodeImportReport{
		Building: buildingID,
		Assigned: map[roomdomain.NodeType]int{},
		DryRun:   dryRun,
	}
	for _, roomID := range rooms {
		nodes, err := m.store.Read(ctx, layout.Nodes(buildingID, roomID))
		if err != nil {
			return nil, err
		}
		for _, node := range nodes.Children() {
			stored, _ := node.Child("type").String()
			if roomdomain.NodeType(stored).Valid() {
				report.Typed++
				continue
			}

			var lastData map[string]any
			if v, ok := node.Child("lastData").Value().(map[string]any); ok {
				lastData = v
			}
			kind := InferNodeType(node.Key(), lastData)
			report.Assigned[kind]++
			m.log.Debug("node type inferred",
				zap.String("room", roomID),
				zap.String("node", node.Key()),
				zap.String("type", string(kind)),
			)
			if dryRun {
				continue
			}
			path := storedomain.JoinPath(layout.Nodes(buildingID, roomID), node.Key())
			if err := m.store.Merge(ctx, path, map[string]any{"type": string(kind)}); err != nil {
				return nil, err
			}
		}
	}

	m.log.Info("node import finished",
		zap.String("building", buildingID),
		zap.Int("typed", report.Typed),
		zap.Any("assigned", report.Assigned),
		zap.Bool("dry_run", dryRun),
	)
	return report, nil
}

// InferNodeType guesses a meter kind from its id, then from the fields of
// its last reported data.
func InferNodeType(id string, lastData map[string]any) roomdomain.NodeType {
	lower := strings.ToLower(id)
	if containsAny(lower, electricHints) {
		return roomdomain.NodeElectricity
	}
	if containsAny(lower, waterHints) {
		return roomdomain.NodeWater
	}
	if _, ok := lastData["electric"]; ok {
		return roomdomain.NodeElectricity
	}
	if _, ok := lastData["water"]; ok {
		return roomdomain.NodeWater
	}
	return roomdomain.NodeCustom
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
