package repository

import (
	"context"
	"sort"
	"time"

	"github.com/railzwaylabs/roomledger/internal/layout"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
)

const (
	fieldStatus     = "status"
	fieldPhone      = "phone"
	fieldType       = "type"
	fieldCustomName = "customName"

	fieldCalibration  = "calibration"
	fieldSensorValue  = "sensorValue"
	fieldActualValue  = "actualValue"
	fieldFactor       = "calibrationFactor"
	fieldCalibratedAt = "calibratedAt"
)

type repo struct {
	store storedomain.Store
}

func Provide(store storedomain.Store) roomdomain.Repository {
	return &repo{store: store}
}

func (r *repo) ListIDs(ctx context.Context, buildingID string) ([]string, error) {
	return r.store.Shallow(ctx, layout.Rooms(buildingID))
}

func (r *repo) GetProfile(ctx context.Context, buildingID, roomID string) (*roomdomain.Profile, error) {
	fields, err := r.store.Shallow(ctx, layout.Room(buildingID, roomID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	profile := &roomdomain.Profile{ID: roomID}
	if profile.Status, err = r.readString(ctx, layout.RoomField(buildingID, roomID, fieldStatus)); err != nil {
		return nil, err
	}
	if profile.Phone, err = r.readString(ctx, layout.RoomField(buildingID, roomID, fieldPhone)); err != nil {
		return nil, err
	}

	nodes, err := r.store.Read(ctx, layout.Nodes(buildingID, roomID))
	if err != nil {
		return nil, err
	}
	for _, n := range nodes.Children() {
		profile.Nodes = append(profile.Nodes, parseNode(n))
	}
	return profile, nil
}

func (r *repo) readString(ctx context.Context, path string) (string, error) {
	snap, err := r.store.Read(ctx, path)
	if err != nil {
		return "", err
	}
	s, _ := snap.String()
	return s, nil
}

func parseNode(snap storedomain.Snapshot) roomdomain.Node {
	node := roomdomain.Node{ID: snap.Key(), Name: snap.Key()}
	if name, ok := snap.Child(fieldCustomName).String(); ok && name != "" {
		node.Name = name
	}
	stored, _ := snap.Child(fieldType).String()
	if t := roomdomain.NodeType(stored); t.Valid() {
		node.Type = t
	}
	node.Calibration = parseCalibration(snap.Child(fieldCalibration))
	return node
}

func parseCalibration(snap storedomain.Snapshot) *roomdomain.Calibration {
	factor, ok := snap.Child(fieldFactor).Float()
	if !ok || factor <= 0 {
		return nil
	}
	c := &roomdomain.Calibration{Factor: factor}
	c.SensorValue, _ = snap.Child(fieldSensorValue).Float()
	c.ActualValue, _ = snap.Child(fieldActualValue).Float()
	if ms, ok := snap.Child(fieldCalibratedAt).Float(); ok && ms > 0 {
		at := time.UnixMilli(int64(ms)).UTC()
		c.CalibratedAt = &at
	}
	return c
}

func encodeCalibration(c roomdomain.Calibration) map[string]any {
	out := map[string]any{
		fieldSensorValue: c.SensorValue,
		fieldActualValue: c.ActualValue,
		fieldFactor:      c.Factor,
	}
	if c.CalibratedAt != nil {
		out[fieldCalibratedAt] = c.CalibratedAt.UnixMilli()
	}
	return out
}

func (r *repo) SetCalibration(ctx context.Context, buildingID, roomID string, nodeIDs []string, c roomdomain.Calibration) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	fields := make(map[string]any, len(nodeIDs))
	for _, id := range nodeIDs {
		fields[storedomain.JoinPath(id, fieldCalibration)] = encodeCalibration(c)
	}
	return r.store.Merge(ctx, layout.Nodes(buildingID, roomID), fields)
}

type directoryEntry struct {
	BuildingID       string `json:"buildingId"`
	RoomID           string `json:"roomId"`
	Name             string `json:"name"`
	IsRepresentative bool   `json:"isRepresentative"`
}

func (r *repo) Tenants(ctx context.Context, buildingID string) (map[string][]roomdomain.Tenant, error) {
	snap, err := r.store.Read(ctx, layout.Directory())
	if err != nil {
		return nil, err
	}

	out := map[string][]roomdomain.Tenant{}
	for _, child := range snap.Children() {
		var entry directoryEntry
		if err := child.Decode(&entry); err != nil {
			continue
		}
		if entry.BuildingID != buildingID || entry.RoomID == "" {
			continue
		}
		out[entry.RoomID] = append(out[entry.RoomID], roomdomain.Tenant{
			Phone:          child.Key(),
			Name:           entry.Name,
			Representative: entry.IsRepresentative,
		})
	}
	for _, tenants := range out {
		sort.SliceStable(tenants, func(i, j int) bool {
			return tenants[i].Representative && !tenants[j].Representative
		})
	}
	return out, nil
}

// History keeps only numeric readings of known kinds.
func (r *repo) History(ctx context.Context, buildingID, roomID string) (meteringdomain.History, error) {
	snap, err := r.store.Read(ctx, layout.History(buildingID, roomID))
	if err != nil {
		return nil, err
	}

	history := meteringdomain.History{}
	for _, day := range snap.Children() {
		for _, kind := range meteringdomain.Kinds {
			if v, ok := day.Child(string(kind)).Float(); ok {
				history.Set(day.Key(), kind, v)
			}
		}
	}
	return history, nil
}
