package domain

import (
	"context"
	"errors"
	"strings"

	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
)

var (
	ErrRoomNotFound    = errors.New("room_not_found")
	ErrInvalidBuilding = errors.New("invalid_building")
	ErrInvalidRoom     = errors.New("invalid_room")
)

type Status string

const (
	StatusVacant      Status = "vacant"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
)

type Tenant struct {
	Phone          string `json:"phone"`
	Name           string `json:"name"`
	Representative bool   `json:"is_representative"`
}

// Room is a billable unit of a building. History and payments are read
// separately.
type Room struct {
	ID         string   `json:"id"`
	BuildingID string   `json:"building_id"`
	Status     Status   `json:"status"`
	Phone      string   `json:"phone,omitempty"`
	Tenants    []Tenant `json:"tenants,omitempty"`
	Nodes      []Node   `json:"nodes,omitempty"`

	// StatusExplicit reports whether Status was stored rather than inferred.
	StatusExplicit bool `json:"status_explicit"`
}

// Floor is the first character of the room id.
func (r Room) Floor() string {
	if r.ID == "" {
		return ""
	}
	return r.ID[:1]
}

func (r Room) Occupied() bool {
	return r.Status == StatusOccupied
}

// Representative returns the tenant who answers for the room, preferring the
// flagged one.
func (r Room) Representative() (Tenant, bool) {
	for _, t := range r.Tenants {
		if t.Representative {
			return t, true
		}
	}
	if len(r.Tenants) > 0 {
		return r.Tenants[0], true
	}
	return Tenant{}, false
}

// ContactPhone is the representative's phone, else the room phone.
func (r Room) ContactPhone() string {
	if t, ok := r.Representative(); ok && t.Phone != "" {
		return t.Phone
	}
	return r.Phone
}

// ResolveStatus applies the stored status when present, otherwise treats a
// room with any phone or tenant as occupied.
func ResolveStatus(stored, phone string, tenants int) (Status, bool) {
	if s := Status(strings.ToLower(strings.TrimSpace(stored))); s != "" {
		return s, true
	}
	if strings.TrimSpace(phone) != "" || tenants > 0 {
		return StatusOccupied, false
	}
	return StatusVacant, false
}

// Profile is the stored room record without its readings.
type Profile struct {
	ID     string
	Status string
	Phone  string
	Nodes  []Node
}

type Repository interface {
	// ListIDs returns the room ids of a building in sorted order.
	ListIDs(ctx context.Context, buildingID string) ([]string, error)
	// GetProfile returns nil when the room does not exist.
	GetProfile(ctx context.Context, buildingID, roomID string) (*Profile, error)
	// Tenants groups the phone directory entries of a building by room.
	Tenants(ctx context.Context, buildingID string) (map[string][]Tenant, error)
	History(ctx context.Context, buildingID, roomID string) (meteringdomain.History, error)
	// SetCalibration stores c on every listed node of the room in one write.
	SetCalibration(ctx context.Context, buildingID, roomID string, nodeIDs []string, c Calibration) error
}

type Service interface {
	Get(ctx context.Context, buildingID, roomID string) (*Room, error)
	List(ctx context.Context, buildingID string) ([]Room, error)
	ListIDs(ctx context.Context, buildingID string) ([]string, error)
	History(ctx context.Context, buildingID, roomID string) (meteringdomain.History, error)
	// Calibrate records a calibration on every node of the requested type.
	// A room without such nodes is not an error; NodesUpdated is zero.
	Calibrate(ctx context.Context, req CalibrateRequest) (*CalibrateResult, error)
	Calibration(ctx context.Context, buildingID, roomID string) (*RoomCalibration, error)
}
