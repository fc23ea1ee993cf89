// Package layout names the store paths of the building tree.
//
//	buildings/{building}/price_{kind}, price_{kind}_updated_at
//	buildings/{building}/rooms/{room}/status, phone, tenants
//	buildings/{building}/rooms/{room}/nodes/{node}
//	buildings/{building}/rooms/{room}/history/{YYYY-MM-DD}/{kind}
//	buildings/{building}/rooms/{room}/payments/{YYYY-MM}
//	buildings/{building}/rooms/{room}/payment/{YYYY-MM}   (legacy)
//	phone_to_room/{phone}
package layout

import (
	"errors"
	"strings"

	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
)

var ErrInvalidID = errors.New("invalid_identifier")

const (
	buildings       = "buildings"
	rooms           = "rooms"
	history         = "history"
	nodes           = "nodes"
	payments        = "payments"
	legacyPayment   = "payment"
	directory       = "phone_to_room"
	pricePrefix     = "price_"
	updatedAtSuffix = "_updated_at"

	// LegacyPriceUpdatedAt is the building-wide timestamp that per-kind
	// timestamps replaced.
	LegacyPriceUpdatedAt = "price_updated_at"
)

// ValidID rejects identifiers that would escape their path segment.
func ValidID(id string) error {
	if id == "" || strings.ContainsAny(id, "/.#$[]") || strings.TrimSpace(id) != id {
		return ErrInvalidID
	}
	return nil
}

func Building(building string) string {
	return storedomain.JoinPath(buildings, building)
}

func Rooms(building string) string {
	return storedomain.JoinPath(buildings, building, rooms)
}

func Room(building, room string) string {
	return storedomain.JoinPath(buildings, building, rooms, room)
}

func RoomField(building, room, field string) string {
	return storedomain.JoinPath(Room(building, room), field)
}

func History(building, room string) string {
	return storedomain.JoinPath(Room(building, room), history)
}

func Nodes(building, room string) string {
	return storedomain.JoinPath(Room(building, room), nodes)
}

// Payment is the canonical settlement path.
func Payment(building, room, month string) string {
	return storedomain.JoinPath(Room(building, room), payments, month)
}

func Payments(building, room string) string {
	return storedomain.JoinPath(Room(building, room), payments)
}

// LegacyPayment is the singular settlement path still present in old data.
// It is read, never written, outside the migration sweep.
func LegacyPayment(building, room, month string) string {
	return storedomain.JoinPath(Room(building, room), legacyPayment, month)
}

func LegacyPayments(building, room string) string {
	return storedomain.JoinPath(Room(building, room), legacyPayment)
}

func Directory() string {
	return directory
}

// PriceField is the building field holding the unit price of kind.
func PriceField(kind string) string {
	return pricePrefix + kind
}

// PriceUpdatedAtField is the building field holding when kind's price last
// changed.
func PriceUpdatedAtField(kind string) string {
	return pricePrefix + kind + updatedAtSuffix
}
