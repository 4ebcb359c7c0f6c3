package enums

import "fmt"

// ShipmentStatus is the carrier-reported stage of a package's journey.
// The forward statuses form a strict canonical order; RETURNED is a terminal
// side branch reachable from any non-terminal status.
type ShipmentStatus string

const (
	ShipmentStatusPendingPickup  ShipmentStatus = "PENDING_PICKUP"
	ShipmentStatusPickedUp       ShipmentStatus = "PICKED_UP"
	ShipmentStatusInTransit      ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentStatusDelivered      ShipmentStatus = "DELIVERED"
	ShipmentStatusReturned       ShipmentStatus = "RETURNED"
)

var shipmentStatusRanks = map[ShipmentStatus]int{
	ShipmentStatusPendingPickup:  0,
	ShipmentStatusPickedUp:       1,
	ShipmentStatusInTransit:      2,
	ShipmentStatusOutForDelivery: 3,
	ShipmentStatusDelivered:      4,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	if s == ShipmentStatusReturned {
		return true
	}
	_, ok := shipmentStatusRanks[s]
	return ok
}

// Rank returns the position in the canonical forward order. RETURNED has no
// rank; the second return value is false for it and for unknown statuses.
func (s ShipmentStatus) Rank() (int, bool) {
	rank, ok := shipmentStatusRanks[s]
	return rank, ok
}

// IsTerminal reports whether the shipment can make no further progress.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusReturned
}

// CanAdvanceTo reports whether a transition from s to next respects the
// canonical order. RETURNED is allowed from any non-terminal status;
// everything else must move strictly forward.
func (s ShipmentStatus) CanAdvanceTo(next ShipmentStatus) bool {
	if next == ShipmentStatusReturned {
		return !s.IsTerminal()
	}
	currentRank, ok := s.Rank()
	if !ok {
		return false
	}
	nextRank, ok := next.Rank()
	if !ok {
		return false
	}
	return nextRank > currentRank
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range []ShipmentStatus{
		ShipmentStatusPendingPickup,
		ShipmentStatusPickedUp,
		ShipmentStatusInTransit,
		ShipmentStatusOutForDelivery,
		ShipmentStatusDelivered,
		ShipmentStatusReturned,
	} {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
