package carriers

import (
	"strings"

	"github.com/soukly/soukly-backend/pkg/enums"
)

// statusAliases maps carrier status vocabulary onto the canonical shipment
// statuses. Moroccan carriers mix French and English terms, so matching is
// substring-based over an upper-cased copy of the raw value.
// Ordering matters: "OUT FOR DELIVERY" must match before the "DELIV" alias.
var statusAliases = []struct {
	needle string
	status enums.ShipmentStatus
}{
	{"RETOURNÉ", enums.ShipmentStatusReturned},
	{"RETOURNE", enums.ShipmentStatusReturned},
	{"RETURN", enums.ShipmentStatusReturned},
	{"OUT FOR", enums.ShipmentStatusOutForDelivery},
	{"SORTI", enums.ShipmentStatusOutForDelivery},
	{"LIVRÉ", enums.ShipmentStatusDelivered},
	{"LIVRE", enums.ShipmentStatusDelivered},
	{"DELIV", enums.ShipmentStatusDelivered},
	{"RAMASSÉ", enums.ShipmentStatusPickedUp},
	{"RAMASSE", enums.ShipmentStatusPickedUp},
	{"PICK", enums.ShipmentStatusPickedUp},
	{"TRANSIT", enums.ShipmentStatusInTransit},
	{"EN COURS", enums.ShipmentStatusInTransit},
	{"EXPÉDIÉ", enums.ShipmentStatusInTransit},
	{"EXPEDIE", enums.ShipmentStatusInTransit},
	{"PENDING", enums.ShipmentStatusPendingPickup},
	{"EN ATTENTE", enums.ShipmentStatusPendingPickup},
}

// NormalizeStatus maps a raw carrier status onto the canonical enum. Unknown
// values map to IN_TRANSIT with known=false so callers can log the anomaly;
// an unrecognized status must never be read as DELIVERED.
func NormalizeStatus(raw string) (status enums.ShipmentStatus, known bool) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return enums.ShipmentStatusInTransit, false
	}
	if parsed, err := enums.ParseShipmentStatus(upper); err == nil {
		return parsed, true
	}
	for _, alias := range statusAliases {
		if strings.Contains(upper, alias.needle) {
			return alias.status, true
		}
	}
	return enums.ShipmentStatusInTransit, false
}
