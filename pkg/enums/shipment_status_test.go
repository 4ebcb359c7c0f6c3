package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShipmentStatusCanAdvanceForwardOnly(t *testing.T) {
	assert.True(t, ShipmentStatusPendingPickup.CanAdvanceTo(ShipmentStatusPickedUp))
	assert.True(t, ShipmentStatusPickedUp.CanAdvanceTo(ShipmentStatusDelivered))
	assert.False(t, ShipmentStatusInTransit.CanAdvanceTo(ShipmentStatusPickedUp))
	assert.False(t, ShipmentStatusInTransit.CanAdvanceTo(ShipmentStatusInTransit))
	assert.False(t, ShipmentStatusDelivered.CanAdvanceTo(ShipmentStatusOutForDelivery))
}

func TestReturnedReachableFromAnyNonTerminal(t *testing.T) {
	for _, from := range []ShipmentStatus{
		ShipmentStatusPendingPickup,
		ShipmentStatusPickedUp,
		ShipmentStatusInTransit,
		ShipmentStatusOutForDelivery,
	} {
		assert.True(t, from.CanAdvanceTo(ShipmentStatusReturned), "from %s", from)
	}
	assert.False(t, ShipmentStatusDelivered.CanAdvanceTo(ShipmentStatusReturned))
	assert.False(t, ShipmentStatusReturned.CanAdvanceTo(ShipmentStatusReturned))
}

func TestTransactionStatusTerminal(t *testing.T) {
	assert.True(t, TransactionStatusCompleted.IsTerminal())
	assert.True(t, TransactionStatusRefunded.IsTerminal())
	assert.False(t, TransactionStatusDisputed.IsTerminal())
}

func TestParseShipmentStatusRejectsUnknown(t *testing.T) {
	_, err := ParseShipmentStatus("LOST")
	assert.Error(t, err)
}

func TestCarrierOrDefault(t *testing.T) {
	assert.Equal(t, CarrierAmana, CarrierOrDefault("Amana"))
	assert.Equal(t, CarrierLocal, CarrierOrDefault(""))
	assert.Equal(t, CarrierLocal, CarrierOrDefault("dhl"))
}
