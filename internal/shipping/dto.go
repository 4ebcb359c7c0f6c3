package shipping

import (
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/internal/shipping/carriers"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/types"
)

// GenerateLabelInput is a seller's request to create the shipment for a paid
// transaction.
type GenerateLabelInput struct {
	TransactionID uuid.UUID
	SellerID      uuid.UUID
	Carrier       string
	PickupAddress types.Address
	WeightGrams   int
}

// ApplyEventInput is one normalized tracking update, whatever its origin.
type ApplyEventInput struct {
	TrackingNumber string
	Status         enums.ShipmentStatus
	RawStatus      string
	OccurredAt     time.Time
	Location       string
	Notes          string
	Source         enums.TrackingSource
	CarrierEventID string
	ScannedBy      string
}

// ApplyEventResult reports what a tracking update did.
type ApplyEventResult struct {
	Label *models.ShippingLabel
	// Applied is false when the event was a duplicate delivery and nothing
	// changed.
	Applied bool
}

// QuoteInput asks for shipping prices between two cities.
type QuoteInput struct {
	OriginCity      string
	DestinationCity string
	WeightGrams     int
	// Carrier narrows the quote to one carrier when set.
	Carrier string
}

// QuoteResult aggregates per-carrier quotes.
type QuoteResult struct {
	Quotes []carriers.Quote
}
