// Package carriers holds the adapters that talk to Moroccan shipping
// carriers. Everything outside this package works with the carrier-agnostic
// Adapter interface; per-carrier payload shapes never leak past it.
package carriers

import (
	"context"
	"time"

	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/types"
)

// GenerateLabelRequest carries everything a carrier needs to create a label.
type GenerateLabelRequest struct {
	TransactionID      string
	PickupAddress      types.Address
	DeliveryAddress    types.Address
	DeclaredValueCents int64
	WeightGrams        int
}

// Label is the carrier's response to a label request.
type Label struct {
	TrackingNumber string
	Carrier        enums.Carrier
	QRCode         string
	LabelURL       string
}

// TrackingUpdate is one normalized status report pulled from a carrier.
type TrackingUpdate struct {
	Status     enums.ShipmentStatus
	RawStatus  string
	Location   string
	OccurredAt time.Time
}

// QuoteRequest asks a carrier to price a shipment between two cities.
type QuoteRequest struct {
	OriginCity      string
	DestinationCity string
	WeightGrams     int
}

// Quote is a carrier's price and delivery estimate for a shipment.
type Quote struct {
	Carrier       enums.Carrier
	PriceCents    int64
	Currency      string
	EstimatedDays int
}

// Adapter is the carrier-facing port. Implementations make network calls and
// must be invoked outside database transactions.
type Adapter interface {
	Carrier() enums.Carrier
	GenerateLabel(ctx context.Context, req GenerateLabelRequest) (*Label, error)
	TrackShipment(ctx context.Context, trackingNumber string) ([]TrackingUpdate, error)
	GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error)
}
