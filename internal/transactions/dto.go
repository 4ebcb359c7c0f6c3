package transactions

import (
	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/types"
)

// CreateTransactionInput captures a buyer's checkout of one listing. Payment
// capture already happened upstream; this records the escrow side.
type CreateTransactionInput struct {
	BuyerID         uuid.UUID
	ListingID       uuid.UUID
	PaymentMethod   string
	ShippingAddress types.Address
	ShippingMethod  string
}

// MarkShippedInput is the seller's handoff confirmation. TrackingNumber is
// only needed when the seller ships outside the platform's carriers; with a
// generated label the label's number wins.
type MarkShippedInput struct {
	TransactionID  uuid.UUID
	SellerID       uuid.UUID
	TrackingNumber string
}

// ConfirmDeliveryInput is the buyer's acceptance of the delivered item.
type ConfirmDeliveryInput struct {
	TransactionID uuid.UUID
	BuyerID       uuid.UUID
}
