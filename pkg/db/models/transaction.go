package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/types"
)

// Transaction is one sale held in escrow: buyer paid upfront, the seller's
// net proceeds sit in the wallet's pending balance until settlement.
// AmountCents = FeeCents + NetAmountCents always holds.
type Transaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID           uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID          uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	ListingID         uuid.UUID               `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:uq_transactions_listing_id"`
	AmountCents       int64                   `gorm:"column:amount_cents;not null"`
	FeeCents          int64                   `gorm:"column:fee_cents;not null"`
	NetAmountCents    int64                   `gorm:"column:net_amount_cents;not null"`
	Status            enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'PAID'"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;type:payment_method;not null;default:'card'"`
	ShippingMethod    *string                 `gorm:"column:shipping_method"`
	ShippingAddress   *types.Address          `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	ShippingCostCents int64                   `gorm:"column:shipping_cost_cents;not null;default:0"`
	TrackingNumber    *string                 `gorm:"column:tracking_number"`
	ShipmentStatus    *enums.ShipmentStatus   `gorm:"column:shipment_status;type:shipment_status"`
	ShippedAt         *time.Time              `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time              `gorm:"column:delivered_at"`
	FundsReleased     bool                    `gorm:"column:funds_released;not null;default:false"`
	DisputeID         *uuid.UUID              `gorm:"column:dispute_id;type:uuid"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
