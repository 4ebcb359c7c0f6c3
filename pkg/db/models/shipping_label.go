package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/types"
)

// ShippingLabel is the one-to-one shipment record for a transaction, keyed by
// the carrier-assigned tracking number. Status always equals the status of
// the last tracking event.
type ShippingLabel struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID      uuid.UUID            `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:uq_shipping_labels_transaction_id"`
	TrackingNumber     string               `gorm:"column:tracking_number;not null;uniqueIndex:uq_shipping_labels_tracking_number"`
	Carrier            enums.Carrier        `gorm:"column:carrier;type:carrier;not null"`
	Status             enums.ShipmentStatus `gorm:"column:status;type:shipment_status;not null;default:'PENDING_PICKUP'"`
	QRCode             *string              `gorm:"column:qr_code"`
	LabelURL           *string              `gorm:"column:label_url"`
	PickupAddress      types.Address        `gorm:"column:pickup_address;type:jsonb;serializer:json"`
	DeliveryAddress    types.Address        `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	DeclaredValueCents int64                `gorm:"column:declared_value_cents;not null;default:0"`
	Events             []TrackingEvent      `gorm:"foreignKey:LabelID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
