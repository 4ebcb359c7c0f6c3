package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
)

// Listing is the sellable item. The settlement engine only cares about its
// seller, price and availability; browsing/search live elsewhere.
type Listing struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID   uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Title      string              `gorm:"column:title;not null"`
	PriceCents int64               `gorm:"column:price_cents;not null"`
	Status     enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'available'"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
