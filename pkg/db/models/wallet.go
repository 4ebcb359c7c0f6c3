package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a seller's escrow balances in cents. Pending is money from
// in-flight sales; Balance is withdrawable. Both stay non-negative; the DB
// enforces it with check constraints as a second line of defense.
type Wallet struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID     uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:uq_wallets_seller_id"`
	PendingCents int64     `gorm:"column:pending_cents;not null;default:0"`
	BalanceCents int64     `gorm:"column:balance_cents;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
