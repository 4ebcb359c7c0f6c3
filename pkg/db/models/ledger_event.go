package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
)

// LedgerEvent records an immutable money movement. Every wallet mutation
// writes exactly one ledger event inside the same database transaction.
type LedgerEvent struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID *uuid.UUID            `gorm:"column:transaction_id;type:uuid"`
	SellerID      uuid.UUID             `gorm:"column:seller_id;type:uuid;not null"`
	ActorUserID   uuid.UUID             `gorm:"column:actor_user_id;type:uuid;not null"`
	Type          enums.LedgerEventType `gorm:"column:type;type:ledger_event_type;not null"`
	AmountCents   int64                 `gorm:"column:amount_cents;not null"`
	Metadata      json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
