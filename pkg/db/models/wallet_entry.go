package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
)

// WalletEntry is one applied wallet mutation. The unique index over
// (wallet_id, type, cause_key) is what makes every wallet operation
// exactly-once per causing event: a replay hits the constraint and is
// treated as a no-op.
type WalletEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID    uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;uniqueIndex:uq_wallet_entries_cause"`
	Type        enums.WalletEntryType `gorm:"column:type;type:wallet_entry_type;not null;uniqueIndex:uq_wallet_entries_cause"`
	CauseKey    string                `gorm:"column:cause_key;not null;uniqueIndex:uq_wallet_entries_cause"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
