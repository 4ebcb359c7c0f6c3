package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
)

// Dispute freezes settlement for a transaction until a privileged actor
// resolves it. Rows are kept forever for audit; a partial unique index in the
// schema guarantees at most one OPEN dispute per transaction.
type Dispute struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID                `gorm:"column:transaction_id;type:uuid;not null"`
	BuyerID       uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null"`
	Reason        string                   `gorm:"column:reason;not null"`
	Description   string                   `gorm:"column:description"`
	Status        enums.DisputeStatus      `gorm:"column:status;type:dispute_status;not null;default:'OPEN'"`
	Resolution    *enums.DisputeResolution `gorm:"column:resolution;type:dispute_resolution"`
	ResolvedBy    *uuid.UUID               `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt    *time.Time               `gorm:"column:resolved_at"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
