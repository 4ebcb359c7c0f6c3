package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
)

// TrackingEvent is one append-only entry in a label's status history.
// The unique index over (label_id, status, occurred_at) deduplicates
// at-least-once carrier webhook deliveries at the storage level.
type TrackingEvent struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LabelID        uuid.UUID            `gorm:"column:label_id;type:uuid;not null;uniqueIndex:uq_tracking_events_dedupe"`
	Status         enums.ShipmentStatus `gorm:"column:status;type:shipment_status;not null;uniqueIndex:uq_tracking_events_dedupe"`
	OccurredAt     time.Time            `gorm:"column:occurred_at;not null;uniqueIndex:uq_tracking_events_dedupe"`
	Location       *string              `gorm:"column:location"`
	Notes          *string              `gorm:"column:notes"`
	Source         enums.TrackingSource `gorm:"column:source;type:tracking_source;not null"`
	CarrierEventID *string              `gorm:"column:carrier_event_id"`
	ScannedBy      *string              `gorm:"column:scanned_by"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
