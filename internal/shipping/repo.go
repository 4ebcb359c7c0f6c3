package shipping

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soukly/soukly-backend/pkg/db"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
)

// Repository manages persistence for shipping labels and tracking events.
// It also mirrors shipment progress onto the owning transaction row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)
	CreateLabel(ctx context.Context, label *models.ShippingLabel) error
	GetLabelByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.ShippingLabel, error)
	GetLabelByTracking(ctx context.Context, trackingNumber string) (*models.ShippingLabel, error)
	// GetLabelByTrackingForUpdate locks the label row so concurrent webhook
	// deliveries for one shipment serialize. Must run inside a transaction.
	GetLabelByTrackingForUpdate(ctx context.Context, trackingNumber string) (*models.ShippingLabel, error)
	// InsertTrackingEvent appends one event. Returns applied=false when the
	// (label, status, occurred_at) triple was already recorded.
	InsertTrackingEvent(ctx context.Context, event *models.TrackingEvent) (applied bool, err error)
	HasCarrierEvent(ctx context.Context, labelID uuid.UUID, carrierEventID string) (bool, error)
	UpdateLabelStatus(ctx context.Context, labelID uuid.UUID, status enums.ShipmentStatus) error
	UpdateTransactionShipment(ctx context.Context, transactionID uuid.UUID, fields map[string]any) error
	ListTrackingEvents(ctx context.Context, labelID uuid.UUID) ([]models.TrackingEvent, error)
	// LatestEventTime returns the newest history timestamp for the label,
	// or nil when the label has no events yet.
	LatestEventTime(ctx context.Context, labelID uuid.UUID) (*time.Time, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shipping repository bound to the provided database.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Where("id = ?", transactionID).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) CreateLabel(ctx context.Context, label *models.ShippingLabel) error {
	return r.db.WithContext(ctx).Create(label).Error
}

func (r *repository) GetLabelByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.ShippingLabel, error) {
	var label models.ShippingLabel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&label).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

func (r *repository) GetLabelByTracking(ctx context.Context, trackingNumber string) (*models.ShippingLabel, error) {
	var label models.ShippingLabel
	if err := r.db.WithContext(ctx).
		Where("tracking_number = ?", trackingNumber).
		First(&label).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

func (r *repository) GetLabelByTrackingForUpdate(ctx context.Context, trackingNumber string) (*models.ShippingLabel, error) {
	var label models.ShippingLabel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_number = ?", trackingNumber).
		First(&label).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

func (r *repository) InsertTrackingEvent(ctx context.Context, event *models.TrackingEvent) (bool, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if db.IsUniqueViolation(err, "uq_tracking_events_dedupe") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) HasCarrierEvent(ctx context.Context, labelID uuid.UUID, carrierEventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TrackingEvent{}).
		Where("label_id = ? AND carrier_event_id = ?", labelID, carrierEventID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateLabelStatus(ctx context.Context, labelID uuid.UUID, status enums.ShipmentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ShippingLabel{}).
		Where("id = ?", labelID).
		Update("status", status).Error
}

func (r *repository) UpdateTransactionShipment(ctx context.Context, transactionID uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(fields).Error
}

func (r *repository) LatestEventTime(ctx context.Context, labelID uuid.UUID) (*time.Time, error) {
	var latest sql.NullTime
	err := r.db.WithContext(ctx).
		Model(&models.TrackingEvent{}).
		Where("label_id = ?", labelID).
		Select("MAX(occurred_at)").
		Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *repository) ListTrackingEvents(ctx context.Context, labelID uuid.UUID) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	if err := r.db.WithContext(ctx).
		Where("label_id = ?", labelID).
		Order("occurred_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
