package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
)

// Repository manages persistence for transactions and the listing state they
// reserve.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error

	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	// ReserveListing flips an available listing to reserved in one guarded
	// update; reserved=false means someone else bought it first.
	ReserveListing(ctx context.Context, id uuid.UUID) (reserved bool, err error)
	SetListingStatus(ctx context.Context, id uuid.UUID, status enums.ListingStatus) error

	HasOpenDispute(ctx context.Context, transactionID uuid.UUID) (bool, error)
	// ListSettlementDue returns DELIVERED transactions whose protection
	// window expired before the cutoff and whose funds are still held.
	ListSettlementDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return r.list(ctx, "buyer_id = ?", buyerID, limit)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return r.list(ctx, "seller_id = ?", sellerID, limit)
}

func (r *repository) list(ctx context.Context, where string, id uuid.UUID, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.Transaction
	if err := r.db.WithContext(ctx).
		Where(where, id).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) ReserveListing(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, enums.ListingStatusAvailable).
		Update("status", enums.ListingStatusReserved)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetListingStatus(ctx context.Context, id uuid.UUID, status enums.ListingStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) HasOpenDispute(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("transaction_id = ? AND status = ?", transactionID, enums.DisputeStatusOpen).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListSettlementDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var txns []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("status = ? AND funds_released = ? AND delivered_at <= ?",
			enums.TransactionStatusDelivered, false, cutoff).
		Order("delivered_at ASC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
