package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soukly/soukly-backend/pkg/db"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
)

// Repository manages persistence for disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Create inserts a dispute. Returns created=false when the partial
	// unique index found another OPEN dispute for the transaction.
	Create(ctx context.Context, dispute *models.Dispute) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// MarkTransactionDisputed stamps the owning transaction row. The update
	// re-verifies eligibility so a settle committing after the caller's read
	// cannot be regressed to DISPUTED; marked=false means the row changed.
	MarkTransactionDisputed(ctx context.Context, transactionID, disputeID uuid.UUID) (marked bool, err error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit int) ([]models.Dispute, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dispute repository bound to the provided database.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) (bool, error) {
	if err := r.db.WithContext(ctx).Create(dispute).Error; err != nil {
		if db.IsUniqueViolation(err, "uq_disputes_open_per_transaction") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) MarkTransactionDisputed(ctx context.Context, transactionID, disputeID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ? AND funds_released = ?",
			transactionID, enums.TransactionStatusDelivered, false).
		Updates(map[string]any{
			"status":     enums.TransactionStatusDisputed,
			"dispute_id": disputeID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at DESC").
		Find(&disputes).Error; err != nil {
		return nil, err
	}
	return disputes, nil
}

func (r *repository) ListOpen(ctx context.Context, limit int) ([]models.Dispute, error) {
	if limit <= 0 {
		limit = 50
	}
	var disputes []models.Dispute
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.DisputeStatusOpen).
		Order("created_at ASC").
		Limit(limit).
		Find(&disputes).Error; err != nil {
		return nil, err
	}
	return disputes, nil
}
