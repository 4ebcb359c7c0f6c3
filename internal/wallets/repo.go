package wallets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soukly/soukly-backend/pkg/db"
	"github.com/soukly/soukly-backend/pkg/db/models"
)

// Repository manages persistence for wallets and their entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// GetOrCreateForUpdate returns the seller's wallet locked FOR UPDATE,
	// creating it lazily on first use. Must run inside a transaction.
	GetOrCreateForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error)
	GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error)
	// InsertEntry records a wallet mutation. Returns applied=false when an
	// entry with the same (wallet, type, cause key) already exists.
	InsertEntry(ctx context.Context, entry *models.WalletEntry) (applied bool, err error)
	UpdateBalances(ctx context.Context, walletID uuid.UUID, pendingCents, balanceCents int64) error
	ListEntries(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrCreateForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seller_id = ?", sellerID).
		First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.Wallet{SellerID: sellerID}
	if createErr := r.db.WithContext(ctx).Create(&wallet).Error; createErr != nil {
		// Two transactions can race the first credit for a seller; the
		// unique index on seller_id decides the winner, the loser re-locks.
		if db.IsUniqueViolation(createErr, "uq_wallets_seller_id") {
			var existing models.Wallet
			if err := r.db.WithContext(ctx).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("seller_id = ?", sellerID).
				First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, createErr
	}
	return &wallet, nil
}

func (r *repository) GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) InsertEntry(ctx context.Context, entry *models.WalletEntry) (bool, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if db.IsUniqueViolation(err, "uq_wallet_entries_cause") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) UpdateBalances(ctx context.Context, walletID uuid.UUID, pendingCents, balanceCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]any{
			"pending_cents": pendingCents,
			"balance_cents": balanceCents,
		}).Error
}

func (r *repository) ListEntries(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.WalletEntry
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
