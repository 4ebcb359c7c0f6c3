// Package payouts records withdrawal intents against seller balances. The
// actual disbursement runs through an external gateway; this package owns the
// accounting around it.
package payouts

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/wallets"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the payout lifecycle: requested, then paid or failed.
type Service interface {
	// Request debits the seller's balance and records the payout intent in
	// one transaction.
	Request(ctx context.Context, input RequestInput) (*models.Payout, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error)
	// MarkPaid finalizes a payout after the gateway confirms disbursement.
	MarkPaid(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	// MarkFailed closes a payout the gateway could not disburse and returns
	// the money to the seller's balance.
	MarkFailed(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
}

// RequestInput describes a seller payout request. A zero AmountCents
// withdraws the seller's entire withdrawable balance.
type RequestInput struct {
	SellerID    uuid.UUID
	AmountCents int64
}

type service struct {
	repo    Repository
	tx      txRunner
	wallets wallets.Service
	outbox  outboxPublisher
	logg    *logger.Logger
}

// NewService builds a payout service with the required dependencies.
func NewService(repo Repository, tx txRunner, walletSvc wallets.Service, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, wallets: walletSvc, outbox: outboxSvc, logg: logg}, nil
}

func withdrawCauseKey(payoutID uuid.UUID) string {
	return fmt.Sprintf("payout:%s", payoutID)
}

func reversalCauseKey(payoutID uuid.UUID) string {
	return fmt.Sprintf("payout:%s:reverse", payoutID)
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Payout, error) {
	if input.SellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}
	if input.AmountCents < 0 {
		return nil, errors.New(errors.CodeValidation, "amount cannot be negative")
	}

	payout := &models.Payout{
		ID:       uuid.New(),
		SellerID: input.SellerID,
		Status:   enums.PayoutStatusRequested,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The debit shares the payout id as cause key, so a retried request
		// creates a fresh payout rather than replaying the old debit. A zero
		// amount resolves to the whole balance under the wallet row lock.
		if input.AmountCents == 0 {
			_, amount, err := s.wallets.WithdrawAllTx(ctx, tx, input.SellerID, withdrawCauseKey(payout.ID))
			if err != nil {
				return err
			}
			payout.AmountCents = amount
		} else {
			if _, err := s.wallets.WithdrawTx(ctx, tx, wallets.WithdrawInput{
				SellerID:    input.SellerID,
				AmountCents: input.AmountCents,
				CauseKey:    withdrawCauseKey(payout.ID),
			}); err != nil {
				return err
			}
			payout.AmountCents = input.AmountCents
		}
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregateWallet,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: input.SellerID, Role: enums.ActorRoleSeller},
			Data: map[string]any{
				"payout_id":    payout.ID.String(),
				"seller_id":    input.SellerID.String(),
				"amount_cents": payout.AmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payout_id":    payout.ID.String(),
		"seller_id":    input.SellerID.String(),
		"amount_cents": payout.AmountCents,
	}), "payout requested")
	return payout, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	if id == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payout id is required")
	}
	payout, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "payout not found")
		}
		return nil, err
	}
	return payout, nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error) {
	if sellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySeller(ctx, sellerID, limit)
}

func (s *service) MarkPaid(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	return s.close(ctx, payoutID, enums.PayoutStatusPaid)
}

func (s *service) MarkFailed(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	return s.close(ctx, payoutID, enums.PayoutStatusFailed)
}

func (s *service) close(ctx context.Context, payoutID uuid.UUID, status enums.PayoutStatus) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payout id is required")
	}

	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(ctx, payoutID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "payout not found")
			}
			return err
		}
		if locked.Status == status {
			payout = locked
			return nil
		}
		if locked.Status != enums.PayoutStatusRequested {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("payout is already %s", locked.Status))
		}

		if err := repo.UpdateStatus(ctx, locked.ID, map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}); err != nil {
			return err
		}
		locked.Status = status

		if status == enums.PayoutStatusFailed {
			if _, err := s.wallets.ReverseWithdrawalTx(ctx, tx, wallets.WithdrawInput{
				SellerID:    locked.SellerID,
				AmountCents: locked.AmountCents,
				CauseKey:    reversalCauseKey(locked.ID),
			}); err != nil {
				return err
			}
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"payout_id":    locked.ID.String(),
				"seller_id":    locked.SellerID.String(),
				"amount_cents": locked.AmountCents,
			}), "payout failed, balance re-credited")
		}

		payout = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}
