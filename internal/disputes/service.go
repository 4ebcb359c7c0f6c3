package disputes

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/transactions"
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

// transactionSettler is the slice of the transaction service disputes need.
type transactionSettler interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	SettleTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error)
	RefundTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error)
}

var _ transactionSettler = (transactions.Service)(nil)

// OpenDisputeInput is a buyer's complaint about a delivered item.
type OpenDisputeInput struct {
	TransactionID uuid.UUID
	BuyerID       uuid.UUID
	Reason        string
	Description   string
}

// ResolveDisputeInput is a privileged actor's ruling.
type ResolveDisputeInput struct {
	DisputeID  uuid.UUID
	AdminID    uuid.UUID
	Resolution string
}

// Service manages the dispute lifecycle. An open dispute freezes settlement
// until an admin rules for the buyer or the seller.
type Service interface {
	Open(ctx context.Context, input OpenDisputeInput) (*models.Dispute, error)
	Resolve(ctx context.Context, input ResolveDisputeInput) (*models.Dispute, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit int) ([]models.Dispute, error)
}

type service struct {
	repo         Repository
	tx           txRunner
	transactions transactionSettler
	outbox       outboxPublisher
	logg         *logger.Logger
}

// NewService builds a dispute service with the required dependencies.
func NewService(repo Repository, tx txRunner, settler transactionSettler, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispute repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if settler == nil {
		return nil, fmt.Errorf("transaction service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, transactions: settler, outbox: outboxSvc, logg: logg}, nil
}

func (s *service) Open(ctx context.Context, input OpenDisputeInput) (*models.Dispute, error) {
	if input.TransactionID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "buyer id is required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, errors.New(errors.CodeValidation, "reason is required")
	}

	txn, err := s.transactions.Get(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if txn.BuyerID != input.BuyerID {
		return nil, errors.New(errors.CodeForbidden, "only the buyer can open a dispute")
	}
	if txn.ShipmentStatus == nil || *txn.ShipmentStatus != enums.ShipmentStatusDelivered {
		return nil, errors.New(errors.CodeStateConflict, "disputes can only be opened after delivery")
	}
	if txn.FundsReleased {
		return nil, errors.New(errors.CodeStateConflict, "funds already released, dispute window is closed")
	}
	if txn.Status.IsTerminal() {
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("cannot dispute a %s transaction", txn.Status))
	}

	dispute := &models.Dispute{
		TransactionID: input.TransactionID,
		BuyerID:       input.BuyerID,
		Reason:        strings.TrimSpace(input.Reason),
		Description:   strings.TrimSpace(input.Description),
		Status:        enums.DisputeStatusOpen,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, dispute)
		if err != nil {
			return err
		}
		if !created {
			return errors.New(errors.CodeConflict, "a dispute is already open for this transaction")
		}

		// The guarded update is the authority: the eligibility checks above
		// ran on an unlocked read, and a settle may have committed since.
		marked, err := repo.MarkTransactionDisputed(ctx, input.TransactionID, dispute.ID)
		if err != nil {
			return err
		}
		if !marked {
			return errors.New(errors.CodeConflict, "transaction changed while opening the dispute, retry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: enums.ActorRoleBuyer},
			Data: map[string]any{
				"transaction_id": input.TransactionID.String(),
				"reason":         dispute.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"dispute_id":     dispute.ID.String(),
		"transaction_id": input.TransactionID.String(),
	}), "dispute opened, settlement frozen")

	return dispute, nil
}

func (s *service) Resolve(ctx context.Context, input ResolveDisputeInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "dispute id is required")
	}
	if input.AdminID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "admin id is required")
	}
	resolution, err := enums.ParseDisputeResolution(input.Resolution)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, err.Error())
	}

	var dispute *models.Dispute
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(ctx, input.DisputeID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "dispute not found")
			}
			return err
		}
		if locked.Status == enums.DisputeStatusResolved {
			return errors.New(errors.CodeStateConflict, "dispute is already resolved")
		}

		now := time.Now().UTC()
		// The dispute closes first so the settlement path no longer sees it
		// as open.
		if err := repo.Update(ctx, locked.ID, map[string]any{
			"status":      enums.DisputeStatusResolved,
			"resolution":  resolution,
			"resolved_by": input.AdminID,
			"resolved_at": now,
		}); err != nil {
			return err
		}
		locked.Status = enums.DisputeStatusResolved
		locked.Resolution = &resolution
		locked.ResolvedBy = &input.AdminID
		locked.ResolvedAt = &now

		switch resolution {
		case enums.DisputeResolutionRefundBuyer:
			if _, err := s.transactions.RefundTx(ctx, tx, locked.TransactionID, input.AdminID, "dispute_refund"); err != nil {
				return err
			}
		case enums.DisputeResolutionReleaseSeller:
			if _, err := s.transactions.SettleTx(ctx, tx, locked.TransactionID, input.AdminID, "dispute_release"); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeResolved,
			AggregateType: enums.AggregateDispute,
			AggregateID:   locked.ID,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: enums.ActorRoleAdmin},
			Data: map[string]any{
				"transaction_id": locked.TransactionID.String(),
				"resolution":     resolution,
			},
		}); err != nil {
			return err
		}

		dispute = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"dispute_id": dispute.ID.String(),
		"resolution": resolution,
	}), "dispute resolved")

	return dispute, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	if id == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "dispute id is required")
	}
	dispute, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "dispute not found")
		}
		return nil, err
	}
	return dispute, nil
}

func (s *service) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error) {
	if transactionID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	return s.repo.ListByTransaction(ctx, transactionID)
}

func (s *service) ListOpen(ctx context.Context, limit int) ([]models.Dispute, error) {
	return s.repo.ListOpen(ctx, limit)
}
