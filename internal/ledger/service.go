package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
)

// Service defines operations that record and read ledger events.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	HasEvent(ctx context.Context, transactionID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEvent, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	TransactionID *uuid.UUID            `json:"transaction_id"`
	SellerID      uuid.UUID             `json:"seller_id"`
	ActorUserID   uuid.UUID             `json:"actor_user_id"`
	Type          enums.LedgerEventType `json:"type"`
	AmountCents   int64                 `json:"amount_cents"`
	Metadata      json.RawMessage       `json:"metadata"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent appends one ledger event. When tx is non-nil the write joins
// the caller's transaction so the audit row commits with the wallet mutation
// it describes.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.SellerID == uuid.Nil {
		return nil, fmt.Errorf("seller id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, fmt.Errorf("actor user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if input.Type != enums.LedgerEventTypeWithdrawal && (input.TransactionID == nil || *input.TransactionID == uuid.Nil) {
		return nil, fmt.Errorf("transaction id is required for %s events", input.Type)
	}

	event := &models.LedgerEvent{
		TransactionID: input.TransactionID,
		SellerID:      input.SellerID,
		ActorUserID:   input.ActorUserID,
		Type:          input.Type,
		AmountCents:   input.AmountCents,
		Metadata:      input.Metadata,
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	if err := repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) HasEvent(ctx context.Context, transactionID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if transactionID == uuid.Nil {
		return false, fmt.Errorf("transaction id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}

	events, err := s.repo.ListByTransactionID(ctx, transactionID)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEvent, error) {
	if transactionID == uuid.Nil {
		return nil, fmt.Errorf("transaction id is required")
	}
	return s.repo.ListByTransactionID(ctx, transactionID)
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	if sellerID == uuid.Nil {
		return nil, fmt.Errorf("seller id is required")
	}
	return s.repo.ListBySellerID(ctx, sellerID, limit)
}
