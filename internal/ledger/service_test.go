package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, event *models.LedgerEvent) error
	listFn   func(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEvent, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, event *models.LedgerEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeRepository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEvent, error) {
	if f.listFn != nil {
		return f.listFn(ctx, transactionID)
	}
	return nil, nil
}

func (f *fakeRepository) ListBySellerID(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	return nil, nil
}

func TestService_RecordEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	txID := uuid.New()
	metadata := json.RawMessage(`{"cause":"delivery confirmed"}`)
	input := RecordLedgerEventInput{
		TransactionID: &txID,
		SellerID:      uuid.New(),
		ActorUserID:   uuid.New(),
		Type:          enums.LedgerEventTypeEscrowRelease,
		AmountCents:   42500,
		Metadata:      metadata,
	}

	var created *models.LedgerEvent
	repo.createFn = func(ctx context.Context, event *models.LedgerEvent) error {
		created = event
		return nil
	}

	got, err := svc.RecordEvent(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger event to be created")
	}
	if created.TransactionID == nil || *created.TransactionID != txID {
		t.Fatalf("transaction id not preserved: %+v", created)
	}
	if created.Type != input.Type || created.AmountCents != input.AmountCents {
		t.Fatalf("unexpected ledger event data: %+v", created)
	}
	if created.SellerID != input.SellerID || created.ActorUserID != input.ActorUserID {
		t.Fatalf("missing seller/actor metadata: %+v", created)
	}
	if string(created.Metadata) != string(metadata) {
		t.Fatalf("metadata mismatch: %s", created.Metadata)
	}
	if got != created {
		t.Fatalf("service should return created event")
	}
}

func TestService_RecordEventValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	txID := uuid.New()
	tests := []struct {
		name  string
		input RecordLedgerEventInput
	}{
		{
			name: "missing seller id",
			input: RecordLedgerEventInput{
				TransactionID: &txID,
				ActorUserID:   uuid.New(),
				Type:          enums.LedgerEventTypeEscrowCredit,
				AmountCents:   100,
			},
		},
		{
			name: "missing actor",
			input: RecordLedgerEventInput{
				TransactionID: &txID,
				SellerID:      uuid.New(),
				Type:          enums.LedgerEventTypeEscrowCredit,
				AmountCents:   100,
			},
		},
		{
			name: "invalid type",
			input: RecordLedgerEventInput{
				TransactionID: &txID,
				SellerID:      uuid.New(),
				ActorUserID:   uuid.New(),
				Type:          "bogus",
				AmountCents:   100,
			},
		},
		{
			name: "non-positive amount",
			input: RecordLedgerEventInput{
				TransactionID: &txID,
				SellerID:      uuid.New(),
				ActorUserID:   uuid.New(),
				Type:          enums.LedgerEventTypeEscrowCredit,
				AmountCents:   0,
			},
		},
		{
			name: "escrow event without transaction",
			input: RecordLedgerEventInput{
				SellerID:    uuid.New(),
				ActorUserID: uuid.New(),
				Type:        enums.LedgerEventTypeEscrowReversal,
				AmountCents: 100,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordEvent(context.Background(), nil, tc.input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestService_RecordEventWithdrawalWithoutTransaction(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := RecordLedgerEventInput{
		SellerID:    uuid.New(),
		ActorUserID: uuid.New(),
		Type:        enums.LedgerEventTypeWithdrawal,
		AmountCents: 5000,
	}

	if _, err := svc.RecordEvent(context.Background(), nil, input); err != nil {
		t.Fatalf("withdrawals should not require a transaction id: %v", err)
	}
}

func TestService_HasEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	txID := uuid.New()
	repo.listFn = func(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEvent, error) {
		return []models.LedgerEvent{
			{TransactionID: &transactionID, Type: enums.LedgerEventTypeEscrowCredit},
		}, nil
	}

	found, err := svc.HasEvent(context.Background(), txID, enums.LedgerEventTypeEscrowCredit)
	if err != nil {
		t.Fatalf("HasEvent error: %v", err)
	}
	if !found {
		t.Fatal("expected event to be found")
	}

	found, err = svc.HasEvent(context.Background(), txID, enums.LedgerEventTypeEscrowRelease)
	if err != nil {
		t.Fatalf("HasEvent error: %v", err)
	}
	if found {
		t.Fatal("did not expect release event")
	}
}
