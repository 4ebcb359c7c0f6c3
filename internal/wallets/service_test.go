package wallets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/ledger"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
)

type fakeRepo struct {
	wallet       *models.Wallet
	entries      []models.WalletEntry
	applied      bool
	updatedPend  int64
	updatedBal   int64
	updateCalled bool
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) GetOrCreateForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	if f.wallet == nil {
		f.wallet = &models.Wallet{ID: uuid.New(), SellerID: sellerID}
	}
	return f.wallet, nil
}

func (f *fakeRepo) GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	if f.wallet == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.wallet, nil
}

func (f *fakeRepo) InsertEntry(ctx context.Context, entry *models.WalletEntry) (bool, error) {
	for _, existing := range f.entries {
		if existing.WalletID == entry.WalletID && existing.Type == entry.Type && existing.CauseKey == entry.CauseKey {
			return false, nil
		}
	}
	f.entries = append(f.entries, *entry)
	f.applied = true
	return true, nil
}

func (f *fakeRepo) UpdateBalances(ctx context.Context, walletID uuid.UUID, pendingCents, balanceCents int64) error {
	f.updateCalled = true
	f.updatedPend = pendingCents
	f.updatedBal = balanceCents
	return nil
}

func (f *fakeRepo) ListEntries(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	return f.entries, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeLedger struct {
	events []ledger.RecordLedgerEventInput
}

func (f *fakeLedger) RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error) {
	f.events = append(f.events, input)
	return &models.LedgerEvent{}, nil
}

func (f *fakeLedger) HasEvent(ctx context.Context, transactionID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	return false, nil
}

func (f *fakeLedger) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEvent, error) {
	return nil, nil
}

func (f *fakeLedger) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo Repository, led ledger.Service) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, led, logger.New(logger.Options{Level: zerolog.Disabled}))
	require.NoError(t, err)
	return svc
}

func TestCreditPendingIncrementsPending(t *testing.T) {
	repo := &fakeRepo{}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	input := MutationInput{
		SellerID:      uuid.New(),
		ActorUserID:   uuid.New(),
		TransactionID: uuid.New(),
		AmountCents:   9500,
		CauseKey:      "transaction:" + uuid.NewString(),
	}

	wallet, err := svc.CreditPending(context.Background(), &gorm.DB{}, input)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), wallet.PendingCents)
	assert.Equal(t, int64(0), wallet.BalanceCents)
	require.Len(t, led.events, 1)
	assert.Equal(t, enums.LedgerEventTypeEscrowCredit, led.events[0].Type)
}

func TestCreditPendingReplayIsNoOp(t *testing.T) {
	repo := &fakeRepo{}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	input := MutationInput{
		SellerID:      uuid.New(),
		ActorUserID:   uuid.New(),
		TransactionID: uuid.New(),
		AmountCents:   9500,
		CauseKey:      "transaction:fixed",
	}

	_, err := svc.CreditPending(context.Background(), &gorm.DB{}, input)
	require.NoError(t, err)
	wallet, err := svc.CreditPending(context.Background(), &gorm.DB{}, input)
	require.NoError(t, err)

	assert.Equal(t, int64(9500), wallet.PendingCents)
	assert.Len(t, repo.entries, 1)
	assert.Len(t, led.events, 1, "replay must not write a second ledger event")
}

func TestReleasePendingMovesToBalance(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), PendingCents: 10000}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	input := MutationInput{
		SellerID:      uuid.New(),
		ActorUserID:   uuid.New(),
		TransactionID: uuid.New(),
		AmountCents:   10000,
		CauseKey:      "release:" + uuid.NewString(),
	}

	wallet, err := svc.ReleasePending(context.Background(), &gorm.DB{}, input)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.PendingCents)
	assert.Equal(t, int64(10000), wallet.BalanceCents)
	require.Len(t, led.events, 1)
	assert.Equal(t, enums.LedgerEventTypeEscrowRelease, led.events[0].Type)
}

func TestReleasePendingInsufficient(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), PendingCents: 500}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	input := MutationInput{
		SellerID:      uuid.New(),
		ActorUserID:   uuid.New(),
		TransactionID: uuid.New(),
		AmountCents:   10000,
		CauseKey:      "release:" + uuid.NewString(),
	}

	_, err := svc.ReleasePending(context.Background(), &gorm.DB{}, input)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientFunds))
	assert.False(t, repo.updateCalled, "balances must not change on failure")
	assert.Empty(t, led.events)
}

func TestReversePendingDecrementsPending(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), PendingCents: 10000}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	input := MutationInput{
		SellerID:      uuid.New(),
		ActorUserID:   uuid.New(),
		TransactionID: uuid.New(),
		AmountCents:   10000,
		CauseKey:      "reverse:" + uuid.NewString(),
	}

	wallet, err := svc.ReversePending(context.Background(), &gorm.DB{}, input)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.PendingCents)
	assert.Equal(t, int64(0), wallet.BalanceCents)
	require.Len(t, led.events, 1)
	assert.Equal(t, enums.LedgerEventTypeEscrowReversal, led.events[0].Type)
}

func TestWithdraw(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), BalanceCents: 20000}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	wallet, err := svc.Withdraw(context.Background(), WithdrawInput{
		SellerID:    uuid.New(),
		AmountCents: 15000,
		CauseKey:    "payout:" + uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), wallet.BalanceCents)
	require.Len(t, led.events, 1)
	assert.Equal(t, enums.LedgerEventTypeWithdrawal, led.events[0].Type)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), BalanceCents: 1000}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		SellerID:    uuid.New(),
		AmountCents: 15000,
		CauseKey:    "payout:" + uuid.NewString(),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientFunds))
	assert.Empty(t, led.events)
}

func TestWithdrawAllDebitsEntireBalance(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), PendingCents: 3000, BalanceCents: 20000}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	wallet, amount, err := svc.WithdrawAllTx(context.Background(), &gorm.DB{}, uuid.New(), "payout:"+uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, int64(20000), amount)
	assert.Equal(t, int64(0), wallet.BalanceCents)
	assert.Equal(t, int64(3000), wallet.PendingCents, "pending escrow is untouched")
	require.Len(t, led.events, 1)
	assert.Equal(t, enums.LedgerEventTypeWithdrawal, led.events[0].Type)
}

func TestWithdrawAllEmptyBalance(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), PendingCents: 5000}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	_, _, err := svc.WithdrawAllTx(context.Background(), &gorm.DB{}, uuid.New(), "payout:"+uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientFunds))
	assert.Empty(t, repo.entries)
	assert.Empty(t, led.events)
}

func TestWithdrawReplayIsNoOp(t *testing.T) {
	repo := &fakeRepo{wallet: &models.Wallet{ID: uuid.New(), BalanceCents: 20000}}
	led := &fakeLedger{}
	svc := newTestService(t, repo, led)

	key := "payout:fixed"
	_, err := svc.Withdraw(context.Background(), WithdrawInput{SellerID: uuid.New(), AmountCents: 5000, CauseKey: key})
	require.NoError(t, err)
	wallet, err := svc.Withdraw(context.Background(), WithdrawInput{SellerID: uuid.New(), AmountCents: 5000, CauseKey: key})
	require.NoError(t, err)

	assert.Equal(t, int64(15000), wallet.BalanceCents)
	assert.Len(t, led.events, 1)
}

func TestGetWalletLazyDefault(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeLedger{})

	sellerID := uuid.New()
	wallet, err := svc.GetWallet(context.Background(), sellerID)
	require.NoError(t, err)
	assert.Equal(t, sellerID, wallet.SellerID)
	assert.Equal(t, int64(0), wallet.PendingCents)
	assert.Equal(t, int64(0), wallet.BalanceCents)
}

func TestMutationValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeLedger{})

	cases := []struct {
		name  string
		input MutationInput
	}{
		{"missing seller", MutationInput{ActorUserID: uuid.New(), TransactionID: uuid.New(), AmountCents: 100, CauseKey: "k"}},
		{"missing actor", MutationInput{SellerID: uuid.New(), TransactionID: uuid.New(), AmountCents: 100, CauseKey: "k"}},
		{"missing transaction", MutationInput{SellerID: uuid.New(), ActorUserID: uuid.New(), AmountCents: 100, CauseKey: "k"}},
		{"zero amount", MutationInput{SellerID: uuid.New(), ActorUserID: uuid.New(), TransactionID: uuid.New(), CauseKey: "k"}},
		{"missing cause key", MutationInput{SellerID: uuid.New(), ActorUserID: uuid.New(), TransactionID: uuid.New(), AmountCents: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreditPending(context.Background(), &gorm.DB{}, tc.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeValidation))
		})
	}
}
