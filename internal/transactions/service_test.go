package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/ledger"
	"github.com/soukly/soukly-backend/internal/shipping"
	"github.com/soukly/soukly-backend/internal/wallets"
	"github.com/soukly/soukly-backend/pkg/config"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/outbox"
	"github.com/soukly/soukly-backend/pkg/types"
)

type fakeRepo struct {
	listing       *models.Listing
	txn           *models.Transaction
	openDispute   bool
	listingStatus enums.ListingStatus
	due           []models.Transaction
	updates       map[string]any
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, txn *models.Transaction) error {
	txn.ID = uuid.New()
	f.txn = txn
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if f.txn == nil || f.txn.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.txn, nil
}

func (f *fakeRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if f.updates == nil {
		f.updates = map[string]any{}
	}
	for k, v := range fields {
		f.updates[k] = v
	}
	return nil
}

func (f *fakeRepo) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	if f.listing == nil || f.listing.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.listing, nil
}

func (f *fakeRepo) ReserveListing(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.listing == nil || f.listing.Status != enums.ListingStatusAvailable {
		return false, nil
	}
	f.listing.Status = enums.ListingStatusReserved
	return true, nil
}

func (f *fakeRepo) SetListingStatus(ctx context.Context, id uuid.UUID, status enums.ListingStatus) error {
	f.listingStatus = status
	if f.listing != nil {
		f.listing.Status = status
	}
	return nil
}

func (f *fakeRepo) HasOpenDispute(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	return f.openDispute, nil
}

func (f *fakeRepo) ListSettlementDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	return f.due, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeWallets struct {
	credits  []wallets.MutationInput
	releases []wallets.MutationInput
	reverses []wallets.MutationInput
}

func (f *fakeWallets) CreditPending(ctx context.Context, tx *gorm.DB, input wallets.MutationInput) (*models.Wallet, error) {
	f.credits = append(f.credits, input)
	return &models.Wallet{}, nil
}

func (f *fakeWallets) ReleasePending(ctx context.Context, tx *gorm.DB, input wallets.MutationInput) (*models.Wallet, error) {
	f.releases = append(f.releases, input)
	return &models.Wallet{}, nil
}

func (f *fakeWallets) ReversePending(ctx context.Context, tx *gorm.DB, input wallets.MutationInput) (*models.Wallet, error) {
	f.reverses = append(f.reverses, input)
	return &models.Wallet{}, nil
}

func (f *fakeWallets) Withdraw(ctx context.Context, input wallets.WithdrawInput) (*models.Wallet, error) {
	return &models.Wallet{}, nil
}

func (f *fakeWallets) WithdrawTx(ctx context.Context, tx *gorm.DB, input wallets.WithdrawInput) (*models.Wallet, error) {
	return &models.Wallet{}, nil
}

func (f *fakeWallets) ReverseWithdrawalTx(ctx context.Context, tx *gorm.DB, input wallets.WithdrawInput) (*models.Wallet, error) {
	return &models.Wallet{}, nil
}

func (f *fakeWallets) GetWallet(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	return &models.Wallet{SellerID: sellerID}, nil
}

func (f *fakeWallets) WithdrawAllTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, causeKey string) (*models.Wallet, int64, error) {
	return &models.Wallet{SellerID: sellerID}, 0, nil
}

func (f *fakeWallets) ListEntries(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	return nil, nil
}

// fakeLedger reports every transaction as credited unless told otherwise.
type fakeLedger struct {
	notCredited bool
}

func (f *fakeLedger) RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error) {
	return &models.LedgerEvent{}, nil
}

func (f *fakeLedger) HasEvent(ctx context.Context, transactionID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	return !f.notCredited, nil
}

func (f *fakeLedger) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEvent, error) {
	return nil, nil
}

func (f *fakeLedger) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	return nil, nil
}

type fakeShipping struct {
	applied  []shipping.ApplyEventInput
	applyErr error
}

func (f *fakeShipping) GenerateLabel(ctx context.Context, input shipping.GenerateLabelInput) (*models.ShippingLabel, error) {
	return nil, nil
}

func (f *fakeShipping) GetLabelForTransaction(ctx context.Context, transactionID uuid.UUID) (*models.ShippingLabel, error) {
	return nil, nil
}

func (f *fakeShipping) ListEvents(ctx context.Context, transactionID uuid.UUID) ([]models.TrackingEvent, error) {
	return nil, nil
}

func (f *fakeShipping) ApplyEvent(ctx context.Context, input shipping.ApplyEventInput) (*shipping.ApplyEventResult, error) {
	return f.ApplyEventTx(ctx, nil, input)
}

func (f *fakeShipping) ApplyEventTx(ctx context.Context, tx *gorm.DB, input shipping.ApplyEventInput) (*shipping.ApplyEventResult, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, input)
	return &shipping.ApplyEventResult{Applied: true}, nil
}

func (f *fakeShipping) Quote(ctx context.Context, input shipping.QuoteInput) (*shipping.QuoteResult, error) {
	return nil, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return f.Emit(ctx, tx, event)
}

type testDeps struct {
	repo     *fakeRepo
	wallets  *fakeWallets
	ledger   *fakeLedger
	shipping *fakeShipping
	outbox   *fakeOutbox
}

func newTestService(t *testing.T, repo *fakeRepo) (Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:     repo,
		wallets:  &fakeWallets{},
		ledger:   &fakeLedger{},
		shipping: &fakeShipping{},
		outbox:   &fakeOutbox{},
	}
	svc, err := NewService(
		repo,
		fakeTxRunner{},
		deps.wallets,
		deps.ledger,
		deps.shipping,
		deps.outbox,
		config.EscrowConfig{FeeRateBps: 500, ProtectionWindow: 48 * time.Hour},
		logger.New(logger.Options{Level: zerolog.Disabled}),
	)
	require.NoError(t, err)
	return svc, deps
}

func availableListing(priceCents int64) *models.Listing {
	return &models.Listing{
		ID:         uuid.New(),
		SellerID:   uuid.New(),
		Title:      "Vintage teapot",
		PriceCents: priceCents,
		Status:     enums.ListingStatusAvailable,
	}
}

func shippingAddress() types.Address {
	return types.Address{Line1: "5 Av Hassan II", City: "Rabat", Country: "MA"}
}

func TestFeeSplit(t *testing.T) {
	cases := []struct {
		amount int64
		bps    int
		fee    int64
		net    int64
	}{
		{10000, 500, 500, 9500},
		{9999, 500, 500, 9499},
		{1, 500, 0, 1},
		{10, 500, 1, 9},
		{33333, 500, 1667, 31666},
		{10000, 0, 0, 10000},
	}
	for _, tc := range cases {
		fee, net := feeSplit(tc.amount, tc.bps)
		assert.Equal(t, tc.fee, fee, "fee for %d at %dbps", tc.amount, tc.bps)
		assert.Equal(t, tc.net, net, "net for %d at %dbps", tc.amount, tc.bps)
		assert.Equal(t, tc.amount, fee+net, "split must always sum to the amount")
	}
}

func TestCreateTransaction(t *testing.T) {
	listing := availableListing(10000)
	repo := &fakeRepo{listing: listing}
	svc, deps := newTestService(t, repo)

	buyerID := uuid.New()
	txn, err := svc.Create(context.Background(), CreateTransactionInput{
		BuyerID:         buyerID,
		ListingID:       listing.ID,
		PaymentMethod:   "card",
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.TransactionStatusPaid, txn.Status)
	assert.Equal(t, int64(10000), txn.AmountCents)
	assert.Equal(t, int64(500), txn.FeeCents)
	assert.Equal(t, int64(9500), txn.NetAmountCents)
	assert.Equal(t, listing.SellerID, txn.SellerID)
	assert.Equal(t, enums.ListingStatusReserved, listing.Status)

	require.Len(t, deps.wallets.credits, 1)
	assert.Equal(t, int64(9500), deps.wallets.credits[0].AmountCents)
	assert.Equal(t, listing.SellerID, deps.wallets.credits[0].SellerID)

	require.Len(t, deps.outbox.events, 1)
	assert.Equal(t, enums.EventTransactionCreated, deps.outbox.events[0].EventType)
}

func TestCreateTransactionListingUnavailable(t *testing.T) {
	listing := availableListing(10000)
	listing.Status = enums.ListingStatusReserved
	repo := &fakeRepo{listing: listing}
	svc, deps := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateTransactionInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PaymentMethod:   "card",
		ShippingAddress: shippingAddress(),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeStateConflict))
	assert.Empty(t, deps.wallets.credits)
}

func TestCreateTransactionOwnListing(t *testing.T) {
	listing := availableListing(10000)
	repo := &fakeRepo{listing: listing}
	svc, _ := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateTransactionInput{
		BuyerID:         listing.SellerID,
		ListingID:       listing.ID,
		PaymentMethod:   "card",
		ShippingAddress: shippingAddress(),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
}

func paidTxn(repo *fakeRepo) *models.Transaction {
	tracking := "AM1"
	txn := &models.Transaction{
		ID:             uuid.New(),
		BuyerID:        uuid.New(),
		SellerID:       uuid.New(),
		ListingID:      uuid.New(),
		AmountCents:    10000,
		FeeCents:       500,
		NetAmountCents: 9500,
		Status:         enums.TransactionStatusPaid,
		TrackingNumber: &tracking,
	}
	repo.txn = txn
	return txn
}

func TestMarkShipped(t *testing.T) {
	repo := &fakeRepo{}
	txn := paidTxn(repo)
	svc, deps := newTestService(t, repo)

	got, err := svc.MarkShipped(context.Background(), MarkShippedInput{
		TransactionID: txn.ID,
		SellerID:      txn.SellerID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusShipped, got.Status)
	require.NotNil(t, got.ShippedAt)

	require.Len(t, deps.shipping.applied, 1)
	assert.Equal(t, enums.ShipmentStatusPickedUp, deps.shipping.applied[0].Status)
	assert.Equal(t, enums.TrackingSourceSeller, deps.shipping.applied[0].Source)

	require.Len(t, deps.outbox.events, 1)
	assert.Equal(t, enums.EventTransactionShipped, deps.outbox.events[0].EventType)
}

func TestMarkShippedIdempotent(t *testing.T) {
	repo := &fakeRepo{}
	txn := paidTxn(repo)
	txn.Status = enums.TransactionStatusShipped
	svc, deps := newTestService(t, repo)

	got, err := svc.MarkShipped(context.Background(), MarkShippedInput{
		TransactionID: txn.ID,
		SellerID:      txn.SellerID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusShipped, got.Status)
	assert.Empty(t, deps.outbox.events)
	assert.Empty(t, deps.shipping.applied)
}

func TestMarkShippedRequiresLabelOrTrackingNumber(t *testing.T) {
	repo := &fakeRepo{}
	txn := paidTxn(repo)
	txn.TrackingNumber = nil
	svc, _ := newTestService(t, repo)

	_, err := svc.MarkShipped(context.Background(), MarkShippedInput{
		TransactionID: txn.ID,
		SellerID:      txn.SellerID,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeStateConflict))
}

func TestMarkShippedWithExternalTrackingNumber(t *testing.T) {
	repo := &fakeRepo{}
	txn := paidTxn(repo)
	txn.TrackingNumber = nil
	svc, deps := newTestService(t, repo)

	got, err := svc.MarkShipped(context.Background(), MarkShippedInput{
		TransactionID:  txn.ID,
		SellerID:       txn.SellerID,
		TrackingNumber: "EXT-778899",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusShipped, got.Status)
	require.NotNil(t, got.TrackingNumber)
	assert.Equal(t, "EXT-778899", *got.TrackingNumber)
	assert.Equal(t, "EXT-778899", repo.updates["tracking_number"])

	assert.Empty(t, deps.shipping.applied, "external shipments have no label to advance")
	require.Len(t, deps.outbox.events, 1)
	assert.Equal(t, enums.EventTransactionShipped, deps.outbox.events[0].EventType)
}

func TestMarkShippedLabelNumberWinsOverSupplied(t *testing.T) {
	repo := &fakeRepo{}
	txn := paidTxn(repo)
	svc, deps := newTestService(t, repo)

	got, err := svc.MarkShipped(context.Background(), MarkShippedInput{
		TransactionID:  txn.ID,
		SellerID:       txn.SellerID,
		TrackingNumber: "EXT-OTHER",
	})
	require.NoError(t, err)
	require.NotNil(t, got.TrackingNumber)
	assert.NotEqual(t, "EXT-OTHER", *got.TrackingNumber)
	require.Len(t, deps.shipping.applied, 1)
}

func TestMarkShippedForbidden(t *testing.T) {
	repo := &fakeRepo{}
	txn := paidTxn(repo)
	svc, _ := newTestService(t, repo)

	_, err := svc.MarkShipped(context.Background(), MarkShippedInput{
		TransactionID: txn.ID,
		SellerID:      uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
}

func deliveredTxn(repo *fakeRepo) *models.Transaction {
	txn := paidTxn(repo)
	txn.Status = enums.TransactionStatusDelivered
	now := time.Now().UTC().Add(-time.Hour)
	txn.DeliveredAt = &now
	return txn
}

func TestConfirmDeliveryReleasesFunds(t *testing.T) {
	repo := &fakeRepo{}
	txn := deliveredTxn(repo)
	svc, deps := newTestService(t, repo)

	got, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		TransactionID: txn.ID,
		BuyerID:       txn.BuyerID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCompleted, got.Status)
	assert.True(t, got.FundsReleased)
	assert.Equal(t, enums.ListingStatusSold, repo.listingStatus)

	require.Len(t, deps.wallets.releases, 1)
	assert.Equal(t, int64(9500), deps.wallets.releases[0].AmountCents)

	require.Len(t, deps.outbox.events, 1)
	assert.Equal(t, enums.EventTransactionSettled, deps.outbox.events[0].EventType)
}

func TestConfirmDeliveryIdempotent(t *testing.T) {
	repo := &fakeRepo{}
	txn := deliveredTxn(repo)
	txn.Status = enums.TransactionStatusCompleted
	txn.FundsReleased = true
	svc, deps := newTestService(t, repo)

	got, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		TransactionID: txn.ID,
		BuyerID:       txn.BuyerID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCompleted, got.Status)
	assert.Empty(t, deps.wallets.releases, "confirming twice must not release twice")
}

func TestConfirmDeliveryRequiresDelivered(t *testing.T) {
	repo := &fakeRepo{}
	txn := paidTxn(repo)
	txn.Status = enums.TransactionStatusShipped
	svc, _ := newTestService(t, repo)

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		TransactionID: txn.ID,
		BuyerID:       txn.BuyerID,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeStateConflict))
}

func TestConfirmDeliveryBlockedByDispute(t *testing.T) {
	repo := &fakeRepo{openDispute: true}
	txn := deliveredTxn(repo)
	svc, deps := newTestService(t, repo)

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		TransactionID: txn.ID,
		BuyerID:       txn.BuyerID,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeStateConflict))
	assert.Empty(t, deps.wallets.releases)
}

func TestConfirmDeliveryFailsWithoutLedgerCredit(t *testing.T) {
	repo := &fakeRepo{}
	txn := deliveredTxn(repo)
	svc, deps := newTestService(t, repo)
	deps.ledger.notCredited = true

	_, err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryInput{
		TransactionID: txn.ID,
		BuyerID:       txn.BuyerID,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInternal))
	assert.Empty(t, deps.wallets.releases, "no release without a recorded credit")
	assert.Empty(t, deps.outbox.events)
}

func TestSettleTxAlreadyReleasedIsNoOp(t *testing.T) {
	repo := &fakeRepo{}
	txn := deliveredTxn(repo)
	txn.FundsReleased = true
	svc, deps := newTestService(t, repo)

	got, err := svc.SettleTx(context.Background(), &gorm.DB{}, txn.ID, uuid.New(), "protection_window_expired")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	assert.Empty(t, deps.wallets.releases)
}

func TestRefundTxReversesEscrow(t *testing.T) {
	repo := &fakeRepo{}
	txn := deliveredTxn(repo)
	txn.Status = enums.TransactionStatusDisputed
	svc, deps := newTestService(t, repo)

	adminID := uuid.New()
	got, err := svc.RefundTx(context.Background(), &gorm.DB{}, txn.ID, adminID, "dispute_refund")
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusRefunded, got.Status)
	assert.False(t, got.FundsReleased)
	assert.Equal(t, enums.ListingStatusAvailable, repo.listingStatus)

	require.Len(t, deps.wallets.reverses, 1)
	assert.Equal(t, int64(9500), deps.wallets.reverses[0].AmountCents)

	require.Len(t, deps.outbox.events, 1)
	assert.Equal(t, enums.EventTransactionRefunded, deps.outbox.events[0].EventType)
}

func TestRefundTxAfterReleaseFails(t *testing.T) {
	repo := &fakeRepo{}
	txn := deliveredTxn(repo)
	txn.FundsReleased = true
	svc, deps := newTestService(t, repo)

	_, err := svc.RefundTx(context.Background(), &gorm.DB{}, txn.ID, uuid.New(), "dispute_refund")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeStateConflict))
	assert.Empty(t, deps.wallets.reverses)
}
