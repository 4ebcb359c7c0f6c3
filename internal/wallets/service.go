package wallets

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/ledger"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages seller escrow wallets. All mutations lock the wallet row
// FOR UPDATE and are keyed by a cause so that replays are no-ops.
type Service interface {
	// CreditPending adds escrow money to the seller's pending balance. Joins
	// the caller's transaction.
	CreditPending(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error)
	// ReleasePending moves escrow money from pending to the withdrawable
	// balance. Joins the caller's transaction.
	ReleasePending(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error)
	// ReversePending removes escrow money from pending when a dispute
	// refunds the buyer. Joins the caller's transaction.
	ReversePending(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error)
	// Withdraw debits the withdrawable balance in its own transaction.
	Withdraw(ctx context.Context, input WithdrawInput) (*models.Wallet, error)
	// WithdrawTx debits the withdrawable balance inside the caller's
	// transaction, so the caller can record the payout atomically.
	WithdrawTx(ctx context.Context, tx *gorm.DB, input WithdrawInput) (*models.Wallet, error)
	// WithdrawAllTx debits the entire withdrawable balance inside the
	// caller's transaction and reports how much was debited. Fails with
	// InsufficientFunds when the balance is empty.
	WithdrawAllTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, causeKey string) (*models.Wallet, int64, error)
	// ReverseWithdrawalTx re-credits the balance after a payout fails
	// downstream. Joins the caller's transaction.
	ReverseWithdrawalTx(ctx context.Context, tx *gorm.DB, input WithdrawInput) (*models.Wallet, error)
	GetWallet(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error)
	ListEntries(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

// MutationInput identifies one escrow movement against a seller's wallet.
// CauseKey ties the movement to the event that caused it; a second call with
// the same key finds the existing wallet entry and changes nothing.
type MutationInput struct {
	SellerID      uuid.UUID
	ActorUserID   uuid.UUID
	TransactionID uuid.UUID
	AmountCents   int64
	CauseKey      string
}

// WithdrawInput describes a seller withdrawal request.
type WithdrawInput struct {
	SellerID    uuid.UUID
	AmountCents int64
	CauseKey    string
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger ledger.Service
	logg   *logger.Logger
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledgerSvc ledger.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledgerSvc, logg: logg}, nil
}

func (s *service) CreditPending(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error) {
	return s.mutate(ctx, tx, input, enums.WalletEntryTypeCreditPending, enums.LedgerEventTypeEscrowCredit)
}

func (s *service) ReleasePending(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error) {
	return s.mutate(ctx, tx, input, enums.WalletEntryTypeReleasePending, enums.LedgerEventTypeEscrowRelease)
}

func (s *service) ReversePending(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error) {
	return s.mutate(ctx, tx, input, enums.WalletEntryTypeReversePending, enums.LedgerEventTypeEscrowReversal)
}

func (s *service) mutate(ctx context.Context, tx *gorm.DB, input MutationInput, entryType enums.WalletEntryType, ledgerType enums.LedgerEventType) (*models.Wallet, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateMutation(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.GetOrCreateForUpdate(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}

	entry := &models.WalletEntry{
		WalletID:    wallet.ID,
		Type:        entryType,
		CauseKey:    input.CauseKey,
		AmountCents: input.AmountCents,
	}
	applied, err := repo.InsertEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Replay of an already-applied movement: balances are untouched.
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"seller_id": input.SellerID.String(),
			"cause_key": input.CauseKey,
			"type":      entryType,
		}), "wallet mutation already applied, skipping")
		return wallet, nil
	}

	pending := wallet.PendingCents
	balance := wallet.BalanceCents
	switch entryType {
	case enums.WalletEntryTypeCreditPending:
		pending += input.AmountCents
	case enums.WalletEntryTypeReleasePending:
		if pending < input.AmountCents {
			return nil, s.insufficientPending(ctx, wallet, input)
		}
		pending -= input.AmountCents
		balance += input.AmountCents
	case enums.WalletEntryTypeReversePending:
		if pending < input.AmountCents {
			return nil, s.insufficientPending(ctx, wallet, input)
		}
		pending -= input.AmountCents
	default:
		return nil, fmt.Errorf("unsupported wallet entry type %q", entryType)
	}

	if err := repo.UpdateBalances(ctx, wallet.ID, pending, balance); err != nil {
		return nil, err
	}
	wallet.PendingCents = pending
	wallet.BalanceCents = balance

	txID := input.TransactionID
	metadata, _ := json.Marshal(map[string]string{"cause_key": input.CauseKey})
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		TransactionID: &txID,
		SellerID:      input.SellerID,
		ActorUserID:   input.ActorUserID,
		Type:          ledgerType,
		AmountCents:   input.AmountCents,
		Metadata:      metadata,
	}); err != nil {
		return nil, err
	}

	return wallet, nil
}

// insufficientPending indicates corrupted escrow accounting: pending should
// always cover the movements derived from it. Logged loudly so operators see
// it even if the caller swallows the error.
func (s *service) insufficientPending(ctx context.Context, wallet *models.Wallet, input MutationInput) error {
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{
		"seller_id":      input.SellerID.String(),
		"wallet_id":      wallet.ID.String(),
		"pending_cents":  wallet.PendingCents,
		"amount_cents":   input.AmountCents,
		"cause_key":      input.CauseKey,
		"transaction_id": input.TransactionID.String(),
	}), "wallet pending balance cannot cover movement", nil)
	return errors.New(errors.CodeInsufficientFunds, "pending balance cannot cover movement")
}

func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		wallet, txErr = s.WithdrawTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) WithdrawTx(ctx context.Context, tx *gorm.DB, input WithdrawInput) (*models.Wallet, error) {
	return s.moveBalance(ctx, tx, input, enums.WalletEntryTypeWithdrawal, enums.LedgerEventTypeWithdrawal)
}

func (s *service) WithdrawAllTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, causeKey string) (*models.Wallet, int64, error) {
	if tx == nil {
		return nil, 0, fmt.Errorf("transaction required")
	}
	if sellerID == uuid.Nil {
		return nil, 0, errors.New(errors.CodeValidation, "seller id is required")
	}

	// Locking the row first pins the balance, so the amount resolved here is
	// the amount moveBalance debits.
	locked, err := s.repo.WithTx(tx).GetOrCreateForUpdate(ctx, sellerID)
	if err != nil {
		return nil, 0, err
	}
	if locked.BalanceCents <= 0 {
		return nil, 0, errors.New(errors.CodeInsufficientFunds, "balance is empty")
	}
	amount := locked.BalanceCents

	wallet, err := s.moveBalance(ctx, tx, WithdrawInput{
		SellerID:    sellerID,
		AmountCents: amount,
		CauseKey:    causeKey,
	}, enums.WalletEntryTypeWithdrawal, enums.LedgerEventTypeWithdrawal)
	if err != nil {
		return nil, 0, err
	}
	return wallet, amount, nil
}

func (s *service) ReverseWithdrawalTx(ctx context.Context, tx *gorm.DB, input WithdrawInput) (*models.Wallet, error) {
	return s.moveBalance(ctx, tx, input, enums.WalletEntryTypeWithdrawalReversal, enums.LedgerEventTypeWithdrawalReversal)
}

// moveBalance applies a withdrawal-side movement against the withdrawable
// balance, with the same cause-key replay protection as escrow movements.
func (s *service) moveBalance(ctx context.Context, tx *gorm.DB, input WithdrawInput, entryType enums.WalletEntryType, ledgerType enums.LedgerEventType) (*models.Wallet, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.SellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}
	if input.AmountCents <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}
	if input.CauseKey == "" {
		return nil, errors.New(errors.CodeValidation, "cause key is required")
	}

	repo := s.repo.WithTx(tx)
	locked, err := repo.GetOrCreateForUpdate(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}

	entry := &models.WalletEntry{
		WalletID:    locked.ID,
		Type:        entryType,
		CauseKey:    input.CauseKey,
		AmountCents: input.AmountCents,
	}
	applied, err := repo.InsertEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !applied {
		return locked, nil
	}

	balance := locked.BalanceCents
	switch entryType {
	case enums.WalletEntryTypeWithdrawal:
		if balance < input.AmountCents {
			return nil, errors.New(errors.CodeInsufficientFunds, "balance cannot cover withdrawal")
		}
		balance -= input.AmountCents
	case enums.WalletEntryTypeWithdrawalReversal:
		balance += input.AmountCents
	default:
		return nil, fmt.Errorf("unsupported wallet entry type %q", entryType)
	}
	if err := repo.UpdateBalances(ctx, locked.ID, locked.PendingCents, balance); err != nil {
		return nil, err
	}
	locked.BalanceCents = balance

	metadata, _ := json.Marshal(map[string]string{"cause_key": input.CauseKey})
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		SellerID:    input.SellerID,
		ActorUserID: input.SellerID,
		Type:        ledgerType,
		AmountCents: input.AmountCents,
		Metadata:    metadata,
	}); err != nil {
		return nil, err
	}

	return locked, nil
}

func (s *service) GetWallet(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	if sellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}
	wallet, err := s.repo.GetBySellerID(ctx, sellerID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			// Wallets materialize on first credit; until then the seller
			// has an empty wallet.
			return &models.Wallet{SellerID: sellerID}, nil
		}
		return nil, err
	}
	return wallet, nil
}

func (s *service) ListEntries(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if sellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}
	wallet, err := s.repo.GetBySellerID(ctx, sellerID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return []models.WalletEntry{}, nil
		}
		return nil, err
	}
	return s.repo.ListEntries(ctx, wallet.ID, limit)
}

func validateMutation(input MutationInput) error {
	if input.SellerID == uuid.Nil {
		return errors.New(errors.CodeValidation, "seller id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "actor user id is required")
	}
	if input.TransactionID == uuid.Nil {
		return errors.New(errors.CodeValidation, "transaction id is required")
	}
	if input.AmountCents <= 0 {
		return errors.New(errors.CodeValidation, "amount must be positive")
	}
	if input.CauseKey == "" {
		return errors.New(errors.CodeValidation, "cause key is required")
	}
	return nil
}
