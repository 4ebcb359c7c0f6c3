package transactions

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the escrow lifecycle of a transaction from payment capture
// to settlement or refund.
type Service interface {
	Create(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error)
	MarkShipped(ctx context.Context, input MarkShippedInput) (*models.Transaction, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Transaction, error)
	// SettleTx releases the seller's escrow inside the caller's transaction.
	// It re-locks and re-checks the row, so callers holding stale reads are
	// safe. Already-settled transactions come back unchanged.
	SettleTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error)
	// RefundTx reverses the seller's pending escrow inside the caller's
	// transaction and marks the transaction REFUNDED.
	RefundTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error)
	// ListSettlementDue surfaces transactions whose buyer-protection window
	// has expired, for the settlement sweep.
	ListSettlementDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	wallets  wallets.Service
	ledger   ledger.Service
	shipping shipping.Service
	outbox   outboxPublisher
	escrow   config.EscrowConfig
	logg     *logger.Logger
}

// NewService builds a transaction service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	walletSvc wallets.Service,
	ledgerSvc ledger.Service,
	shippingSvc shipping.Service,
	outboxSvc outboxPublisher,
	escrow config.EscrowConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if shippingSvc == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		wallets:  walletSvc,
		ledger:   ledgerSvc,
		shipping: shippingSvc,
		outbox:   outboxSvc,
		escrow:   escrow,
		logg:     logg,
	}, nil
}

// feeSplit computes the marketplace fee from basis points, rounding half up,
// and returns (fee, net) with fee+net == amount.
func feeSplit(amountCents int64, rateBps int) (int64, int64) {
	fee := decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(rateBps))).
		DivRound(decimal.NewFromInt(10000), 0).
		IntPart()
	return fee, amountCents - fee
}

func (s *service) Create(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error) {
	if input.BuyerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "buyer id is required")
	}
	if input.ListingID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "listing id is required")
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, err.Error())
	}
	if input.ShippingAddress.IsZero() {
		return nil, errors.New(errors.CodeValidation, "shipping address is required")
	}

	var txn *models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		listing, err := repo.GetListing(ctx, input.ListingID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "listing not found")
			}
			return err
		}
		if listing.SellerID == input.BuyerID {
			return errors.New(errors.CodeValidation, "buyers cannot purchase their own listing")
		}

		// One guarded update decides concurrent checkouts of the same
		// listing; losers see it already reserved.
		reserved, err := repo.ReserveListing(ctx, input.ListingID)
		if err != nil {
			return err
		}
		if !reserved {
			return errors.New(errors.CodeStateConflict, "listing is no longer available")
		}

		fee, net := feeSplit(listing.PriceCents, s.escrow.FeeRateBps)
		address := input.ShippingAddress
		txn = &models.Transaction{
			BuyerID:         input.BuyerID,
			SellerID:        listing.SellerID,
			ListingID:       listing.ID,
			AmountCents:     listing.PriceCents,
			FeeCents:        fee,
			NetAmountCents:  net,
			Status:          enums.TransactionStatusPaid,
			PaymentMethod:   method,
			ShippingAddress: &address,
		}
		if input.ShippingMethod != "" {
			txn.ShippingMethod = &input.ShippingMethod
		}
		if err := repo.Create(ctx, txn); err != nil {
			return err
		}

		if _, err := s.wallets.CreditPending(ctx, tx, wallets.MutationInput{
			SellerID:      listing.SellerID,
			ActorUserID:   input.BuyerID,
			TransactionID: txn.ID,
			AmountCents:   net,
			CauseKey:      creditCauseKey(txn.ID),
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: enums.ActorRoleBuyer},
			Data: map[string]any{
				"listing_id":       listing.ID.String(),
				"seller_id":        listing.SellerID.String(),
				"amount_cents":     listing.PriceCents,
				"fee_cents":        fee,
				"net_amount_cents": net,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithTransactionID(ctx, txn.ID.String()), "transaction created, escrow credited")
	return txn, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	txn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	return txn, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if buyerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "buyer id is required")
	}
	return s.repo.ListByBuyer(ctx, buyerID, limit)
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if sellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySeller(ctx, sellerID, limit)
}

func (s *service) MarkShipped(ctx context.Context, input MarkShippedInput) (*models.Transaction, error) {
	if input.TransactionID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	if input.SellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}

	var txn *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(ctx, input.TransactionID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "transaction not found")
			}
			return err
		}
		if locked.SellerID != input.SellerID {
			return errors.New(errors.CodeForbidden, "only the seller can mark the transaction shipped")
		}
		if locked.Status == enums.TransactionStatusShipped {
			txn = locked
			return nil
		}
		if locked.Status != enums.TransactionStatusPaid {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("cannot ship a %s transaction", locked.Status))
		}
		// A generated label carries its own tracking number. Sellers shipping
		// through their own carrier supply one instead; without either the
		// shipment cannot be tracked.
		hasLabel := locked.TrackingNumber != nil
		fields := map[string]any{
			"status": enums.TransactionStatusShipped,
		}
		if !hasLabel {
			if input.TrackingNumber == "" {
				return errors.New(errors.CodeStateConflict,
					"generate a shipping label or supply a tracking number before marking shipped")
			}
			external := input.TrackingNumber
			locked.TrackingNumber = &external
			fields["tracking_number"] = external
		}

		now := time.Now().UTC()
		fields["shipped_at"] = now
		if err := repo.Update(ctx, locked.ID, fields); err != nil {
			return err
		}
		locked.Status = enums.TransactionStatusShipped
		locked.ShippedAt = &now

		// The handoff is also the first physical tracking event, unless the
		// carrier already reported pickup. External shipments have no label
		// to advance, so their timeline starts with the carrier's webhooks.
		if hasLabel {
			if _, err := s.shipping.ApplyEventTx(ctx, tx, shipping.ApplyEventInput{
				TrackingNumber: *locked.TrackingNumber,
				Status:         enums.ShipmentStatusPickedUp,
				OccurredAt:     now,
				Source:         enums.TrackingSourceSeller,
				ScannedBy:      input.SellerID.String(),
			}); err != nil {
				if errors.HasCode(err, errors.CodeStateConflict) {
					s.logg.Info(s.logg.WithTransactionID(ctx, locked.ID.String()),
						"carrier already reported pickup, keeping its timeline")
				} else {
					return err
				}
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionShipped,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   locked.ID,
			Actor:         &outbox.ActorRef{UserID: input.SellerID, Role: enums.ActorRoleSeller},
			Data: map[string]any{
				"tracking_number": *locked.TrackingNumber,
				"shipped_at":      now,
			},
		}); err != nil {
			return err
		}

		txn = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Transaction, error) {
	if input.TransactionID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "buyer id is required")
	}

	var txn *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(ctx, input.TransactionID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "transaction not found")
			}
			return err
		}
		if locked.BuyerID != input.BuyerID {
			return errors.New(errors.CodeForbidden, "only the buyer can confirm delivery")
		}
		if locked.Status == enums.TransactionStatusCompleted {
			// Double-tap on the confirm button.
			txn = locked
			return nil
		}
		if locked.Status != enums.TransactionStatusDelivered {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("cannot confirm delivery of a %s transaction", locked.Status))
		}

		settled, err := s.settleLocked(ctx, tx, locked, input.BuyerID, "buyer_confirmed")
		if err != nil {
			return err
		}
		txn = settled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) SettleTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	locked, err := repo.GetByIDForUpdate(ctx, transactionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	if locked.FundsReleased {
		return locked, nil
	}
	if locked.Status != enums.TransactionStatusDelivered && locked.Status != enums.TransactionStatusDisputed {
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("cannot settle a %s transaction", locked.Status))
	}
	// The protection-window sweep settles on the buyer's behalf.
	if actorID == uuid.Nil {
		actorID = locked.BuyerID
	}
	return s.settleLocked(ctx, tx, locked, actorID, cause)
}

// settleLocked is the single fund-release path. Callers hold the row lock and
// have verified the transaction is eligible.
func (s *service) settleLocked(ctx context.Context, tx *gorm.DB, locked *models.Transaction, actorID uuid.UUID, cause string) (*models.Transaction, error) {
	repo := s.repo.WithTx(tx)

	open, err := repo.HasOpenDispute(ctx, locked.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, errors.New(errors.CodeStateConflict, "an open dispute blocks settlement")
	}

	// A release without a recorded escrow credit means the books are broken.
	// Fail closed instead of paying out money the ledger never took in.
	credited, err := s.ledger.HasEvent(ctx, locked.ID, enums.LedgerEventTypeEscrowCredit)
	if err != nil {
		return nil, err
	}
	if !credited {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"transaction_id": locked.ID.String(),
			"seller_id":      locked.SellerID.String(),
		}), "ledger has no escrow credit for settling transaction", nil)
		return nil, errors.New(errors.CodeInternal, "ledger is missing the escrow credit for this transaction")
	}

	if _, err := s.wallets.ReleasePending(ctx, tx, wallets.MutationInput{
		SellerID:      locked.SellerID,
		ActorUserID:   actorID,
		TransactionID: locked.ID,
		AmountCents:   locked.NetAmountCents,
		CauseKey:      releaseCauseKey(locked.ID),
	}); err != nil {
		return nil, err
	}

	if err := repo.Update(ctx, locked.ID, map[string]any{
		"status":         enums.TransactionStatusCompleted,
		"funds_released": true,
	}); err != nil {
		return nil, err
	}
	locked.Status = enums.TransactionStatusCompleted
	locked.FundsReleased = true

	if err := repo.SetListingStatus(ctx, locked.ListingID, enums.ListingStatusSold); err != nil {
		return nil, err
	}

	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransactionSettled,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   locked.ID,
		Actor:         &outbox.ActorRef{UserID: actorID},
		Data: map[string]any{
			"seller_id":        locked.SellerID.String(),
			"net_amount_cents": locked.NetAmountCents,
			"cause":            cause,
		},
	}); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id":   locked.ID.String(),
		"seller_id":        locked.SellerID.String(),
		"net_amount_cents": locked.NetAmountCents,
		"cause":            cause,
	}), "escrow released to seller")

	return locked, nil
}

func (s *service) RefundTx(ctx context.Context, tx *gorm.DB, transactionID, actorID uuid.UUID, cause string) (*models.Transaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	locked, err := repo.GetByIDForUpdate(ctx, transactionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	if locked.Status == enums.TransactionStatusRefunded {
		return locked, nil
	}
	if locked.FundsReleased {
		return nil, errors.New(errors.CodeStateConflict, "funds already released, cannot refund")
	}

	if _, err := s.wallets.ReversePending(ctx, tx, wallets.MutationInput{
		SellerID:      locked.SellerID,
		ActorUserID:   actorID,
		TransactionID: locked.ID,
		AmountCents:   locked.NetAmountCents,
		CauseKey:      reverseCauseKey(locked.ID),
	}); err != nil {
		return nil, err
	}

	if err := repo.Update(ctx, locked.ID, map[string]any{
		"status": enums.TransactionStatusRefunded,
	}); err != nil {
		return nil, err
	}
	locked.Status = enums.TransactionStatusRefunded

	// The item goes back on the market.
	if err := repo.SetListingStatus(ctx, locked.ListingID, enums.ListingStatusAvailable); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransactionRefunded,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   locked.ID,
		Actor:         &outbox.ActorRef{UserID: actorID},
		Data: map[string]any{
			"buyer_id":     locked.BuyerID.String(),
			"amount_cents": locked.AmountCents,
			"cause":        cause,
		},
	}); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": locked.ID.String(),
		"buyer_id":       locked.BuyerID.String(),
		"cause":          cause,
	}), "escrow reversed, buyer refunded")

	return locked, nil
}

func (s *service) ListSettlementDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	return s.repo.ListSettlementDue(ctx, cutoff, limit)
}

func creditCauseKey(transactionID uuid.UUID) string {
	return fmt.Sprintf("transaction:%s:credit", transactionID)
}

func releaseCauseKey(transactionID uuid.UUID) string {
	return fmt.Sprintf("transaction:%s:release", transactionID)
}

func reverseCauseKey(transactionID uuid.UUID) string {
	return fmt.Sprintf("transaction:%s:reverse", transactionID)
}
