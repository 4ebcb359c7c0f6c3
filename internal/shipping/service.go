package shipping

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/shipping/carriers"
	"github.com/soukly/soukly-backend/pkg/db"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/outbox"
	"github.com/soukly/soukly-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AdapterSource hands out carrier adapters.
type AdapterSource interface {
	Adapter(carrier enums.Carrier) carriers.Adapter
	All() []carriers.Adapter
}

// Service manages shipping labels and the tracking state machine.
type Service interface {
	// GenerateLabel creates the shipment for a paid transaction. The carrier
	// call happens outside any database transaction; retries and races
	// resolve to the label that won.
	GenerateLabel(ctx context.Context, input GenerateLabelInput) (*models.ShippingLabel, error)
	GetLabelForTransaction(ctx context.Context, transactionID uuid.UUID) (*models.ShippingLabel, error)
	ListEvents(ctx context.Context, transactionID uuid.UUID) ([]models.TrackingEvent, error)
	// ApplyEvent runs ApplyEventTx in its own transaction.
	ApplyEvent(ctx context.Context, input ApplyEventInput) (*ApplyEventResult, error)
	// ApplyEventTx advances the shipment state machine inside the caller's
	// transaction. Duplicate deliveries are no-ops; backward or lateral
	// transitions are rejected.
	ApplyEventTx(ctx context.Context, tx *gorm.DB, input ApplyEventInput) (*ApplyEventResult, error)
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	adapters AdapterSource
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService builds a shipping service with the required dependencies.
func NewService(repo Repository, tx txRunner, adapters AdapterSource, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if adapters == nil {
		return nil, fmt.Errorf("carrier adapters required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, adapters: adapters, outbox: outboxSvc, logg: logg}, nil
}

func (s *service) GenerateLabel(ctx context.Context, input GenerateLabelInput) (*models.ShippingLabel, error) {
	if input.TransactionID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	if input.SellerID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "seller id is required")
	}

	txn, err := s.repo.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	if txn.SellerID != input.SellerID {
		return nil, errors.New(errors.CodeForbidden, "only the seller can generate a label")
	}

	// A second request for the same transaction returns the existing label.
	if existing, err := s.repo.GetLabelByTransaction(ctx, input.TransactionID); err == nil {
		return existing, nil
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if txn.Status != enums.TransactionStatusPaid {
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("cannot generate a label for a %s transaction", txn.Status))
	}

	deliveryAddress := addressOrZero(txn.ShippingAddress)
	carrier := enums.CarrierOrDefault(input.Carrier)
	adapter := s.adapters.Adapter(carrier)

	// Network call stays outside the transaction below.
	carrierLabel, err := adapter.GenerateLabel(ctx, carriers.GenerateLabelRequest{
		TransactionID:      txn.ID.String(),
		PickupAddress:      input.PickupAddress,
		DeliveryAddress:    deliveryAddress,
		DeclaredValueCents: txn.AmountCents,
		WeightGrams:        input.WeightGrams,
	})
	if err != nil {
		return nil, err
	}

	label := &models.ShippingLabel{
		TransactionID:      txn.ID,
		TrackingNumber:     carrierLabel.TrackingNumber,
		Carrier:            carrierLabel.Carrier,
		Status:             enums.ShipmentStatusPendingPickup,
		PickupAddress:      input.PickupAddress,
		DeliveryAddress:    deliveryAddress,
		DeclaredValueCents: txn.AmountCents,
	}
	if carrierLabel.QRCode != "" {
		label.QRCode = &carrierLabel.QRCode
	}
	if carrierLabel.LabelURL != "" {
		label.LabelURL = &carrierLabel.LabelURL
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateLabel(ctx, label); err != nil {
			return err
		}
		if _, err := repo.InsertTrackingEvent(ctx, &models.TrackingEvent{
			LabelID:    label.ID,
			Status:     enums.ShipmentStatusPendingPickup,
			OccurredAt: time.Now().UTC(),
			Source:     enums.TrackingSourceSystem,
		}); err != nil {
			return err
		}
		status := enums.ShipmentStatusPendingPickup
		return repo.UpdateTransactionShipment(ctx, txn.ID, map[string]any{
			"tracking_number": label.TrackingNumber,
			"shipment_status": status,
		})
	})
	if err != nil {
		// Two concurrent requests can both pass the existence check; the
		// unique index on transaction_id picks the winner.
		if db.IsUniqueViolation(err, "uq_shipping_labels_transaction_id") {
			return s.repo.GetLabelByTransaction(ctx, input.TransactionID)
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id":  txn.ID.String(),
		"tracking_number": label.TrackingNumber,
		"carrier":         label.Carrier,
	}), "shipping label generated")

	return label, nil
}

func (s *service) GetLabelForTransaction(ctx context.Context, transactionID uuid.UUID) (*models.ShippingLabel, error) {
	if transactionID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	label, err := s.repo.GetLabelByTransaction(ctx, transactionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "no label for transaction")
		}
		return nil, err
	}
	return label, nil
}

func (s *service) ListEvents(ctx context.Context, transactionID uuid.UUID) ([]models.TrackingEvent, error) {
	label, err := s.GetLabelForTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTrackingEvents(ctx, label.ID)
}

func (s *service) ApplyEvent(ctx context.Context, input ApplyEventInput) (*ApplyEventResult, error) {
	var result *ApplyEventResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyEventTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ApplyEventTx(ctx context.Context, tx *gorm.DB, input ApplyEventInput) (*ApplyEventResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.TrackingNumber == "" {
		return nil, errors.New(errors.CodeValidation, "tracking number is required")
	}
	if !input.Status.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid shipment status %q", input.Status))
	}
	if input.OccurredAt.IsZero() {
		return nil, errors.New(errors.CodeValidation, "occurred_at is required")
	}
	if !input.Source.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid tracking source %q", input.Source))
	}

	repo := s.repo.WithTx(tx)
	label, err := repo.GetLabelByTrackingForUpdate(ctx, input.TrackingNumber)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "unknown tracking number")
		}
		return nil, err
	}

	ctx = s.logg.WithTrackingNumber(ctx, input.TrackingNumber)

	// Carrier-assigned event ids dedupe redeliveries before any state check.
	if input.CarrierEventID != "" {
		seen, err := repo.HasCarrierEvent(ctx, label.ID, input.CarrierEventID)
		if err != nil {
			return nil, err
		}
		if seen {
			s.logg.Info(ctx, "tracking event already recorded, skipping")
			return &ApplyEventResult{Label: label, Applied: false}, nil
		}
	}

	if !label.Status.CanAdvanceTo(input.Status) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"current": label.Status,
			"next":    input.Status,
			"source":  input.Source,
		}), "rejecting out-of-order tracking event")
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("shipment cannot move from %s to %s", label.Status, input.Status))
	}

	// History timestamps are non-decreasing: a forward status with a
	// timestamp older than the recorded history is a carrier anomaly, and
	// accepting it would backdate delivered_at and reorder the history.
	latest, err := repo.LatestEventTime(ctx, label.ID)
	if err != nil {
		return nil, err
	}
	if latest != nil && input.OccurredAt.UTC().Before(latest.UTC()) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"occurred_at": input.OccurredAt.UTC(),
			"latest":      latest.UTC(),
			"source":      input.Source,
		}), "rejecting tracking event older than history")
		return nil, errors.New(errors.CodeStateConflict,
			"event timestamp precedes the recorded shipment history")
	}

	event := &models.TrackingEvent{
		LabelID:    label.ID,
		Status:     input.Status,
		OccurredAt: input.OccurredAt.UTC(),
		Source:     input.Source,
	}
	if input.Location != "" {
		event.Location = &input.Location
	}
	if input.Notes != "" {
		event.Notes = &input.Notes
	}
	if input.CarrierEventID != "" {
		event.CarrierEventID = &input.CarrierEventID
	}
	if input.ScannedBy != "" {
		event.ScannedBy = &input.ScannedBy
	}

	applied, err := repo.InsertTrackingEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logg.Info(ctx, "duplicate tracking event, skipping")
		return &ApplyEventResult{Label: label, Applied: false}, nil
	}

	if err := repo.UpdateLabelStatus(ctx, label.ID, input.Status); err != nil {
		return nil, err
	}
	label.Status = input.Status

	fields := map[string]any{"shipment_status": input.Status}
	if input.Status == enums.ShipmentStatusDelivered {
		// Delivery marks the transaction DELIVERED but never releases funds;
		// settlement happens on buyer confirmation or the protection sweep.
		fields["delivered_at"] = event.OccurredAt
		txn, err := repo.GetTransaction(ctx, label.TransactionID)
		if err != nil {
			return nil, err
		}
		if txn.Status == enums.TransactionStatusShipped || txn.Status == enums.TransactionStatusPaid {
			fields["status"] = enums.TransactionStatusDelivered
		}
	}
	if err := repo.UpdateTransactionShipment(ctx, label.TransactionID, fields); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventShipmentStatusChanged,
		AggregateType: enums.AggregateShipment,
		AggregateID:   label.ID,
		Data: map[string]any{
			"transaction_id":  label.TransactionID.String(),
			"tracking_number": label.TrackingNumber,
			"status":          input.Status,
			"occurred_at":     event.OccurredAt,
		},
	}); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"status": input.Status,
		"source": input.Source,
	}), "shipment status advanced")

	return &ApplyEventResult{Label: label, Applied: true}, nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	if input.OriginCity == "" || input.DestinationCity == "" {
		return nil, errors.New(errors.CodeValidation, "origin and destination cities are required")
	}

	req := carriers.QuoteRequest{
		OriginCity:      input.OriginCity,
		DestinationCity: input.DestinationCity,
		WeightGrams:     input.WeightGrams,
	}

	if input.Carrier != "" {
		carrier, err := enums.ParseCarrier(input.Carrier)
		if err != nil {
			return nil, errors.New(errors.CodeValidation, err.Error())
		}
		quote, err := s.adapters.Adapter(carrier).GetQuote(ctx, req)
		if err != nil {
			return nil, err
		}
		return &QuoteResult{Quotes: []carriers.Quote{*quote}}, nil
	}

	quotes := make([]carriers.Quote, 0, 4)
	for _, adapter := range s.adapters.All() {
		quote, err := adapter.GetQuote(ctx, req)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"carrier": adapter.Carrier(),
			}), "carrier quote failed, skipping")
			continue
		}
		quotes = append(quotes, *quote)
	}
	if len(quotes) == 0 {
		return nil, errors.New(errors.CodeDependency, "no carrier could quote the shipment")
	}
	return &QuoteResult{Quotes: quotes}, nil
}

func addressOrZero(address *types.Address) types.Address {
	if address == nil {
		return types.Address{}
	}
	return *address
}
