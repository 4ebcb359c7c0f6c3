package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/api/middleware"
	"github.com/soukly/soukly-backend/api/responses"
	"github.com/soukly/soukly-backend/api/validators"
	"github.com/soukly/soukly-backend/internal/shipping"
	"github.com/soukly/soukly-backend/internal/transactions"
	"github.com/soukly/soukly-backend/pkg/enums"
	pkgerrors "github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/types"
)

type generateLabelRequest struct {
	Carrier       string        `json:"carrier" validate:"required,oneof=amana ctm cathedis local"`
	PickupAddress types.Address `json:"pickup_address" validate:"required"`
	WeightGrams   int           `json:"weight_grams" validate:"required,min=1,max=30000"`
}

// ShippingGenerateLabel books a carrier label for a paid transaction.
func ShippingGenerateLabel(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transactionId"), "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req generateLabelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		label, err := svc.GenerateLabel(r.Context(), shipping.GenerateLabelInput{
			TransactionID: id,
			SellerID:      middleware.UserIDFromContext(r.Context()),
			Carrier:       req.Carrier,
			PickupAddress: req.PickupAddress,
			WeightGrams:   req.WeightGrams,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, label)
	}
}

// requireTransactionParty loads the transaction and rejects callers who are
// neither party to it nor an admin. Outsiders get a not-found, not a
// forbidden, so transaction IDs stay unguessable.
func requireTransactionParty(r *http.Request, txnSvc transactions.Service, id uuid.UUID) error {
	txn, err := txnSvc.Get(r.Context(), id)
	if err != nil {
		return err
	}
	userID := middleware.UserIDFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())
	if txn.BuyerID != userID && txn.SellerID != userID && role != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return nil
}

// ShippingLabelDetail returns the label booked for a transaction.
func ShippingLabelDetail(svc shipping.Service, txnSvc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transactionId"), "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireTransactionParty(r, txnSvc, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		label, err := svc.GetLabelForTransaction(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, label)
	}
}

// ShippingTracking returns the tracking history for a transaction.
func ShippingTracking(svc shipping.Service, txnSvc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transactionId"), "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireTransactionParty(r, txnSvc, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.ListEvents(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

// ShippingQuote prices a shipment between two cities, optionally for a
// single carrier.
func ShippingQuote(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		weight, err := validators.ParseQueryInt(r, "weight_grams", 0, 1, 30000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), shipping.QuoteInput{
			OriginCity:      r.URL.Query().Get("origin"),
			DestinationCity: r.URL.Query().Get("destination"),
			WeightGrams:     weight,
			Carrier:         r.URL.Query().Get("carrier"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type manualScanRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,max=64"`
	Status         string `json:"status" validate:"required"`
	OccurredAt     string `json:"occurred_at" validate:"omitempty"`
	Location       string `json:"location" validate:"omitempty,max=128"`
	Notes          string `json:"notes" validate:"omitempty,max=512"`
}

// ShippingManualScan lets support staff record a tracking update the carrier
// never sent, typically for the in-person handoff flow.
func ShippingManualScan(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req manualScanRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseShipmentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		occurredAt := time.Now().UTC()
		if req.OccurredAt != "" {
			occurredAt, err = time.Parse(time.RFC3339, req.OccurredAt)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "occurred_at must be RFC 3339"))
				return
			}
		}

		result, err := svc.ApplyEvent(r.Context(), shipping.ApplyEventInput{
			TrackingNumber: req.TrackingNumber,
			Status:         status,
			RawStatus:      req.Status,
			OccurredAt:     occurredAt,
			Location:       req.Location,
			Notes:          req.Notes,
			Source:         enums.TrackingSourceManualScan,
			ScannedBy:      middleware.UserIDFromContext(r.Context()).String(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
