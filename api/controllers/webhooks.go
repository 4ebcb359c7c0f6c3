package controllers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soukly/soukly-backend/api/responses"
	carrierwebhooks "github.com/soukly/soukly-backend/internal/webhooks/carrier"
	"github.com/soukly/soukly-backend/pkg/enums"
	pkgerrors "github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
)

// maxWebhookBody caps carrier payloads at 256 KiB; real events are well
// under 4 KiB.
const maxWebhookBody = 256 << 10

type webhookAck struct {
	Outcome        string `json:"outcome"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// CarrierWebhook ingests one tracking event pushed by a carrier. Every
// classified payload is acknowledged with 200 so carriers stop redelivering;
// only infrastructure failures return an error status.
func CarrierWebhook(svc carrierwebhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		carrier, err := enums.ParseCarrier(chi.URLParam(r, "carrier"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown carrier"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to read webhook body"))
			return
		}

		result, err := svc.Process(r.Context(), carrier, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, webhookAck{
			Outcome:        string(result.Outcome),
			TrackingNumber: result.TrackingNumber,
		})
	}
}
