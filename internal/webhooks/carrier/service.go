package carrier

import (
	"context"
	"fmt"
	"time"

	"github.com/soukly/soukly-backend/internal/shipping"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/metrics"
)

// Outcome classifies what a webhook delivery did. Every outcome is
// acknowledged to the carrier; retrying cannot improve any of them.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeMalformed covers undecodable or incomplete payloads.
	OutcomeMalformed Outcome = "malformed"
	// OutcomeUnknownTracking covers events for labels this system never issued.
	OutcomeUnknownTracking Outcome = "unknown_tracking"
	// OutcomeAnomaly covers backward or lateral transitions.
	OutcomeAnomaly Outcome = "anomaly"
)

// Result reports how one delivery was handled.
type Result struct {
	Outcome        Outcome
	TrackingNumber string
}

type idempotencyGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Service processes carrier webhook deliveries.
type Service interface {
	Process(ctx context.Context, carrier enums.Carrier, body []byte) (*Result, error)
}

type service struct {
	shipping  shipping.Service
	guard     idempotencyGuard
	guardTTL  time.Duration
	webhookMx *metrics.WebhookMetrics
	logg      *logger.Logger
}

// NewService builds the webhook processor.
func NewService(shippingSvc shipping.Service, guard idempotencyGuard, guardTTL time.Duration, webhookMx *metrics.WebhookMetrics, logg *logger.Logger) (Service, error) {
	if shippingSvc == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if guardTTL <= 0 {
		guardTTL = 7 * 24 * time.Hour
	}
	return &service{
		shipping:  shippingSvc,
		guard:     guard,
		guardTTL:  guardTTL,
		webhookMx: webhookMx,
		logg:      logg,
	}, nil
}

// Process parses, deduplicates and applies one delivery. It returns an error
// only for infrastructure failures; every carrier-side problem maps to an
// acknowledged outcome so carriers stop redelivering.
func (s *service) Process(ctx context.Context, carrier enums.Carrier, body []byte) (*Result, error) {
	s.webhookMx.IncReceived(carrier.String())

	event, err := Parse(body)
	if err != nil {
		// Malformed payloads are acknowledged and dropped: redelivery would
		// produce the same garbage.
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"carrier": carrier,
			"error":   err.Error(),
		}), "dropping malformed carrier webhook")
		s.webhookMx.IncRejected(carrier.String())
		return &Result{Outcome: OutcomeMalformed}, nil
	}

	ctx = s.logg.WithTrackingNumber(ctx, event.TrackingNumber)

	if !event.StatusKnown {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"carrier":    carrier,
			"raw_status": event.RawStatus,
		}), "unknown carrier status, treating as IN_TRANSIT")
	}

	// Fast-path dedupe on the carrier's event id before touching the
	// database. The storage-level unique index remains the real guarantee.
	var guardKey string
	if event.EventID != "" {
		guardKey = s.guard.IdempotencyKey("carrier-webhook", fmt.Sprintf("%s:%s", carrier, event.EventID))
		fresh, err := s.guard.SetNX(ctx, guardKey, time.Now().UTC().Format(time.RFC3339), s.guardTTL)
		if err != nil {
			// Redis being down must not drop webhooks; fall through to the
			// database constraints.
			s.logg.Warn(ctx, "idempotency guard unavailable, relying on storage dedupe")
			guardKey = ""
		} else if !fresh {
			s.webhookMx.IncDuplicate(carrier.String())
			return &Result{Outcome: OutcomeDuplicate, TrackingNumber: event.TrackingNumber}, nil
		}
	}

	result, err := s.shipping.ApplyEvent(ctx, shipping.ApplyEventInput{
		TrackingNumber: event.TrackingNumber,
		Status:         event.Status,
		RawStatus:      event.RawStatus,
		OccurredAt:     event.OccurredAt,
		Location:       event.Location,
		Source:         enums.TrackingSourceCarrierWebhook,
		CarrierEventID: event.EventID,
	})
	if err != nil {
		switch {
		case errors.HasCode(err, errors.CodeNotFound):
			s.logg.Warn(ctx, "webhook for unknown tracking number, acknowledging")
			s.webhookMx.IncRejected(carrier.String())
			return &Result{Outcome: OutcomeUnknownTracking, TrackingNumber: event.TrackingNumber}, nil
		case errors.HasCode(err, errors.CodeStateConflict):
			s.webhookMx.IncRejected(carrier.String())
			return &Result{Outcome: OutcomeAnomaly, TrackingNumber: event.TrackingNumber}, nil
		default:
			// Infrastructure failure: release the guard so the carrier's
			// redelivery can get through.
			if guardKey != "" {
				if delErr := s.guard.Del(ctx, guardKey); delErr != nil {
					s.logg.Warn(ctx, "failed to release webhook idempotency guard")
				}
			}
			return nil, err
		}
	}

	if !result.Applied {
		s.webhookMx.IncDuplicate(carrier.String())
		return &Result{Outcome: OutcomeDuplicate, TrackingNumber: event.TrackingNumber}, nil
	}
	return &Result{Outcome: OutcomeApplied, TrackingNumber: event.TrackingNumber}, nil
}
