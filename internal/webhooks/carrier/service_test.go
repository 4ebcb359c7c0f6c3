package carrier

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/shipping"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
)

type fakeShipping struct {
	applied []shipping.ApplyEventInput
	result  *shipping.ApplyEventResult
	err     error
}

func (f *fakeShipping) GenerateLabel(ctx context.Context, input shipping.GenerateLabelInput) (*models.ShippingLabel, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeShipping) GetLabelForTransaction(ctx context.Context, transactionID uuid.UUID) (*models.ShippingLabel, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeShipping) ListEvents(ctx context.Context, transactionID uuid.UUID) ([]models.TrackingEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeShipping) ApplyEvent(ctx context.Context, input shipping.ApplyEventInput) (*shipping.ApplyEventResult, error) {
	f.applied = append(f.applied, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &shipping.ApplyEventResult{Applied: true}, nil
}

func (f *fakeShipping) ApplyEventTx(ctx context.Context, tx *gorm.DB, input shipping.ApplyEventInput) (*shipping.ApplyEventResult, error) {
	return f.ApplyEvent(ctx, input)
}

func (f *fakeShipping) Quote(ctx context.Context, input shipping.QuoteInput) (*shipping.QuoteResult, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeGuard struct {
	seen    map[string]bool
	deleted []string
	err     error
}

func (f *fakeGuard) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeGuard) Del(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	for _, key := range keys {
		delete(f.seen, key)
	}
	return nil
}

func (f *fakeGuard) IdempotencyKey(scope, id string) string {
	return "sk:idem:" + scope + ":" + id
}

func newTestService(t *testing.T, ship *fakeShipping, guard *fakeGuard) Service {
	t.Helper()
	svc, err := NewService(ship, guard, time.Hour, nil, logger.New(logger.Options{Level: zerolog.Disabled}))
	require.NoError(t, err)
	return svc
}

func TestProcessAppliesDelivery(t *testing.T) {
	ship := &fakeShipping{}
	guard := &fakeGuard{}
	svc := newTestService(t, ship, guard)

	body := []byte(`{"code_envoi": "AMN-1", "statut": "RAMASSÉ", "date": "2026-08-20T08:00:00Z", "evenement_id": "evt-1"}`)
	result, err := svc.Process(context.Background(), enums.CarrierAmana, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.Equal(t, "AMN-1", result.TrackingNumber)

	require.Len(t, ship.applied, 1)
	input := ship.applied[0]
	assert.Equal(t, enums.ShipmentStatusPickedUp, input.Status)
	assert.Equal(t, enums.TrackingSourceCarrierWebhook, input.Source)
	assert.Equal(t, "evt-1", input.CarrierEventID)
}

func TestProcessMalformedPayloadIsAcknowledged(t *testing.T) {
	ship := &fakeShipping{}
	svc := newTestService(t, ship, &fakeGuard{})

	result, err := svc.Process(context.Background(), enums.CarrierCTM, []byte(`{"status": "DELIVERED"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMalformed, result.Outcome)
	assert.Empty(t, ship.applied)
}

func TestProcessRedeliveryStopsAtGuard(t *testing.T) {
	ship := &fakeShipping{}
	guard := &fakeGuard{}
	svc := newTestService(t, ship, guard)

	body := []byte(`{"trackingNumber": "CTM-9", "status": "in transit", "timestamp": "2026-08-20T08:00:00Z", "eventId": "ctm-1"}`)
	first, err := svc.Process(context.Background(), enums.CarrierCTM, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)

	second, err := svc.Process(context.Background(), enums.CarrierCTM, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Len(t, ship.applied, 1)
}

func TestProcessStorageDuplicateReported(t *testing.T) {
	ship := &fakeShipping{result: &shipping.ApplyEventResult{Applied: false}}
	svc := newTestService(t, ship, &fakeGuard{})

	body := []byte(`{"parcelCode": "CAT-1", "state": "DELIVERED", "at": "2026-08-20"}`)
	result, err := svc.Process(context.Background(), enums.CarrierCathedis, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, result.Outcome)
}

func TestProcessUnknownTrackingIsAcknowledged(t *testing.T) {
	ship := &fakeShipping{err: errors.New(errors.CodeNotFound, "shipping label not found")}
	svc := newTestService(t, ship, &fakeGuard{})

	body := []byte(`{"tracking_number": "NOPE-1", "status": "DELIVERED", "occurred_at": "2026-08-20T08:00:00Z"}`)
	result, err := svc.Process(context.Background(), enums.CarrierAmana, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownTracking, result.Outcome)
}

func TestProcessOutOfOrderEventIsAnomaly(t *testing.T) {
	ship := &fakeShipping{err: errors.New(errors.CodeStateConflict, "shipment cannot move from DELIVERED to IN_TRANSIT")}
	svc := newTestService(t, ship, &fakeGuard{})

	body := []byte(`{"tracking_number": "SKL-3", "status": "IN_TRANSIT", "occurred_at": "2026-08-20T08:00:00Z"}`)
	result, err := svc.Process(context.Background(), enums.CarrierLocal, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnomaly, result.Outcome)
}

func TestProcessInfrastructureFailureReleasesGuard(t *testing.T) {
	ship := &fakeShipping{err: errors.New(errors.CodeInternal, "database unavailable")}
	guard := &fakeGuard{}
	svc := newTestService(t, ship, guard)

	body := []byte(`{"tracking_number": "SKL-4", "status": "DELIVERED", "occurred_at": "2026-08-20T08:00:00Z", "event_id": "evt-4"}`)
	_, err := svc.Process(context.Background(), enums.CarrierAmana, body)
	require.Error(t, err)
	assert.Len(t, guard.deleted, 1)

	// The redelivery can now reach storage again.
	ship.err = nil
	result, err := svc.Process(context.Background(), enums.CarrierAmana, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)
}

func TestProcessGuardOutageFallsThrough(t *testing.T) {
	ship := &fakeShipping{}
	guard := &fakeGuard{err: fmt.Errorf("connection refused")}
	svc := newTestService(t, ship, guard)

	body := []byte(`{"tracking_number": "SKL-5", "status": "PICKED_UP", "occurred_at": "2026-08-20T08:00:00Z", "event_id": "evt-5"}`)
	result, err := svc.Process(context.Background(), enums.CarrierLocal, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.Len(t, ship.applied, 1)
}
