package carriers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
)

// localAdapter is the in-city courier fallback. It makes no network calls:
// labels are minted locally and tracking advances only through manual scans.
type localAdapter struct{}

const localFlatRateCents = 2500

func (a *localAdapter) Carrier() enums.Carrier {
	return enums.CarrierLocal
}

func (a *localAdapter) GenerateLabel(ctx context.Context, req GenerateLabelRequest) (*Label, error) {
	if req.TransactionID == "" {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	tracking := fmt.Sprintf("SKL-%s", suffix)
	return &Label{
		TrackingNumber: tracking,
		Carrier:        enums.CarrierLocal,
		QRCode:         tracking,
	}, nil
}

// TrackShipment returns no updates: local courier progress is recorded by
// manual scan events, not pulled from an API.
func (a *localAdapter) TrackShipment(ctx context.Context, trackingNumber string) ([]TrackingUpdate, error) {
	return []TrackingUpdate{}, nil
}

func (a *localAdapter) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	estimatedDays := 1
	if !strings.EqualFold(strings.TrimSpace(req.OriginCity), strings.TrimSpace(req.DestinationCity)) {
		estimatedDays = 3
	}
	return &Quote{
		Carrier:       enums.CarrierLocal,
		PriceCents:    localFlatRateCents,
		Currency:      "MAD",
		EstimatedDays: estimatedDays,
	}, nil
}
