package carriers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
)

// ctmAdapter talks to CTM Messagerie's shipment API.
type ctmAdapter struct {
	http *httpClient
}

func (a *ctmAdapter) Carrier() enums.Carrier {
	return enums.CarrierCTM
}

type ctmLabelRequest struct {
	OrderRef       string `json:"orderRef"`
	PickupCity     string `json:"pickupCity"`
	PickupAddress  string `json:"pickupAddress"`
	DropoffCity    string `json:"dropoffCity"`
	DropoffAddress string `json:"dropoffAddress"`
	DeclaredValue  int64  `json:"declaredValue"`
	WeightGrams    int    `json:"weightGrams"`
	GenerateQR     bool   `json:"generateQr"`
}

type ctmLabelResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	QRCode         string `json:"qrCode"`
	LabelURL       string `json:"labelUrl"`
}

func (a *ctmAdapter) GenerateLabel(ctx context.Context, req GenerateLabelRequest) (*Label, error) {
	body := ctmLabelRequest{
		OrderRef:       req.TransactionID,
		PickupCity:     req.PickupAddress.City,
		PickupAddress:  req.PickupAddress.Oneline(),
		DropoffCity:    req.DeliveryAddress.City,
		DropoffAddress: req.DeliveryAddress.Oneline(),
		DeclaredValue:  req.DeclaredValueCents,
		WeightGrams:    req.WeightGrams,
		GenerateQR:     true,
	}
	var resp ctmLabelResponse
	if err := a.http.postJSON(ctx, "/shipments", body, &resp); err != nil {
		return nil, err
	}
	if resp.TrackingNumber == "" {
		return nil, errors.New(errors.CodeDependency, "ctm returned an empty tracking number")
	}
	return &Label{
		TrackingNumber: resp.TrackingNumber,
		Carrier:        enums.CarrierCTM,
		QRCode:         resp.QRCode,
		LabelURL:       resp.LabelURL,
	}, nil
}

type ctmTrackingResponse struct {
	History []struct {
		Status    string    `json:"status"`
		City      string    `json:"city"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"history"`
}

func (a *ctmAdapter) TrackShipment(ctx context.Context, trackingNumber string) ([]TrackingUpdate, error) {
	var resp ctmTrackingResponse
	path := fmt.Sprintf("/shipments/%s/tracking", url.PathEscape(trackingNumber))
	if err := a.http.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	updates := make([]TrackingUpdate, 0, len(resp.History))
	for _, ev := range resp.History {
		status, _ := NormalizeStatus(ev.Status)
		updates = append(updates, TrackingUpdate{
			Status:     status,
			RawStatus:  ev.Status,
			Location:   ev.City,
			OccurredAt: ev.Timestamp,
		})
	}
	return updates, nil
}

type ctmQuoteResponse struct {
	PriceCents    int64 `json:"priceCents"`
	EstimatedDays int   `json:"estimatedDays"`
}

func (a *ctmAdapter) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var resp ctmQuoteResponse
	path := fmt.Sprintf("/quotes?from=%s&to=%s&weight=%d",
		url.QueryEscape(req.OriginCity), url.QueryEscape(req.DestinationCity), req.WeightGrams)
	if err := a.http.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &Quote{
		Carrier:       enums.CarrierCTM,
		PriceCents:    resp.PriceCents,
		Currency:      "MAD",
		EstimatedDays: resp.EstimatedDays,
	}, nil
}
