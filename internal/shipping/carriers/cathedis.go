package carriers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
)

// cathedisAdapter talks to the Cathedis last-mile delivery API.
type cathedisAdapter struct {
	http *httpClient
}

func (a *cathedisAdapter) Carrier() enums.Carrier {
	return enums.CarrierCathedis
}

type cathedisParcelRequest struct {
	ExternalRef   string `json:"externalRef"`
	FromCity      string `json:"fromCity"`
	FromAddress   string `json:"fromAddress"`
	ToCity        string `json:"toCity"`
	ToAddress     string `json:"toAddress"`
	DeclaredValue int64  `json:"declaredValue"`
	Weight        int    `json:"weight"`
}

type cathedisParcelResponse struct {
	ParcelCode string `json:"parcelCode"`
	QR         string `json:"qr"`
	PDFLink    string `json:"pdfLink"`
}

func (a *cathedisAdapter) GenerateLabel(ctx context.Context, req GenerateLabelRequest) (*Label, error) {
	body := cathedisParcelRequest{
		ExternalRef:   req.TransactionID,
		FromCity:      req.PickupAddress.City,
		FromAddress:   req.PickupAddress.Oneline(),
		ToCity:        req.DeliveryAddress.City,
		ToAddress:     req.DeliveryAddress.Oneline(),
		DeclaredValue: req.DeclaredValueCents,
		Weight:        req.WeightGrams,
	}
	var resp cathedisParcelResponse
	if err := a.http.postJSON(ctx, "/parcels", body, &resp); err != nil {
		return nil, err
	}
	if resp.ParcelCode == "" {
		return nil, errors.New(errors.CodeDependency, "cathedis returned an empty parcel code")
	}
	return &Label{
		TrackingNumber: resp.ParcelCode,
		Carrier:        enums.CarrierCathedis,
		QRCode:         resp.QR,
		LabelURL:       resp.PDFLink,
	}, nil
}

type cathedisTrackingResponse struct {
	Events []struct {
		State    string    `json:"state"`
		Location string    `json:"location"`
		At       time.Time `json:"at"`
	} `json:"events"`
}

func (a *cathedisAdapter) TrackShipment(ctx context.Context, trackingNumber string) ([]TrackingUpdate, error) {
	var resp cathedisTrackingResponse
	path := fmt.Sprintf("/parcels/%s/events", url.PathEscape(trackingNumber))
	if err := a.http.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	updates := make([]TrackingUpdate, 0, len(resp.Events))
	for _, ev := range resp.Events {
		status, _ := NormalizeStatus(ev.State)
		updates = append(updates, TrackingUpdate{
			Status:     status,
			RawStatus:  ev.State,
			Location:   ev.Location,
			OccurredAt: ev.At,
		})
	}
	return updates, nil
}

type cathedisQuoteResponse struct {
	Amount int64 `json:"amount"`
	Days   int   `json:"days"`
}

func (a *cathedisAdapter) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var resp cathedisQuoteResponse
	path := fmt.Sprintf("/pricing?origin=%s&destination=%s&weight=%d",
		url.QueryEscape(req.OriginCity), url.QueryEscape(req.DestinationCity), req.WeightGrams)
	if err := a.http.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &Quote{
		Carrier:       enums.CarrierCathedis,
		PriceCents:    resp.Amount,
		Currency:      "MAD",
		EstimatedDays: resp.Days,
	}, nil
}
