package carriers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/errors"
)

// amanaAdapter talks to Amana (Poste Maroc) messagerie endpoints.
type amanaAdapter struct {
	http *httpClient
}

func (a *amanaAdapter) Carrier() enums.Carrier {
	return enums.CarrierAmana
}

type amanaLabelRequest struct {
	Reference           string `json:"reference"`
	ExpediteurVille     string `json:"expediteur_ville"`
	ExpediteurAdresse   string `json:"expediteur_adresse"`
	DestinataireVille   string `json:"destinataire_ville"`
	DestinataireAdresse string `json:"destinataire_adresse"`
	ValeurDeclaree      int64  `json:"valeur_declaree"`
	PoidsGrammes        int    `json:"poids_grammes"`
}

type amanaLabelResponse struct {
	CodeEnvoi    string `json:"code_envoi"`
	QRCode       string `json:"qr_code"`
	EtiquetteURL string `json:"etiquette_url"`
}

func (a *amanaAdapter) GenerateLabel(ctx context.Context, req GenerateLabelRequest) (*Label, error) {
	body := amanaLabelRequest{
		Reference:           req.TransactionID,
		ExpediteurVille:     req.PickupAddress.City,
		ExpediteurAdresse:   req.PickupAddress.Oneline(),
		DestinataireVille:   req.DeliveryAddress.City,
		DestinataireAdresse: req.DeliveryAddress.Oneline(),
		ValeurDeclaree:      req.DeclaredValueCents,
		PoidsGrammes:        req.WeightGrams,
	}
	var resp amanaLabelResponse
	if err := a.http.postJSON(ctx, "/envois", body, &resp); err != nil {
		return nil, err
	}
	if resp.CodeEnvoi == "" {
		return nil, errors.New(errors.CodeDependency, "amana returned an empty tracking code")
	}
	return &Label{
		TrackingNumber: resp.CodeEnvoi,
		Carrier:        enums.CarrierAmana,
		QRCode:         resp.QRCode,
		LabelURL:       resp.EtiquetteURL,
	}, nil
}

type amanaTrackingResponse struct {
	Evenements []struct {
		Statut string    `json:"statut"`
		Ville  string    `json:"ville"`
		Date   time.Time `json:"date"`
	} `json:"evenements"`
}

func (a *amanaAdapter) TrackShipment(ctx context.Context, trackingNumber string) ([]TrackingUpdate, error) {
	var resp amanaTrackingResponse
	path := fmt.Sprintf("/envois/%s/suivi", url.PathEscape(trackingNumber))
	if err := a.http.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	updates := make([]TrackingUpdate, 0, len(resp.Evenements))
	for _, ev := range resp.Evenements {
		status, _ := NormalizeStatus(ev.Statut)
		updates = append(updates, TrackingUpdate{
			Status:     status,
			RawStatus:  ev.Statut,
			Location:   ev.Ville,
			OccurredAt: ev.Date,
		})
	}
	return updates, nil
}

type amanaQuoteResponse struct {
	Tarif      int64 `json:"tarif"`
	DelaiJours int   `json:"delai_jours"`
}

func (a *amanaAdapter) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var resp amanaQuoteResponse
	path := fmt.Sprintf("/tarifs?origine=%s&destination=%s&poids=%d",
		url.QueryEscape(req.OriginCity), url.QueryEscape(req.DestinationCity), req.WeightGrams)
	if err := a.http.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &Quote{
		Carrier:       enums.CarrierAmana,
		PriceCents:    resp.Tarif,
		Currency:      "MAD",
		EstimatedDays: resp.DelaiJours,
	}, nil
}
