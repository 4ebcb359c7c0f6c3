// Package carrier ingests tracking webhooks from shipping carriers and turns
// them into normalized shipment events. Deliveries are at-least-once and
// unordered; everything here is written to tolerate both.
package carrier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soukly/soukly-backend/internal/shipping/carriers"
	"github.com/soukly/soukly-backend/pkg/enums"
)

// Normalized is a carrier webhook reduced to the fields the shipment state
// machine needs.
type Normalized struct {
	TrackingNumber string
	Status         enums.ShipmentStatus
	RawStatus      string
	// StatusKnown is false when the raw status had no mapping and was
	// defaulted to IN_TRANSIT.
	StatusKnown bool
	OccurredAt  time.Time
	Location    string
	EventID     string
}

// rawPayload accepts every field spelling the supported carriers use. Amana
// posts French snake_case, CTM camelCase, Cathedis terse keys.
type rawPayload struct {
	// tracking number spellings
	TrackingNumber string `json:"tracking_number"`
	TrackingCamel  string `json:"trackingNumber"`
	CodeEnvoi      string `json:"code_envoi"`
	ParcelCode     string `json:"parcelCode"`
	Ref            string `json:"ref"`

	// status spellings
	Status string `json:"status"`
	Statut string `json:"statut"`
	State  string `json:"state"`

	// timestamp spellings
	OccurredAt string `json:"occurred_at"`
	Timestamp  string `json:"timestamp"`
	Date       string `json:"date"`
	At         string `json:"at"`

	// location spellings
	Location string `json:"location"`
	Ville    string `json:"ville"`
	City     string `json:"city"`

	// event id spellings
	EventID      string `json:"event_id"`
	EventIDCamel string `json:"eventId"`
	EvenementID  string `json:"evenement_id"`
	ID           string `json:"id"`
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Parse decodes a carrier webhook body. A returned error means the payload is
// malformed and carries no usable event; callers acknowledge and drop it.
func Parse(body []byte) (*Normalized, error) {
	var raw rawPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding webhook payload: %w", err)
	}

	tracking := firstNonEmpty(raw.TrackingNumber, raw.TrackingCamel, raw.CodeEnvoi, raw.ParcelCode, raw.Ref)
	if tracking == "" {
		return nil, fmt.Errorf("webhook payload has no tracking number")
	}

	rawStatus := firstNonEmpty(raw.Status, raw.Statut, raw.State)
	if rawStatus == "" {
		return nil, fmt.Errorf("webhook payload has no status")
	}
	status, known := carriers.NormalizeStatus(rawStatus)

	occurredAt, err := parseTimestamp(firstNonEmpty(raw.OccurredAt, raw.Timestamp, raw.Date, raw.At))
	if err != nil {
		return nil, err
	}

	return &Normalized{
		TrackingNumber: tracking,
		Status:         status,
		RawStatus:      rawStatus,
		StatusKnown:    known,
		OccurredAt:     occurredAt,
		Location:       firstNonEmpty(raw.Location, raw.Ville, raw.City),
		EventID:        firstNonEmpty(raw.EventID, raw.EventIDCamel, raw.EvenementID, raw.ID),
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("webhook payload has no timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable webhook timestamp %q", value)
}
