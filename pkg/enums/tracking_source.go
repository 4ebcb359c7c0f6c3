package enums

// TrackingSource records where a tracking event came from.
type TrackingSource string

const (
	TrackingSourceCarrierWebhook TrackingSource = "carrier_webhook"
	TrackingSourceManualScan     TrackingSource = "manual_scan"
	TrackingSourceSeller         TrackingSource = "seller"
	TrackingSourceSystem         TrackingSource = "system"
)

// IsValid reports whether the value is a known TrackingSource.
func (s TrackingSource) IsValid() bool {
	switch s {
	case TrackingSourceCarrierWebhook, TrackingSourceManualScan, TrackingSourceSeller, TrackingSourceSystem:
		return true
	default:
		return false
	}
}
