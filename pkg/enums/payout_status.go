package enums

// PayoutStatus tracks a withdrawal intent. Gateway settlement is external;
// the engine only moves payouts from requested onward.
type PayoutStatus string

const (
	PayoutStatusRequested PayoutStatus = "requested"
	PayoutStatusPaid      PayoutStatus = "paid"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// IsValid reports whether the value is a known PayoutStatus.
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutStatusRequested, PayoutStatusPaid, PayoutStatusFailed:
		return true
	default:
		return false
	}
}
