package enums

import "fmt"

// DisputeStatus tracks whether a dispute still blocks settlement.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "OPEN"
	DisputeStatusResolved DisputeStatus = "RESOLVED"
)

// IsValid reports whether the value is a known DisputeStatus.
func (s DisputeStatus) IsValid() bool {
	return s == DisputeStatusOpen || s == DisputeStatusResolved
}

// DisputeResolution is the binary outcome a privileged actor picks.
type DisputeResolution string

const (
	DisputeResolutionRefundBuyer   DisputeResolution = "REFUND_BUYER"
	DisputeResolutionReleaseSeller DisputeResolution = "RELEASE_SELLER"
)

// IsValid reports whether the value is a known DisputeResolution.
func (r DisputeResolution) IsValid() bool {
	return r == DisputeResolutionRefundBuyer || r == DisputeResolutionReleaseSeller
}

// ParseDisputeResolution converts raw input into a DisputeResolution.
func ParseDisputeResolution(value string) (DisputeResolution, error) {
	switch DisputeResolution(value) {
	case DisputeResolutionRefundBuyer:
		return DisputeResolutionRefundBuyer, nil
	case DisputeResolutionReleaseSeller:
		return DisputeResolutionReleaseSeller, nil
	default:
		return "", fmt.Errorf("invalid dispute resolution %q", value)
	}
}
