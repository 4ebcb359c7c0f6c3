package enums

import "fmt"

// TransactionStatus tracks the escrow lifecycle of a sale. Values are
// persisted verbatim and consumed by external clients, so they never change.
type TransactionStatus string

const (
	TransactionStatusPaid      TransactionStatus = "PAID"
	TransactionStatusShipped   TransactionStatus = "SHIPPED"
	TransactionStatusDelivered TransactionStatus = "DELIVERED"
	TransactionStatusDisputed  TransactionStatus = "DISPUTED"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPaid,
	TransactionStatusShipped,
	TransactionStatusDelivered,
	TransactionStatusDisputed,
	TransactionStatusCompleted,
	TransactionStatusRefunded,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusRefunded
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
