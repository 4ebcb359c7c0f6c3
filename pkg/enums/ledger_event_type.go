package enums

import "fmt"

// LedgerEventType maps to the ledger_event_type enum in Postgres. Ledger
// events are the immutable audit trail of every money movement.
type LedgerEventType string

const (
	LedgerEventTypeEscrowCredit       LedgerEventType = "escrow_credit"
	LedgerEventTypeEscrowRelease      LedgerEventType = "escrow_release"
	LedgerEventTypeEscrowReversal     LedgerEventType = "escrow_reversal"
	LedgerEventTypeWithdrawal         LedgerEventType = "withdrawal"
	LedgerEventTypeWithdrawalReversal LedgerEventType = "withdrawal_reversal"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeEscrowCredit,
	LedgerEventTypeEscrowRelease,
	LedgerEventTypeEscrowReversal,
	LedgerEventTypeWithdrawal,
	LedgerEventTypeWithdrawalReversal,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
