package enums

import "fmt"

// WalletEntryType classifies a wallet mutation. One row exists per
// (wallet, type, cause key), which is what makes replays no-ops.
type WalletEntryType string

const (
	WalletEntryTypeCreditPending  WalletEntryType = "credit_pending"
	WalletEntryTypeReleasePending WalletEntryType = "release_pending"
	WalletEntryTypeReversePending WalletEntryType = "reverse_pending"
	WalletEntryTypeWithdrawal     WalletEntryType = "withdrawal"
	// WalletEntryTypeWithdrawalReversal re-credits a balance when a payout
	// fails downstream.
	WalletEntryTypeWithdrawalReversal WalletEntryType = "withdrawal_reversal"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryTypeCreditPending,
	WalletEntryTypeReleasePending,
	WalletEntryTypeReversePending,
	WalletEntryTypeWithdrawal,
	WalletEntryTypeWithdrawalReversal,
}

// IsValid reports whether the value is a known WalletEntryType.
func (t WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletEntryType converts raw input into a WalletEntryType.
func ParseWalletEntryType(value string) (WalletEntryType, error) {
	for _, candidate := range validWalletEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry type %q", value)
}
