package enums

import "fmt"

// WalletType distinguishes the two non-fungible balances a user holds.
// Virtual funds cashback and referral rewards and cannot be withdrawn;
// actual funds refunds and is withdrawable-equivalent.
type WalletType string

const (
	WalletTypeVirtual WalletType = "virtual"
	WalletTypeActual  WalletType = "actual"
)

var validWalletTypes = []WalletType{
	WalletTypeVirtual,
	WalletTypeActual,
}

// String implements fmt.Stringer.
func (w WalletType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletType.
func (w WalletType) IsValid() bool {
	for _, candidate := range validWalletTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletType converts raw input into a WalletType.
func ParseWalletType(value string) (WalletType, error) {
	for _, candidate := range validWalletTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet type %q", value)
}

// WalletTxKind maps to the wallet_tx_kind enum in Postgres.
type WalletTxKind string

const (
	WalletTxKindCashback       WalletTxKind = "cashback"
	WalletTxKindReferralReward WalletTxKind = "referral_reward"
	WalletTxKindRefund         WalletTxKind = "refund"
	WalletTxKindOrderPayment   WalletTxKind = "order_payment"
	WalletTxKindAdjustment     WalletTxKind = "adjustment"
)

var validWalletTxKinds = []WalletTxKind{
	WalletTxKindCashback,
	WalletTxKindReferralReward,
	WalletTxKindRefund,
	WalletTxKindOrderPayment,
	WalletTxKindAdjustment,
}

// String implements fmt.Stringer.
func (k WalletTxKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known WalletTxKind.
func (k WalletTxKind) IsValid() bool {
	for _, candidate := range validWalletTxKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseWalletTxKind converts raw input into a WalletTxKind.
func ParseWalletTxKind(value string) (WalletTxKind, error) {
	for _, candidate := range validWalletTxKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction kind %q", value)
}

// WalletTxDirection marks a ledger entry as a credit or a debit.
type WalletTxDirection string

const (
	WalletTxDirectionCredit WalletTxDirection = "credit"
	WalletTxDirectionDebit  WalletTxDirection = "debit"
)

// String implements fmt.Stringer.
func (d WalletTxDirection) String() string {
	return string(d)
}

// IsValid reports whether the value is a known WalletTxDirection.
func (d WalletTxDirection) IsValid() bool {
	return d == WalletTxDirectionCredit || d == WalletTxDirectionDebit
}
