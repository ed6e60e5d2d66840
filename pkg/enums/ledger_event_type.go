package enums

import "fmt"

// LedgerEventType labels the immutable money-movement rows written by the escrow ledger.
type LedgerEventType string

const (
	LedgerEventEscrowFunded   LedgerEventType = "escrow_funded"
	LedgerEventEscrowReleased LedgerEventType = "escrow_released"
	LedgerEventEscrowRefunded LedgerEventType = "escrow_refunded"
	LedgerEventEscrowSplit    LedgerEventType = "escrow_split"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventEscrowFunded,
	LedgerEventEscrowReleased,
	LedgerEventEscrowRefunded,
	LedgerEventEscrowSplit,
}

// String implements fmt.Stringer.
func (l LedgerEventType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LedgerEventType.
func (l LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
