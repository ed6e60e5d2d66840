package enums

import "fmt"

// EscrowHoldStatus tracks the disbursement state of the funds locked against an order.
type EscrowHoldStatus string

const (
	EscrowHoldStatusHeld              EscrowHoldStatus = "held"
	EscrowHoldStatusReleased          EscrowHoldStatus = "released"
	EscrowHoldStatusRefunded          EscrowHoldStatus = "refunded"
	EscrowHoldStatusPartiallyRefunded EscrowHoldStatus = "partially_refunded"
)

var validEscrowHoldStatuses = []EscrowHoldStatus{
	EscrowHoldStatusHeld,
	EscrowHoldStatusReleased,
	EscrowHoldStatusRefunded,
	EscrowHoldStatusPartiallyRefunded,
}

// String implements fmt.Stringer.
func (e EscrowHoldStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EscrowHoldStatus.
func (e EscrowHoldStatus) IsValid() bool {
	for _, candidate := range validEscrowHoldStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsFinal reports whether the hold's funds have already moved.
func (e EscrowHoldStatus) IsFinal() bool {
	return e != EscrowHoldStatusHeld
}

// ParseEscrowHoldStatus converts raw input into an EscrowHoldStatus.
func ParseEscrowHoldStatus(value string) (EscrowHoldStatus, error) {
	for _, candidate := range validEscrowHoldStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow hold status %q", value)
}
