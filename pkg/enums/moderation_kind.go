package enums

import "fmt"

// ModerationKind distinguishes the item types flowing through the moderation queue.
type ModerationKind string

const (
	ModerationKindListing           ModerationKind = "listing"
	ModerationKindVendorApplication ModerationKind = "vendor_application"
)

var validModerationKinds = []ModerationKind{
	ModerationKindListing,
	ModerationKindVendorApplication,
}

// String implements fmt.Stringer.
func (m ModerationKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ModerationKind.
func (m ModerationKind) IsValid() bool {
	for _, candidate := range validModerationKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseModerationKind converts raw input into a ModerationKind.
func ParseModerationKind(value string) (ModerationKind, error) {
	for _, candidate := range validModerationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid moderation kind %q", value)
}
