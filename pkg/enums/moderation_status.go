package enums

import "fmt"

// ModerationStatus tracks the review workflow shared by listings and vendor applications.
type ModerationStatus string

const (
	ModerationStatusDraft       ModerationStatus = "draft"
	ModerationStatusPending     ModerationStatus = "pending"
	ModerationStatusUnderReview ModerationStatus = "under_review"
	ModerationStatusApproved    ModerationStatus = "approved"
	ModerationStatusRejected    ModerationStatus = "rejected"
)

var validModerationStatuses = []ModerationStatus{
	ModerationStatusDraft,
	ModerationStatusPending,
	ModerationStatusUnderReview,
	ModerationStatusApproved,
	ModerationStatusRejected,
}

// String implements fmt.Stringer.
func (m ModerationStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ModerationStatus.
func (m ModerationStatus) IsValid() bool {
	for _, candidate := range validModerationStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsReviewable reports whether an admin decision may still be applied.
func (m ModerationStatus) IsReviewable() bool {
	switch m {
	case ModerationStatusDraft, ModerationStatusPending, ModerationStatusUnderReview:
		return true
	}
	return false
}

// ParseModerationStatus converts raw input into a ModerationStatus.
func ParseModerationStatus(value string) (ModerationStatus, error) {
	for _, candidate := range validModerationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid moderation status %q", value)
}
