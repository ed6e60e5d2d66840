package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderUpdate      NotificationType = "order_update"
	NotificationTypeDisputeUpdate    NotificationType = "dispute_update"
	NotificationTypeModerationUpdate NotificationType = "moderation_update"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypeDisputeUpdate,
	NotificationTypeModerationUpdate,
}

// IsValid reports whether the value matches the canonical notification_type enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}
