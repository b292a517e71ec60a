package types

// NotificationLevel categorizes a transient user notification
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// IsValid checks if the notification level is valid
func (l NotificationLevel) IsValid() bool {
	switch l {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	default:
		return false
	}
}

func (l NotificationLevel) String() string {
	return string(l)
}
