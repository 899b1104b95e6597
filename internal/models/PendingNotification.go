package models

type WakeState int32

const (
	StateIdle WakeState = iota
	StateScanning
	StateNotificationPending
	StateResolved
)

func (s WakeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateNotificationPending:
		return "notification-pending"
	case StateResolved:
		return "resolved"
	}
	return "unknown"
}

// PendingNotification links an issued notification to the items it
// announced. It lives in session state only; losing it is harmless since
// the items stay in their buckets until a response is processed.
type PendingNotification struct {
	NotificationID string   `json:"notificationId"`
	IDs            []string `json:"ids"`
	BucketKeys     []string `json:"bucketKeys"`
	CreatedAt      int64    `json:"createdAt"`
}
