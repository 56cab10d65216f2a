package models

// NotificationKind classifies a notification for client rendering.
type NotificationKind string

const (
	NotificationFriendRequest NotificationKind = "friend_request"
	NotificationFriendAccept  NotificationKind = "friend_accept"
	NotificationTeamInvite    NotificationKind = "team_invite"
	NotificationTaskAssigned  NotificationKind = "task_assigned"
	NotificationTaskCompleted NotificationKind = "task_completed"
)

// Notification is a persisted in-app notification for a single user.
// Payload holds a kind-specific JSON document produced by the dispatcher.
type Notification struct {
	BaseModel
	UserID  uint             `gorm:"not null;index" json:"userId"`
	Kind    NotificationKind `gorm:"type:varchar(40);not null" json:"kind"`
	Payload string           `gorm:"type:text" json:"payload,omitempty"`
	Read    bool             `gorm:"not null;default:false" json:"read"`
}

// TableName specifies the table name for the Notification model.
func (Notification) TableName() string {
	return "notifications"
}
