package models

// FriendRequestStatus is the lifecycle state of a friend request.
// A request starts pending and moves to exactly one terminal state;
// no transition ever leaves a terminal state.
type FriendRequestStatus string

const (
	FriendRequestStatusPending   FriendRequestStatus = "pending"
	FriendRequestStatusAccepted  FriendRequestStatus = "accepted"
	FriendRequestStatusDeclined  FriendRequestStatus = "declined"
	FriendRequestStatusCancelled FriendRequestStatus = "cancelled" // sender withdrew the request
)

// FriendRequest represents a directed request from one user to another.
// Requests are never hard-deleted and never reopened; at most one pending
// request may exist between a pair of users in either direction.
type FriendRequest struct {
	BaseModel
	FromUserID uint                `gorm:"not null;index:idx_friend_request_users" json:"fromUserId"`
	ToUserID   uint                `gorm:"not null;index:idx_friend_request_users" json:"toUserId"`
	Status     FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

// TableName specifies the table name for the FriendRequest model.
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// FriendRequestWithSender is a DTO pairing a friend request with basic
// information about the user who sent it. Used when listing incoming requests.
type FriendRequestWithSender struct {
	FriendRequest
	Sender *UserBasicInfo `json:"sender"`
}

// FriendRequestWithRecipient is the outgoing counterpart of
// FriendRequestWithSender.
type FriendRequestWithRecipient struct {
	FriendRequest
	Recipient *UserBasicInfo `json:"recipient"`
}
