package models

import "time"

// Friendship is one directed half of a symmetric friend relation.
// Accepting a request creates both directed rows in a single transaction,
// sharing one Since timestamp; unfriending deletes both rows outright so the
// unique edge index stays free for a later re-friend.
// The invariant is that the row (A, B) exists iff the row (B, A) exists.
//
// Storing the relation as two owned edges keeps "my friends" a single
// indexed lookup under the owner's own ID.
type Friendship struct {
	BaseModel
	UserID   uint      `gorm:"not null;uniqueIndex:idx_friendship_edge" json:"userId"`
	FriendID uint      `gorm:"not null;uniqueIndex:idx_friendship_edge" json:"friendId"`
	Since    time.Time `gorm:"not null" json:"since"`
}

// TableName specifies the table name for the Friendship model.
func (Friendship) TableName() string {
	return "friendships"
}
