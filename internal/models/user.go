package models

// User represents an account in the system.
type User struct {
	BaseModel
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Email        string `gorm:"type:varchar(100);not null" json:"email"`
	EmailLower   string `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"` // case-folded, used for lookups and invites
	Nickname     string `gorm:"type:varchar(100)" json:"nickname,omitempty"`
	AvatarURL    string `gorm:"type:varchar(255)" json:"avatarUrl,omitempty"`
	Bio          string `gorm:"type:text" json:"bio,omitempty"`
	Points       int64  `gorm:"not null;default:0" json:"points"` // accumulated reward points
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// UserBasicInfo holds minimal public information about a user.
// Used for friend lists, request listings and search results.
type UserBasicInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// RelationshipStatus describes how a user relates to the caller.
// Exactly one status applies to any candidate at a time.
type RelationshipStatus string

const (
	RelationshipFriend          RelationshipStatus = "friend"
	RelationshipPendingOutgoing RelationshipStatus = "pending_outgoing"
	RelationshipPendingIncoming RelationshipStatus = "pending_incoming"
	RelationshipNone            RelationshipStatus = "none"
)

// UserSearchResult is a search hit annotated with the candidate's
// relationship to the searching user.
type UserSearchResult struct {
	UserBasicInfo
	Relationship RelationshipStatus `json:"relationship"`
}
