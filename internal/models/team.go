package models

import "time"

// TeamVisibility controls whether a team can be discovered and joined
// without an invite.
type TeamVisibility string

const (
	TeamVisibilityPrivate TeamVisibility = "private"
	TeamVisibilityPublic  TeamVisibility = "public"
)

// Team represents a productivity team.
// The owner is always a member; destructive operations are gated on ownership.
type Team struct {
	BaseModel
	Name        string         `gorm:"type:varchar(100);not null" json:"name"`
	NameLower   string         `gorm:"type:varchar(100);not null;index" json:"-"` // case-folded for search
	Description string         `gorm:"type:text" json:"description,omitempty"`
	OwnerID     uint           `gorm:"not null" json:"ownerId"`
	Visibility  TeamVisibility `gorm:"type:varchar(20);not null;default:'private'" json:"visibility"`

	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TableName specifies the table name for the Team model.
func (Team) TableName() string {
	return "teams"
}

// IsPublic reports whether the team may be joined without an invite.
func (t *Team) IsPublic() bool {
	return t.Visibility == TeamVisibilityPublic
}

// TeamMember links a user to a team. The (TeamID, UserID) primary key gives
// the membership set its set semantics: re-adding an existing member is a no-op.
type TeamMember struct {
	TeamID   uint      `gorm:"primaryKey;autoIncrement:false" json:"teamId"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for the TeamMember model.
func (TeamMember) TableName() string {
	return "team_members"
}
