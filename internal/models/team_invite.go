package models

// TeamInvite records an outstanding invitation of an email address into a team.
// Keyed by (TeamID, InviteeEmail): re-inviting the same address overwrites the
// prior invite rather than accumulating duplicates.
type TeamInvite struct {
	BaseModel
	TeamID       uint   `gorm:"not null;uniqueIndex:idx_team_invite_key" json:"teamId"`
	InviteeEmail string `gorm:"type:varchar(100);not null;uniqueIndex:idx_team_invite_key" json:"inviteeEmail"` // stored case-folded
	FromUserID   uint   `gorm:"not null" json:"fromUserId"`
}

// TableName specifies the table name for the TeamInvite model.
func (TeamInvite) TableName() string {
	return "team_invites"
}
