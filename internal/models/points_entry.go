package models

// PointsEntry is one row of the reward ledger. The user's Points counter is
// always the sum of their entries; both are written in the same transaction.
type PointsEntry struct {
	BaseModel
	UserID uint   `gorm:"not null;index" json:"userId"`
	TaskID *uint  `json:"taskId,omitempty"`
	Points int64  `gorm:"not null" json:"points"`
	Reason string `gorm:"type:varchar(200)" json:"reason,omitempty"`
}

// TableName specifies the table name for the PointsEntry model.
func (PointsEntry) TableName() string {
	return "points_entries"
}

// PointsSummary aggregates a user's reward standing for API responses.
type PointsSummary struct {
	Total   int64         `json:"total"`
	Recent  []PointsEntry `json:"recent"`
	UserID  uint          `json:"userId"`
	Entries int64         `json:"entries"`
}
