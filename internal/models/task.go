package models

import "time"

// TaskStatus is the lifecycle state of a team task.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a unit of work inside a team. Completing a task awards its point
// value to whoever completed it.
type Task struct {
	BaseModel
	TeamID      uint       `gorm:"not null;index" json:"teamId"`
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	CreatorID   uint       `gorm:"not null" json:"creatorId"`
	AssigneeID  *uint      `gorm:"index" json:"assigneeId,omitempty"`
	Points      int64      `gorm:"not null;default:0" json:"points"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	CompletedBy *uint      `json:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TableName specifies the table name for the Task model.
func (Task) TableName() string {
	return "tasks"
}
