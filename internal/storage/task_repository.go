package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"gobear/internal/models"
)

// TaskRepository defines the interface for task data operations.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	// CompleteIfOpen performs the guarded completion transition; returns the
	// number of rows affected (0 means the task was no longer open).
	CompleteIfOpen(ctx context.Context, taskID, completedBy uint, completedAt time.Time) (int64, error)
	ListByTeam(ctx context.Context, teamID uint, limit, offset int) ([]models.Task, error)
	ListByAssignee(ctx context.Context, userID uint, limit, offset int) ([]models.Task, error)
}

type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository.
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *gormTaskRepository) CompleteIfOpen(ctx context.Context, taskID, completedBy uint, completedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND status = ?", taskID, models.TaskStatusOpen).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusCompleted,
			"completed_by": completedBy,
			"completed_at": completedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *gormTaskRepository) ListByTeam(ctx context.Context, teamID uint, limit, offset int) ([]models.Task, error) {
	var tasks []models.Task
	dbQuery := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC")

	if limit > 0 {
		dbQuery = dbQuery.Limit(limit)
	}
	if offset > 0 {
		dbQuery = dbQuery.Offset(offset)
	}

	err := dbQuery.Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) ListByAssignee(ctx context.Context, userID uint, limit, offset int) ([]models.Task, error) {
	var tasks []models.Task
	dbQuery := r.db.WithContext(ctx).
		Where("assignee_id = ? AND status = ?", userID, models.TaskStatusOpen).
		Order("created_at DESC")

	if limit > 0 {
		dbQuery = dbQuery.Limit(limit)
	}
	if offset > 0 {
		dbQuery = dbQuery.Offset(offset)
	}

	err := dbQuery.Find(&tasks).Error
	return tasks, err
}
