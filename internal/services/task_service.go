package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"gobear/internal/models"
	"gobear/internal/storage"
)

// TaskService owns team tasks and the reward ledger. Completing a task is a
// guarded transition: exactly one caller wins and is awarded the points.
type TaskService interface {
	CreateTask(ctx context.Context, callerID, teamID uint, title, description string, points int64, assigneeID *uint) (*models.Task, error)
	AssignTask(ctx context.Context, callerID, taskID, assigneeID uint) (*models.Task, error)
	CompleteTask(ctx context.Context, callerID, taskID uint) (*models.Task, error)
	ListTeamTasks(ctx context.Context, callerID, teamID uint, limit, offset int) ([]models.Task, error)
	ListMyTasks(ctx context.Context, callerID uint, limit, offset int) ([]models.Task, error)
	GetPointsSummary(ctx context.Context, userID uint) (*models.PointsSummary, error)
}

type taskService struct {
	db         *gorm.DB
	taskRepo   storage.TaskRepository
	teamRepo   storage.TeamRepository
	pointsRepo storage.PointsRepository
	userRepo   storage.UserRepository
	dispatcher NotificationDispatcher
}

// NewTaskService creates a new TaskService instance.
func NewTaskService(
	db *gorm.DB,
	taskRepo storage.TaskRepository,
	teamRepo storage.TeamRepository,
	pointsRepo storage.PointsRepository,
	userRepo storage.UserRepository,
	dispatcher NotificationDispatcher,
) TaskService {
	return &taskService{
		db:         db,
		taskRepo:   taskRepo,
		teamRepo:   teamRepo,
		pointsRepo: pointsRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
	}
}

// CreateTask creates an open task in a team the caller belongs to. An
// optional assignee must also be a member.
func (s *taskService) CreateTask(ctx context.Context, callerID, teamID uint, title, description string, points int64, assigneeID *uint) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if points < 0 {
		return nil, fmt.Errorf("%w: points cannot be negative", ErrInvalidInput)
	}

	if err := s.requireMember(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if err := s.requireMember(ctx, teamID, *assigneeID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		TeamID:      teamID,
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatorID:   callerID,
		AssigneeID:  assigneeID,
		Points:      points,
		Status:      models.TaskStatusOpen,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task in team %d: %w", teamID, err)
	}

	if assigneeID != nil && *assigneeID != callerID {
		s.notify(ctx, *assigneeID, models.NotificationTaskAssigned, map[string]interface{}{
			"taskId": task.ID,
			"teamId": teamID,
			"title":  task.Title,
		})
	}
	return task, nil
}

// AssignTask sets or changes the assignee of an open task. Callers and the
// new assignee must be members of the task's team.
func (s *taskService) AssignTask(ctx context.Context, callerID, taskID, assigneeID uint) (*models.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusOpen {
		return nil, ErrTaskAlreadyCompleted
	}
	if err := s.requireMember(ctx, task.TeamID, callerID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, task.TeamID, assigneeID); err != nil {
		return nil, err
	}

	task.AssigneeID = &assigneeID
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to assign task %d: %w", taskID, err)
	}

	if assigneeID != callerID {
		s.notify(ctx, assigneeID, models.NotificationTaskAssigned, map[string]interface{}{
			"taskId": task.ID,
			"teamId": task.TeamID,
			"title":  task.Title,
		})
	}
	return task, nil
}

// CompleteTask transitions an open task to completed and awards its points to
// the caller. Only the assignee or the creator may complete it. Both the
// status transition and the ledger write happen in one transaction; the
// guarded update makes concurrent completions resolve to a single winner.
func (s *taskService) CompleteTask(ctx context.Context, callerID, taskID uint) (*models.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusOpen {
		return nil, ErrTaskAlreadyCompleted
	}
	allowed := task.CreatorID == callerID ||
		(task.AssigneeID != nil && *task.AssigneeID == callerID)
	if !allowed {
		return nil, ErrUnauthorized
	}

	now := time.Now()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txTaskRepo := storage.NewGormTaskRepository(tx)
		txPointsRepo := storage.NewGormPointsRepository(tx)

		rows, err := txTaskRepo.CompleteIfOpen(ctx, taskID, callerID, now)
		if err != nil {
			return fmt.Errorf("failed to complete task %d: %w", taskID, err)
		}
		if rows == 0 {
			// Someone else completed it between our read and the update.
			return ErrTaskAlreadyCompleted
		}

		if task.Points > 0 {
			entry := &models.PointsEntry{
				UserID: callerID,
				TaskID: &taskID,
				Points: task.Points,
				Reason: fmt.Sprintf("Completed: %s", task.Title),
			}
			if err := txPointsRepo.Award(ctx, entry); err != nil {
				return fmt.Errorf("failed to award %d points for task %d: %w", task.Points, taskID, err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	task.Status = models.TaskStatusCompleted
	task.CompletedBy = &callerID
	task.CompletedAt = &now

	if task.CreatorID != callerID {
		s.notify(ctx, task.CreatorID, models.NotificationTaskCompleted, map[string]interface{}{
			"taskId":      task.ID,
			"teamId":      task.TeamID,
			"title":       task.Title,
			"completedBy": callerID,
		})
	}
	log.Printf("Task %d completed by user %d (%d points)", taskID, callerID, task.Points)
	return task, nil
}

// ListTeamTasks lists a team's tasks, newest first. Members only.
func (s *taskService) ListTeamTasks(ctx context.Context, callerID, teamID uint, limit, offset int) ([]models.Task, error) {
	if err := s.requireMember(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListByTeam(ctx, teamID, limit, offset)
}

// ListMyTasks lists the caller's open assigned tasks across all teams.
func (s *taskService) ListMyTasks(ctx context.Context, callerID uint, limit, offset int) ([]models.Task, error) {
	return s.taskRepo.ListByAssignee(ctx, callerID, limit, offset)
}

// GetPointsSummary returns the user's points total and recent ledger entries.
func (s *taskService) GetPointsSummary(ctx context.Context, userID uint) (*models.PointsSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user %d: %w", userID, err)
	}

	recent, err := s.pointsRepo.ListForUser(ctx, userID, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to list points entries for user %d: %w", userID, err)
	}
	count, err := s.pointsRepo.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count points entries for user %d: %w", userID, err)
	}

	return &models.PointsSummary{
		UserID:  userID,
		Total:   user.Points,
		Recent:  recent,
		Entries: count,
	}, nil
}

func (s *taskService) getTask(ctx context.Context, taskID uint) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to retrieve task %d: %w", taskID, err)
	}
	return task, nil
}

func (s *taskService) requireMember(ctx context.Context, teamID, userID uint) error {
	if _, err := s.teamRepo.GetTeamByID(ctx, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to retrieve team %d: %w", teamID, err)
	}
	if _, err := s.teamRepo.GetMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to check membership: %w", err)
	}
	return nil
}

func (s *taskService) notify(ctx context.Context, userID uint, kind models.NotificationKind, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, userID, kind, payload); err != nil {
		log.Printf("Failed to dispatch %s notification to user %d: %v", kind, userID, err)
	}
}
