package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gobear/internal/models"
	"gobear/internal/storage"
)

type taskFixture struct {
	db         *gorm.DB
	service    TaskService
	dispatcher *fakeDispatcher
	owner      *models.User
	member     *models.User
	team       *models.Team
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	teamService := NewTeamService(
		db,
		storage.NewGormTeamRepository(db),
		storage.NewGormTeamInviteRepository(db),
		storage.NewGormUserRepository(db),
		dispatcher,
	)
	service := NewTaskService(
		db,
		storage.NewGormTaskRepository(db),
		storage.NewGormTeamRepository(db),
		storage.NewGormPointsRepository(db),
		storage.NewGormUserRepository(db),
		dispatcher,
	)

	owner := createUser(t, db, "owner")
	member := createUser(t, db, "member")
	ctx := context.Background()

	team, err := teamService.CreateTeam(ctx, owner.ID, "Bears", "", models.TeamVisibilityPublic)
	require.NoError(t, err)
	require.NoError(t, teamService.JoinPublicTeam(ctx, member.ID, team.ID))

	return &taskFixture{
		db:         db,
		service:    service,
		dispatcher: dispatcher,
		owner:      owner,
		member:     member,
		team:       team,
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "  ", "", 5, nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Sweep", "", -1, nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	outsider := createUser(t, f.db, "outsider")
	_, err = f.service.CreateTask(ctx, outsider.ID, f.team.ID, "Sweep", "", 5, nil)
	require.ErrorIs(t, err, ErrNotTeamMember)

	// Assignees must be members too.
	_, err = f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Sweep", "", 5, &outsider.ID)
	require.ErrorIs(t, err, ErrNotTeamMember)
}

func TestCreateTaskNotifiesAssignee(t *testing.T) {
	f := newTaskFixture(t)

	task, err := f.service.CreateTask(context.Background(), f.owner.ID, f.team.ID, "Sweep the den", "", 10, &f.member.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusOpen, task.Status)
	require.Equal(t, []models.NotificationKind{models.NotificationTaskAssigned}, f.dispatcher.kindsFor(f.member.ID))
}

func TestAssignTask(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Sweep", "", 10, nil)
	require.NoError(t, err)

	outsider := createUser(t, f.db, "outsider")
	_, err = f.service.AssignTask(ctx, f.owner.ID, task.ID, outsider.ID)
	require.ErrorIs(t, err, ErrNotTeamMember)

	assigned, err := f.service.AssignTask(ctx, f.owner.ID, task.ID, f.member.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	require.Equal(t, f.member.ID, *assigned.AssigneeID)
	require.Equal(t, []models.NotificationKind{models.NotificationTaskAssigned}, f.dispatcher.kindsFor(f.member.ID))
}

func TestCompleteTaskAwardsPoints(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Sweep", "", 10, &f.member.ID)
	require.NoError(t, err)

	completed, err := f.service.CompleteTask(ctx, f.member.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedBy)
	require.Equal(t, f.member.ID, *completed.CompletedBy)

	// The ledger and the counter both moved, in one transaction.
	summary, err := f.service.GetPointsSummary(ctx, f.member.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, summary.Total)
	require.EqualValues(t, 1, summary.Entries)
	require.Len(t, summary.Recent, 1)
	require.EqualValues(t, 10, summary.Recent[0].Points)

	// The creator hears about it.
	require.Equal(t, []models.NotificationKind{models.NotificationTaskCompleted}, f.dispatcher.kindsFor(f.owner.ID))
}

func TestCompleteTaskExactlyOnce(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Sweep", "", 10, &f.member.ID)
	require.NoError(t, err)

	_, err = f.service.CompleteTask(ctx, f.member.ID, task.ID)
	require.NoError(t, err)

	// A second completion loses, and no points are double-awarded.
	_, err = f.service.CompleteTask(ctx, f.member.ID, task.ID)
	require.ErrorIs(t, err, ErrTaskAlreadyCompleted)
	_, err = f.service.CompleteTask(ctx, f.owner.ID, task.ID)
	require.ErrorIs(t, err, ErrTaskAlreadyCompleted)

	summary, err := f.service.GetPointsSummary(ctx, f.member.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, summary.Total)
	require.EqualValues(t, 1, summary.Entries)
}

func TestCompleteTaskConcurrentLoser(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Sweep", "", 10, &f.member.ID)
	require.NoError(t, err)

	// Flip the row underneath the service, as a racing winner would. The
	// guarded update then reports zero rows and the caller sees the conflict.
	taskRepo := storage.NewGormTaskRepository(f.db)
	got, err := taskRepo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	rows, err := taskRepo.CompleteIfOpen(ctx, got.ID, f.owner.ID, got.CreatedAt)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	_, err = f.service.CompleteTask(ctx, f.member.ID, task.ID)
	require.ErrorIs(t, err, ErrTaskAlreadyCompleted)
}

func TestCompleteTaskPermissions(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Sweep", "", 10, &f.member.ID)
	require.NoError(t, err)

	other := createUser(t, f.db, "other")
	_, err = f.service.CompleteTask(ctx, other.ID, task.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	// The creator may complete a task assigned to someone else.
	_, err = f.service.CompleteTask(ctx, f.owner.ID, task.ID)
	require.NoError(t, err)
}

func TestListTasks(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	open, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Open one", "", 1, &f.member.ID)
	require.NoError(t, err)
	done, err := f.service.CreateTask(ctx, f.owner.ID, f.team.ID, "Done one", "", 1, &f.member.ID)
	require.NoError(t, err)
	_, err = f.service.CompleteTask(ctx, f.member.ID, done.ID)
	require.NoError(t, err)

	// Team listing includes completed tasks; members only.
	all, err := f.service.ListTeamTasks(ctx, f.member.ID, f.team.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	outsider := createUser(t, f.db, "outsider")
	_, err = f.service.ListTeamTasks(ctx, outsider.ID, f.team.ID, 0, 0)
	require.ErrorIs(t, err, ErrNotTeamMember)

	// Personal listing shows only open assigned work.
	mine, err := f.service.ListMyTasks(ctx, f.member.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, open.ID, mine[0].ID)
}
