package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gobear/internal/models"
	"gobear/internal/storage"
)

type teamFixture struct {
	db         *gorm.DB
	service    TeamService
	dispatcher *fakeDispatcher
	owner      *models.User
	member     *models.User
}

func newTeamFixture(t *testing.T) *teamFixture {
	t.Helper()

	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	service := NewTeamService(
		db,
		storage.NewGormTeamRepository(db),
		storage.NewGormTeamInviteRepository(db),
		storage.NewGormUserRepository(db),
		dispatcher,
	)
	return &teamFixture{
		db:         db,
		service:    service,
		dispatcher: dispatcher,
		owner:      createUser(t, db, "owner"),
		member:     createUser(t, db, "member"),
	}
}

func (f *teamFixture) createTeam(t *testing.T, name string, visibility models.TeamVisibility) *models.Team {
	t.Helper()
	team, err := f.service.CreateTeam(context.Background(), f.owner.ID, name, "", visibility)
	require.NoError(t, err)
	return team
}

func TestCreateTeamNormalizesName(t *testing.T) {
	f := newTeamFixture(t)

	team := f.createTeam(t, "  Code Commanders  ", models.TeamVisibilityPublic)
	require.Equal(t, "Code Commanders", team.Name)
	require.Equal(t, "code commanders", team.NameLower)
	require.Equal(t, f.owner.ID, team.OwnerID)

	// The owner is a member from the start.
	members, err := f.service.ListMembers(context.Background(), f.owner.ID, team.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, f.owner.ID, members[0].UserID)
}

func TestCreateTeamValidation(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateTeam(ctx, f.owner.ID, "   ", "", models.TeamVisibilityPrivate)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.CreateTeam(ctx, f.owner.ID, "Bears", "", "secret")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoinPublicTeamIdempotent(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()
	team := f.createTeam(t, "Bears", models.TeamVisibilityPublic)

	require.NoError(t, f.service.JoinPublicTeam(ctx, f.member.ID, team.ID))
	// Joining again is a no-op, not an error.
	require.NoError(t, f.service.JoinPublicTeam(ctx, f.member.ID, team.ID))

	members, err := f.service.ListMembers(ctx, f.owner.ID, team.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestJoinPrivateTeamRefused(t *testing.T) {
	f := newTeamFixture(t)
	team := f.createTeam(t, "Bears", models.TeamVisibilityPrivate)

	err := f.service.JoinPublicTeam(context.Background(), f.member.ID, team.ID)
	require.ErrorIs(t, err, ErrTeamNotPublic)
}

func TestGetTeamVisibility(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()
	team := f.createTeam(t, "Bears", models.TeamVisibilityPrivate)

	// Members see the team, outsiders do not.
	_, err := f.service.GetTeam(ctx, f.owner.ID, team.ID)
	require.NoError(t, err)
	_, err = f.service.GetTeam(ctx, f.member.ID, team.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.service.GetTeam(ctx, f.owner.ID, 9999)
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestInviteMember(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()
	team := f.createTeam(t, "Bears", models.TeamVisibilityPrivate)

	// Non-members cannot invite.
	_, err := f.service.InviteMember(ctx, f.member.ID, team.ID, "someone@example.com")
	require.ErrorIs(t, err, ErrNotTeamMember)

	// Inviting an existing user notifies them in-app.
	result, err := f.service.InviteMember(ctx, f.owner.ID, team.ID, "Member@Example.com")
	require.NoError(t, err)
	require.True(t, result.ExistingUser)
	require.Empty(t, result.InviteLink)
	require.Equal(t, "member@example.com", result.Invite.InviteeEmail)
	require.Equal(t, []models.NotificationKind{models.NotificationTeamInvite}, f.dispatcher.kindsFor(f.member.ID))

	// Inviting an unknown address yields a join link instead.
	result, err = f.service.InviteMember(ctx, f.owner.ID, team.ID, "new@example.com")
	require.NoError(t, err)
	require.False(t, result.ExistingUser)
	require.NotEmpty(t, result.InviteLink)

	// Re-inviting the same address overwrites, it does not stack.
	_, err = f.service.InviteMember(ctx, f.owner.ID, team.ID, "new@example.com")
	require.NoError(t, err)
	count, err := storage.NewGormTeamInviteRepository(f.db).CountByTeam(ctx, team.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestInviteMemberBadEmail(t *testing.T) {
	f := newTeamFixture(t)
	team := f.createTeam(t, "Bears", models.TeamVisibilityPrivate)

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, err := f.service.InviteMember(context.Background(), f.owner.ID, team.ID, email)
		require.ErrorIs(t, err, ErrInvalidInput, "email %q", email)
	}
}

func TestAcceptInviteLinkJoinsWithoutInviteRecord(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()
	team := f.createTeam(t, "Bears", models.TeamVisibilityPrivate)

	// Holding the link is enough; no invite row is required.
	require.NoError(t, f.service.AcceptInviteLink(ctx, f.member.ID, team.ID))
	require.NoError(t, f.service.AcceptInviteLink(ctx, f.member.ID, team.ID))

	members, err := f.service.ListMembers(ctx, f.owner.ID, team.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, members, 2)

	require.ErrorIs(t, f.service.AcceptInviteLink(ctx, f.member.ID, 9999), ErrTeamNotFound)
}

func TestOwnerCannotBeRemoved(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()
	team := f.createTeam(t, "Bears", models.TeamVisibilityPublic)
	require.NoError(t, f.service.JoinPublicTeam(ctx, f.member.ID, team.ID))

	// Not by leaving, not by removal, not even by the owner themselves.
	require.ErrorIs(t, f.service.LeaveTeam(ctx, f.owner.ID, team.ID), ErrCannotRemoveOwner)
	require.ErrorIs(t, f.service.RemoveMember(ctx, f.owner.ID, team.ID, f.owner.ID), ErrCannotRemoveOwner)

	// Members can leave, and owners can remove members.
	require.NoError(t, f.service.LeaveTeam(ctx, f.member.ID, team.ID))
	require.NoError(t, f.service.JoinPublicTeam(ctx, f.member.ID, team.ID))
	require.NoError(t, f.service.RemoveMember(ctx, f.owner.ID, team.ID, f.member.ID))

	// Only the owner removes others.
	require.NoError(t, f.service.JoinPublicTeam(ctx, f.member.ID, team.ID))
	require.ErrorIs(t, f.service.RemoveMember(ctx, f.member.ID, team.ID, f.owner.ID), ErrUnauthorized)
}

func TestDeleteTeamRemovesInvites(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()
	team := f.createTeam(t, "Bears", models.TeamVisibilityPrivate)

	_, err := f.service.InviteMember(ctx, f.owner.ID, team.ID, "a@example.com")
	require.NoError(t, err)
	_, err = f.service.InviteMember(ctx, f.owner.ID, team.ID, "b@example.com")
	require.NoError(t, err)

	// Only the owner may delete.
	require.ErrorIs(t, f.service.DeleteTeam(ctx, f.member.ID, team.ID), ErrUnauthorized)

	require.NoError(t, f.service.DeleteTeam(ctx, f.owner.ID, team.ID))

	// The team, every invite and every membership row are gone together.
	_, err = f.service.GetTeam(ctx, f.owner.ID, team.ID)
	require.ErrorIs(t, err, ErrTeamNotFound)
	count, err := storage.NewGormTeamInviteRepository(f.db).CountByTeam(ctx, team.ID)
	require.NoError(t, err)
	require.Zero(t, count)
	var members int64
	require.NoError(t, f.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&members).Error)
	require.Zero(t, members)
}

func TestUpdateTeamOwnerOnly(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()
	team := f.createTeam(t, "Bears", models.TeamVisibilityPublic)
	require.NoError(t, f.service.JoinPublicTeam(ctx, f.member.ID, team.ID))

	_, err := f.service.UpdateTeam(ctx, f.member.ID, team.ID, "Hijacked", "", "")
	require.ErrorIs(t, err, ErrUnauthorized)

	updated, err := f.service.UpdateTeam(ctx, f.owner.ID, team.ID, "Polar Bears", "winter crew", models.TeamVisibilityPrivate)
	require.NoError(t, err)
	require.Equal(t, "Polar Bears", updated.Name)
	require.Equal(t, "polar bears", updated.NameLower)
	require.Equal(t, models.TeamVisibilityPrivate, updated.Visibility)
}

func TestSearchPublicTeams(t *testing.T) {
	f := newTeamFixture(t)
	ctx := context.Background()

	f.createTeam(t, "Code Commanders", models.TeamVisibilityPublic)
	f.createTeam(t, "Commander Keen Fans", models.TeamVisibilityPublic)
	f.createTeam(t, "Secret Commanders", models.TeamVisibilityPrivate)

	teams, err := f.service.SearchPublicTeams(ctx, "COMMANDER", 10, 0)
	require.NoError(t, err)
	require.Len(t, teams, 2)

	mine, err := f.service.ListUserTeams(ctx, f.owner.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 3)
}
