package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"gobear/internal/models"
	"gobear/internal/storage"
)

// InviteResult describes the outcome of InviteMember. When the invitee is an
// existing user they are notified in-app; otherwise InviteLink carries a join
// link for out-of-band delivery.
type InviteResult struct {
	Invite       *models.TeamInvite `json:"invite"`
	ExistingUser bool               `json:"existingUser"`
	InviteLink   string             `json:"inviteLink,omitempty"`
}

// TeamService owns teams, their membership sets and outstanding invites.
// The owner is always a member and cannot be removed; destructive operations
// are gated on ownership.
type TeamService interface {
	CreateTeam(ctx context.Context, callerID uint, name, description string, visibility models.TeamVisibility) (*models.Team, error)
	GetTeam(ctx context.Context, callerID, teamID uint) (*models.Team, error)
	UpdateTeam(ctx context.Context, callerID, teamID uint, name, description string, visibility models.TeamVisibility) (*models.Team, error)
	DeleteTeam(ctx context.Context, callerID, teamID uint) error
	SearchPublicTeams(ctx context.Context, query string, limit, offset int) ([]*models.Team, error)

	JoinPublicTeam(ctx context.Context, callerID, teamID uint) error
	InviteMember(ctx context.Context, callerID, teamID uint, inviteeEmail string) (*InviteResult, error)
	AcceptInviteLink(ctx context.Context, callerID, teamID uint) error
	LeaveTeam(ctx context.Context, callerID, teamID uint) error
	RemoveMember(ctx context.Context, callerID, teamID, memberID uint) error
	ListMembers(ctx context.Context, callerID, teamID uint, limit, offset int) ([]*models.TeamMember, error)
	ListUserTeams(ctx context.Context, userID uint, limit, offset int) ([]*models.Team, error)
}

type teamService struct {
	db         *gorm.DB
	teamRepo   storage.TeamRepository
	inviteRepo storage.TeamInviteRepository
	userRepo   storage.UserRepository
	dispatcher NotificationDispatcher
}

// NewTeamService creates a new TeamService instance.
func NewTeamService(
	db *gorm.DB,
	teamRepo storage.TeamRepository,
	inviteRepo storage.TeamInviteRepository,
	userRepo storage.UserRepository,
	dispatcher NotificationDispatcher,
) TeamService {
	return &teamService{
		db:         db,
		teamRepo:   teamRepo,
		inviteRepo: inviteRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
	}
}

// CreateTeam creates a team with the caller as owner and sole member.
func (s *teamService) CreateTeam(ctx context.Context, callerID uint, name, description string, visibility models.TeamVisibility) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	if visibility == "" {
		visibility = models.TeamVisibilityPrivate
	}
	if visibility != models.TeamVisibilityPrivate && visibility != models.TeamVisibilityPublic {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, visibility)
	}

	team := &models.Team{
		Name:        name,
		NameLower:   strings.ToLower(name),
		Description: strings.TrimSpace(description),
		OwnerID:     callerID,
		Visibility:  visibility,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txTeamRepo := storage.NewGormTeamRepository(tx)
		if err := txTeamRepo.CreateTeam(ctx, team); err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}
		// The owner is always a member.
		member := &models.TeamMember{TeamID: team.ID, UserID: callerID, JoinedAt: time.Now()}
		if err := txTeamRepo.AddMember(ctx, member); err != nil {
			return fmt.Errorf("failed to add owner %d to team %d: %w", callerID, team.ID, err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Printf("Team %d (%s) created by user %d", team.ID, team.Name, callerID)
	return team, nil
}

// GetTeam returns a team. Private teams are visible to members only.
func (s *teamService) GetTeam(ctx context.Context, callerID, teamID uint) (*models.Team, error) {
	team, err := s.getTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsPublic() {
		if _, err := s.teamRepo.GetMember(ctx, teamID, callerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	}
	return team, nil
}

// UpdateTeam updates name, description or visibility. Owner only.
func (s *teamService) UpdateTeam(ctx context.Context, callerID, teamID uint, name, description string, visibility models.TeamVisibility) (*models.Team, error) {
	team, err := s.getTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != callerID {
		return nil, ErrUnauthorized
	}

	if name = strings.TrimSpace(name); name != "" {
		team.Name = name
		team.NameLower = strings.ToLower(name)
	}
	if description != "" {
		team.Description = strings.TrimSpace(description)
	}
	if visibility != "" {
		if visibility != models.TeamVisibilityPrivate && visibility != models.TeamVisibilityPublic {
			return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, visibility)
		}
		team.Visibility = visibility
	}

	if err := s.teamRepo.UpdateTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to update team %d: %w", teamID, err)
	}
	return team, nil
}

// DeleteTeam removes the team together with its memberships and every
// outstanding invite in a single transaction, so neither survives a deleted
// team. Owner only.
func (s *teamService) DeleteTeam(ctx context.Context, callerID, teamID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txTeamRepo := storage.NewGormTeamRepository(tx)
		txInviteRepo := storage.NewGormTeamInviteRepository(tx)

		team, err := s.getTeam(ctx, txTeamRepo, teamID)
		if err != nil {
			return err
		}
		if team.OwnerID != callerID {
			return ErrUnauthorized
		}

		if _, err := txInviteRepo.DeleteByTeam(ctx, teamID); err != nil {
			return fmt.Errorf("failed to delete invites for team %d: %w", teamID, err)
		}
		if _, err := txTeamRepo.RemoveAllMembers(ctx, teamID); err != nil {
			return fmt.Errorf("failed to delete members for team %d: %w", teamID, err)
		}
		if err := txTeamRepo.DeleteTeam(ctx, teamID); err != nil {
			return fmt.Errorf("failed to delete team %d: %w", teamID, err)
		}
		log.Printf("Team %d deleted by owner %d", teamID, callerID)
		return nil
	})
}

// SearchPublicTeams matches public teams by case-folded name substring.
func (s *teamService) SearchPublicTeams(ctx context.Context, query string, limit, offset int) ([]*models.Team, error) {
	return s.teamRepo.SearchPublicTeams(ctx, strings.ToLower(strings.TrimSpace(query)), limit, offset)
}

// JoinPublicTeam adds the caller to a public team. Joining a team the caller
// already belongs to is a no-op (set-union semantics).
func (s *teamService) JoinPublicTeam(ctx context.Context, callerID, teamID uint) error {
	team, err := s.getTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return err
	}
	if !team.IsPublic() {
		return ErrTeamNotPublic
	}

	member := &models.TeamMember{TeamID: teamID, UserID: callerID, JoinedAt: time.Now()}
	if err := s.teamRepo.AddMember(ctx, member); err != nil {
		return fmt.Errorf("failed to add user %d to team %d: %w", callerID, teamID, err)
	}
	return nil
}

// InviteMember records an invitation of an email address into the team.
// Callers must be members. The invite is keyed by (team, email): re-inviting
// the same address overwrites the prior invite rather than stacking up.
func (s *teamService) InviteMember(ctx context.Context, callerID, teamID uint, inviteeEmail string) (*InviteResult, error) {
	emailLower, err := normalizeEmail(inviteeEmail)
	if err != nil {
		return nil, err
	}

	if _, err := s.getTeam(ctx, s.teamRepo, teamID); err != nil {
		return nil, err
	}
	if _, err := s.teamRepo.GetMember(ctx, teamID, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	invite := &models.TeamInvite{
		TeamID:       teamID,
		InviteeEmail: emailLower,
		FromUserID:   callerID,
	}
	if err := s.inviteRepo.Upsert(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to save invite for %s to team %d: %w", emailLower, teamID, err)
	}

	result := &InviteResult{Invite: invite}
	invitee, err := s.userRepo.GetByEmail(ctx, emailLower)
	switch {
	case err == nil:
		result.ExistingUser = true
		s.notifyInvite(ctx, invitee.ID, teamID, callerID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Not a user yet; hand back a join link for out-of-band delivery.
		result.InviteLink = fmt.Sprintf("/teams/%d/join", teamID)
	default:
		return nil, fmt.Errorf("failed to look up invitee %s: %w", emailLower, err)
	}

	log.Printf("User %d invited %s to team %d", callerID, emailLower, teamID)
	return result, nil
}

// AcceptInviteLink joins the caller to the team. Deliberately, no TeamInvite
// record is required: anyone holding the link may join as long as the team
// exists. The invite row only drives the in-app notification flow.
func (s *teamService) AcceptInviteLink(ctx context.Context, callerID, teamID uint) error {
	if _, err := s.getTeam(ctx, s.teamRepo, teamID); err != nil {
		return err
	}

	member := &models.TeamMember{TeamID: teamID, UserID: callerID, JoinedAt: time.Now()}
	if err := s.teamRepo.AddMember(ctx, member); err != nil {
		return fmt.Errorf("failed to add user %d to team %d: %w", callerID, teamID, err)
	}
	return nil
}

// LeaveTeam removes the caller from the team. The owner cannot leave: a team
// must always have its owner among the members.
func (s *teamService) LeaveTeam(ctx context.Context, callerID, teamID uint) error {
	return s.removeFromTeam(ctx, teamID, callerID, callerID)
}

// RemoveMember removes another user from the team. Owner only; the owner
// themselves cannot be removed.
func (s *teamService) RemoveMember(ctx context.Context, callerID, teamID, memberID uint) error {
	team, err := s.getTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID != callerID {
		return ErrUnauthorized
	}
	return s.removeFromTeam(ctx, teamID, memberID, callerID)
}

func (s *teamService) removeFromTeam(ctx context.Context, teamID, memberID, callerID uint) error {
	team, err := s.getTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return err
	}
	if memberID == team.OwnerID {
		return ErrCannotRemoveOwner
	}

	rows, err := s.teamRepo.RemoveMember(ctx, teamID, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove user %d from team %d: %w", memberID, teamID, err)
	}
	if rows > 0 {
		log.Printf("User %d removed from team %d (by %d)", memberID, teamID, callerID)
	}
	return nil
}

// ListMembers lists the team's members. Members only.
func (s *teamService) ListMembers(ctx context.Context, callerID, teamID uint, limit, offset int) ([]*models.TeamMember, error) {
	if _, err := s.getTeam(ctx, s.teamRepo, teamID); err != nil {
		return nil, err
	}
	if _, err := s.teamRepo.GetMember(ctx, teamID, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return s.teamRepo.ListMembers(ctx, teamID, limit, offset)
}

// ListUserTeams lists the teams the user belongs to.
func (s *teamService) ListUserTeams(ctx context.Context, userID uint, limit, offset int) ([]*models.Team, error) {
	return s.teamRepo.GetUserTeams(ctx, userID, limit, offset)
}

// getTeam fetches a team, translating record-not-found into ErrTeamNotFound.
func (s *teamService) getTeam(ctx context.Context, repo storage.TeamRepository, teamID uint) (*models.Team, error) {
	team, err := repo.GetTeamByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to retrieve team %d: %w", teamID, err)
	}
	return team, nil
}

func (s *teamService) notifyInvite(ctx context.Context, inviteeID, teamID, fromUserID uint) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Dispatch(ctx, inviteeID, models.NotificationTeamInvite, map[string]interface{}{
		"teamId":     teamID,
		"fromUserId": fromUserID,
	})
	if err != nil {
		log.Printf("Failed to dispatch team invite notification to user %d: %v", inviteeID, err)
	}
}

// normalizeEmail trims, validates and case-folds an email address.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if len(email) > 320 {
		return "", fmt.Errorf("%w: email is too long", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	return strings.ToLower(email), nil
}
