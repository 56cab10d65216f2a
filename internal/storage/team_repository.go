package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gobear/internal/models"
)

// TeamRepository defines the interface for team and membership data operations.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeamByID(ctx context.Context, id uint) (*models.Team, error)
	UpdateTeam(ctx context.Context, team *models.Team) error
	DeleteTeam(ctx context.Context, id uint) error
	SearchPublicTeams(ctx context.Context, query string, limit, offset int) ([]*models.Team, error)

	AddMember(ctx context.Context, member *models.TeamMember) error
	GetMember(ctx context.Context, teamID, userID uint) (*models.TeamMember, error)
	RemoveMember(ctx context.Context, teamID, userID uint) (int64, error)
	RemoveAllMembers(ctx context.Context, teamID uint) (int64, error)
	ListMembers(ctx context.Context, teamID uint, limit, offset int) ([]*models.TeamMember, error)
	GetUserTeams(ctx context.Context, userID uint, limit, offset int) ([]*models.Team, error)
}

// gormTeamRepository implements TeamRepository using GORM.
type gormTeamRepository struct {
	db *gorm.DB
}

// NewGormTeamRepository creates a new GORM-based TeamRepository.
func NewGormTeamRepository(db *gorm.DB) TeamRepository {
	return &gormTeamRepository{db: db}
}

func (r *gormTeamRepository) CreateTeam(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *gormTeamRepository) GetTeamByID(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	err := r.db.WithContext(ctx).First(&team, id).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *gormTeamRepository) UpdateTeam(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Save(team).Error
}

// DeleteTeam soft-deletes the team row only. Removing the team together with
// its invites is a service-level transaction.
func (r *gormTeamRepository) DeleteTeam(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Team{}, id).Error
}

// SearchPublicTeams matches public teams by case-folded name substring.
func (r *gormTeamRepository) SearchPublicTeams(ctx context.Context, query string, limit, offset int) ([]*models.Team, error) {
	var teams []*models.Team
	dbQuery := r.db.WithContext(ctx).Model(&models.Team{}).
		Where("visibility = ?", models.TeamVisibilityPublic)

	if query != "" {
		dbQuery = dbQuery.Where("name_lower LIKE ?", "%"+query+"%")
	}
	if limit > 0 {
		dbQuery = dbQuery.Limit(limit)
	}
	if offset > 0 {
		dbQuery = dbQuery.Offset(offset)
	}

	err := dbQuery.Order("created_at DESC").Find(&teams).Error
	return teams, err
}

// AddMember adds a user to a team. Inserting an existing member is a no-op,
// which gives the membership set its idempotent set-union semantics.
func (r *gormTeamRepository) AddMember(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
}

func (r *gormTeamRepository) GetMember(ctx context.Context, teamID, userID uint) (*models.TeamMember, error) {
	var member models.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *gormTeamRepository) RemoveMember(ctx context.Context, teamID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{})
	return res.RowsAffected, res.Error
}

// RemoveAllMembers clears the whole membership set of a team. Called inside
// the team-delete transaction so no membership rows outlive their team.
func (r *gormTeamRepository) RemoveAllMembers(ctx context.Context, teamID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&models.TeamMember{})
	return res.RowsAffected, res.Error
}

func (r *gormTeamRepository) ListMembers(ctx context.Context, teamID uint, limit, offset int) ([]*models.TeamMember, error) {
	var members []*models.TeamMember
	dbQuery := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Preload("User").
		Order("joined_at ASC")

	if limit > 0 {
		dbQuery = dbQuery.Limit(limit)
	}
	if offset > 0 {
		dbQuery = dbQuery.Offset(offset)
	}

	err := dbQuery.Find(&members).Error
	return members, err
}

// GetUserTeams retrieves the teams the given user belongs to.
func (r *gormTeamRepository) GetUserTeams(ctx context.Context, userID uint, limit, offset int) ([]*models.Team, error) {
	var teams []*models.Team
	dbQuery := r.db.WithContext(ctx).Model(&models.Team{}).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.created_at DESC")

	if limit > 0 {
		dbQuery = dbQuery.Limit(limit)
	}
	if offset > 0 {
		dbQuery = dbQuery.Offset(offset)
	}

	err := dbQuery.Find(&teams).Error
	return teams, err
}
