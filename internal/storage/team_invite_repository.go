package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gobear/internal/models"
)

// TeamInviteRepository defines the interface for team invite data operations.
type TeamInviteRepository interface {
	// Upsert writes the invite keyed by (team_id, invitee_email), overwriting
	// any prior invite for that pair rather than accumulating duplicates.
	Upsert(ctx context.Context, invite *models.TeamInvite) error
	GetByTeamAndEmail(ctx context.Context, teamID uint, emailLower string) (*models.TeamInvite, error)
	ListByEmail(ctx context.Context, emailLower string) ([]models.TeamInvite, error)
	DeleteByTeam(ctx context.Context, teamID uint) (int64, error)
	CountByTeam(ctx context.Context, teamID uint) (int64, error)
}

type gormTeamInviteRepository struct {
	db *gorm.DB
}

// NewGormTeamInviteRepository creates a new GORM-based TeamInviteRepository.
func NewGormTeamInviteRepository(db *gorm.DB) TeamInviteRepository {
	return &gormTeamInviteRepository{db: db}
}

func (r *gormTeamInviteRepository) Upsert(ctx context.Context, invite *models.TeamInvite) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "invitee_email"}},
		DoUpdates: clause.AssignmentColumns([]string{"from_user_id", "updated_at"}),
	}).Create(invite).Error
}

func (r *gormTeamInviteRepository) GetByTeamAndEmail(ctx context.Context, teamID uint, emailLower string) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND invitee_email = ?", teamID, emailLower).
		First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

func (r *gormTeamInviteRepository) ListByEmail(ctx context.Context, emailLower string) ([]models.TeamInvite, error) {
	var invites []models.TeamInvite
	err := r.db.WithContext(ctx).
		Where("invitee_email = ?", emailLower).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

// DeleteByTeam removes every outstanding invite for a team. Called inside the
// delete-team transaction so invites never survive their team.
func (r *gormTeamInviteRepository) DeleteByTeam(ctx context.Context, teamID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&models.TeamInvite{})
	return res.RowsAffected, res.Error
}

func (r *gormTeamInviteRepository) CountByTeam(ctx context.Context, teamID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TeamInvite{}).
		Where("team_id = ?", teamID).
		Count(&count).Error
	return count, err
}
