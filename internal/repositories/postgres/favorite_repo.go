package postgres

import (
	"context"
	"time"

	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type favoriteRepo struct {
	db *gorm.DB
}

func NewFavoriteRepo(db *gorm.DB) repositories.FavoriteRepository {
	return &favoriteRepo{db: db}
}

func (r *favoriteRepo) FindPair(ctx context.Context, techID, recruiterID string) ([]models.Favorite, error) {
	var out []models.Favorite
	err := r.db.WithContext(ctx).
		Where("tech_id = ? AND recruiter_id = ?", techID, recruiterID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// Create relies on the unique pair index: a conflicting insert affects no
// rows and reports utils.ErrDuplicate.
func (r *favoriteRepo) Create(ctx context.Context, f *models.Favorite) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(f)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrDuplicate
	}
	return nil
}

func (r *favoriteRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *favoriteRepo) ListByRecruiter(ctx context.Context, recruiterID string) ([]models.Favorite, error) {
	var out []models.Favorite
	err := r.db.WithContext(ctx).
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
