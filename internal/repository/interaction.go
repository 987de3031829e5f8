package repository

import (
	"context"

	"farmcast/internal/cache"
	"farmcast/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionRepository manages follow edges and the like counters they drive.
type InteractionRepository interface {
	// Follow creates the edge and reports whether it did not exist before.
	Follow(ctx context.Context, follower, followed uint) (bool, error)
	// Unfollow removes the edge and reports whether it existed.
	Unfollow(ctx context.Context, follower, followed uint) (bool, error)
	Exists(ctx context.Context, follower, followed uint) (bool, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository returns a new InteractionRepository implementation.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Follow(ctx context.Context, follower, followed uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Interaction{Follower: follower, FollowedProfile: followed})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		created = true
		return tx.Model(&models.UserAttributes{}).
			Where("user_id = ?", followed).
			Update("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if created {
		cache.Invalidate(ctx, cache.ProfileKey(followed))
	}
	return created, nil
}

func (r *interactionRepository) Unfollow(ctx context.Context, follower, followed uint) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower = ? AND followed_profile = ?", follower, followed).Delete(&models.Interaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.UserAttributes{}).
			Where("user_id = ? AND like_count > 0", followed).
			Update("like_count", gorm.Expr("like_count - 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if removed {
		cache.Invalidate(ctx, cache.ProfileKey(followed))
	}
	return removed, nil
}

func (r *interactionRepository) Exists(ctx context.Context, follower, followed uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Interaction{}).
		Where("follower = ? AND followed_profile = ?", follower, followed).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
