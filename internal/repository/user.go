package repository

import (
	"context"
	"errors"
	"strings"

	"farmcast/internal/cache"
	"farmcast/internal/models"
	"farmcast/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePhoto(ctx context.Context, id uint, photo string) error
	// Delete removes the user with everything it owns and returns the storage
	// keys of the photos that belonged to it.
	Delete(ctx context.Context, id uint) ([]string, error)
	Search(ctx context.Context, query string, limit int) ([]models.ProfileSummary, error)
	GetAttributes(ctx context.Context, id uint) (*models.UserAttributes, error)
	// Recount rebuilds users_attributes from posts and interactions.
	Recount(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		defer observability.TrackQuery("select", "users")()
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Create stores the user together with default settings and zeroed counters.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		settings := &models.Settings{
			UserID:               user.ID,
			WeatherNotifications: true,
			NewsNotifications:    true,
		}
		if err := tx.Create(settings).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserAttributes{UserID: user.ID}).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewForbiddenError("Email already taken.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdatePhoto(ctx context.Context, id uint, photo string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("photo", photo)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	defer observability.TrackQuery("delete", "users")()

	var keys []string
	var followed []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if user.Photo != "" {
			keys = append(keys, user.Photo)
		}

		posts := tx.Model(&models.Post{}).Select("id").Where("user_id = ?", id)
		var photos []string
		if err := tx.Model(&models.PostPhoto{}).Where("post_id IN (?)", posts).Pluck("photo", &photos).Error; err != nil {
			return err
		}
		keys = append(keys, photos...)

		// Every profile this user followed loses exactly one like.
		if err := tx.Model(&models.Interaction{}).Where("follower = ?", id).Pluck("followed_profile", &followed).Error; err != nil {
			return err
		}
		if len(followed) > 0 {
			if err := tx.Model(&models.UserAttributes{}).
				Where("user_id IN ? AND like_count > 0", followed).
				Update("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return err
			}
		}

		farms := tx.Model(&models.Farm{}).Select("id").Where("user_id = ?", id)
		steps := []func() error{
			func() error {
				return tx.Where("follower = ? OR followed_profile = ?", id, id).Delete(&models.Interaction{}).Error
			},
			func() error { return tx.Where("post_id IN (?)", posts).Delete(&models.PostPhoto{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&models.Post{}).Error },
			func() error { return tx.Where("farm_id IN (?)", farms).Delete(&models.FarmWeather{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&models.Farm{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&models.Settings{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&models.UserAttributes{}).Error },
			func() error { return tx.Delete(&models.User{}, id).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, id)
	for _, f := range followed {
		cache.Invalidate(ctx, cache.ProfileKey(f))
	}
	return keys, nil
}

// Search matches query case-insensitively against "first last".
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.ProfileSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("LOWER(first_name || ' ' || last_name) LIKE ?", pattern).
		Order("id").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make([]models.ProfileSummary, 0, len(users))
	for i := range users {
		out = append(out, models.ProfileSummary{ID: users[i].ID, Name: users[i].FullName(), Photo: users[i].Photo})
	}
	return out, nil
}

func (r *userRepository) GetAttributes(ctx context.Context, id uint) (*models.UserAttributes, error) {
	var attrs models.UserAttributes
	err := cache.Aside(ctx, cache.ProfileKey(id), &attrs, cache.ProfileTTL, func() error {
		if err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&attrs).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				attrs = models.UserAttributes{UserID: id}
				return nil
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &attrs, nil
}

func (r *userRepository) Recount(ctx context.Context) (int64, error) {
	var updated int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`INSERT INTO users_attributes (user_id, post_count, like_count)
SELECT id, 0, 0 FROM users WHERE id NOT IN (SELECT user_id FROM users_attributes)`).Error; err != nil {
			return err
		}
		res := tx.Exec(`UPDATE users_attributes SET
post_count = (SELECT COUNT(*) FROM posts WHERE posts.user_id = users_attributes.user_id),
like_count = (SELECT COUNT(*) FROM interactions WHERE interactions.followed_profile = users_attributes.user_id)`)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return updated, nil
}
