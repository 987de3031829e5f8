package repository

import (
	"context"
	"errors"
	"time"

	"farmcast/internal/cache"
	"farmcast/internal/models"
	"farmcast/internal/observability"

	"gorm.io/gorm"
)

// FeedLimit caps the number of posts a feed query returns.
const FeedLimit = 100

// EarthRadiusKm is the sphere radius used by the feed distance filter.
const EarthRadiusKm = 6371

// feedDistanceSQL is the spherical law of cosines distance in km between the
// reference point (?, ?) and the post. The cosine is clamped to [-1, 1] so that
// rounding on identical points cannot push acos out of its domain.
const feedDistanceSQL = `acos(LEAST(1, GREATEST(-1,
cos(radians(?)) * cos(radians(posts.latitude)) * cos(radians(posts.longitude) - radians(?)) +
sin(radians(?)) * sin(radians(posts.latitude))))) * 6371`

const feedColumns = `posts.id, posts.user_id, users.first_name, users.last_name, posts.post_name,
posts.latitude, posts.longitude, posts.category, posts.text, posts.date`

// PostRepository defines persistence operations for posts and their photos.
type PostRepository interface {
	// Create stores the post and bumps the author's post counter.
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// Delete removes the post with its photos, decrements the author's post
	// counter and returns the storage keys of the removed photos.
	Delete(ctx context.Context, id uint) ([]string, error)
	AddPhotos(ctx context.Context, postID uint, keys []string) ([]models.PostPhoto, error)
	GetPhoto(ctx context.Context, id uint) (*models.PostPhoto, error)
	DeletePhoto(ctx context.Context, id uint) error
	// Feed returns the newest posts closer than rangeKm to (lat, lon).
	Feed(ctx context.Context, lat, lon, rangeKm float64) ([]models.FeedPost, error)
	ProfileFeed(ctx context.Context, userID uint) ([]models.FeedPost, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	if post.Date.IsZero() {
		post.Date = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Photos").Create(post).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserAttributes{}).
			Where("user_id = ?", post.UserID).
			Update("post_count", gorm.Expr("post_count + 1")).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.ProfileKey(post.UserID))
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	var keys []string
	var authorID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return err
		}
		authorID = post.UserID

		if err := tx.Model(&models.PostPhoto{}).Where("post_id = ?", id).Pluck("photo", &keys).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostPhoto{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&post).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserAttributes{}).
			Where("user_id = ? AND post_count > 0", post.UserID).
			Update("post_count", gorm.Expr("post_count - 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.ProfileKey(authorID))
	return keys, nil
}

func (r *postRepository) AddPhotos(ctx context.Context, postID uint, keys []string) ([]models.PostPhoto, error) {
	photos := make([]models.PostPhoto, 0, len(keys))
	for _, k := range keys {
		photos = append(photos, models.PostPhoto{PostID: postID, Photo: k})
	}
	if len(photos) == 0 {
		return photos, nil
	}
	if err := r.db.WithContext(ctx).Create(&photos).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return photos, nil
}

func (r *postRepository) GetPhoto(ctx context.Context, id uint) (*models.PostPhoto, error) {
	var photo models.PostPhoto
	if err := r.db.WithContext(ctx).First(&photo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Photo", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &photo, nil
}

func (r *postRepository) DeletePhoto(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.PostPhoto{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// feedRow is the scan target of the feed queries.
type feedRow struct {
	ID        uint
	UserID    uint
	FirstName string
	LastName  string
	PostName  string
	Latitude  float64
	Longitude float64
	Category  string
	Text      string
	Date      time.Time
}

func (r *postRepository) Feed(ctx context.Context, lat, lon, rangeKm float64) ([]models.FeedPost, error) {
	defer observability.TrackQuery("feed", "posts")()

	var rows []feedRow
	if err := r.db.WithContext(ctx).
		Table("posts").
		Select(feedColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Where(feedDistanceSQL+" < ?", lat, lon, lat, rangeKm).
		Order("posts.date DESC").
		Limit(FeedLimit).
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.attachPhotos(ctx, rows)
}

func (r *postRepository) ProfileFeed(ctx context.Context, userID uint) ([]models.FeedPost, error) {
	var rows []feedRow
	if err := r.db.WithContext(ctx).
		Table("posts").
		Select(feedColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.user_id = ?", userID).
		Order("posts.date DESC").
		Limit(FeedLimit).
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.attachPhotos(ctx, rows)
}

// attachPhotos loads the photo ids of every row in one query, ordered by id.
func (r *postRepository) attachPhotos(ctx context.Context, rows []feedRow) ([]models.FeedPost, error) {
	out := make([]models.FeedPost, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var photos []models.PostPhoto
	if err := r.db.WithContext(ctx).
		Select("id", "post_id").
		Where("post_id IN ?", ids).
		Order("id").
		Find(&photos).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	byPost := make(map[uint][]uint, len(rows))
	for _, p := range photos {
		byPost[p.PostID] = append(byPost[p.PostID], p.ID)
	}

	for _, row := range rows {
		photoIDs := byPost[row.ID]
		if photoIDs == nil {
			photoIDs = []uint{}
		}
		out = append(out, models.FeedPost{
			ID:        row.ID,
			UserID:    row.UserID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			PostName:  row.PostName,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
			Category:  row.Category,
			Text:      row.Text,
			Date:      row.Date,
			PhotosID:  photoIDs,
		})
	}
	return out, nil
}
