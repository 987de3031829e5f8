package repository

import (
	"context"
	"errors"

	"farmcast/internal/models"
	"farmcast/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FarmRepository defines persistence operations for farms and their weather snapshots.
type FarmRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.Farm, error)
	GetByID(ctx context.Context, id uint) (*models.Farm, error)
	GetByName(ctx context.Context, userID uint, name string) (*models.Farm, error)
	Create(ctx context.Context, farm *models.Farm) error
	DeleteByName(ctx context.Context, userID uint, name string) error
	ListAlertTargets(ctx context.Context) ([]models.FarmAlertTarget, error)
	GetWeather(ctx context.Context, farmID uint) (*models.FarmWeather, error)
	SaveWeather(ctx context.Context, snapshot *models.FarmWeather) error
}

type farmRepository struct {
	db *gorm.DB
}

// NewFarmRepository returns a new FarmRepository implementation.
func NewFarmRepository(db *gorm.DB) FarmRepository {
	return &farmRepository{db: db}
}

func (r *farmRepository) ListByUser(ctx context.Context, userID uint) ([]models.Farm, error) {
	farms := []models.Farm{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&farms).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return farms, nil
}

func (r *farmRepository) GetByID(ctx context.Context, id uint) (*models.Farm, error) {
	var farm models.Farm
	if err := r.db.WithContext(ctx).First(&farm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Farm", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &farm, nil
}

// GetByName returns nil, nil when the user has no farm with that name.
func (r *farmRepository) GetByName(ctx context.Context, userID uint, name string) (*models.Farm, error) {
	var farm models.Farm
	if err := r.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).First(&farm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &farm, nil
}

func (r *farmRepository) Create(ctx context.Context, farm *models.Farm) error {
	if err := r.db.WithContext(ctx).Create(farm).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Farm already exists.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *farmRepository) DeleteByName(ctx context.Context, userID uint, name string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var farm models.Farm
		if err := tx.Where("user_id = ? AND name = ?", userID, name).First(&farm).Error; err != nil {
			return err
		}
		if err := tx.Where("farm_id = ?", farm.ID).Delete(&models.FarmWeather{}).Error; err != nil {
			return err
		}
		return tx.Delete(&farm).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundMessage("Farm not found.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// ListAlertTargets joins every farm with its owner's notification settings.
func (r *farmRepository) ListAlertTargets(ctx context.Context) ([]models.FarmAlertTarget, error) {
	defer observability.TrackQuery("select", "farms")()

	var targets []models.FarmAlertTarget
	if err := r.db.WithContext(ctx).
		Table("farms").
		Select("farms.id AS farm_id, farms.user_id, farms.name, farms.latitude, farms.longitude, " +
			"settings.fcm_token, settings.weather_notifications").
		Joins("JOIN settings ON settings.user_id = farms.user_id").
		Order("farms.id").
		Scan(&targets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return targets, nil
}

// GetWeather returns nil, nil when no snapshot was stored yet.
func (r *farmRepository) GetWeather(ctx context.Context, farmID uint) (*models.FarmWeather, error) {
	var snapshot models.FarmWeather
	if err := r.db.WithContext(ctx).Where("farm_id = ?", farmID).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &snapshot, nil
}

// SaveWeather inserts or replaces the snapshot of a farm.
func (r *farmRepository) SaveWeather(ctx context.Context, snapshot *models.FarmWeather) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "farm_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current", "daily", "refreshed_at"}),
	}).Create(snapshot).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
