package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"farmcast/internal/models"
	"farmcast/internal/repository"
	"farmcast/internal/validation"
)

const maxFarmNameLen = 50

type FarmService struct {
	farmRepo repository.FarmRepository
}

type CreateFarmInput struct {
	UserID    uint
	Name      string
	Latitude  float64
	Longitude float64
}

func NewFarmService(farmRepo repository.FarmRepository) *FarmService {
	return &FarmService{farmRepo: farmRepo}
}

func (s *FarmService) ListFarms(ctx context.Context, userID uint) ([]models.Farm, error) {
	farms, err := s.farmRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if farms == nil {
		farms = []models.Farm{}
	}
	return farms, nil
}

// CreateFarm adds a farm. Names are unique per owner.
func (s *FarmService) CreateFarm(ctx context.Context, in CreateFarmInput) (*models.Farm, error) {
	if err := validation.ValidateCoordinates(in.Longitude, in.Latitude); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxFarmNameLen {
		return nil, models.NewValidationError("Farm name has invalid length.")
	}

	existing, err := s.farmRepo.GetByName(ctx, in.UserID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Farm already exists.")
	}

	farm := &models.Farm{
		UserID:    in.UserID,
		Name:      name,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if err := s.farmRepo.Create(ctx, farm); err != nil {
		return nil, err
	}
	return farm, nil
}

func (s *FarmService) DeleteFarm(ctx context.Context, userID uint, name string) error {
	return s.farmRepo.DeleteByName(ctx, userID, strings.TrimSpace(name))
}
