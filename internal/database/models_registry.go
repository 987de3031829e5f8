package database

import "farmcast/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserAttributes{},
		&models.Settings{},
		&models.Interaction{},
		&models.Farm{},
		&models.FarmWeather{},
		&models.Post{},
		&models.PostPhoto{},
	}
}
