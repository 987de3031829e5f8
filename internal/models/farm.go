package models

import "time"

// Farm is a named geographic point owned by a user.
type Farm struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	UserID    uint    `gorm:"not null;index" json:"user_id"`
	Name      string  `gorm:"size:50;not null" json:"name"`
	Latitude  float64 `gorm:"type:numeric(17,15);not null" json:"latitude"`
	Longitude float64 `gorm:"type:numeric(18,15);not null" json:"longitude"`
}

// FarmAlertTarget is a farm joined with its owner's notification settings.
type FarmAlertTarget struct {
	FarmID               uint
	UserID               uint
	Name                 string
	Latitude             float64
	Longitude            float64
	FCMToken             string
	WeatherNotifications bool
}

// FarmWeather is the cached forecast snapshot of one farm.
// Current and Daily hold the JSON encoded projections.
type FarmWeather struct {
	FarmID      uint      `gorm:"primaryKey;autoIncrement:false" json:"farm_id"`
	Current     string    `gorm:"type:text;not null" json:"-"`
	Daily       string    `gorm:"type:text;not null" json:"-"`
	RefreshedAt time.Time `gorm:"not null" json:"refreshed_at"`
}

// TableName returns the database table name for FarmWeather.
func (FarmWeather) TableName() string {
	return "farm_weather"
}
