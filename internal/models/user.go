package models

import "time"

// User is a registered account.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	FirstName        string    `gorm:"size:50;not null" json:"first_name"`
	LastName         string    `gorm:"size:50;not null" json:"last_name"`
	Email            string    `gorm:"size:50;uniqueIndex;not null" json:"email"`
	Password         string    `gorm:"size:60;not null" json:"-"`
	Photo            string    `gorm:"size:100" json:"photo,omitempty"`
	RegistrationDate time.Time `gorm:"autoCreateTime" json:"registration_date"`
}

// FullName joins first and last name the way profile search matches them.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserAttributes holds the denormalized counters of a user.
type UserAttributes struct {
	UserID    uint  `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostCount int64 `gorm:"not null;default:0" json:"post_count"`
	LikeCount int64 `gorm:"not null;default:0" json:"like_count"`
}

// TableName returns the database table name for UserAttributes.
func (UserAttributes) TableName() string {
	return "users_attributes"
}

// Interaction is a directed follow edge. The row's existence is the signal.
type Interaction struct {
	Follower        uint      `gorm:"primaryKey;autoIncrement:false" json:"follower"`
	FollowedProfile uint      `gorm:"primaryKey;autoIncrement:false" json:"followed_profile"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Settings holds one user's notification preferences and device token.
type Settings struct {
	UserID               uint     `gorm:"primaryKey;autoIncrement:false" json:"-"`
	MinTemp              *float64 `json:"min_temp,omitempty"`
	MaxTemp              *float64 `json:"max_temp,omitempty"`
	WeatherNotifications bool     `gorm:"not null" json:"weather_notifications"`
	NewsNotifications    bool     `gorm:"not null" json:"news_notifications"`
	FCMToken             string   `gorm:"column:fcm_token;size:255" json:"-"`
}

// HasDevice reports whether a push token is registered.
func (s *Settings) HasDevice() bool {
	return s != nil && s.FCMToken != ""
}

// ProfileSummary is one profile search hit.
type ProfileSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// ProfileView is the full profile page of a user as seen by a viewer.
type ProfileView struct {
	ID          uint   `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Photo       string `json:"photo,omitempty"`
	PostCount   int64  `json:"post_count"`
	LikeCount   int64  `json:"like_count"`
	Farms       []Farm `json:"farms"`
	IsFollowing bool   `json:"is_like"`
}
