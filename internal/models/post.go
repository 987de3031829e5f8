package models

import "time"

// Post is a geotagged feed entry.
type Post struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"not null;index" json:"user_id"`
	PostName  string      `gorm:"size:100;not null" json:"post_name"`
	Latitude  float64     `gorm:"not null" json:"latitude"`
	Longitude float64     `gorm:"not null" json:"longitude"`
	Category  string      `gorm:"size:50;not null" json:"category"`
	Text      string      `gorm:"type:text" json:"text"`
	Date      time.Time   `gorm:"not null;index" json:"date"`
	Photos    []PostPhoto `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// PostPhoto references one stored image of a post.
type PostPhoto struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PostID uint   `gorm:"not null;index" json:"post_id"`
	Photo  string `gorm:"size:100;not null" json:"photo"`
}

// FeedPost is one row of the geo feed or a profile feed.
type FeedPost struct {
	FarmLat   *float64  `json:"farm_lat,omitempty"`
	FarmLon   *float64  `json:"farm_lon,omitempty"`
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	PostName  string    `json:"post_name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
	PhotosID  []uint    `json:"photos_id"`
}
