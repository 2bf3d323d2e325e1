package model

import "time"

// UserLocation is the commute a user registered for traffic lookups.
type UserLocation struct {
	UserID    string  `gorm:"primaryKey;size:32"`
	OriginLat float64 `gorm:"not null"`
	OriginLng float64 `gorm:"not null"`
	DestLat   float64 `gorm:"not null"`
	DestLng   float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
