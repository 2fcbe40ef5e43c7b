package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// User struct
type User struct {
	gorm.Model
	Username      string     `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName   string     `gorm:"not null;default:''" json:"displayName"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	Password      string     `gorm:"not null" json:"-"`
	Role          string     `json:"role"`
	LastSeen      *time.Time `json:"lastSeen"`
	Theme         string     `gorm:"not null;default:dark" json:"theme"`
	BackgroundURL *string    `json:"backgroundUrl"`

	Otp_enabled bool   `gorm:"default:false;" json:"-"`
	Otp_secret  string `json:"-"`
}
