package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderYandex = "yandex"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	Name         string    `gorm:"not null"                      json:"name"`
	Surname      string    `gorm:"not null"                      json:"surname"`
	Email        string    `gorm:"uniqueIndex;not null"          json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Activated    bool      `gorm:"default:false"                 json:"activated"`
	IsBlocked    bool      `gorm:"default:false"                 json:"is_blocked"`
	Roles        []string  `gorm:"serializer:json;not null"      json:"roles"`
	Provider     string    `gorm:"not null;default:local"        json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// RefreshToken rows are unique per (user, device): the compound index backs
// the atomic upsert that keeps one live token per device.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"                              json:"id"`
	Value     string    `gorm:"uniqueIndex;not null"                    json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_device;not null" json:"user_id"`
	UserAgent string    `gorm:"uniqueIndex:idx_user_device;not null"    json:"user_agent"`
	ExpiresAt time.Time `gorm:"not null"                                json:"expires_at"`
}

type Session struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	SessionID string    `gorm:"uniqueIndex;not null" json:"session_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	CSRFToken string    `gorm:"not null"             json:"-"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
}
