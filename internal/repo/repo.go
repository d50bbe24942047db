// Package repo is the gorm-backed persistence layer: accounts, refresh
// tokens and cookie sessions. Callers above translate the sentinel errors
// here into the public taxonomy.
package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrEmailTaken      = errors.New("email already taken")
	ErrTokenNotFound   = errors.New("refresh token not found")
	ErrTokenExpired    = errors.New("refresh token expired")
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
