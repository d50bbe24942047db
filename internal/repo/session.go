package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/incidents-platform/auth-service/internal/models"
)

const SessionTTL = 24 * time.Hour

func (r *GormRepo) CreateSession(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	s := models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		CSRFToken: uuid.NewString(),
		ExpiresAt: time.Now().Add(SessionTTL),
	}
	if err := r.DB.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) FindSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) SaveSession(ctx context.Context, s *models.Session) error {
	return r.DB.WithContext(ctx).Save(s).Error
}

func (r *GormRepo) DeleteSession(ctx context.Context, sessionID string) error {
	return r.DB.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.Session{}).Error
}

func (r *GormRepo) DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error
}
