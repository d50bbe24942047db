package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/incidents-platform/auth-service/internal/models"
)

// RefreshTTL is one month; sessions and access tokens live elsewhere.
const RefreshTTL = 30 * 24 * time.Hour

// NoUserAgent stands in for clients that send no user-agent so the
// (user, device) key stays non-empty.
const NoUserAgent = "unknown"

func NormalizeAgent(agent string) string {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return NoUserAgent
	}
	return agent
}

// UpsertRefreshToken atomically replaces the token for (user, device) with
// a fresh value and expiry. The compound unique index makes the upsert the
// only writer for that key, so no app-level lock is needed.
func (r *GormRepo) UpsertRefreshToken(ctx context.Context, userID uuid.UUID, userAgent string) (*models.RefreshToken, error) {
	tok := models.RefreshToken{
		Value:     uuid.NewString(),
		UserID:    userID,
		UserAgent: NormalizeAgent(userAgent),
		ExpiresAt: time.Now().Add(RefreshTTL),
	}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "user_agent"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&tok).Error
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// ConsumeRefreshToken deletes the row for value and returns it. A second
// consume of the same value loses the delete race and gets ErrTokenNotFound,
// which is what makes the tokens single-use. Expired rows are deleted too,
// reported as ErrTokenExpired.
func (r *GormRepo) ConsumeRefreshToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	var tok models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("value = ?", value).First(&tok).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	res := r.DB.WithContext(ctx).Where("value = ?", value).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrTokenNotFound
	}
	if time.Now().After(tok.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &tok, nil
}

func (r *GormRepo) FindRefreshByValue(ctx context.Context, value string) (*models.RefreshToken, error) {
	var tok models.RefreshToken
	err := r.DB.WithContext(ctx).Where("value = ?", value).First(&tok).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &tok, nil
}

func (r *GormRepo) FindRefreshByValueAndAgent(ctx context.Context, value, userAgent string) (*models.RefreshToken, error) {
	var tok models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("value = ? AND user_agent = ?", value, NormalizeAgent(userAgent)).
		First(&tok).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &tok, nil
}

func (r *GormRepo) DeleteRefreshByValue(ctx context.Context, value string) error {
	res := r.DB.WithContext(ctx).Where("value = ?", value).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *GormRepo) DeleteTokensForUser(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

func (r *GormRepo) CountTokensForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *GormRepo) CountTokens(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).Count(&count).Error
	return count, err
}
