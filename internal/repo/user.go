package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/incidents-platform/auth-service/internal/models"
)

// CreateUser inserts u unless the email is already taken. Relies on
// FirstOrCreate + the unique email index, same race either way.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.TrimSpace(u.Email)
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindAdminByName returns the first account with that name holding the
// admin role. Roles live in a serialized column, so the role check happens
// in Go rather than SQL.
func (r *GormRepo) FindAdminByName(ctx context.Context, name string) (*models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).Find(&users).Error
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].IsAdmin() {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *GormRepo) SaveUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Save(u).Error
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.User{}).Error
}

func (r *GormRepo) EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", strings.TrimSpace(email))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *GormRepo) ListAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).Find(&users).Error
	return users, err
}

func (r *GormRepo) FindUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *GormRepo) CountBlockedUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Where("is_blocked = ?", true).Count(&count).Error
	return count, err
}

func (r *GormRepo) CountActivatedUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Where("activated = ?", true).Count(&count).Error
	return count, err
}

// CountAdmins matches against the serialized roles column; works on both
// postgres and the sqlite test driver.
func (r *GormRepo) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("roles LIKE ?", "%\""+models.RoleAdmin+"\"%").
		Count(&count).Error
	return count, err
}
