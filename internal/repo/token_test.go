package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/incidents-platform/auth-service/internal/models"
)

func initTestDB(t *testing.T) *GormRepo {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Session{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return New(db)
}

func TestUpsertRefreshToken_OneRowPerDevice(t *testing.T) {
	r := initTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := r.UpsertRefreshToken(ctx, userID, "device-a")
	require.NoError(t, err)

	second, err := r.UpsertRefreshToken(ctx, userID, "device-a")
	require.NoError(t, err)
	require.NotEqual(t, first.Value, second.Value)

	var count int64
	require.NoError(t, r.DB.Model(&models.RefreshToken{}).
		Where("user_id = ? AND user_agent = ?", userID, "device-a").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// the superseded value is gone
	_, err = r.FindRefreshByValue(ctx, first.Value)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = r.FindRefreshByValue(ctx, second.Value)
	assert.NoError(t, err)
}

func TestUpsertRefreshToken_DevicesAreIndependent(t *testing.T) {
	r := initTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	a, err := r.UpsertRefreshToken(ctx, userID, "device-a")
	require.NoError(t, err)
	b, err := r.UpsertRefreshToken(ctx, userID, "device-b")
	require.NoError(t, err)

	_, err = r.UpsertRefreshToken(ctx, userID, "device-a")
	require.NoError(t, err)

	// device-b keeps its token after device-a rotated
	got, err := r.FindRefreshByValue(ctx, b.Value)
	require.NoError(t, err)
	assert.Equal(t, "device-b", got.UserAgent)

	_, err = r.FindRefreshByValue(ctx, a.Value)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestUpsertRefreshToken_EmptyAgentNormalized(t *testing.T) {
	r := initTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	tok, err := r.UpsertRefreshToken(ctx, userID, "   ")
	require.NoError(t, err)
	assert.Equal(t, NoUserAgent, tok.UserAgent)
}

func TestConsumeRefreshToken_SingleUse(t *testing.T) {
	r := initTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	tok, err := r.UpsertRefreshToken(ctx, userID, "device-a")
	require.NoError(t, err)

	got, err := r.ConsumeRefreshToken(ctx, tok.Value)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	_, err = r.ConsumeRefreshToken(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeRefreshToken_ExpiredDeletesRow(t *testing.T) {
	r := initTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	tok := models.RefreshToken{
		Value:     uuid.NewString(),
		UserID:    userID,
		UserAgent: "device-a",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, r.DB.Create(&tok).Error)

	_, err := r.ConsumeRefreshToken(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = r.FindRefreshByValue(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestDeleteTokensForUser(t *testing.T) {
	r := initTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	_, err := r.UpsertRefreshToken(ctx, userID, "device-a")
	require.NoError(t, err)
	_, err = r.UpsertRefreshToken(ctx, userID, "device-b")
	require.NoError(t, err)
	kept, err := r.UpsertRefreshToken(ctx, other, "device-a")
	require.NoError(t, err)

	require.NoError(t, r.DeleteTokensForUser(ctx, userID))

	count, err := r.CountTokensForUser(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	_, err = r.FindRefreshByValue(ctx, kept.Value)
	assert.NoError(t, err)
}

func TestCreateUser_EmailUnique(t *testing.T) {
	r := initTestDB(t)
	ctx := context.Background()

	u := models.User{
		Name:     "A",
		Surname:  "B",
		Email:    "a@x.com",
		Roles:    []string{models.RoleUser},
		Provider: models.ProviderLocal,
	}
	require.NoError(t, r.CreateUser(ctx, &u))

	dup := models.User{
		Name:     "C",
		Surname:  "D",
		Email:    " a@x.com ",
		Roles:    []string{models.RoleUser},
		Provider: models.ProviderLocal,
	}
	err := r.CreateUser(ctx, &dup)
	assert.ErrorIs(t, err, ErrEmailTaken)

	count, err := r.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
