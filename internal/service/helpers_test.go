package service

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/incidents-platform/auth-service/internal/hash"
	"github.com/incidents-platform/auth-service/internal/logging"
	"github.com/incidents-platform/auth-service/internal/models"
	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/search"
	"github.com/incidents-platform/auth-service/internal/tasks"
)

type testEnv struct {
	Repo     *repo.GormRepo
	Issuer   *TokenIssuer
	Sessions *SessionManager
	Users    *UserService
	Admin    *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Session{}))

	store := repo.New(db)
	issuer := NewTokenIssuer(store, []byte("test-jwt-secret"), 0)
	sessions := NewSessionManager(store)

	return &testEnv{
		Repo:     store,
		Issuer:   issuer,
		Sessions: sessions,
		Users:    &UserService{Repo: store, Scheme: issuer, Issuer: issuer},
		Admin:    &AdminService{Repo: store, Scheme: issuer, Issuer: issuer},
	}
}

func (e *testEnv) createUser(t *testing.T, email, password string, roles []string) *models.User {
	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)

	u := models.User{
		Name:         "Test",
		Surname:      "User",
		Email:        email,
		PasswordHash: pwHash,
		Roles:        roles,
		Provider:     models.ProviderLocal,
	}
	require.NoError(t, e.Repo.CreateUser(context.Background(), &u))
	return &u
}

type fakeIndex struct {
	mu      sync.Mutex
	upserts []search.UserDoc
	deletes []string
	bulks   [][]search.UserDoc
}

func (f *fakeIndex) UpsertUser(_ context.Context, doc search.UserDoc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, doc)
	return nil
}

func (f *fakeIndex) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeIndex) BulkUpsert(_ context.Context, docs []search.UserDoc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulks = append(f.bulks, docs)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _, _ int) (int64, []search.UserDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.upserts)), f.upserts, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	welcomes []string
}

func (f *fakeNotifier) SendWelcome(_ context.Context, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, email)
	return nil
}

type fakeEvents struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (f *fakeEvents) AccountCreated(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	return nil
}

func (f *fakeEvents) AccountDeleted(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func testContext() context.Context {
	return logging.IntoContext(context.Background(), logging.New("error"))
}

func newTestRunner() *tasks.Runner {
	return tasks.NewRunner(logging.New("error"))
}
