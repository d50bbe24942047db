// Package service holds the credential and account lifecycle logic. Every
// public operation returns a status-tagged error from internal/status;
// storage failures are logged and normalized to status.ErrInternal here.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/incidents-platform/auth-service/internal/logging"
	"github.com/incidents-platform/auth-service/internal/models"
	"github.com/incidents-platform/auth-service/internal/search"
	"github.com/incidents-platform/auth-service/internal/status"
)

// Credentials is what an AuthScheme hands back after a successful login.
// Token-backed schemes fill the token fields, session-backed ones the
// session fields.
type Credentials struct {
	AccessToken      string    `json:"access_token,omitempty"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitempty"`
	SessionID        string    `json:"session_id,omitempty"`
	CSRFToken        string    `json:"csrf_token,omitempty"`
	SessionExpiresAt time.Time `json:"session_expires_at,omitempty"`
}

// AuthScheme issues credentials for an authenticated account. The two
// implementations are TokenIssuer (stateless bearer + rotating refresh)
// and SessionManager (cookie session + csrf).
type AuthScheme interface {
	Issue(ctx context.Context, u *models.User, device string) (*Credentials, error)
}

type UserDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Surname     string   `json:"surname"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Activated   bool     `json:"activated"`
	IsBlocked   bool     `json:"is_blocked"`
	Roles       []string `json:"roles"`
	Provider    string   `json:"provider"`
	TokensCount int64    `json:"tokens_count,omitempty"`
}

type UserAndCredentials struct {
	User        UserDTO     `json:"user"`
	Credentials Credentials `json:"credentials"`
}

type UsersPage struct {
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Users []UserDTO `json:"users"`
}

type Stats struct {
	Total        int64 `json:"total"`
	Blocked      int64 `json:"blocked"`
	Admins       int64 `json:"admins"`
	ActiveTokens int64 `json:"active_tokens"`
	Activated    int64 `json:"activated"`
}

// SearchIndex is the consumed search collaborator. All calls to it are
// dispatched fire-and-forget through tasks.Runner.
type SearchIndex interface {
	UpsertUser(ctx context.Context, doc search.UserDoc) error
	DeleteUser(ctx context.Context, id string) error
	BulkUpsert(ctx context.Context, docs []search.UserDoc) error
	Search(ctx context.Context, query string, from, size int) (int64, []search.UserDoc, error)
}

// Notifier is the consumed email collaborator, also fire-and-forget.
type Notifier interface {
	SendWelcome(ctx context.Context, email, name string) error
}

// EventPublisher broadcasts account lifecycle changes, fire-and-forget.
type EventPublisher interface {
	AccountCreated(ctx context.Context, id, email string) error
	AccountDeleted(ctx context.Context, id string) error
}

func userDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:          u.ID.String(),
		Name:        strings.TrimSpace(u.Name),
		Surname:     strings.TrimSpace(u.Surname),
		Email:       strings.TrimSpace(u.Email),
		PhoneNumber: strings.TrimSpace(u.PhoneNumber),
		Activated:   u.Activated,
		IsBlocked:   u.IsBlocked,
		Roles:       u.Roles,
		Provider:    u.Provider,
	}
}

func userDoc(u *models.User) search.UserDoc {
	return search.UserDoc{
		ID:      u.ID.String(),
		Name:    u.Name,
		Surname: u.Surname,
		Email:   u.Email,
	}
}

// internalErr logs the cause and returns the bare taxonomy error so no
// storage detail crosses the operation boundary.
func internalErr(ctx context.Context, op string, err error) error {
	logging.FromContext(ctx).Error("operation failed", "svc", op, "error", err)
	return status.ErrInternal
}
