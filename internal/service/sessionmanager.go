package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/incidents-platform/auth-service/internal/models"
	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/status"
)

// SessionManager is the stateful AuthScheme: server-tracked cookie sessions
// paired with a csrf token for state-changing calls.
type SessionManager struct {
	Repo *repo.GormRepo
}

func NewSessionManager(r *repo.GormRepo) *SessionManager {
	return &SessionManager{Repo: r}
}

func (m *SessionManager) Issue(ctx context.Context, u *models.User, _ string) (*Credentials, error) {
	s, err := m.Repo.CreateSession(ctx, u.ID)
	if err != nil {
		return nil, internalErr(ctx, "session.create", err)
	}
	return &Credentials{
		SessionID:        s.SessionID,
		CSRFToken:        s.CSRFToken,
		SessionExpiresAt: s.ExpiresAt,
	}, nil
}

// validate loads the session, deleting it lazily when past expiry.
// SessionExpired is distinct from Unauthorized so clients can prompt a
// re-login instead of treating it as a bad credential.
func (m *SessionManager) validate(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := m.Repo.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrSessionNotFound) {
			return nil, status.ErrUnauthorized
		}
		return nil, internalErr(ctx, "session.validate", err)
	}
	if time.Now().After(s.ExpiresAt) {
		if err := m.Repo.DeleteSession(ctx, sessionID); err != nil {
			return nil, internalErr(ctx, "session.validate", err)
		}
		return nil, status.ErrSessionExpired
	}
	return s, nil
}

// ValidateSession resolves the session to its account.
func (m *SessionManager) ValidateSession(ctx context.Context, sessionID string) (*models.User, *models.Session, error) {
	s, err := m.validate(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	user, err := m.Repo.FindUserByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, nil, status.ErrNotFound
		}
		return nil, nil, internalErr(ctx, "session.validate", err)
	}
	return user, s, nil
}

// SessionMe echoes the account plus the session pair so browser clients
// can rehydrate their csrf token after a reload.
type SessionMe struct {
	User      UserDTO `json:"user"`
	SessionID string  `json:"session_id"`
	CSRFToken string  `json:"csrf_token"`
}

func (m *SessionManager) Me(ctx context.Context, sessionID string) (*SessionMe, error) {
	user, s, err := m.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionMe{
		User:      userDTO(user),
		SessionID: s.SessionID,
		CSRFToken: s.CSRFToken,
	}, nil
}

// RefreshSession extends expiry by one session TTL. SessionID and csrf
// token never change here.
func (m *SessionManager) RefreshSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := m.validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.ExpiresAt = time.Now().Add(repo.SessionTTL)
	if err := m.Repo.SaveSession(ctx, s); err != nil {
		return nil, internalErr(ctx, "session.refresh", err)
	}
	return s, nil
}

// Authorize validates the session and checks the csrf token. A mismatch is
// Forbidden and leaves the session intact.
func (m *SessionManager) Authorize(ctx context.Context, sessionID, csrfToken string) error {
	s, err := m.validate(ctx, sessionID)
	if err != nil {
		return err
	}
	if !csrfEqual(s.CSRFToken, csrfToken) {
		return status.ErrForbidden
	}
	return nil
}

// DestroySession is authorize-then-delete.
func (m *SessionManager) DestroySession(ctx context.Context, sessionID, csrfToken string) error {
	s, err := m.validate(ctx, sessionID)
	if err != nil {
		return err
	}
	if !csrfEqual(s.CSRFToken, csrfToken) {
		return status.ErrForbidden
	}
	if err := m.Repo.DeleteSession(ctx, s.SessionID); err != nil {
		return internalErr(ctx, "session.destroy", err)
	}
	return nil
}

func csrfEqual(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
