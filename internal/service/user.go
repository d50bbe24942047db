package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/incidents-platform/auth-service/internal/hash"
	"github.com/incidents-platform/auth-service/internal/logging"
	"github.com/incidents-platform/auth-service/internal/models"
	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/status"
	"github.com/incidents-platform/auth-service/internal/tasks"
	"github.com/incidents-platform/auth-service/internal/tokens"
)

// UserService is the account lifecycle: signup, signin, federated login,
// token-mode me/logout and owner/admin deletion. Credentials come from
// whichever AuthScheme it is wired with.
type UserService struct {
	Repo     *repo.GormRepo
	Scheme   AuthScheme
	Issuer   *TokenIssuer
	Index    SearchIndex
	Notifier Notifier
	Events   EventPublisher
	Tasks    *tasks.Runner
}

type SignupInput struct {
	Email     string
	Password  string
	Name      string
	Surname   string
	UserAgent string
}

type ProviderProfile struct {
	Email     string
	Name      string
	Surname   string
	UserAgent string
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*UserAndCredentials, error) {
	l := logging.FromContext(ctx).With("svc", "user.signup")

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, internalErr(ctx, "user.signup", err)
	}

	user := models.User{
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: pwHash,
		Roles:        []string{models.RoleUser},
		Provider:     models.ProviderLocal,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("signup rejected", "status", 409, "reason", "email already taken")
			return nil, status.ErrConflict
		}
		return nil, internalErr(ctx, "user.signup", err)
	}

	s.submitIndexUpsert(&user)
	s.submitWelcomeEmail(&user)
	s.submitAccountCreated(&user)

	creds, err := s.Scheme.Issue(ctx, &user, in.UserAgent)
	if err != nil {
		return nil, err
	}
	return &UserAndCredentials{User: userDTO(&user), Credentials: *creds}, nil
}

func (s *UserService) Signin(ctx context.Context, email, password, userAgent string) (*UserAndCredentials, error) {
	l := logging.FromContext(ctx).With("svc", "user.signin")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "user.signin", err)
	}
	if user.Provider != models.ProviderLocal {
		l.Warn("signin rejected", "status", 409, "reason", "federated account")
		return nil, status.ErrConflict
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("signin rejected", "status", 401, "reason", "password mismatch")
		return nil, status.ErrUnauthorized
	}

	creds, err := s.Scheme.Issue(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}
	return &UserAndCredentials{User: userDTO(user), Credentials: *creds}, nil
}

// AuthByProvider reconciles a federated profile against the local account
// set. Linking and provider switching are deliberately not supported.
func (s *UserService) AuthByProvider(ctx context.Context, profile ProviderProfile, provider string) (*UserAndCredentials, error) {
	l := logging.FromContext(ctx).With("svc", "user.auth_by_provider", "provider", provider)

	if provider != models.ProviderGoogle && provider != models.ProviderYandex {
		return nil, status.ErrBadRequest
	}
	email := strings.TrimSpace(profile.Email)
	if email == "" {
		return nil, status.ErrBadRequest
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsBlocked {
			l.Warn("provider auth rejected", "status", 403, "reason", "account blocked")
			return nil, status.ErrForbidden
		}
		if user.Provider != provider {
			l.Warn("provider auth rejected", "status", 409, "reason", "provider mismatch")
			return nil, status.ErrConflict
		}
	case errors.Is(err, repo.ErrUserNotFound):
		user = &models.User{
			Name:     strings.TrimSpace(profile.Name),
			Surname:  strings.TrimSpace(profile.Surname),
			Email:    email,
			Roles:    []string{models.RoleUser},
			Provider: provider,
		}
		if err := s.Repo.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repo.ErrEmailTaken) {
				return nil, status.ErrConflict
			}
			return nil, internalErr(ctx, "user.auth_by_provider", err)
		}
		s.submitIndexUpsert(user)
		s.submitAccountCreated(user)
	default:
		return nil, internalErr(ctx, "user.auth_by_provider", err)
	}

	creds, err := s.Scheme.Issue(ctx, user, profile.UserAgent)
	if err != nil {
		return nil, err
	}
	return &UserAndCredentials{User: userDTO(user), Credentials: *creds}, nil
}

// Me resolves a refresh token presented by a given device to its account.
func (s *UserService) Me(ctx context.Context, refreshValue, userAgent string) (*UserDTO, error) {
	tok, err := s.Repo.FindRefreshByValueAndAgent(ctx, refreshValue, userAgent)
	if err != nil {
		if errors.Is(err, repo.ErrTokenNotFound) {
			return nil, status.ErrUnauthorized
		}
		return nil, internalErr(ctx, "user.me", err)
	}
	user, err := s.Repo.FindUserByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "user.me", err)
	}
	dto := userDTO(user)
	return &dto, nil
}

// Logout destroys the presented refresh token. Other devices keep theirs.
func (s *UserService) Logout(ctx context.Context, refreshValue string) error {
	if err := s.Repo.DeleteRefreshByValue(ctx, refreshValue); err != nil {
		if errors.Is(err, repo.ErrTokenNotFound) {
			return status.ErrUnauthorized
		}
		return internalErr(ctx, "user.logout", err)
	}
	return nil
}

// JWTAuth is the secondary check behind signature validity: the account
// must still exist, be unblocked, and carry the claimed email and roles.
func (s *UserService) JWTAuth(ctx context.Context, claims *tokens.AccessClaims) (*UserDTO, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, status.ErrUnauthorized
	}
	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "user.jwt_auth", err)
	}
	if strings.TrimSpace(user.Email) != strings.TrimSpace(claims.Email) || !rolesEqual(user.Roles, claims.Roles) {
		return nil, status.ErrNotFound
	}
	if user.IsBlocked {
		return nil, status.ErrForbidden
	}
	dto := userDTO(user)
	return &dto, nil
}

// DeleteUser removes the account when the requester is the owner or an
// admin. Admin accounts cannot be deleted. Cascades: refresh tokens,
// sessions, account row, search index entry.
func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID, requesterToken string) (*UserDTO, error) {
	claims, err := s.Issuer.VerifyAccessToken(requesterToken)
	if err != nil {
		return nil, status.ErrUnauthorized
	}

	user, err := s.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "user.delete", err)
	}

	isOwner := claims.UserID == userID.String()
	isAdmin := false
	for _, r := range claims.Roles {
		if r == models.RoleAdmin {
			isAdmin = true
		}
	}
	if !isOwner && !isAdmin {
		return nil, status.ErrForbidden
	}
	if user.IsAdmin() {
		return nil, status.ErrConflict
	}

	if err := s.Repo.DeleteTokensForUser(ctx, user.ID); err != nil {
		return nil, internalErr(ctx, "user.delete", err)
	}
	if err := s.Repo.DeleteSessionsForUser(ctx, user.ID); err != nil {
		return nil, internalErr(ctx, "user.delete", err)
	}
	if err := s.Repo.DeleteUser(ctx, user.ID); err != nil {
		return nil, internalErr(ctx, "user.delete", err)
	}

	s.submitIndexDelete(user)
	s.submitAccountDeleted(user)

	dto := userDTO(user)
	return &dto, nil
}

func rolesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, r := range a {
		set[r] = struct{}{}
	}
	for _, r := range b {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

func (s *UserService) submitIndexUpsert(u *models.User) {
	if s.Index == nil || s.Tasks == nil {
		return
	}
	doc := userDoc(u)
	s.Tasks.Submit("search.upsert_user", func(ctx context.Context) error {
		return s.Index.UpsertUser(ctx, doc)
	})
}

func (s *UserService) submitIndexDelete(u *models.User) {
	if s.Index == nil || s.Tasks == nil {
		return
	}
	id := u.ID.String()
	s.Tasks.Submit("search.delete_user", func(ctx context.Context) error {
		return s.Index.DeleteUser(ctx, id)
	})
}

func (s *UserService) submitWelcomeEmail(u *models.User) {
	if s.Notifier == nil || s.Tasks == nil {
		return
	}
	email, name := u.Email, u.Name
	s.Tasks.Submit("notify.send_welcome", func(ctx context.Context) error {
		return s.Notifier.SendWelcome(ctx, email, name)
	})
}

func (s *UserService) submitAccountCreated(u *models.User) {
	if s.Events == nil || s.Tasks == nil {
		return
	}
	id, email := u.ID.String(), u.Email
	s.Tasks.Submit("events.account_created", func(ctx context.Context) error {
		return s.Events.AccountCreated(ctx, id, email)
	})
}

func (s *UserService) submitAccountDeleted(u *models.User) {
	if s.Events == nil || s.Tasks == nil {
		return
	}
	id := u.ID.String()
	s.Tasks.Submit("events.account_deleted", func(ctx context.Context) error {
		return s.Events.AccountDeleted(ctx, id)
	})
}
