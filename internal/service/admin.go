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
	"github.com/incidents-platform/auth-service/internal/util"
)

// AdminService covers account governance: admin login, block/unblock, role
// escalation, admin-driven creation and edits, listings and stats.
type AdminService struct {
	Repo   *repo.GormRepo
	Scheme AuthScheme
	Issuer *TokenIssuer
	Index  SearchIndex
	Events EventPublisher
	Tasks  *tasks.Runner
}

type AdminUpdateInput struct {
	ID          uuid.UUID
	Name        string
	Surname     string
	Email       string
	PhoneNumber string
	UserAgent   string
}

type CreateUserInput struct {
	Name        string
	Surname     string
	Email       string
	Password    string
	PhoneNumber string
}

// AdminLogin is signin filtered to accounts holding the admin role,
// keyed by name rather than email.
func (s *AdminService) AdminLogin(ctx context.Context, name, password, userAgent string) (*UserAndCredentials, error) {
	l := logging.FromContext(ctx).With("svc", "admin.login")

	user, err := s.Repo.FindAdminByName(ctx, name)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "admin.login", err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("admin login rejected", "status", 401, "reason", "password mismatch")
		return nil, status.ErrUnauthorized
	}

	creds, err := s.Scheme.Issue(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}
	return &UserAndCredentials{User: userDTO(user), Credentials: *creds}, nil
}

// BlockUser sets isBlocked and revokes every refresh token the account
// holds. Admin accounts are block-exempt and answer Conflict.
func (s *AdminService) BlockUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "admin.block_user", err)
	}
	if user.IsAdmin() {
		return nil, status.ErrConflict
	}

	user.IsBlocked = true
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, internalErr(ctx, "admin.block_user", err)
	}
	if err := s.Issuer.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}

	dto := userDTO(user)
	return &dto, nil
}

func (s *AdminService) UnblockUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "admin.unblock_user", err)
	}

	user.IsBlocked = false
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, internalErr(ctx, "admin.unblock_user", err)
	}

	dto := userDTO(user)
	return &dto, nil
}

// UpdateAdmin edits an admin account's profile and re-issues credentials.
// Non-admin targets are Forbidden; email collisions with other accounts
// are Conflict.
func (s *AdminService) UpdateAdmin(ctx context.Context, in AdminUpdateInput) (*UserAndCredentials, error) {
	user, err := s.Repo.FindUserByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "admin.update", err)
	}
	if !user.IsAdmin() {
		return nil, status.ErrForbidden
	}

	taken, err := s.Repo.EmailTaken(ctx, in.Email, in.ID)
	if err != nil {
		return nil, internalErr(ctx, "admin.update", err)
	}
	if taken {
		return nil, status.ErrConflict
	}

	user.Name = strings.TrimSpace(in.Name)
	user.Surname = strings.TrimSpace(in.Surname)
	user.Email = strings.TrimSpace(in.Email)
	user.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, internalErr(ctx, "admin.update", err)
	}

	s.submitIndexUpsert(user)

	creds, err := s.Scheme.Issue(ctx, user, in.UserAgent)
	if err != nil {
		return nil, err
	}
	return &UserAndCredentials{User: userDTO(user), Credentials: *creds}, nil
}

// CreateUserByAdmin provisions a local account without issuing credentials.
func (s *AdminService) CreateUserByAdmin(ctx context.Context, in CreateUserInput) (*UserDTO, error) {
	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, internalErr(ctx, "admin.create_user", err)
	}

	user := models.User{
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Email:        strings.TrimSpace(in.Email),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: pwHash,
		Roles:        []string{models.RoleUser},
		Provider:     models.ProviderLocal,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, status.ErrConflict
		}
		return nil, internalErr(ctx, "admin.create_user", err)
	}

	s.submitIndexUpsert(&user)
	s.submitAccountCreated(&user)

	dto := userDTO(&user)
	return &dto, nil
}

// AddAdminRoleToUser appends the admin role. The role set is append-only;
// a second add is Conflict, and there is no remove path.
func (s *AdminService) AddAdminRoleToUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrNotFound
		}
		return nil, internalErr(ctx, "admin.add_role", err)
	}
	if user.IsAdmin() {
		return nil, status.ErrConflict
	}

	user.Roles = append(user.Roles, models.RoleAdmin)
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, internalErr(ctx, "admin.add_role", err)
	}

	s.submitIndexUpsert(user)

	dto := userDTO(user)
	return &dto, nil
}

// GetAllUsers pages through accounts joining per-account active refresh
// token counts.
func (s *AdminService) GetAllUsers(ctx context.Context, page, limit int) (*UsersPage, error) {
	from, size := util.Calculate(page, limit)

	total, err := s.Repo.CountUsers(ctx)
	if err != nil {
		return nil, internalErr(ctx, "admin.get_all_users", err)
	}
	users, err := s.Repo.ListUsers(ctx, from, size)
	if err != nil {
		return nil, internalErr(ctx, "admin.get_all_users", err)
	}

	dtos := make([]UserDTO, len(users))
	for i := range users {
		dto := userDTO(&users[i])
		count, err := s.Repo.CountTokensForUser(ctx, users[i].ID)
		if err != nil {
			return nil, internalErr(ctx, "admin.get_all_users", err)
		}
		dto.TokensCount = count
		dtos[i] = dto
	}

	if page < 1 {
		page = 1
	}
	return &UsersPage{Total: total, Page: page, Limit: size, Users: dtos}, nil
}

func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	total, err := s.Repo.CountUsers(ctx)
	if err != nil {
		return nil, internalErr(ctx, "admin.get_stats", err)
	}
	blocked, err := s.Repo.CountBlockedUsers(ctx)
	if err != nil {
		return nil, internalErr(ctx, "admin.get_stats", err)
	}
	admins, err := s.Repo.CountAdmins(ctx)
	if err != nil {
		return nil, internalErr(ctx, "admin.get_stats", err)
	}
	activeTokens, err := s.Repo.CountTokens(ctx)
	if err != nil {
		return nil, internalErr(ctx, "admin.get_stats", err)
	}
	activated, err := s.Repo.CountActivatedUsers(ctx)
	if err != nil {
		return nil, internalErr(ctx, "admin.get_stats", err)
	}

	return &Stats{
		Total:        total,
		Blocked:      blocked,
		Admins:       admins,
		ActiveTokens: activeTokens,
		Activated:    activated,
	}, nil
}

func (s *AdminService) submitIndexUpsert(u *models.User) {
	if s.Index == nil || s.Tasks == nil {
		return
	}
	doc := userDoc(u)
	s.Tasks.Submit("search.upsert_user", func(ctx context.Context) error {
		return s.Index.UpsertUser(ctx, doc)
	})
}

func (s *AdminService) submitAccountCreated(u *models.User) {
	if s.Events == nil || s.Tasks == nil {
		return
	}
	id, email := u.ID.String(), u.Email
	s.Tasks.Submit("events.account_created", func(ctx context.Context) error {
		return s.Events.AccountCreated(ctx, id, email)
	})
}
