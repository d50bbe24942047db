package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/incidents-platform/auth-service/internal/models"
	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/status"
	"github.com/incidents-platform/auth-service/internal/tokens"
)

const DefaultAccessTTL = 15 * time.Minute

// TokenIssuer is the stateless-bearer AuthScheme: short-lived signed access
// tokens plus rotating single-use refresh tokens tracked per device.
type TokenIssuer struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
	AccessTTL time.Duration
}

func NewTokenIssuer(r *repo.GormRepo, secret []byte, accessTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	return &TokenIssuer{Repo: r, JWTSecret: secret, AccessTTL: accessTTL}
}

func (t *TokenIssuer) IssueAccessToken(u *models.User) (string, error) {
	claims := tokens.AccessClaims{
		UserID: u.ID.String(),
		Email:  u.Email,
		Roles:  u.Roles,
	}
	return tokens.SignAccessToken(claims, t.JWTSecret, t.AccessTTL)
}

// Issue mints an access token and atomically rotates the refresh token for
// (account, device): any prior value for that device stops working.
func (t *TokenIssuer) Issue(ctx context.Context, u *models.User, device string) (*Credentials, error) {
	access, err := t.IssueAccessToken(u)
	if err != nil {
		return nil, internalErr(ctx, "tokens.issue", err)
	}
	tok, err := t.Repo.UpsertRefreshToken(ctx, u.ID, device)
	if err != nil {
		return nil, internalErr(ctx, "tokens.issue", err)
	}
	return &Credentials{
		AccessToken:      access,
		RefreshToken:     tok.Value,
		RefreshExpiresAt: tok.ExpiresAt,
	}, nil
}

// Refresh consumes the presented value and issues the next pair. Unknown,
// already-consumed and expired values all collapse to Unauthorized.
func (t *TokenIssuer) Refresh(ctx context.Context, value, device string) (*Credentials, error) {
	tok, err := t.Repo.ConsumeRefreshToken(ctx, value)
	if err != nil {
		if errors.Is(err, repo.ErrTokenNotFound) || errors.Is(err, repo.ErrTokenExpired) {
			return nil, status.ErrUnauthorized
		}
		return nil, internalErr(ctx, "tokens.refresh", err)
	}

	user, err := t.Repo.FindUserByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, status.ErrUnauthorized
		}
		return nil, internalErr(ctx, "tokens.refresh", err)
	}

	return t.Issue(ctx, user, device)
}

// RevokeAllForUser deletes every refresh token the account holds, across
// all devices. Used by block and delete.
func (t *TokenIssuer) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := t.Repo.DeleteTokensForUser(ctx, userID); err != nil {
		return internalErr(ctx, "tokens.revoke_all", err)
	}
	return nil
}

// VerifyAccessToken checks signature and expiry only; jwtAuth in
// UserService does the secondary liveness check against the store.
func (t *TokenIssuer) VerifyAccessToken(tokenStr string) (*tokens.AccessClaims, error) {
	claims, err := tokens.AccessClaimsFromToken(tokenStr, t.JWTSecret)
	if err != nil {
		return nil, status.ErrUnauthorized
	}
	return claims, nil
}
