package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/incidents-platform/auth-service/internal/models"
	"github.com/incidents-platform/auth-service/internal/tokens"
)

type SimpleAuth struct {
	JWTSecret []byte
}

func NewSimpleAuth(secret []byte) *SimpleAuth {
	return &SimpleAuth{JWTSecret: secret}
}

// RequireAuth validates the bearer token by signature and expiry only.
// Handlers that need store-level liveness call jwtAuth themselves.
func (m *SimpleAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.claimsFromRequest(c)
		if err != nil {
			return err
		}
		setUserContext(c, claims)
		return next(c)
	}
}

func (m *SimpleAuth) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.claimsFromRequest(c)
		if err != nil {
			return err
		}
		for _, r := range claims.Roles {
			if r == models.RoleAdmin {
				setUserContext(c, claims)
				return next(c)
			}
		}
		return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
	}
}

func (m *SimpleAuth) claimsFromRequest(c echo.Context) (*tokens.AccessClaims, error) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	claims, err := tokens.AccessClaimsFromToken(strings.TrimPrefix(auth, "Bearer "), m.JWTSecret)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("roles", claims.Roles)
}
