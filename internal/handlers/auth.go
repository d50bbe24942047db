package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/service"
)

// AuthHandler is the bearer-token face of the gateway.
type AuthHandler struct {
	Users  *service.UserService
	Tokens *service.TokenIssuer
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Surname  string `json:"surname"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Users.Signup(c.Request().Context(), service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Surname:   req.Surname,
		UserAgent: device(c),
	})
	if err != nil {
		return httpError(err)
	}

	h.setRefreshCookie(c, res.Credentials)
	return c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Signin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Users.Signin(c.Request().Context(), req.Email, req.Password, device(c))
	if err != nil {
		return httpError(err)
	}

	h.setRefreshCookie(c, res.Credentials)
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	value, err := refreshValue(c)
	if err != nil {
		return err
	}

	creds, err := h.Tokens.Refresh(c.Request().Context(), value, device(c))
	if err != nil {
		return httpError(err)
	}

	h.setRefreshCookie(c, *creds)
	return c.JSON(http.StatusOK, creds)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	value, err := refreshValue(c)
	if err != nil {
		return err
	}

	if err := h.Users.Logout(c.Request().Context(), value); err != nil {
		return httpError(err)
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(CreateCookie("refreshToken", "", "/", expired))
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	value, err := refreshValue(c)
	if err != nil {
		return err
	}

	user, err := h.Users.Me(c.Request().Context(), value, device(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Authorize re-validates a bearer token against the store: signature plus
// account liveness and role match.
func (h *AuthHandler) Authorize(c echo.Context) error {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}
	claims, err := h.Tokens.VerifyAccessToken(tokenStr)
	if err != nil {
		return httpError(err)
	}
	if _, err := h.Users.JWTAuth(c.Request().Context(), claims); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) AuthByProvider(c echo.Context) error {
	var req struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Surname string `json:"surname"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Users.AuthByProvider(c.Request().Context(), service.ProviderProfile{
		Email:     req.Email,
		Name:      req.Name,
		Surname:   req.Surname,
		UserAgent: device(c),
	}, c.Param("provider"))
	if err != nil {
		return httpError(err)
	}

	h.setRefreshCookie(c, res.Credentials)
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) DeleteUser(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	user, err := h.Users.DeleteUser(c.Request().Context(), id, tokenStr)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, creds service.Credentials) {
	if creds.RefreshToken == "" {
		return
	}
	c.SetCookie(CreateCookie("refreshToken", creds.RefreshToken, "/", time.Now().Add(repo.RefreshTTL)))
}

// refreshValue reads the token from the cookie, falling back to the body
// for non-browser callers.
func refreshValue(c echo.Context) (string, error) {
	if cookie, err := c.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}
	return req.RefreshToken, nil
}
