package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/service"
)

const (
	sessionCookie = "session_id"
	csrfHeader    = "X-CSRF-Token"
)

// SessionHandler is the cookie-session face of the gateway. Users here is
// a UserService wired with the SessionManager scheme, so signup/signin
// yield a session id and csrf token instead of bearer tokens.
type SessionHandler struct {
	Users    *service.UserService
	Sessions *service.SessionManager
}

func (h *SessionHandler) Signup(c echo.Context) error {
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

	h.setSessionCookie(c, res.Credentials)
	return c.JSON(http.StatusCreated, res)
}

func (h *SessionHandler) Signin(c echo.Context) error {
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

	h.setSessionCookie(c, res.Credentials)
	return c.JSON(http.StatusOK, res)
}

func (h *SessionHandler) Me(c echo.Context) error {
	sessionID, err := sessionIDFromCookie(c)
	if err != nil {
		return err
	}

	me, err := h.Sessions.Me(c.Request().Context(), sessionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, me)
}

// Refresh extends the session; session id and csrf token stay the same.
func (h *SessionHandler) Refresh(c echo.Context) error {
	sessionID, err := sessionIDFromCookie(c)
	if err != nil {
		return err
	}

	s, err := h.Sessions.RefreshSession(c.Request().Context(), sessionID)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(CreateCookie(sessionCookie, s.SessionID, "/", s.ExpiresAt))
	return c.JSON(http.StatusOK, echo.Map{"session_id": s.SessionID})
}

func (h *SessionHandler) Authorize(c echo.Context) error {
	sessionID, err := sessionIDFromCookie(c)
	if err != nil {
		return err
	}

	if err := h.Sessions.Authorize(c.Request().Context(), sessionID, c.Request().Header.Get(csrfHeader)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) Logout(c echo.Context) error {
	sessionID, err := sessionIDFromCookie(c)
	if err != nil {
		return err
	}

	if err := h.Sessions.DestroySession(c.Request().Context(), sessionID, c.Request().Header.Get(csrfHeader)); err != nil {
		return httpError(err)
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(CreateCookie(sessionCookie, "", "/", expired))
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) setSessionCookie(c echo.Context, creds service.Credentials) {
	if creds.SessionID == "" {
		return
	}
	c.SetCookie(CreateCookie(sessionCookie, creds.SessionID, "/", time.Now().Add(repo.SessionTTL)))
}

func sessionIDFromCookie(c echo.Context) (string, error) {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return cookie.Value, nil
}
