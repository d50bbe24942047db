package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/incidents-platform/auth-service/internal/handlers"
	"github.com/incidents-platform/auth-service/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	SessionHandler *handlers.SessionHandler
	AdminHandler   *handlers.AdminHandler
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMw := auth.NewSimpleAuth(d.JWTSecret)

	e.POST("/signup", d.AuthHandler.Signup)
	e.POST("/signin", d.AuthHandler.Signin)
	e.POST("/refresh", d.AuthHandler.Refresh)
	e.POST("/logout", d.AuthHandler.Logout)
	e.GET("/me", d.AuthHandler.Me)
	e.GET("/authorize", d.AuthHandler.Authorize)
	e.POST("/auth/:provider", d.AuthHandler.AuthByProvider)
	e.DELETE("/users/:id", d.AuthHandler.DeleteUser)

	session := e.Group("/session")
	session.POST("/signup", d.SessionHandler.Signup)
	session.POST("/signin", d.SessionHandler.Signin)
	session.GET("/me", d.SessionHandler.Me)
	session.POST("/refresh", d.SessionHandler.Refresh)
	session.GET("/authorize", d.SessionHandler.Authorize)
	session.POST("/logout", d.SessionHandler.Logout)

	e.POST("/admin/login", d.AdminHandler.Login)

	admin := e.Group("/admin")
	admin.Use(authMw.AdminOnly)
	admin.POST("/users", d.AdminHandler.CreateUser)
	admin.GET("/users", d.AdminHandler.GetAllUsers)
	admin.GET("/users/search", d.AdminHandler.SearchUsers)
	admin.POST("/users/:id/block", d.AdminHandler.BlockUser)
	admin.POST("/users/:id/unblock", d.AdminHandler.UnblockUser)
	admin.POST("/users/:id/roles/admin", d.AdminHandler.AddAdminRole)
	admin.PUT("/users/:id", d.AdminHandler.UpdateAdmin)
	admin.GET("/stats", d.AdminHandler.GetStats)
}
