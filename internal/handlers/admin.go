package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/incidents-platform/auth-service/internal/service"
)

type AdminHandler struct {
	Admin  *service.AdminService
	Search *service.ReindexService
}

func (h *AdminHandler) Login(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Admin.AdminLogin(c.Request().Context(), req.Name, req.Password, device(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) BlockUser(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	user, err := h.Admin.BlockUser(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) UnblockUser(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	user, err := h.Admin.UnblockUser(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) UpdateAdmin(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	var req struct {
		Name        string `json:"name"`
		Surname     string `json:"surname"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Admin.UpdateAdmin(c.Request().Context(), service.AdminUpdateInput{
		ID:          id,
		Name:        req.Name,
		Surname:     req.Surname,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		UserAgent:   device(c),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Surname     string `json:"surname"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Admin.CreateUserByAdmin(c.Request().Context(), service.CreateUserInput{
		Name:        req.Name,
		Surname:     req.Surname,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) AddAdminRole(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	user, err := h.Admin.AddAdminRoleToUser(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) GetAllUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	res, err := h.Admin.GetAllUsers(c.Request().Context(), page, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) GetStats(c echo.Context) error {
	stats, err := h.Admin.GetStats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) SearchUsers(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query error")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	res, err := h.Search.SearchUsers(c.Request().Context(), q, page, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
