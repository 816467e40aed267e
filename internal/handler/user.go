package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/audio-vault/internal/middleware"
	"github.com/iliyamo/audio-vault/internal/model"
)

// UserHandler serves the authenticated profile endpoints.
type UserHandler struct {
	Users UserStore
}

func NewUserHandler(users UserStore) *UserHandler { return &UserHandler{Users: users} }

type userResp struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Sex       string `json:"sex"`
}

func toUserResp(u model.User) userResp {
	return userResp{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Sex: u.Sex}
}

type userUpdateReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Sex       *string `json:"sex"`
}

// Me returns the profile of the authenticated user.
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, toUserResp(middleware.CurrentUser(c)))
}

// UpdateMe patches the mutable profile fields (first name, last name, sex).
// Absent fields are left unchanged; the updated profile is returned.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := middleware.CurrentUser(c)
	if err := h.Users.UpdateProfile(ctx, u.ID, req.FirstName, req.LastName, req.Sex); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	updated, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(updated))
}
