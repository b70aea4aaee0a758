package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/docuvault/internal/server/services"
	"github.com/labstack/echo/v4"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) getProfile(c echo.Context) error {
	user, err := s.users.GetProfile(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) updateProfile(c echo.Context) error {
	var req services.ProfileUpdate
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := s.users.UpdateProfile(c.Request().Context(), userID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) changePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := s.users.ChangePassword(c.Request().Context(), userID(c), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
