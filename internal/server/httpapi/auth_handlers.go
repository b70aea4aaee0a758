package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/server/services"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// oneTimeTokenError reports a bad verification or reset token as a client
// error rather than a failed authentication.
func oneTimeTokenError(err error) error {
	if errors.Is(err, common.ErrInvalidToken) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired token")
	}
	return err
}

func (s *Server) register(c echo.Context) error {
	var req services.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := s.users.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) availability(c echo.Context) error {
	a, err := s.users.CheckAvailability(c.Request().Context(), c.QueryParam("email"), c.QueryParam("phone"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) verifyEmail(c echo.Context) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.users.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return oneTimeTokenError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) resendVerification(c echo.Context) error {
	if err := s.users.ResendVerification(c.Request().Context(), userID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := s.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := s.users.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) logout(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.users.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) forgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := s.users.ForgotPassword(c.Request().Context(), req.Email)
	if errors.Is(err, common.ErrorNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "No account found for this email.")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) resetPassword(c echo.Context) error {
	var req resetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.users.ResetPassword(c.Request().Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		return oneTimeTokenError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
