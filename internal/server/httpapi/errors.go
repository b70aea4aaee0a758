package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps service errors onto HTTP status codes and client messages.
func statusFor(err error) (int, errorResponse) {
	var verr *common.ValidationError
	var herr *echo.HTTPError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields}
	case errors.As(err, &herr):
		msg, ok := herr.Message.(string)
		if !ok {
			msg = http.StatusText(herr.Code)
		}
		return herr.Code, errorResponse{Error: msg}
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, errorResponse{Error: "refresh token expired"}
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "invalid email or password"}
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, errorResponse{Error: "unauthenticated"}
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden"}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, common.ErrShareExpired):
		return http.StatusGone, errorResponse{Error: "This link has expired"}
	case errors.Is(err, common.ErrShareRevoked):
		return http.StatusGone, errorResponse{Error: "Access to this file has been revoked"}
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorResponse{Error: "too many attempts, try again later"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

// handleError is the echo error handler: every handler returns service
// errors as is and the mapping happens here.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "error response not written", "error", err)
	}
}
