package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/server/auth"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const userIDKey = "userID"

// requireAuth accepts requests carrying a valid bearer access token and
// stores the user id on the context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// noStore keeps share tokens out of referrers and shared caches.
func noStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Referrer-Policy", "no-referrer")
		h.Set(echo.HeaderCacheControl, "no-store")
		return next(c)
	}
}

// requestLogger writes one structured line per request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			path := v.URIPath
			if strings.HasPrefix(path, "/share/") {
				path = "/share/" + maskSharePath(strings.TrimPrefix(path, "/share/"))
			}
			args := []any{
				"method", v.Method,
				"path", path,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if uid := userID(c); uid != "" {
				args = append(args, "user_id", uid)
			}
			if v.Status >= http.StatusInternalServerError {
				s.logger.Error(ctx, "request", append(args, "error", v.Error)...)
				return nil
			}
			s.logger.Info(ctx, "request", args...)
			return nil
		},
	})
}

// maskSharePath masks the token segment of token[/view|/download].
func maskSharePath(rest string) string {
	token, suffix, found := strings.Cut(rest, "/")
	if found {
		suffix = "/" + suffix
	}
	return common.MaskToken(token) + suffix
}
