// Package httpapi exposes the vault services over HTTP/JSON with echo.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// Options carries the transport settings of the API server.
type Options struct {
	Address        string
	SecretKey      string
	MaxUploadBytes int64
	// AllowOrigins lists the browser origins allowed by CORS. Empty allows all.
	AllowOrigins []string
}

type Server struct {
	echo      *echo.Echo
	address   string
	logger    logging.Logger
	users     UserService
	documents DocumentService
	shares    ShareService
	jwtSecret []byte
	maxUpload int64
}

func NewServer(o Options, l logging.Logger, us UserService, ds DocumentService, ss ShareService) *Server {
	s := &Server{
		echo:      echo.New(),
		address:   o.Address,
		logger:    l.With("module", "http_server"),
		users:     us,
		documents: ds,
		shares:    ss,
		jwtSecret: []byte(o.SecretKey),
		maxUpload: o.MaxUploadBytes,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	origins := o.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	api := e.Group("/api/v1")

	a := api.Group("/auth")
	a.POST("/register", s.register)
	a.GET("/availability", s.availability)
	a.POST("/verify", s.verifyEmail)
	a.POST("/resend-verification", s.resendVerification, s.requireAuth)
	a.POST("/login", s.login)
	a.POST("/refresh", s.refresh)
	a.POST("/logout", s.logout)
	a.POST("/forgot-password", s.forgotPassword)
	a.POST("/reset-password", s.resetPassword)

	p := api.Group("/profile", s.requireAuth)
	p.GET("", s.getProfile)
	p.PUT("", s.updateProfile)
	p.PUT("/password", s.changePassword)

	d := api.Group("/documents", s.requireAuth)
	d.GET("", s.listDocuments)
	d.POST("", s.uploadDocuments, middleware.BodyLimit(strconv.FormatInt(s.maxUpload, 10)+"B"))
	d.GET("/stats", s.documentStats)
	d.POST("/bulk-delete", s.bulkDeleteDocuments)
	d.GET("/:id", s.getDocument)
	d.GET("/:id/download-url", s.documentDownloadURL)
	d.DELETE("/:id", s.deleteDocument)

	sh := api.Group("/shares", s.requireAuth)
	sh.GET("", s.listShares)
	sh.POST("", s.issueShare)
	sh.POST("/:id/revoke", s.revokeShare)

	pub := e.Group("/share", noStore)
	pub.GET("/:token", s.resolveShare)
	pub.GET("/:token/view", s.viewShare)
	pub.GET("/:token/download", s.downloadShare)
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
