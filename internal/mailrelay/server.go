package mailrelay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultSubject = "Document share"

type Server struct {
	echo    *echo.Echo
	address string
	sender  Sender
	logger  logging.Logger
}

func NewServer(address string, sender Sender, l logging.Logger) *Server {
	s := &Server{
		echo:    echo.New(),
		address: address,
		sender:  sender,
		logger:  l.With("module", "mail_relay"),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", s.health)
	e.POST("/email/share", s.sendShare)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) sendShare(c echo.Context) error {
	var m Message
	if err := c.Bind(&m); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid body"})
	}
	if strings.TrimSpace(m.To) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing to"})
	}
	if m.Subject == "" {
		m.Subject = defaultSubject
	}

	ctx := c.Request().Context()
	id, err := s.sender.Send(ctx, m)
	if err != nil {
		s.logger.Error(ctx, "Failed to send email", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send email"})
	}

	s.logger.Info(ctx, "email sent", "message_id", id)
	return c.JSON(http.StatusOK, map[string]string{"id": id})
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Email service running", "address", s.address)
	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
