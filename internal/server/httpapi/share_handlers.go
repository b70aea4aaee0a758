package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
	"github.com/dmitrijs2005/docuvault/internal/server/objectstore"
	"github.com/dmitrijs2005/docuvault/internal/server/services"
	"github.com/dmitrijs2005/docuvault/internal/timex"
	"github.com/labstack/echo/v4"
)

// issuedShare is returned to the owner after issuing: the link record plus
// the address to hand to the recipient.
type issuedShare struct {
	*models.ShareLink
	URL string `json:"url"`
}

// shareView is what a recipient sees. It never carries the stored URL.
type shareView struct {
	DocumentName  string     `json:"documentName"`
	RecipientName string     `json:"recipientName"`
	Message       string     `json:"message,omitempty"`
	ExpiryDate    timex.Date `json:"expiryDate,omitempty"`
	AllowView     bool       `json:"allowView"`
	AllowDownload bool       `json:"allowDownload"`
}

func (s *Server) issueShare(c echo.Context) error {
	var req services.IssueRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	link, err := s.shares.Issue(c.Request().Context(), userID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, issuedShare{ShareLink: link, URL: s.shares.ShareURL(link.Token)})
}

func (s *Server) listShares(c echo.Context) error {
	links, err := s.shares.List(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, links)
}

func (s *Server) revokeShare(c echo.Context) error {
	if err := s.shares.Revoke(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// publicShareError words resolver failures for recipients.
func publicShareError(err error, disposition objectstore.Disposition) error {
	switch {
	case errors.Is(err, services.ErrNoFileURL):
		return echo.NewHTTPError(http.StatusNotFound, "File URL not available")
	case errors.Is(err, common.ErrorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Invalid or expired link")
	case errors.Is(err, common.ErrForbidden):
		if disposition == objectstore.DispositionInline {
			return echo.NewHTTPError(http.StatusForbidden, "Viewing is disabled for this link")
		}
		return echo.NewHTTPError(http.StatusForbidden, "Downloading is disabled for this link")
	}
	return err
}

func (s *Server) resolveShare(c echo.Context) error {
	link, err := s.shares.Resolve(c.Request().Context(), c.Param("token"))
	if err != nil {
		return publicShareError(err, "")
	}

	return c.JSON(http.StatusOK, shareView{
		DocumentName:  link.DocumentName,
		RecipientName: link.RecipientName,
		Message:       link.Message,
		ExpiryDate:    link.ExpiryDate,
		AllowView:     link.AllowView,
		AllowDownload: link.AllowDownload,
	})
}

func (s *Server) viewShare(c echo.Context) error {
	return s.redirectToFile(c, objectstore.DispositionInline)
}

func (s *Server) downloadShare(c echo.Context) error {
	return s.redirectToFile(c, objectstore.DispositionAttachment)
}

func (s *Server) redirectToFile(c echo.Context, disposition objectstore.Disposition) error {
	u, err := s.shares.AccessURL(c.Request().Context(), c.Param("token"), disposition)
	if err != nil {
		return publicShareError(err, disposition)
	}
	return c.Redirect(http.StatusFound, u)
}
