package httpapi

import (
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/docuvault/internal/server/services"
	"github.com/labstack/echo/v4"
)

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// docID returns the :id parameter. Storage-path ids contain slashes and
// arrive percent-encoded.
func docID(c echo.Context) string {
	id := c.Param("id")
	if u, err := url.PathUnescape(id); err == nil {
		return u
	}
	return id
}

func (s *Server) listDocuments(c echo.Context) error {
	docs, err := s.documents.List(c.Request().Context(), userID(c), services.DocumentFilter{
		Type:  c.QueryParam("type"),
		Query: c.QueryParam("q"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs)
}

// uploadDocuments takes multipart field "files" (repeatable) and an optional
// "type" applied to every file.
func (s *Server) uploadDocuments(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	docType := c.FormValue("type")

	headers := form.File["files"]
	files := make([]services.UploadFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable file "+fh.Filename)
		}
		opened = append(opened, f)

		files = append(files, services.UploadFile{
			Name:        fh.Filename,
			Type:        docType,
			Size:        fh.Size,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Body:        f,
		})
	}

	res, err := s.documents.Upload(c.Request().Context(), userID(c), files)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	switch {
	case res.Succeeded == 0:
		status = http.StatusBadGateway
	case res.Failed > 0:
		status = http.StatusMultiStatus
	}
	return c.JSON(status, res)
}

func (s *Server) getDocument(c echo.Context) error {
	doc, err := s.documents.Get(c.Request().Context(), userID(c), docID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) documentDownloadURL(c echo.Context) error {
	u, err := s.documents.DownloadURL(c.Request().Context(), userID(c), docID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": u})
}

func (s *Server) deleteDocument(c echo.Context) error {
	if err := s.documents.Delete(c.Request().Context(), userID(c), docID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) bulkDeleteDocuments(c echo.Context) error {
	var req bulkDeleteRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := s.documents.BulkDelete(c.Request().Context(), userID(c), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) documentStats(c echo.Context) error {
	stats, err := s.documents.Stats(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
