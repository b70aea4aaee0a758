package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/server/config"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
	"github.com/dmitrijs2005/docuvault/internal/server/notify"
	"github.com/dmitrijs2005/docuvault/internal/server/objectstore"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docuvault/internal/timex"
	"github.com/google/uuid"
)

// ErrNoFileURL means a share resolved but neither a storage path nor a
// snapshot URL is available to serve the bytes.
var ErrNoFileURL = fmt.Errorf("file URL not available: %w", common.ErrorNotFound)

// DocumentFinder resolves an owner's document by id or storage path.
type DocumentFinder interface {
	Get(ctx context.Context, ownerID, id string) (*models.Document, error)
}

// IssueRequest mirrors the share form. Nil permission flags default to true.
type IssueRequest struct {
	DocumentID     string `json:"documentId"`
	RecipientEmail string `json:"recipientEmail"`
	RecipientName  string `json:"recipientName"`
	Message        string `json:"message"`
	ExpiryDate     string `json:"expiryDate"`
	AllowView      *bool  `json:"allowView"`
	AllowDownload  *bool  `json:"allowDownload"`
}

type ShareService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	documents     DocumentFinder
	store         objectstore.Store
	notifier      Notifier
	composer      *notify.Composer
	logger        logging.Logger
	downloadTTL   time.Duration
	accessTTL     time.Duration
	publicBaseURL string
	now           func() time.Time
	newToken      func() (string, error)
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, documents DocumentFinder,
	store objectstore.Store, notifier Notifier, cfg *config.Config, logger logging.Logger) *ShareService {
	return &ShareService{
		db:            db,
		repomanager:   m,
		documents:     documents,
		store:         store,
		notifier:      notifier,
		composer:      notify.NewComposer(),
		logger:        logger.With("module", "shares"),
		downloadTTL:   cfg.DownloadURLValidity,
		accessTTL:     cfg.ShareURLValidity,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:           time.Now,
		newToken:      func() (string, error) { return common.MakeURLToken(common.ShareTokenBytes) },
	}
}

// today is the current calendar date in UTC.
func (s *ShareService) today() timex.Date {
	return timex.DateOf(s.now().UTC())
}

// ShareURL is the public address of a link: <origin>/share/<token>.
func (s *ShareService) ShareURL(token string) string {
	return s.publicBaseURL + "/share/" + token
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Issue creates a share link for one of the owner's documents and notifies
// the recipient. Notification failures are logged, never returned.
func (s *ShareService) Issue(ctx context.Context, ownerID string, req IssueRequest) (*models.ShareLink, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}

	email := strings.TrimSpace(req.RecipientEmail)
	name := strings.TrimSpace(req.RecipientName)

	v := common.NewValidationError()
	if email == "" {
		v.Add("recipientEmail", "Recipient email is required")
	} else if !validEmail(email) {
		v.Add("recipientEmail", "Recipient email is invalid")
	}
	if name == "" {
		v.Add("recipientName", "Recipient name is required")
	}
	var expiry timex.Date
	if strings.TrimSpace(req.ExpiryDate) == "" {
		v.Add("expiryDate", "Expiry date is required")
	} else if d, err := timex.ParseDate(strings.TrimSpace(req.ExpiryDate)); err != nil {
		v.Add("expiryDate", "Expiry date must be YYYY-MM-DD")
	} else if s.today().After(d) {
		v.Add("expiryDate", "Expiry date is in the past")
	} else {
		expiry = d
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLength {
		v.Add("message", "Message must be at most 2000 characters")
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		v.Add("documentId", "Select a document to share")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, ownerID, strings.TrimSpace(req.DocumentID))
	if err != nil {
		return nil, err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	link := &models.ShareLink{
		Token:          token,
		OwnerID:        ownerID,
		DocumentID:     doc.ID,
		DocumentName:   doc.Name,
		StoragePath:    doc.StoragePath,
		DownloadURL:    s.snapshotURL(ctx, doc),
		RecipientEmail: email,
		RecipientName:  name,
		Message:        req.Message,
		ExpiryDate:     expiry,
		AllowView:      boolOr(req.AllowView, true),
		AllowDownload:  boolOr(req.AllowDownload, true),
		Status:         models.ShareStatusActive,
	}

	link, err = s.repomanager.Shares(s.db).Create(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("error creating share: %w", err)
	}

	s.logger.Info(ctx, "share issued", "share_id", link.ID, "document_id", link.DocumentID, "token", common.MaskToken(token))
	s.notifier.Notify(ctx, s.composer.Share(email, doc.Name, s.ShareURL(token), req.Message))

	return link, nil
}

// snapshotURL prefers the document's stored URL, then a fresh presigned one,
// then nil.
func (s *ShareService) snapshotURL(ctx context.Context, doc *models.Document) *string {
	if doc.DownloadURL != "" {
		u := doc.DownloadURL
		return &u
	}
	if doc.StoragePath == "" {
		return nil
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.downloadTTL, "", "")
	if err != nil {
		s.logger.Warn(ctx, "could not resolve download url for share", "document_id", doc.ID, "error", err)
		return nil
	}
	return &u
}

// find looks the token up among active links and applies the expiry and
// status checks without side effects.
func (s *ShareService) find(ctx context.Context, token string) (*models.ShareLink, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}

	link, err := s.repomanager.Shares(s.db).FindActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Expired(s.today()) {
		return nil, common.ErrShareExpired
	}
	if link.Status != models.ShareStatusActive {
		return nil, common.ErrShareRevoked
	}
	return link, nil
}

// Resolve returns the link for token and counts the access. Unknown and
// revoked tokens both yield common.ErrorNotFound. The permission flags are
// reported, not enforced, here.
func (s *ShareService) Resolve(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := s.find(ctx, token)
	if err != nil {
		return nil, err
	}

	n, err := s.repomanager.Shares(s.db).IncrementAccessCount(ctx, link.ID)
	if err != nil {
		s.logger.Warn(ctx, "access count not incremented", "share_id", link.ID, "error", err)
		link.AccessCount++
		return link, nil
	}
	link.AccessCount = n
	return link, nil
}

// AccessURL re-resolves token without counting, checks the flag matching
// disposition and returns a short-lived URL for the shared file.
func (s *ShareService) AccessURL(ctx context.Context, token string, disposition objectstore.Disposition) (string, error) {
	link, err := s.find(ctx, token)
	if err != nil {
		return "", err
	}

	allowed := link.AllowDownload
	if disposition == objectstore.DispositionInline {
		allowed = link.AllowView
	}
	if !allowed {
		return "", common.ErrForbidden
	}

	if link.StoragePath != "" {
		u, err := s.store.PresignGet(ctx, link.StoragePath, s.accessTTL, disposition, link.DocumentName)
		if err == nil {
			return u, nil
		}
		s.logger.Warn(ctx, "presign for share failed", "share_id", link.ID, "error", err)
	}
	if link.DownloadURL != nil && *link.DownloadURL != "" {
		return *link.DownloadURL, nil
	}
	return "", ErrNoFileURL
}

// Revoke marks the owner's link revoked. Revoking an already revoked link
// succeeds; a link the owner does not have is common.ErrorNotFound.
func (s *ShareService) Revoke(ctx context.Context, ownerID, shareID string) error {
	if ownerID == "" {
		return common.ErrUnauthenticated
	}
	if uuid.Validate(shareID) != nil {
		return common.ErrorNotFound
	}

	if err := s.repomanager.Shares(s.db).Revoke(ctx, ownerID, shareID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error revoking share: %w", err)
	}
	s.logger.Info(ctx, "share revoked", "share_id", shareID)
	return nil
}

// List returns the owner's links, newest first.
func (s *ShareService) List(ctx context.Context, ownerID string) ([]*models.ShareLink, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}
	return s.repomanager.Shares(s.db).ListByOwner(ctx, ownerID)
}
