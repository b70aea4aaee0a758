package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/server/config"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
	"github.com/dmitrijs2005/docuvault/internal/server/objectstore"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// bulkConcurrency bounds per-item work in uploads and bulk deletes.
const bulkConcurrency = 4

// UploadFile is one file of a multi-file upload.
type UploadFile struct {
	Name        string
	Type        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// UploadResult reports per-batch counts plus the records that were created.
type UploadResult struct {
	common.BulkResult
	Documents []*models.Document `json:"documents"`
}

// DocumentFilter narrows List. Empty fields match everything.
type DocumentFilter struct {
	Type  string
	Query string
}

type DocumentService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	store         objectstore.Store
	logger        logging.Logger
	downloadTTL   time.Duration
	uploadTimeout time.Duration
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, store objectstore.Store,
	cfg *config.Config, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:            db,
		repomanager:   m,
		store:         store,
		logger:        logger.With("module", "documents"),
		downloadTTL:   cfg.DownloadURLValidity,
		uploadTimeout: cfg.UploadTimeout,
	}
}

// ownerPrefix is the storage prefix every object of ownerID lives under.
func ownerPrefix(ownerID string) string {
	return "users/" + ownerID + "/"
}

// StoragePath builds users/<owner>/<type>/<name>.
func StoragePath(ownerID string, docType models.DocumentType, name string) string {
	return ownerPrefix(ownerID) + string(docType) + "/" + name
}

// parseDocumentType maps an empty type to "other" and rejects unknown ones.
func parseDocumentType(s string) (models.DocumentType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return models.DocumentTypeOther, true
	}
	t := models.DocumentType(s)
	return t, t.Valid()
}

// baseName reduces a client-supplied file name to its last path element.
func baseName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	b := path.Base(name)
	if b == "." || b == "/" || b == ".." {
		return ""
	}
	return b
}

// Upload stores every file and records its metadata. Files are independent:
// one failure does not stop the others, and the whole batch runs under the
// upload timeout.
func (s *DocumentService) Upload(ctx context.Context, ownerID string, files []UploadFile) (*UploadResult, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}

	v := common.NewValidationError()
	if len(files) == 0 {
		v.Add("files", "No files selected")
	}
	types := make([]models.DocumentType, len(files))
	names := make([]string, len(files))
	for i, f := range files {
		t, ok := parseDocumentType(f.Type)
		if !ok {
			v.Add("type", fmt.Sprintf("Unknown document type %q", f.Type))
		}
		types[i] = t
		if names[i] = baseName(f.Name); names[i] == "" {
			v.Add("files", "Invalid file name")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	created := make([]*models.Document, len(files))
	g := &errgroup.Group{}
	g.SetLimit(bulkConcurrency)

	for i, f := range files {
		g.Go(func() error {
			doc, err := s.uploadOne(ctx, ownerID, types[i], names[i], f)
			if err != nil {
				s.logger.Warn(ctx, "upload failed", "owner_id", ownerID, "file", names[i], "error", err)
				return nil
			}
			created[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	res := &UploadResult{Documents: make([]*models.Document, 0, len(files))}
	res.Attempted = len(files)
	for _, d := range created {
		if d != nil {
			res.Documents = append(res.Documents, d)
		}
	}
	res.Succeeded = len(res.Documents)
	res.Failed = res.Attempted - res.Succeeded
	return res, nil
}

func (s *DocumentService) uploadOne(ctx context.Context, ownerID string, t models.DocumentType, name string, f UploadFile) (*models.Document, error) {
	key := StoragePath(ownerID, t, name)

	if err := s.store.Put(ctx, key, f.Body, f.Size, f.ContentType); err != nil {
		return nil, err
	}

	url, err := s.store.PresignGet(ctx, key, s.downloadTTL, "", "")
	if err != nil {
		s.logger.Warn(ctx, "download url not resolved", "key", key, "error", err)
		url = ""
	}

	doc, err := s.repomanager.Documents(s.db).Create(ctx, &models.Document{
		OwnerID:     ownerID,
		Name:        name,
		Type:        t,
		Size:        f.Size,
		ContentType: f.ContentType,
		StoragePath: key,
		DownloadURL: url,
		Status:      models.DocumentStatusUploaded,
	})
	if err != nil {
		// no metadata row: drop the blob too so it does not linger unseen
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn(ctx, "orphan blob not removed", "key", key, "error", derr)
		}
		return nil, err
	}
	return doc, nil
}

// List returns the owner's documents from metadata. When metadata has none,
// it falls back to a scan of the owner's storage prefix; the two sources are
// never merged.
func (s *DocumentService) List(ctx context.Context, ownerID string, f DocumentFilter) ([]*models.Document, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}

	docs, err := s.repomanager.Documents(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		docs, err = s.scanStorage(ctx, ownerID)
		if err != nil {
			return nil, err
		}
	}
	return filterDocuments(docs, f), nil
}

func (s *DocumentService) scanStorage(ctx context.Context, ownerID string) ([]*models.Document, error) {
	objs, err := s.store.List(ctx, ownerPrefix(ownerID))
	if err != nil {
		return nil, fmt.Errorf("storage scan: %w", err)
	}

	docs := make([]*models.Document, 0, len(objs))
	for _, o := range objs {
		if strings.HasSuffix(o.Key, "/") {
			continue
		}
		docs = append(docs, documentFromObject(ownerID, o))
	}
	s.logger.Debug(ctx, "listed documents from storage", "owner_id", ownerID, "count", len(docs))
	return docs, nil
}

// documentFromObject synthesises a record for a blob without metadata. The
// type is the second-to-last path segment when that is a known type.
func documentFromObject(ownerID string, o objectstore.Object) *models.Document {
	parts := strings.Split(o.Key, "/")
	t := models.DocumentTypeOther
	if len(parts) >= 3 {
		if guess := models.DocumentType(parts[len(parts)-2]); guess.Valid() {
			t = guess
		}
	}
	return &models.Document{
		ID:          o.Key,
		OwnerID:     ownerID,
		Name:        parts[len(parts)-1],
		Type:        t,
		Size:        o.Size,
		StoragePath: o.Key,
		Status:      models.DocumentStatusUploaded,
		UploadDate:  o.LastModified,
	}
}

func filterDocuments(docs []*models.Document, f DocumentFilter) []*models.Document {
	typ := strings.ToLower(strings.TrimSpace(f.Type))
	if typ == "all" {
		typ = ""
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if typ == "" && q == "" {
		return docs
	}

	out := make([]*models.Document, 0, len(docs))
	for _, d := range docs {
		if typ != "" && string(d.Type) != typ {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(d.Name), q) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// lookup finds one of the owner's documents by metadata id or, for records
// listed from storage, by its users/<owner>/... path.
func (s *DocumentService) lookup(ctx context.Context, ownerID, id string) (*models.Document, error) {
	if strings.HasPrefix(id, "users/") {
		if !strings.HasPrefix(id, ownerPrefix(ownerID)) {
			return nil, common.ErrorNotFound
		}
		ok, err := s.store.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.ErrorNotFound
		}
		return documentFromObject(ownerID, objectstore.Object{Key: id}), nil
	}

	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Documents(s.db).Get(ctx, ownerID, id)
}

// Get returns one of the owner's documents.
func (s *DocumentService) Get(ctx context.Context, ownerID, id string) (*models.Document, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}
	return s.lookup(ctx, ownerID, id)
}

// DownloadURL returns a fresh presigned URL for the document, falling back to
// the URL stored at upload time when signing fails.
func (s *DocumentService) DownloadURL(ctx context.Context, ownerID, id string) (string, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}

	url, err := s.store.PresignGet(ctx, doc.StoragePath, s.downloadTTL, objectstore.DispositionAttachment, doc.Name)
	if err == nil {
		return url, nil
	}
	if doc.DownloadURL != "" {
		s.logger.Warn(ctx, "presign failed, using stored url", "document_id", doc.ID, "error", err)
		return doc.DownloadURL, nil
	}
	return "", err
}

// Delete removes one document. A document that is already gone counts as
// deleted.
func (s *DocumentService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return common.ErrUnauthenticated
	}
	return s.deleteOne(ctx, ownerID, id)
}

// BulkDelete deletes every id concurrently and reports aggregate counts.
// Item failures are counted, never returned.
func (s *DocumentService) BulkDelete(ctx context.Context, ownerID string, ids []string) (common.BulkResult, error) {
	if ownerID == "" {
		return common.BulkResult{}, common.ErrUnauthenticated
	}

	var (
		mu  sync.Mutex
		res = common.BulkResult{Attempted: len(ids)}
	)
	g := &errgroup.Group{}
	g.SetLimit(bulkConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			err := s.deleteOne(ctx, ownerID, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				s.logger.Warn(ctx, "delete failed", "owner_id", ownerID, "document_id", id, "error", err)
				return nil
			}
			res.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info(ctx, "bulk delete finished", "owner_id", ownerID,
		"attempted", res.Attempted, "succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}

// deleteOne removes the metadata row and the blob. Either being absent is
// fine; a blob failure does not undo the metadata delete.
func (s *DocumentService) deleteOne(ctx context.Context, ownerID, id string) error {
	repo := s.repomanager.Documents(s.db)

	if strings.HasPrefix(id, "users/") {
		if !strings.HasPrefix(id, ownerPrefix(ownerID)) {
			return common.ErrForbidden
		}
		blobErr := s.store.Delete(ctx, id)
		metaErr := repo.DeleteByStoragePath(ctx, ownerID, id)
		return errors.Join(blobErr, metaErr)
	}

	if uuid.Validate(id) != nil {
		return nil
	}

	storagePath, found, err := repo.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !found || storagePath == "" {
		return nil
	}
	return s.store.Delete(ctx, storagePath)
}

// Stats summarises the owner's vault for the profile screen.
func (s *DocumentService) Stats(ctx context.Context, ownerID string) (*models.DocumentStats, error) {
	if ownerID == "" {
		return nil, common.ErrUnauthenticated
	}

	stats, err := s.repomanager.Documents(s.db).Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	shared, err := s.repomanager.Shares(s.db).CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats.SharedDocuments = shared
	return stats, nil
}
