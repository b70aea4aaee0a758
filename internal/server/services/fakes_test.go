package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/dbx"
	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/server/config"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
	"github.com/dmitrijs2005/docuvault/internal/server/notify"
	"github.com/dmitrijs2005/docuvault/internal/server/objectstore"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/onetime"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/shares"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/users"
	"github.com/google/uuid"
)

// -------- test fakes --------

type fakeUsersRepo struct {
	users.Repository
	mu      sync.Mutex
	byID    map[string]*models.User
	creates int
	err     error
}

func newFakeUsersRepo(us ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range us {
		r.byID[u.ID] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.err != nil {
		return nil, f.err
	}
	cp := *u
	cp.ID = uuid.NewString()
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsersRepo) PhoneExists(ctx context.Context, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) MarkEmailVerified(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.EmailVerified = true
	return nil
}

type fakeRefreshRepo struct {
	refreshtokens.Repository
	tokens       map[string]*models.RefreshToken
	deletedUsers []string
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, token string, validity time.Duration) error {
	f.tokens[token] = &models.RefreshToken{ID: uuid.NewString(), UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, token)
	return t, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(ctx context.Context, userID string) error {
	f.deletedUsers = append(f.deletedUsers, userID)
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

type fakeDocsRepo struct {
	documents.Repository
	mu        sync.Mutex
	byID      map[string]*models.Document
	createErr error
	stats     *models.DocumentStats
}

func newFakeDocsRepo(docs ...*models.Document) *fakeDocsRepo {
	r := &fakeDocsRepo{byID: map[string]*models.Document{}}
	for _, d := range docs {
		r.byID[d.ID] = d
	}
	return r
}

func (f *fakeDocsRepo) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *d
	cp.ID = uuid.NewString()
	cp.UploadDate = time.Now()
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeDocsRepo) Get(ctx context.Context, ownerID, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok || d.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocsRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, d := range f.byID {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDocsRepo) Delete(ctx context.Context, ownerID, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok || d.OwnerID != ownerID {
		return "", false, nil
	}
	delete(f.byID, id)
	return d.StoragePath, true, nil
}

func (f *fakeDocsRepo) DeleteByStoragePath(ctx context.Context, ownerID, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, d := range f.byID {
		if d.OwnerID == ownerID && d.StoragePath == p {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *fakeDocsRepo) Stats(ctx context.Context, ownerID string) (*models.DocumentStats, error) {
	if f.stats != nil {
		cp := *f.stats
		return &cp, nil
	}
	return &models.DocumentStats{}, nil
}

type fakeSharesRepo struct {
	shares.Repository
	mu     sync.Mutex
	byID   map[string]*models.ShareLink
	incErr error
}

func newFakeSharesRepo() *fakeSharesRepo {
	return &fakeSharesRepo{byID: map[string]*models.ShareLink{}}
}

func (f *fakeSharesRepo) Create(ctx context.Context, l *models.ShareLink) (*models.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeSharesRepo) FindActiveByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.byID {
		if l.Token == token && l.Status == models.ShareStatusActive {
			cp := *l
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSharesRepo) IncrementAccessCount(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return 0, f.incErr
	}
	l, ok := f.byID[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	l.AccessCount++
	return l.AccessCount, nil
}

func (f *fakeSharesRepo) Revoke(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok || l.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	l.Status = models.ShareStatusRevoked
	return nil
}

func (f *fakeSharesRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ShareLink
	for _, l := range f.byID {
		if l.OwnerID == ownerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSharesRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	l, _ := f.ListByOwner(ctx, ownerID)
	return len(l), nil
}

// put stores l directly, bypassing Issue validation.
func (f *fakeSharesRepo) put(l *models.ShareLink) *models.ShareLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	f.byID[l.ID] = l
	return l
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	u *fakeUsersRepo
	r *fakeRefreshRepo
	d *fakeDocsRepo
	s *fakeSharesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		r: newFakeRefreshRepo(),
		d: newFakeDocsRepo(),
		s: newFakeSharesRepo(),
	}
}

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository         { return m.d }
func (m *fakeRepoManager) Shares(dbx.DBTX) shares.Repository               { return m.s }

// fakeStore is an in-memory objectstore.Store. Presigned URLs encode the key,
// ttl and disposition so tests can assert on them.
type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	putErr     map[string]error
	deleteErr  error
	listErr    error
	presignErr error
	deleted    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, putErr: map[string]error{}}
}

func (s *fakeStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := s.putErr[key]; err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []objectstore.Object
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, objectstore.Object{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration, d objectstore.Disposition, filename string) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	q := url.Values{"ttl": {ttl.String()}}
	if d != "" {
		q.Set("cd", string(d))
	}
	return fmt.Sprintf("https://s3.test/%s?%s", key, q.Encode()), nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	ok   bool
}

func (n *fakeNotifier) Notify(ctx context.Context, m notify.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return n.ok
}

type fakeLimiter struct {
	blocked  bool
	err      error
	failures map[string]int
	resets   int
}

func (l *fakeLimiter) Allowed(ctx context.Context, id string) (bool, error) {
	return !l.blocked, l.err
}

func (l *fakeLimiter) Fail(ctx context.Context, id string) error {
	if l.failures == nil {
		l.failures = map[string]int{}
	}
	l.failures[id]++
	return nil
}

func (l *fakeLimiter) Reset(ctx context.Context, id string) error {
	l.resets++
	return nil
}

type fakeTokens struct {
	seq    int
	tokens map[string]string
}

func (f *fakeTokens) Issue(ctx context.Context, p onetime.Purpose, userID string, ttl time.Duration) (string, error) {
	if f.tokens == nil {
		f.tokens = map[string]string{}
	}
	f.seq++
	tok := fmt.Sprintf("%s-%d", p, f.seq)
	f.tokens[tok] = userID
	return tok, nil
}

func (f *fakeTokens) Consume(ctx context.Context, p onetime.Purpose, token string) (string, error) {
	uid, ok := f.tokens[token]
	if !ok || !strings.HasPrefix(token, string(p)+"-") {
		return "", common.ErrInvalidToken
	}
	delete(f.tokens, token)
	return uid, nil
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PublicBaseURL = "https://vault.test/"
	return cfg
}

func nopLogger() logging.Logger { return logging.NewNop() }
