package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/server/auth"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
	"github.com/dmitrijs2005/docuvault/internal/server/objectstore"
	"github.com/dmitrijs2005/docuvault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// -------- fakes --------

type fakeUsers struct {
	UserService
	registerErr error
	forgotErr   error
	verifyErr   error
	profileFor  string
}

func (f *fakeUsers) Register(ctx context.Context, req services.RegisterRequest) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "u1", FullName: req.FullName, Email: req.Email, PasswordHash: "secret-hash"}, nil
}

func (f *fakeUsers) ForgotPassword(ctx context.Context, email string) error { return f.forgotErr }

func (f *fakeUsers) VerifyEmail(ctx context.Context, token string) error { return f.verifyErr }

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	if password != "right" {
		return nil, common.ErrorUnauthorized
	}
	return &services.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeUsers) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	f.profileFor = userID
	return &models.User{ID: userID}, nil
}

type fakeDocs struct {
	DocumentService
	uploaded []services.UploadFile
	bodies   []string
	failAll  bool
	deleted  string
}

func (f *fakeDocs) Upload(ctx context.Context, ownerID string, files []services.UploadFile) (*services.UploadResult, error) {
	f.uploaded = files
	res := &services.UploadResult{}
	res.Attempted = len(files)
	for _, file := range files {
		b, _ := io.ReadAll(file.Body)
		f.bodies = append(f.bodies, string(b))
	}
	if f.failAll {
		res.Failed = len(files)
		return res, nil
	}
	res.Succeeded = len(files)
	return res, nil
}

func (f *fakeDocs) Delete(ctx context.Context, ownerID, id string) error {
	f.deleted = id
	return nil
}

type fakeShares struct {
	ShareService
	link      *models.ShareLink
	err       error
	accessURL string
	accessErr error
	asked     objectstore.Disposition
}

func (f *fakeShares) Resolve(ctx context.Context, token string) (*models.ShareLink, error) {
	return f.link, f.err
}

func (f *fakeShares) AccessURL(ctx context.Context, token string, d objectstore.Disposition) (string, error) {
	f.asked = d
	return f.accessURL, f.accessErr
}

func (f *fakeShares) Issue(ctx context.Context, ownerID string, req services.IssueRequest) (*models.ShareLink, error) {
	return &models.ShareLink{ID: "s1", Token: "tok", OwnerID: ownerID, Status: models.ShareStatusActive}, nil
}

func (f *fakeShares) ShareURL(token string) string { return "https://vault.test/share/" + token }

// -------- helpers --------

type fixture struct {
	srv    *Server
	users  *fakeUsers
	docs   *fakeDocs
	shares *fakeShares
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{users: &fakeUsers{}, docs: &fakeDocs{}, shares: &fakeShares{}}
	f.srv = NewServer(Options{SecretKey: testSecret, MaxUploadBytes: 1 << 10}, logging.NewNop(), f.users, f.docs, f.shares)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return common.BearerPrefix + tok
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// -------- tests --------

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing token", decode(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"not-a-jwt")
	rec = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decode(t, rec)["error"])

	expired, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+expired)
	rec = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", decode(t, rec)["error"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set(common.AuthorizationHeaderName, bearer(t, "u42"))
	rec = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u42", f.users.profileFor)
}

func TestRegister_ValidationFields(t *testing.T) {
	f := newFixture(t)
	v := common.NewValidationError()
	v.Add("phone", "Phone number is already registered")
	f.users.registerErr = v

	rec := f.do(jsonReq(http.MethodPost, "/api/v1/auth/register", `{"fullName":"A"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed","fields":{"phone":"Phone number is already registered"}}`, rec.Body.String())
}

func TestRegister_HidesPasswordHash(t *testing.T) {
	f := newFixture(t)
	rec := f.do(jsonReq(http.MethodPost, "/api/v1/auth/register", `{"fullName":"A","email":"a@b.co"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestRegister_BadJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(jsonReq(http.MethodPost, "/api/v1/auth/register", `{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonReq(http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.co","password":"right"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accessToken":"a","refreshToken":"r"}`, rec.Body.String())

	rec = f.do(jsonReq(http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.co","password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.users.forgotErr = common.ErrorNotFound

	rec := f.do(jsonReq(http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"x@y.co"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No account found for this email.", decode(t, rec)["error"])
}

func TestVerifyEmail_BadToken(t *testing.T) {
	f := newFixture(t)
	f.users.verifyErr = common.ErrInvalidToken

	rec := f.do(jsonReq(http.MethodPost, "/api/v1/auth/verify", `{"token":"x"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpload(t *testing.T, files map[string]string, docType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("type", docType))
	for name, body := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadDocuments(t *testing.T) {
	f := newFixture(t)

	req := multipartUpload(t, map[string]string{"scan.pdf": "abc"}, "passport")
	req.Header.Set(common.AuthorizationHeaderName, bearer(t, "u1"))
	rec := f.do(req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.docs.uploaded, 1)
	assert.Equal(t, "scan.pdf", f.docs.uploaded[0].Name)
	assert.Equal(t, "passport", f.docs.uploaded[0].Type)
	assert.Equal(t, int64(3), f.docs.uploaded[0].Size)
	assert.Equal(t, []string{"abc"}, f.docs.bodies)
}

func TestUploadDocuments_AllFailed(t *testing.T) {
	f := newFixture(t)
	f.docs.failAll = true

	req := multipartUpload(t, map[string]string{"scan.pdf": "abc"}, "")
	req.Header.Set(common.AuthorizationHeaderName, bearer(t, "u1"))
	rec := f.do(req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUploadDocuments_TooLarge(t *testing.T) {
	f := newFixture(t)

	req := multipartUpload(t, map[string]string{"big.bin": strings.Repeat("x", 4<<10)}, "other")
	req.Header.Set(common.AuthorizationHeaderName, bearer(t, "u1"))
	rec := f.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, f.docs.uploaded)
}

func TestDeleteDocument_EncodedStoragePath(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/users%2Fu1%2Fother%2Fa.pdf", nil)
	req.Header.Set(common.AuthorizationHeaderName, bearer(t, "u1"))
	rec := f.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "users/u1/other/a.pdf", f.docs.deleted)
}

func TestIssueShare_ReturnsLink(t *testing.T) {
	f := newFixture(t)

	req := jsonReq(http.MethodPost, "/api/v1/shares", `{"documentId":"d1"}`)
	req.Header.Set(common.AuthorizationHeaderName, bearer(t, "u1"))
	rec := f.do(req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "https://vault.test/share/tok", body["url"])
	assert.Equal(t, "u1", body["ownerId"])
}

func TestResolveShare(t *testing.T) {
	f := newFixture(t)
	stored := "https://stored/secret"
	f.shares.link = &models.ShareLink{
		DocumentName: "passport.pdf", RecipientName: "Bank", ExpiryDate: "2026-10-20",
		AllowView: true, DownloadURL: &stored, StoragePath: "users/u1/passport/passport.pdf",
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/share/abcdefghijkl", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documentName":"passport.pdf","recipientName":"Bank","expiryDate":"2026-10-20","allowView":true,"allowDownload":false}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "stored")
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestResolveShare_Errors(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{common.ErrorNotFound, http.StatusNotFound, "Invalid or expired link"},
		{common.ErrShareExpired, http.StatusGone, "This link has expired"},
		{common.ErrShareRevoked, http.StatusGone, "Access to this file has been revoked"},
		{errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}
	for _, c := range cases {
		f := newFixture(t)
		f.shares.err = c.err

		rec := f.do(httptest.NewRequest(http.MethodGet, "/share/tok", nil))
		assert.Equal(t, c.code, rec.Code, c.msg)
		assert.Equal(t, c.msg, decode(t, rec)["error"])
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	}
}

func TestShareView_Redirects(t *testing.T) {
	f := newFixture(t)
	f.shares.accessURL = "https://s3.test/obj?sig=1"

	rec := f.do(httptest.NewRequest(http.MethodGet, "/share/tok/view", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://s3.test/obj?sig=1", rec.Header().Get("Location"))
	assert.Equal(t, objectstore.DispositionInline, f.shares.asked)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/share/tok/download", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, objectstore.DispositionAttachment, f.shares.asked)
}

func TestShareDownload_Disabled(t *testing.T) {
	f := newFixture(t)
	f.shares.accessErr = common.ErrForbidden

	rec := f.do(httptest.NewRequest(http.MethodGet, "/share/tok/download", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Downloading is disabled for this link", decode(t, rec)["error"])
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestShareView_NoFile(t *testing.T) {
	f := newFixture(t)
	f.shares.accessErr = services.ErrNoFileURL

	rec := f.do(httptest.NewRequest(http.MethodGet, "/share/tok/view", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "File URL not available", decode(t, rec)["error"])
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{common.ErrUnauthenticated, http.StatusUnauthorized},
		{common.ErrRefreshTokenExpired, http.StatusUnauthorized},
		{common.ErrForbidden, http.StatusForbidden},
		{common.ErrTooManyAttempts, http.StatusTooManyRequests},
		{errors.Join(errors.New("x"), common.ErrorNotFound), http.StatusNotFound},
		{common.ErrShareExpired, http.StatusGone},
	}
	for _, c := range cases {
		got, _ := statusFor(c.err)
		assert.Equal(t, c.want, got, c.err.Error())
	}
}

func TestMaskSharePath(t *testing.T) {
	assert.Equal(t, common.MaskToken("abcdefghijkl")+"/view", maskSharePath("abcdefghijkl/view"))
	assert.Equal(t, common.MaskToken("abcdefghijkl"), maskSharePath("abcdefghijkl"))
}
