package httpapi

import (
	"context"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
	"github.com/dmitrijs2005/docuvault/internal/server/objectstore"
	"github.com/dmitrijs2005/docuvault/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	CheckAvailability(ctx context.Context, email, phone string) (*services.Availability, error)
	ResendVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password, confirm string) error
	ChangePassword(ctx context.Context, userID, current, password, confirm string) error
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd services.ProfileUpdate) (*models.User, error)
}

type DocumentService interface {
	Upload(ctx context.Context, ownerID string, files []services.UploadFile) (*services.UploadResult, error)
	List(ctx context.Context, ownerID string, f services.DocumentFilter) ([]*models.Document, error)
	Get(ctx context.Context, ownerID, id string) (*models.Document, error)
	DownloadURL(ctx context.Context, ownerID, id string) (string, error)
	Delete(ctx context.Context, ownerID, id string) error
	BulkDelete(ctx context.Context, ownerID string, ids []string) (common.BulkResult, error)
	Stats(ctx context.Context, ownerID string) (*models.DocumentStats, error)
}

type ShareService interface {
	Issue(ctx context.Context, ownerID string, req services.IssueRequest) (*models.ShareLink, error)
	Resolve(ctx context.Context, token string) (*models.ShareLink, error)
	AccessURL(ctx context.Context, token string, disposition objectstore.Disposition) (string, error)
	Revoke(ctx context.Context, ownerID, shareID string) error
	List(ctx context.Context, ownerID string) ([]*models.ShareLink, error)
	ShareURL(token string) string
}

var (
	_ UserService     = (*services.UserService)(nil)
	_ DocumentService = (*services.DocumentService)(nil)
	_ ShareService    = (*services.ShareService)(nil)
)
