package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/dbx"
	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/server/auth"
	"github.com/dmitrijs2005/docuvault/internal/server/config"
	"github.com/dmitrijs2005/docuvault/internal/server/models"
	"github.com/dmitrijs2005/docuvault/internal/server/notify"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/onetime"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/docuvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/docuvault/internal/timex"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour

	msgEmailTaken = "Email address is already registered"
	msgPhoneTaken = "Phone number is already registered"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest mirrors the registration form.
type RegisterRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	NationalID      string `json:"aadhaarNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileUpdate carries the editable profile fields. Email is not editable.
type ProfileUpdate struct {
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	NationalID  string `json:"aadhaarNumber"`
	Address     string `json:"address"`
	DateOfBirth string `json:"dateOfBirth"`
}

// Availability answers the registration form's live field checks. A nil
// field means that value was not asked about.
type Availability struct {
	EmailAvailable *bool `json:"emailAvailable,omitempty"`
	PhoneAvailable *bool `json:"phoneAvailable,omitempty"`
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	tokens                       onetime.Store
	limiter                      LoginLimiter
	notifier                     Notifier
	composer                     *notify.Composer
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	publicBaseURL                string
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	tokens onetime.Store, limiter LoginLimiter, notifier Notifier, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		tokens:                       tokens,
		limiter:                      limiter,
		notifier:                     notifier,
		composer:                     notify.NewComposer(),
		logger:                       logger.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		publicBaseURL:                strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:                          time.Now,
	}
}

// Register validates the form, rejects an email or phone that is already in
// use before anything is written, stores the account and mails a
// verification link.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = normalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.NationalID = strings.TrimSpace(req.NationalID)

	v := common.NewValidationError()
	if req.FullName == "" {
		v.Add("fullName", "Full name is required")
	}
	checkEmail(v, "email", req.Email)
	checkPhone(v, req.Phone)
	checkNationalID(v, req.NationalID)
	checkNewPassword(v, "password", req.Password, "confirmPassword", req.ConfirmPassword)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	if err := s.checkTaken(ctx, repo, req.Email, req.Phone); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		NationalID:   req.NationalID,
		PasswordHash: hash,
	})
	if err != nil {
		if verr := uniqueToValidation(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	s.sendVerification(ctx, user)
	return user, nil
}

func (s *UserService) checkTaken(ctx context.Context, repo usersrepo.Repository, email, phone string) error {
	v := common.NewValidationError()

	if email != "" {
		taken, err := repo.EmailExists(ctx, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			v.Add("email", msgEmailTaken)
		}
	}
	if phone != "" {
		taken, err := repo.PhoneExists(ctx, phone)
		if err != nil {
			return fmt.Errorf("check phone: %w", err)
		}
		if taken {
			v.Add("phone", msgPhoneTaken)
		}
	}
	return v.OrNil()
}

// uniqueToValidation turns a unique index clash on users into the same field
// error the pre-check produces. Other errors yield nil.
func uniqueToValidation(err error) error {
	name, ok := dbx.UniqueViolation(err)
	if !ok {
		return nil
	}
	v := common.NewValidationError()
	switch name {
	case usersrepo.EmailConstraint:
		v.Add("email", msgEmailTaken)
	case usersrepo.PhoneConstraint:
		v.Add("phone", msgPhoneTaken)
	default:
		return nil
	}
	return v
}

// CheckAvailability reports whether email and/or phone are free to register.
func (s *UserService) CheckAvailability(ctx context.Context, email, phone string) (*Availability, error) {
	repo := s.repomanager.Users(s.db)
	out := &Availability{}

	if email = normalizeEmail(email); email != "" {
		taken, err := repo.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		free := !taken
		out.EmailAvailable = &free
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		taken, err := repo.PhoneExists(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("check phone: %w", err)
		}
		free := !taken
		out.PhoneAvailable = &free
	}
	return out, nil
}

func (s *UserService) link(path, token string) string {
	return s.publicBaseURL + path + "?token=" + url.QueryEscape(token)
}

func (s *UserService) sendVerification(ctx context.Context, user *models.User) {
	token, err := s.tokens.Issue(ctx, onetime.PurposeVerifyEmail, user.ID, verifyTokenTTL)
	if err != nil {
		s.logger.Warn(ctx, "verification token not issued", "user_id", user.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, s.composer.Verification(user.Email, user.FullName, s.link("/verify-email", token)))
}

// ResendVerification mails a fresh verification link unless the address is
// already confirmed.
func (s *UserService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.EmailVerified {
		s.sendVerification(ctx, user)
	}
	return nil
}

func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.Consume(ctx, onetime.PurposeVerifyEmail, token)
	if err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db).MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// Login exchanges email and password for a token pair. Unknown accounts and
// wrong passwords are indistinguishable and both count against the limiter.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)

	allowed, err := s.limiter.Allowed(ctx, email)
	if err != nil {
		s.logger.Warn(ctx, "login limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		return nil, common.ErrTooManyAttempts
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.recordFailure(ctx, email)
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unusable", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		s.recordFailure(ctx, email)
		return nil, common.ErrorUnauthorized
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn(ctx, "login limiter reset failed", "error", err)
	}

	return s.generateTokenPair(ctx, s.db, user.ID)
}

func (s *UserService) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.logger.Warn(ctx, "login limiter update failed", "error", err)
	}
}

// RefreshToken rotates a refresh token: the old one is consumed and a new
// pair is issued in the same transaction.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}

		if token.Expires.Before(s.now()) {
			return common.ErrRefreshTokenExpired
		}

		pair, err = s.generateTokenPair(ctx, tx, token.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout drops the given refresh token. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	return s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
}

// ForgotPassword mails a reset link. An unknown address is reported as
// common.ErrorNotFound.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	v := common.NewValidationError()
	checkEmail(v, "email", email)
	if err := v.OrNil(); err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.tokens.Issue(ctx, onetime.PurposeResetPassword, user.ID, resetTokenTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	s.notifier.Notify(ctx, s.composer.PasswordReset(user.Email, user.FullName, s.link("/reset-password", token)))
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	v := common.NewValidationError()
	checkNewPassword(v, "password", password, "confirmPassword", confirm)
	if err := v.OrNil(); err != nil {
		return err
	}

	userID, err := s.tokens.Consume(ctx, onetime.PurposeResetPassword, token)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, userID, password)
}

func (s *UserService) ChangePassword(ctx context.Context, userID, current, password, confirm string) error {
	v := common.NewValidationError()
	checkNewPassword(v, "newPassword", password, "confirmPassword", confirm)
	if err := v.OrNil(); err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, current)
	if err != nil {
		return common.ErrorInternal
	}
	if !ok {
		v.Add("currentPassword", "Current password is incorrect")
		return v
	}
	return s.setPassword(ctx, userID, password)
}

// setPassword stores a new hash and ends every existing session.
func (s *UserService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		s.logger.Warn(ctx, "sessions not revoked after password change", "user_id", userID, "error", err)
	}
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, common.ErrUnauthenticated
	}
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	if userID == "" {
		return nil, common.ErrUnauthenticated
	}
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	upd.FullName = strings.TrimSpace(upd.FullName)
	upd.Phone = strings.TrimSpace(upd.Phone)
	upd.NationalID = strings.TrimSpace(upd.NationalID)

	v := common.NewValidationError()
	if upd.FullName == "" {
		v.Add("fullName", "Full name is required")
	}
	checkPhone(v, upd.Phone)
	checkNationalID(v, upd.NationalID)
	var dob timex.Date
	if upd.DateOfBirth != "" {
		if dob, err = timex.ParseDate(upd.DateOfBirth); err != nil {
			v.Add("dateOfBirth", "Date of birth must be YYYY-MM-DD")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if upd.Phone != user.Phone {
		if err := s.checkTaken(ctx, repo, "", upd.Phone); err != nil {
			return nil, err
		}
	}

	user.FullName = upd.FullName
	user.Phone = upd.Phone
	user.NationalID = upd.NationalID
	user.Address = strings.TrimSpace(upd.Address)
	user.DateOfBirth = dob

	if err := repo.UpdateProfile(ctx, user); err != nil {
		if verr := uniqueToValidation(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.repomanager.RefreshTokens(db).Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
