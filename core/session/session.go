// Package session implements account registration and the token lifecycle:
// Anonymous -> Authenticated (login) -> Anonymous (logout), with refresh rotating
// the pair in place.
package session

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"VidTube/core/apperr"
	"VidTube/core/auth"
	"VidTube/core/media"
	"VidTube/core/validate"
	"VidTube/logger"
	"VidTube/model"
	"VidTube/repository"
)

const (
	msgAllFieldsRequired = "All fields are required"
	msgUserExists        = "User already exists"
	msgAvatarRequired    = "Avatar file is required"
	msgRegisterFailed    = "Something went wrong while registering the user"
	msgUserNotFound      = "User does not exist"
	msgInvalidCreds      = "Invalid user credentials"
	msgUnauthorized      = "Unauthorized request"
	msgInvalidRefresh    = "Invalid refresh token"
	msgRefreshUsed       = "Refresh token is expired or used"
	msgInvalidOldPass    = "Invalid old password"
	msgPasswordTooLong   = "Password must be at most 72 bytes"
)

// Metrics receives one call per finished auth operation. It may be nil.
type Metrics interface {
	AuthEvent(operation string, success bool)
}

// Manager owns registration, login, logout, refresh and password changes.
type Manager struct {
	users    repository.UserRepository
	tokens   *auth.TokenService
	uploader *media.Uploader
	metrics  Metrics
}

// NewManager creates a new Manager.
func NewManager(users repository.UserRepository, tokens *auth.TokenService, uploader *media.Uploader, metrics Metrics) *Manager {
	return &Manager{users: users, tokens: tokens, uploader: uploader, metrics: metrics}
}

// RegisterInput is the validated registration payload. Avatar is required.
type RegisterInput struct {
	FullName   string            `json:"fullname" validate:"required,max=255"`
	Email      string            `json:"email" validate:"required,email,max=255"`
	Username   string            `json:"username" validate:"required,max=64"`
	Password   string            `json:"password" validate:"required"`
	Avatar     *media.StagedFile `json:"-"`
	CoverImage *media.StagedFile `json:"-"`
}

// LoginInput identifies the user by username or email.
type LoginInput struct {
	Username string `json:"username" validate:"max=64"`
	Email    string `json:"email" validate:"max=255"`
	Password string `json:"password"`
}

// ChangePasswordInput carries the old and the new password.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// TokenPair is what login and refresh hand to the boundary for cookies and body.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User *model.PublicUser `json:"user"`
	TokenPair
}

func (m *Manager) observe(op string, err error) {
	if m.metrics != nil {
		m.metrics.AuthEvent(op, err == nil)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates an account. Both staged files are removed before it returns,
// and uploaded images are deleted again if the account is not created.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (user *model.PublicUser, err error) {
	defer media.RemoveAll(in.Avatar, in.CoverImage)
	defer func() { m.observe("register", err) }()

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalize(in.Email)
	in.Username = normalize(in.Username)
	if validate.Blank(in.FullName, in.Email, in.Username, in.Password) {
		return nil, apperr.Validation(msgAllFieldsRequired)
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	existing, err := m.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, apperr.Internal(msgRegisterFailed, err)
	}
	if existing != nil {
		logger.Warn("[Register] user already exists", logger.String("username", in.Username))
		return nil, apperr.Conflict(msgUserExists)
	}
	if in.Avatar == nil {
		return nil, apperr.Validation(msgAvatarRequired)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return nil, apperr.Validation(msgPasswordTooLong)
		}
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	avatarURL, coverURL, err := m.uploadImages(ctx, in.Avatar, in.CoverImage)
	if err != nil {
		return nil, err
	}

	// Store uniqueness is authoritative; the lookup above only saves an upload round trip.
	created := model.NewUser(in.Username, in.Email, in.FullName, hash, avatarURL, coverURL)
	if err := m.users.Create(ctx, created); err != nil {
		m.uploader.Discard(context.WithoutCancel(ctx), avatarURL, coverURL)
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] duplicate rejected by store", logger.String("username", in.Username))
			return nil, apperr.Conflict(msgUserExists)
		}
		logger.Error("[Register] failed to create user", logger.ErrorField(err))
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	stored, err := m.users.FindByID(ctx, created.ID)
	if err != nil || stored == nil {
		logger.Error("[Register] created user is not readable",
			logger.String("userID", created.ID), logger.ErrorField(err))
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	logger.Info("[Register] user registered",
		logger.String("userID", stored.ID), logger.String("username", stored.Username))
	return stored.Public(), nil
}

// uploadImages pushes the avatar and the optional cover concurrently. On failure
// whatever did upload is deleted again.
func (m *Manager) uploadImages(ctx context.Context, avatar, cover *media.StagedFile) (avatarURL, coverURL string, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		avatarURL, err = m.uploader.Upload(gctx, avatar)
		return err
	})
	if cover != nil {
		g.Go(func() error {
			var err error
			coverURL, err = m.uploader.Upload(gctx, cover)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		m.uploader.Discard(context.WithoutCancel(ctx), avatarURL, coverURL)
		return "", "", err
	}
	return avatarURL, coverURL, nil
}

// Login verifies credentials, issues a fresh pair and persists the refresh token.
func (m *Manager) Login(ctx context.Context, in LoginInput) (result *LoginResult, err error) {
	defer func() { m.observe("login", err) }()

	in.Username = normalize(in.Username)
	in.Email = normalize(in.Email)
	if in.Username == "" && in.Email == "" {
		return nil, apperr.Validation("username or email is required")
	}
	if in.Password == "" {
		return nil, apperr.Validation("password is required")
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := m.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, apperr.Internal("Failed to load user", err)
	}
	if user == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if !auth.CheckPasswordHash(in.Password, user.PasswordHash) {
		logger.Warn("[Login] invalid password", logger.String("userID", user.ID))
		return nil, apperr.Auth(msgInvalidCreds)
	}

	pair, err := m.issue(user)
	if err != nil {
		return nil, err
	}
	updated, err := m.users.Update(ctx, user.ID, model.UserPatch{RefreshToken: &pair.RefreshToken})
	if err != nil || updated == nil {
		return nil, apperr.Internal("Failed to store refresh token", err)
	}

	logger.Info("[Login] user logged in", logger.String("userID", user.ID))
	return &LoginResult{User: updated.Public(), TokenPair: *pair}, nil
}

func (m *Manager) issue(user *model.User) (*TokenPair, error) {
	access, refresh, err := m.tokens.IssuePair(user)
	if err != nil {
		return nil, apperr.Internal("Failed to generate tokens", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout clears the stored refresh token. Clearing an empty token is not an error.
func (m *Manager) Logout(ctx context.Context, userID string) (err error) {
	defer func() { m.observe("logout", err) }()

	if _, err := m.users.Update(ctx, userID, model.UserPatch{RefreshToken: model.StringPtr("")}); err != nil {
		return apperr.Internal("Failed to log out", err)
	}
	logger.Info("[Logout] user logged out", logger.String("userID", userID))
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must be the
// one currently stored; the swap is conditional so a token is accepted at most once.
func (m *Manager) Refresh(ctx context.Context, presented string) (pair *TokenPair, err error) {
	defer func() { m.observe("refresh", err) }()

	if presented == "" {
		return nil, apperr.Auth(msgUnauthorized)
	}
	userID, err := m.tokens.VerifyRefreshToken(presented)
	if err != nil {
		return nil, apperr.Auth(msgInvalidRefresh)
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load user", err)
	}
	if user == nil {
		return nil, apperr.Auth(msgInvalidRefresh)
	}
	if user.RefreshToken != presented {
		logger.Warn("[Refresh] stale refresh token presented", logger.String("userID", userID))
		return nil, apperr.Auth(msgRefreshUsed)
	}

	pair, err = m.issue(user)
	if err != nil {
		return nil, err
	}
	swapped, err := m.users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, apperr.Internal("Failed to store refresh token", err)
	}
	if !swapped {
		logger.Warn("[Refresh] refresh token raced with another rotation", logger.String("userID", userID))
		return nil, apperr.Auth(msgRefreshUsed)
	}
	return pair, nil
}

// ChangePassword replaces the password after checking the old one.
func (m *Manager) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) (err error) {
	defer func() { m.observe("change_password", err) }()

	if in.OldPassword == "" || in.NewPassword == "" {
		return apperr.Validation("oldPassword and newPassword are required")
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return apperr.Internal("Failed to load user", err)
	}
	if user == nil {
		return apperr.NotFound(msgUserNotFound)
	}
	if !auth.CheckPasswordHash(in.OldPassword, user.PasswordHash) {
		return apperr.Auth(msgInvalidOldPass)
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return apperr.Validation(msgPasswordTooLong)
		}
		return apperr.Internal("Failed to hash password", err)
	}
	if _, err := m.users.Update(ctx, userID, model.UserPatch{PasswordHash: &hash}); err != nil {
		return apperr.Internal("Failed to update password", err)
	}
	logger.Info("[ChangePassword] password changed", logger.String("userID", userID))
	return nil
}

// CurrentUser returns the sanitized user.
func (m *Manager) CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load user", err)
	}
	if user == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return user.Public(), nil
}
