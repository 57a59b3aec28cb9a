//go:generate mockery --name AuthService --output ./mocks --outpkg mocks --case=underscore
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService はアカウント認証と、呼び出し元の権限判定を提供します。
type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	IssueToken(user *model.User) (string, error)

	IsAdmin(p model.Principal) bool
	HasRole(p model.Principal, role model.Role) bool
	CanAccessUserResource(p model.Principal, ownerID uuid.UUID) bool
}

var _ middleware.AccessPolicy = (AuthService)(nil)

type authService struct {
	db        *gorm.DB
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	mailer    Mailer
	cfg       *config.Config
}

// NewAuthService は AuthService の新しいインスタンスを生成します
func NewAuthService(db *gorm.DB, userRepo repository.UserRepository, tokenRepo repository.TokenRepository, mailer Mailer, cfg *config.Config) AuthService {
	return &authService{
		db:        db,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		mailer:    mailer,
		cfg:       cfg,
	}
}

var errAuthFailed = model.NewAppError("AUTHENTICATION_FAILED", "invalid email or password", "", model.ErrUnauthorized)

// Register は一般ユーザーを作成し、ログイン済みのトークンを返します
func (s *authService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	logger := middleware.GetLogger(ctx)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	var newUser *model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.userRepo.FindByEmail(ctx, tx, email)
		if err == nil {
			logger.Warn("Email already exists", "email", email)
			return model.NewAppError("DUPLICATE_EMAIL", "email is already registered", "email", model.ErrConflict)
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		_, err = s.userRepo.FindByUsername(ctx, tx, req.Username)
		if err == nil {
			logger.Warn("Username already exists", "username", req.Username)
			return model.NewAppError("DUPLICATE_USERNAME", "username is already taken", "username", model.ErrConflict)
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		hashedPassword, err := HashPassword(req.Password)
		if err != nil {
			return err
		}

		user := &model.User{
			ID:           uuid.New(),
			Username:     req.Username,
			Email:        email,
			PasswordHash: hashedPassword,
			Role:         model.RoleUser,
			IsActive:     true,
		}
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return model.NewAppError("DUPLICATE_ENTRY", "username or email is already in use", "username,email", model.ErrConflict)
			}
			return err
		}
		newUser = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(newUser)
	if err != nil {
		return nil, err
	}
	logger.Info("User registered", "user_id", newUser.ID.String())
	return &model.AuthResponse{Token: token, User: newUser}, nil
}

// Login はユーザーを認証し、JWTを返します
func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	logger := middleware.GetLogger(ctx).With("email", req.Email)

	user, err := s.userRepo.FindByEmail(ctx, s.db, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn("Login failed: user not found")
			return nil, errAuthFailed
		}
		logger.Error("Login failed: db error on FindByEmail", "error", err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("Login failed: password mismatch", "user_id", user.ID.String())
		return nil, errAuthFailed
	}

	if !user.IsActive {
		logger.Warn("Login failed: account deactivated", "user_id", user.ID.String())
		return nil, model.NewAppError("ACCOUNT_DISABLED", "this account has been deactivated", "", model.ErrForbidden)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	logger.Info("Login successful", "user_id", user.ID.String())
	return &model.AuthResponse{Token: token, User: user}, nil
}

// IssueToken は sub=ユーザーID, role=ロール のアクセストークンを発行します
func (s *authService) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &model.JWTCustomClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.App.Name,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// GetUser は指定されたIDのユーザーを取得します
func (s *authService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewNotFoundError("user")
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	logger := middleware.GetLogger(ctx)

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		logger.Warn("Password change rejected: current password mismatch", "user_id", userID.String())
		return model.NewAppError("INVALID_PASSWORD", "current password is incorrect", "currentPassword", model.ErrInvalidInput)
	}

	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateFields(ctx, s.db, userID, map[string]interface{}{"password_hash": hashed}); err != nil {
		return err
	}
	logger.Info("Password changed", "user_id", userID.String())
	return nil
}

// RequestPasswordReset はアカウントの有無に関わらず成功を返します
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	logger := middleware.GetLogger(ctx).With("email", email)

	user, err := s.userRepo.FindByEmail(ctx, s.db, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn("Password reset requested for non-existent email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		logger.Warn("Password reset requested for deactivated account", "user_id", user.ID.String())
		return nil
	}

	tokenString, err := s.generateAndSavePasswordResetToken(ctx, s.db, user.ID)
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.App.FrontendURL, tokenString)
	subject := fmt.Sprintf("[%s] Reset your password", s.cfg.App.Name)
	body := fmt.Sprintf("To reset your password, open the link below:\n%s\n\nThis link expires in %s.", resetURL, config.PasswordResetTokenTTL)

	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		return model.NewAppError("EMAIL_SEND_FAILED", "failed to send the reset email", "", err)
	}

	logger.Info("Password reset email sent")
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	logger := middleware.GetLogger(ctx)
	invalidToken := model.NewAppError("INVALID_TOKEN", "reset link is invalid or has already been used", "token", model.ErrInvalidInput)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := s.tokenRepo.FindPasswordResetToken(ctx, tx, tokenString)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return invalidToken
			}
			return err
		}
		// 期限切れのトークンは定期ジョブで削除される
		if token.Expired(time.Now().UTC()) {
			return model.NewAppError("INVALID_TOKEN", "reset link has expired", "token", model.ErrInvalidInput)
		}

		hashed, err := HashPassword(newPassword)
		if err != nil {
			return err
		}
		if err := s.userRepo.UpdateFields(ctx, tx, token.UserID, map[string]interface{}{"password_hash": hashed}); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return invalidToken
			}
			return err
		}

		if err := s.tokenRepo.DeletePasswordResetToken(ctx, tx, tokenString); err != nil {
			return err
		}

		logger.Info("Password reset successfully", "user_id", token.UserID.String())
		return nil
	})
}

// --- 権限判定 ---

func (s *authService) IsAdmin(p model.Principal) bool {
	return p.Role == model.RoleAdmin
}

// HasRole は admin を全ロールの上位として扱います
func (s *authService) HasRole(p model.Principal, role model.Role) bool {
	if p.UserID == uuid.Nil {
		return false
	}
	return p.Role == role || s.IsAdmin(p)
}

func (s *authService) CanAccessUserResource(p model.Principal, ownerID uuid.UUID) bool {
	if p.UserID == uuid.Nil {
		return false
	}
	return p.UserID == ownerID || s.IsAdmin(p)
}

// --- ヘルパー関数 ---

// HashPassword は bcrypt でハッシュ化します
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *authService) generateAndSavePasswordResetToken(ctx context.Context, db *gorm.DB, userID uuid.UUID) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	tokenString := hex.EncodeToString(tokenBytes)
	resetToken := &model.PasswordResetToken{
		Token:     tokenString,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(config.PasswordResetTokenTTL),
	}
	if err := s.tokenRepo.CreatePasswordResetToken(ctx, db, resetToken); err != nil {
		return "", err
	}
	return tokenString, nil
}
