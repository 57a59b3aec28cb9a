package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository/mocks"
	"go_flashcard_study/internal/service"
	servicemocks "go_flashcard_study/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- テストスイートの定義 ---
type AuthServiceTestSuite struct {
	suite.Suite

	db            *gorm.DB
	mockUserRepo  *mocks.UserRepository
	mockTokenRepo *mocks.TokenRepository
	mockMailer    *servicemocks.Mailer
	cfg           *config.Config
	authService   service.AuthService
}

// 各テストの前にモックを作り直す。トランザクションだけは実DBを使う
func (s *AuthServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.mockUserRepo = new(mocks.UserRepository)
	s.mockTokenRepo = new(mocks.TokenRepository)
	s.mockMailer = new(servicemocks.Mailer)
	s.cfg = testConfig()

	s.authService = service.NewAuthService(s.db, s.mockUserRepo, s.mockTokenRepo, s.mockMailer, s.cfg)
}

// サブテストごとにもモックを作り直す
func (s *AuthServiceTestSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *AuthServiceTestSuite) TearDownSubTest() {
	s.TearDownTest()
}

func (s *AuthServiceTestSuite) TearDownTest() {
	s.mockUserRepo.AssertExpectations(s.T())
	s.mockTokenRepo.AssertExpectations(s.T())
	s.mockMailer.AssertExpectations(s.T())
}

func TestAuthService(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (s *AuthServiceTestSuite) newUser(password string, active bool) *model.User {
	hash, err := service.HashPassword(password)
	s.Require().NoError(err)
	return &model.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     active,
	}
}

func (s *AuthServiceTestSuite) assertAppError(err error, code string, sentinel error) {
	s.Require().Error(err)
	var appErr *model.AppError
	s.Require().True(errors.As(err, &appErr), "AppError であること: %v", err)
	s.Equal(code, appErr.Detail.Code)
	s.ErrorIs(err, sentinel)
}

func (s *AuthServiceTestSuite) TestRegister() {
	testCases := []struct {
		name        string
		req         *model.RegisterRequest
		setupMocks  func()
		checkResult func(resp *model.AuthResponse, err error)
	}{
		{
			name: "正常系: 登録するとトークンとユーザーが返る",
			req:  &model.RegisterRequest{Username: "alice", Email: "Alice@Example.com", Password: "password123"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(nil, model.ErrNotFound).Once()
				s.mockUserRepo.On("FindByUsername", mock.Anything, mock.Anything, "alice").Return(nil, model.ErrNotFound).Once()
				s.mockUserRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "alice@example.com" && u.Role == model.RoleUser && u.IsActive &&
						bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")) == nil
				})).Return(nil).Once()
			},
			checkResult: func(resp *model.AuthResponse, err error) {
				s.Require().NoError(err)
				s.NotEmpty(resp.Token)
				s.Equal("alice@example.com", resp.User.Email)

				p, err := middleware.ParseToken(resp.Token, s.cfg.JWT.SecretKey)
				s.Require().NoError(err)
				s.Equal(resp.User.ID, p.UserID)
				s.Equal(model.RoleUser, p.Role)
			},
		},
		{
			name: "異常系: メールアドレスが重複している",
			req:  &model.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(&model.User{}, nil).Once()
			},
			checkResult: func(resp *model.AuthResponse, err error) {
				s.Nil(resp)
				s.assertAppError(err, "DUPLICATE_EMAIL", model.ErrConflict)
			},
		},
		{
			name: "異常系: ユーザー名が重複している",
			req:  &model.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(nil, model.ErrNotFound).Once()
				s.mockUserRepo.On("FindByUsername", mock.Anything, mock.Anything, "alice").Return(&model.User{}, nil).Once()
			},
			checkResult: func(resp *model.AuthResponse, err error) {
				s.Nil(resp)
				s.assertAppError(err, "DUPLICATE_USERNAME", model.ErrConflict)
			},
		},
		{
			name: "異常系: 作成時に一意制約違反になった",
			req:  &model.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(nil, model.ErrNotFound).Once()
				s.mockUserRepo.On("FindByUsername", mock.Anything, mock.Anything, "alice").Return(nil, model.ErrNotFound).Once()
				s.mockUserRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(model.ErrConflict).Once()
			},
			checkResult: func(resp *model.AuthResponse, err error) {
				s.Nil(resp)
				s.assertAppError(err, "DUPLICATE_ENTRY", model.ErrConflict)
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			tc.setupMocks()
			resp, err := s.authService.Register(context.Background(), tc.req)
			tc.checkResult(resp, err)
		})
	}
}

func (s *AuthServiceTestSuite) TestLogin() {
	active := s.newUser("password123", true)
	inactive := s.newUser("password123", false)

	testCases := []struct {
		name       string
		req        *model.LoginRequest
		setupMocks func()
		wantCode   string
		wantErr    error
	}{
		{
			name: "正常系: ログインできる",
			req:  &model.LoginRequest{Email: "alice@example.com", Password: "password123"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(active, nil).Once()
			},
		},
		{
			name: "異常系: 存在しないメールアドレス",
			req:  &model.LoginRequest{Email: "nobody@example.com", Password: "password123"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "nobody@example.com").Return(nil, model.ErrNotFound).Once()
			},
			wantCode: "AUTHENTICATION_FAILED",
			wantErr:  model.ErrUnauthorized,
		},
		{
			name: "異常系: パスワードが違う",
			req:  &model.LoginRequest{Email: "alice@example.com", Password: "wrong-password"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(active, nil).Once()
			},
			wantCode: "AUTHENTICATION_FAILED",
			wantErr:  model.ErrUnauthorized,
		},
		{
			name: "異常系: 無効化されたアカウント",
			req:  &model.LoginRequest{Email: "alice@example.com", Password: "password123"},
			setupMocks: func() {
				s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(inactive, nil).Once()
			},
			wantCode: "ACCOUNT_DISABLED",
			wantErr:  model.ErrForbidden,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			tc.setupMocks()
			resp, err := s.authService.Login(context.Background(), tc.req)
			if tc.wantCode != "" {
				s.Nil(resp)
				s.assertAppError(err, tc.wantCode, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.NotEmpty(resp.Token)
			s.Equal(active.ID, resp.User.ID)
		})
	}
}

func (s *AuthServiceTestSuite) TestChangePassword() {
	user := s.newUser("password123", true)

	s.Run("正常系: 新しいパスワードのハッシュで更新される", func() {
		s.mockUserRepo.On("FindByID", mock.Anything, mock.Anything, user.ID).Return(user, nil).Once()
		s.mockUserRepo.On("UpdateFields", mock.Anything, mock.Anything, user.ID, mock.MatchedBy(func(m map[string]interface{}) bool {
			hash, ok := m["password_hash"].(string)
			return ok && bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-password")) == nil
		})).Return(nil).Once()

		err := s.authService.ChangePassword(context.Background(), user.ID, &model.ChangePasswordRequest{
			CurrentPassword: "password123",
			NewPassword:     "new-password",
		})
		s.NoError(err)
	})

	s.Run("異常系: 現在のパスワードが違う", func() {
		s.mockUserRepo.On("FindByID", mock.Anything, mock.Anything, user.ID).Return(user, nil).Once()

		err := s.authService.ChangePassword(context.Background(), user.ID, &model.ChangePasswordRequest{
			CurrentPassword: "wrong",
			NewPassword:     "new-password",
		})
		s.assertAppError(err, "INVALID_PASSWORD", model.ErrInvalidInput)
	})
}

func (s *AuthServiceTestSuite) TestRequestPasswordReset() {
	user := s.newUser("password123", true)

	s.Run("正常系: トークンを保存してリセットリンクを送る", func() {
		var saved *model.PasswordResetToken
		s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(user, nil).Once()
		s.mockTokenRepo.On("CreatePasswordResetToken", mock.Anything, mock.Anything, mock.AnythingOfType("*model.PasswordResetToken")).
			Run(func(args mock.Arguments) {
				saved = args.Get(2).(*model.PasswordResetToken)
			}).Return(nil).Once()
		s.mockMailer.On("Send", mock.Anything, "alice@example.com", mock.Anything, mock.MatchedBy(func(body string) bool {
			return saved != nil && len(saved.Token) == 64 &&
				strings.Contains(body, "http://localhost:3000/reset-password?token="+saved.Token)
		})).Return(nil).Once()

		err := s.authService.RequestPasswordReset(context.Background(), "alice@example.com")
		s.NoError(err)
		s.Require().NotNil(saved)
		s.Equal(user.ID, saved.UserID)
		s.WithinDuration(time.Now().UTC().Add(config.PasswordResetTokenTTL), saved.ExpiresAt, time.Minute)
	})

	s.Run("正常系: 存在しないメールアドレスでも成功扱いでメールは送らない", func() {
		s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "nobody@example.com").Return(nil, model.ErrNotFound).Once()

		err := s.authService.RequestPasswordReset(context.Background(), "nobody@example.com")
		s.NoError(err)
		s.mockMailer.AssertNotCalled(s.T(), "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("異常系: メール送信に失敗した", func() {
		s.mockUserRepo.On("FindByEmail", mock.Anything, mock.Anything, "alice@example.com").Return(user, nil).Once()
		s.mockTokenRepo.On("CreatePasswordResetToken", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		s.mockMailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		err := s.authService.RequestPasswordReset(context.Background(), "alice@example.com")
		s.Require().Error(err)
		var appErr *model.AppError
		s.Require().True(errors.As(err, &appErr))
		s.Equal("EMAIL_SEND_FAILED", appErr.Detail.Code)
	})
}

func (s *AuthServiceTestSuite) TestResetPassword() {
	userID := uuid.New()

	s.Run("正常系: パスワードを更新してトークンを削除する", func() {
		token := &model.PasswordResetToken{Token: "tok", UserID: userID, ExpiresAt: time.Now().UTC().Add(time.Hour)}
		s.mockTokenRepo.On("FindPasswordResetToken", mock.Anything, mock.Anything, "tok").Return(token, nil).Once()
		s.mockUserRepo.On("UpdateFields", mock.Anything, mock.Anything, userID, mock.Anything).Return(nil).Once()
		s.mockTokenRepo.On("DeletePasswordResetToken", mock.Anything, mock.Anything, "tok").Return(nil).Once()

		s.NoError(s.authService.ResetPassword(context.Background(), "tok", "new-password"))
	})

	s.Run("異常系: 存在しないトークン", func() {
		s.mockTokenRepo.On("FindPasswordResetToken", mock.Anything, mock.Anything, "missing").Return(nil, model.ErrNotFound).Once()

		err := s.authService.ResetPassword(context.Background(), "missing", "new-password")
		s.assertAppError(err, "INVALID_TOKEN", model.ErrInvalidInput)
	})

	s.Run("異常系: 期限切れのトークン", func() {
		token := &model.PasswordResetToken{Token: "old", UserID: userID, ExpiresAt: time.Now().UTC().Add(-time.Minute)}
		s.mockTokenRepo.On("FindPasswordResetToken", mock.Anything, mock.Anything, "old").Return(token, nil).Once()

		err := s.authService.ResetPassword(context.Background(), "old", "new-password")
		s.assertAppError(err, "INVALID_TOKEN", model.ErrInvalidInput)
	})
}

func (s *AuthServiceTestSuite) TestAccessPolicy() {
	owner := uuid.New()
	other := uuid.New()
	user := model.Principal{UserID: owner, Role: model.RoleUser}
	admin := model.Principal{UserID: other, Role: model.RoleAdmin}
	anonymous := model.Principal{}

	s.True(s.authService.IsAdmin(admin))
	s.False(s.authService.IsAdmin(user))

	s.True(s.authService.HasRole(user, model.RoleUser))
	s.False(s.authService.HasRole(user, model.RoleAdmin))
	s.True(s.authService.HasRole(admin, model.RoleUser), "admin は user ロールも満たす")
	s.False(s.authService.HasRole(anonymous, model.RoleUser))

	s.True(s.authService.CanAccessUserResource(user, owner))
	s.False(s.authService.CanAccessUserResource(user, other))
	s.True(s.authService.CanAccessUserResource(admin, owner))
	s.False(s.authService.CanAccessUserResource(anonymous, owner))
}
