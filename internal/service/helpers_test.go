package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/srs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB はテストごとに独立したインメモリ SQLite を用意します
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.NewDB(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, logger)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:            "FlashcardStudyTest",
			FrontendURL:     "http://localhost:3000",
			ReviewLimit:     20,
			MaxTextLength:   500,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		JWT: config.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenTTL: 15 * time.Minute,
		},
		Study: config.StudyConfig{
			SessionIdleTimeout: 30 * time.Minute,
			CleanupInterval:    5 * time.Minute,
		},
	}
}

// testEnv は実リポジトリを使ったサービス一式です
type testEnv struct {
	db          *gorm.DB
	cfg         *config.Config
	userRepo    repository.UserRepository
	cardRepo    repository.FlashcardRepository
	sessionRepo repository.StudySessionRepository
	tokenRepo   repository.TokenRepository
	reviewer    *service.CardReviewer
	cards       service.FlashcardService
	study       service.StudyService
	admin       service.AdminService
	maintenance *service.MaintenanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	scheduler, err := srs.NewScheduler(srs.DefaultParams())
	require.NoError(t, err)

	env := &testEnv{
		db:          db,
		cfg:         cfg,
		userRepo:    repository.NewGormUserRepository(),
		cardRepo:    repository.NewGormFlashcardRepository(),
		sessionRepo: repository.NewGormStudySessionRepository(),
		tokenRepo:   repository.NewGormTokenRepository(),
	}
	env.reviewer = service.NewCardReviewer(scheduler, env.cardRepo)
	env.cards = service.NewFlashcardService(db, env.cardRepo, env.reviewer, cfg.App)
	env.study = service.NewStudyService(db, env.cardRepo, env.sessionRepo, env.reviewer, cfg)
	env.admin = service.NewAdminService(db, env.userRepo, env.cardRepo, env.sessionRepo, env.tokenRepo)
	env.maintenance = service.NewMaintenanceService(db, env.sessionRepo, env.tokenRepo, cfg.Study.SessionIdleTimeout)
	return env
}

func (e *testEnv) createUser(t *testing.T, username string, role model.Role) *model.User {
	t.Helper()
	hash, err := service.HashPassword("password123")
	require.NoError(t, err)
	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, e.userRepo.Create(context.Background(), e.db, user))
	return user
}

// newStudyServiceWithLimit は review_limit だけを変えた StudyService を返します
func newStudyServiceWithLimit(env *testEnv, limit int) service.StudyService {
	cfg := *env.cfg
	cfg.App.ReviewLimit = limit
	return service.NewStudyService(env.db, env.cardRepo, env.sessionRepo, env.reviewer, &cfg)
}
