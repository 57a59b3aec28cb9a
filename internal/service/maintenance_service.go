package service

import (
	"context"
	"time"

	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/repository"

	"gorm.io/gorm"
)

// MaintenanceService は定期ジョブから呼ばれる後片付け処理です。
type MaintenanceService struct {
	db          *gorm.DB
	sessionRepo repository.StudySessionRepository
	tokenRepo   repository.TokenRepository
	idleTimeout time.Duration
}

func NewMaintenanceService(db *gorm.DB, sessionRepo repository.StudySessionRepository, tokenRepo repository.TokenRepository, idleTimeout time.Duration) *MaintenanceService {
	return &MaintenanceService{
		db:          db,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		idleTimeout: idleTimeout,
	}
}

// CloseIdleSessions は最終操作から idleTimeout を過ぎた未終了セッションを閉じます
func (s *MaintenanceService) CloseIdleSessions(ctx context.Context, now time.Time) (int64, error) {
	if s.idleTimeout <= 0 {
		return 0, nil
	}
	n, err := s.sessionRepo.CloseIdle(ctx, s.db, now.Add(-s.idleTimeout), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		middleware.GetLogger(ctx).Info("Closed idle study sessions", "count", n)
	}
	return n, nil
}

func (s *MaintenanceService) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(ctx, s.db, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		middleware.GetLogger(ctx).Info("Purged expired password reset tokens", "count", n)
	}
	return n, nil
}
