//go:generate mockery --name StudyService --output ./mocks --outpkg mocks --case=underscore
package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/srs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudyService interface {
	GetDueCards(ctx context.Context, userID uuid.UUID) ([]*model.Flashcard, error)
	StartSession(ctx context.Context, userID uuid.UUID) (*model.SessionProgress, error)
	GetCurrentSession(ctx context.Context, userID uuid.UUID) (*model.SessionProgress, error)
	EndSession(ctx context.Context, userID uuid.UUID) (*model.SessionProgress, error)
	Review(ctx context.Context, userID, cardID uuid.UUID, rating srs.Rating) (*model.StudyReviewResponse, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*model.StudyStats, error)
}

type studyService struct {
	db          *gorm.DB
	cardRepo    repository.FlashcardRepository
	sessionRepo repository.StudySessionRepository
	reviewer    *CardReviewer
	appCfg      config.AppConfig
	studyCfg    config.StudyConfig

	// ユーザーごとに未終了セッションが1つになるよう直列化する
	sessionLocks [reviewLockStripes]sync.Mutex
}

func NewStudyService(db *gorm.DB, cardRepo repository.FlashcardRepository, sessionRepo repository.StudySessionRepository, reviewer *CardReviewer, cfg *config.Config) StudyService {
	return &studyService{
		db:          db,
		cardRepo:    cardRepo,
		sessionRepo: sessionRepo,
		reviewer:    reviewer,
		appCfg:      cfg.App,
		studyCfg:    cfg.Study,
	}
}

var errNoActiveSession = model.NewAppError("NO_ACTIVE_SESSION", "there is no active study session", "", model.ErrNotFound)

func (s *studyService) lockUser(userID uuid.UUID) func() {
	h := fnv.New32a()
	h.Write(userID[:])
	m := &s.sessionLocks[h.Sum32()%reviewLockStripes]
	m.Lock()
	return m.Unlock
}

// GetDueCards は復習期限の来たカードを期限の古い順に最大 review_limit 件返します
func (s *studyService) GetDueCards(ctx context.Context, userID uuid.UUID) ([]*model.Flashcard, error) {
	cards, err := s.cardRepo.FindDue(ctx, s.db, userID, utcNow(), s.appCfg.ReviewLimit)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []*model.Flashcard{}
	}
	return cards, nil
}

// StartSession は未終了のセッションがあればそれを、なければ新しいセッションを返します
func (s *studyService) StartSession(ctx context.Context, userID uuid.UUID) (*model.SessionProgress, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	var progress model.SessionProgress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := utcNow()
		session, err := s.openSession(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		remaining, err := s.cardRepo.CountDue(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		progress = model.NewSessionProgress(session, remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (s *studyService) GetCurrentSession(ctx context.Context, userID uuid.UUID) (*model.SessionProgress, error) {
	now := utcNow()
	session, err := s.sessionRepo.FindOpenByUser(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, errNoActiveSession
		}
		return nil, err
	}
	if s.isIdle(session, now) {
		return nil, errNoActiveSession
	}
	remaining, err := s.cardRepo.CountDue(ctx, s.db, userID, now)
	if err != nil {
		return nil, err
	}
	progress := model.NewSessionProgress(session, remaining)
	return &progress, nil
}

// EndSession は未終了のセッションを閉じ、最終的な進捗を返します
func (s *studyService) EndSession(ctx context.Context, userID uuid.UUID) (*model.SessionProgress, error) {
	logger := middleware.GetLogger(ctx)
	unlock := s.lockUser(userID)
	defer unlock()

	var progress model.SessionProgress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := utcNow()
		session, err := s.sessionRepo.FindOpenByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return errNoActiveSession
			}
			return err
		}
		session.EndedAt = &now
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return err
		}
		remaining, err := s.cardRepo.CountDue(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		progress = model.NewSessionProgress(session, remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Study session ended",
		"session_id", progress.SessionID.String(),
		"cards_reviewed", progress.CardsReviewed,
	)
	return &progress, nil
}

// Review はカードの復習と、セッションの集計更新を同じトランザクションで行います。
func (s *studyService) Review(ctx context.Context, userID, cardID uuid.UUID, rating srs.Rating) (*model.StudyReviewResponse, error) {
	if err := s.reviewer.ValidateRating(rating); err != nil {
		return nil, err
	}

	unlockCard := s.reviewer.Lock(cardID)
	defer unlockCard()
	unlockUser := s.lockUser(userID)
	defer unlockUser()

	var resp model.StudyReviewResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := utcNow()
		card, err := s.reviewer.ReviewInTx(ctx, tx, userID, cardID, rating, now)
		if err != nil {
			return err
		}

		session, err := s.openSession(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		session.CardsReviewed++
		session.RatingSum += int(rating)
		if rating.Passed() {
			session.CorrectCount++
		}
		session.LastActivityAt = now
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return err
		}

		remaining, err := s.cardRepo.CountDue(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		resp = model.StudyReviewResponse{
			Flashcard:       card,
			SessionProgress: model.NewSessionProgress(session, remaining),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStats の reviewedToday は UTC の0時以降に復習したカード数です
func (s *studyService) GetStats(ctx context.Context, userID uuid.UUID) (*model.StudyStats, error) {
	now := utcNow()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.cardRepo.Stats(ctx, s.db, userID, now, dayStart)
}

// openSession は未終了のセッションを返します。
// 放置されたセッションは閉じてから新しく作ります。呼び出し側でユーザーロックを取っていること。
func (s *studyService) openSession(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) (*model.StudySession, error) {
	logger := middleware.GetLogger(ctx)

	session, err := s.sessionRepo.FindOpenByUser(ctx, tx, userID)
	switch {
	case err == nil && !s.isIdle(session, now):
		return session, nil
	case err == nil:
		ended := session.LastActivityAt
		session.EndedAt = &ended
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return nil, err
		}
		logger.Info("Closed idle study session", "session_id", session.ID.String())
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	session = &model.StudySession{
		ID:             uuid.New(),
		UserID:         userID,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if err := s.sessionRepo.Create(ctx, tx, session); err != nil {
		return nil, err
	}
	logger.Info("Study session started", "session_id", session.ID.String(), "user_id", userID.String())
	return session, nil
}

func (s *studyService) isIdle(session *model.StudySession, now time.Time) bool {
	if s.studyCfg.SessionIdleTimeout <= 0 {
		return false
	}
	return now.Sub(session.LastActivityAt) > s.studyCfg.SessionIdleTimeout
}
