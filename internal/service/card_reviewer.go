package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/srs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const reviewLockStripes = 64

// CardReviewer はカード1枚の復習 (読み込み→スケジュール計算→書き込み) を行います。
// /cards と /study の両方の復習APIから共有されます。
type CardReviewer struct {
	scheduler *srs.Scheduler
	cardRepo  repository.FlashcardRepository
	locks     [reviewLockStripes]sync.Mutex
}

func NewCardReviewer(scheduler *srs.Scheduler, cardRepo repository.FlashcardRepository) *CardReviewer {
	return &CardReviewer{
		scheduler: scheduler,
		cardRepo:  cardRepo,
	}
}

// Scheduler はカード作成時の初期状態計算に使います
func (r *CardReviewer) Scheduler() *srs.Scheduler {
	return r.scheduler
}

// ValidateRating はDBに触れる前に評価値を検証します
func (r *CardReviewer) ValidateRating(rating srs.Rating) error {
	if !rating.IsValid() {
		_, err := srs.ParseRating(int(rating))
		return model.NewInvalidRatingError(err)
	}
	return nil
}

// Lock は同じカードの復習をプロセス内で直列化します。
// トランザクション開始前に取得すること (SQLite の単一コネクションと競合しないように)。
func (r *CardReviewer) Lock(cardID uuid.UUID) (unlock func()) {
	h := fnv.New32a()
	h.Write(cardID[:])
	m := &r.locks[h.Sum32()%reviewLockStripes]
	m.Lock()
	return m.Unlock
}

// ReviewInTx は tx の中でカードを読み込み、評価を反映して書き戻します。
// 他人のカード・存在しないカードは ErrNotFound、同時更新に負けた場合は ErrConflict になります。
func (r *CardReviewer) ReviewInTx(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID, rating srs.Rating, now time.Time) (*model.Flashcard, error) {
	logger := middleware.GetLogger(ctx).With("card_id", cardID.String())

	card, err := r.cardRepo.FindByIDForUpdate(ctx, tx, userID, cardID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewNotFoundError("flashcard")
		}
		return nil, err
	}

	prevCount := card.ReviewCount
	next, err := r.scheduler.Review(card.SchedulingState(), rating, now)
	if err != nil {
		if errors.Is(err, srs.ErrInvalidRating) {
			return nil, model.NewInvalidRatingError(err)
		}
		return nil, err
	}
	card.ApplySchedulingState(next)
	card.UpdatedAt = now

	if err := r.cardRepo.UpdateReviewState(ctx, tx, card, prevCount); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, model.NewAppError("REVIEW_CONFLICT", "the flashcard was reviewed concurrently; please retry", "", model.ErrConflict)
		}
		return nil, err
	}

	logger.Info("Flashcard reviewed",
		"rating", int(rating),
		"review_count", card.ReviewCount,
		"difficulty", card.Difficulty,
		"next_review", card.NextReview,
	)
	return card, nil
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
