//go:generate mockery --name FlashcardRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FlashcardRepository interface {
	Create(ctx context.Context, tx *gorm.DB, card *model.Flashcard) error
	CreateBatch(ctx context.Context, tx *gorm.DB, cards []*model.Flashcard) error
	FindByID(ctx context.Context, db *gorm.DB, userID, cardID uuid.UUID) (*model.Flashcard, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) (*model.Flashcard, error)
	List(ctx context.Context, db *gorm.DB, userID uuid.UUID, query model.FlashcardListQuery, now time.Time) ([]*model.Flashcard, int64, error)
	FindDue(ctx context.Context, db *gorm.DB, userID uuid.UUID, now time.Time, limit int) ([]*model.Flashcard, error)
	UpdateText(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID, updates map[string]interface{}) error
	UpdateReviewState(ctx context.Context, tx *gorm.DB, card *model.Flashcard, expectedReviewCount int) error
	Delete(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) error
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	CountByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error)
	CountDue(ctx context.Context, db *gorm.DB, userID uuid.UUID, now time.Time) (int64, error)
	Stats(ctx context.Context, db *gorm.DB, userID uuid.UUID, now, dayStart time.Time) (*model.StudyStats, error)
	CountAll(ctx context.Context, db *gorm.DB) (int64, error)
	CountReviewed(ctx context.Context, db *gorm.DB) (int64, error)
}

type gormFlashcardRepository struct{}

func NewGormFlashcardRepository() FlashcardRepository {
	return &gormFlashcardRepository{}
}

func (r *gormFlashcardRepository) Create(ctx context.Context, tx *gorm.DB, card *model.Flashcard) error {
	logger := middleware.GetLogger(ctx)
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	if err := tx.WithContext(ctx).Create(card).Error; err != nil {
		logger.Error("Error creating flashcard in DB",
			"error", err,
			"user_id", card.UserID.String(),
		)
		return fmt.Errorf("gormFlashcardRepository.Create: %w", err)
	}
	return nil
}

func (r *gormFlashcardRepository) CreateBatch(ctx context.Context, tx *gorm.DB, cards []*model.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	logger := middleware.GetLogger(ctx)
	for _, c := range cards {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
	}
	if err := tx.WithContext(ctx).CreateInBatches(cards, 100).Error; err != nil {
		logger.Error("Error creating flashcards in DB", "error", err, "count", len(cards))
		return fmt.Errorf("gormFlashcardRepository.CreateBatch: %w", err)
	}
	return nil
}

// FindByID は所有者で絞り込んで取得します。他人のカードは ErrNotFound になります。
func (r *gormFlashcardRepository) FindByID(ctx context.Context, db *gorm.DB, userID, cardID uuid.UUID) (*model.Flashcard, error) {
	return r.findOne(ctx, db.WithContext(ctx), "FindByID", userID, cardID)
}

// FindByIDForUpdate は PostgreSQL では行ロックを取ります。
func (r *gormFlashcardRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) (*model.Flashcard, error) {
	q := tx.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findOne(ctx, q, "FindByIDForUpdate", userID, cardID)
}

func (r *gormFlashcardRepository) findOne(ctx context.Context, q *gorm.DB, op string, userID, cardID uuid.UUID) (*model.Flashcard, error) {
	var card model.Flashcard
	err := q.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		middleware.GetLogger(ctx).Error("Error finding flashcard in DB",
			"op", op,
			"error", err,
			"user_id", userID.String(),
			"card_id", cardID.String(),
		)
		return nil, fmt.Errorf("gormFlashcardRepository.%s: %w", op, err)
	}
	return &card, nil
}

func (r *gormFlashcardRepository) List(ctx context.Context, db *gorm.DB, userID uuid.UUID, query model.FlashcardListQuery, now time.Time) ([]*model.Flashcard, int64, error) {
	logger := middleware.GetLogger(ctx)

	q := db.WithContext(ctx).Model(&model.Flashcard{}).Where("user_id = ?", userID)
	if query.Search != "" {
		like := "%" + strings.ToLower(query.Search) + "%"
		q = q.Where("LOWER(english) LIKE ? OR LOWER(spanish) LIKE ?", like, like)
	}
	order := "created_at DESC, id ASC"
	if query.DueOnly {
		q = q.Where("next_review <= ?", now)
		order = "next_review ASC, id ASC"
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.Error("Error counting flashcards in DB", "error", err, "user_id", userID.String())
		return nil, 0, fmt.Errorf("gormFlashcardRepository.List: %w", err)
	}

	var cards []*model.Flashcard
	err := q.Order(order).
		Offset(model.Offset(query.Page, query.Limit)).
		Limit(query.Limit).
		Find(&cards).Error
	if err != nil {
		logger.Error("Error listing flashcards in DB", "error", err, "user_id", userID.String())
		return nil, 0, fmt.Errorf("gormFlashcardRepository.List: %w", err)
	}
	return cards, total, nil
}

// FindDue は復習期限が来たカードを期限の古い順に返します。
func (r *gormFlashcardRepository) FindDue(ctx context.Context, db *gorm.DB, userID uuid.UUID, now time.Time, limit int) ([]*model.Flashcard, error) {
	logger := middleware.GetLogger(ctx)
	var cards []*model.Flashcard
	err := db.WithContext(ctx).
		Where("user_id = ? AND next_review <= ?", userID, now).
		Order("next_review ASC, difficulty DESC, id ASC").
		Limit(limit).
		Find(&cards).Error
	if err != nil {
		logger.Error("Error finding due flashcards in DB", "error", err, "user_id", userID.String())
		return nil, fmt.Errorf("gormFlashcardRepository.FindDue: %w", err)
	}
	return cards, nil
}

func (r *gormFlashcardRepository) UpdateText(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.Flashcard{}).
		Where("id = ? AND user_id = ?", cardID, userID).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating flashcard in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"card_id", cardID.String(),
		)
		return fmt.Errorf("gormFlashcardRepository.UpdateText: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateReviewState は review_count が expectedReviewCount のままの場合だけ復習状態を書き込みます。
// 他の更新が先に入っていた場合は ErrConflict を返します。
func (r *gormFlashcardRepository) UpdateReviewState(ctx context.Context, tx *gorm.DB, card *model.Flashcard, expectedReviewCount int) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Model(&model.Flashcard{}).
		Where("id = ? AND user_id = ? AND review_count = ?", card.ID, card.UserID, expectedReviewCount).
		Updates(map[string]interface{}{
			"difficulty":       card.Difficulty,
			"review_count":     card.ReviewCount,
			"streak":           card.Streak,
			"ease_factor":      card.EaseFactor,
			"interval_seconds": card.IntervalSeconds,
			"last_reviewed":    card.LastReviewed,
			"next_review":      card.NextReview,
			"updated_at":       card.UpdatedAt,
		})
	if result.Error != nil {
		logger.Error("Error updating review state in DB",
			"error", result.Error,
			"card_id", card.ID.String(),
		)
		return fmt.Errorf("gormFlashcardRepository.UpdateReviewState: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		logger.Warn("Review state changed concurrently",
			"card_id", card.ID.String(),
			"expected_review_count", expectedReviewCount,
		)
		return model.ErrConflict
	}
	return nil
}

func (r *gormFlashcardRepository) Delete(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Where("id = ? AND user_id = ?", cardID, userID).Delete(&model.Flashcard{})
	if result.Error != nil {
		logger.Error("Error deleting flashcard in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"card_id", cardID.String(),
		)
		return fmt.Errorf("gormFlashcardRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormFlashcardRepository) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Flashcard{}).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error deleting user's flashcards in DB", "error", err, "user_id", userID.String())
		return fmt.Errorf("gormFlashcardRepository.DeleteByUser: %w", err)
	}
	return nil
}

func (r *gormFlashcardRepository) CountByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.Flashcard{}).Where("user_id = ?", userID), "CountByUser")
}

func (r *gormFlashcardRepository) CountDue(ctx context.Context, db *gorm.DB, userID uuid.UUID, now time.Time) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.Flashcard{}).Where("user_id = ? AND next_review <= ?", userID, now), "CountDue")
}

func (r *gormFlashcardRepository) CountAll(ctx context.Context, db *gorm.DB) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.Flashcard{}), "CountAll")
}

func (r *gormFlashcardRepository) CountReviewed(ctx context.Context, db *gorm.DB) (int64, error) {
	return r.count(ctx, db.WithContext(ctx).Model(&model.Flashcard{}).Where("review_count > 0"), "CountReviewed")
}

func (r *gormFlashcardRepository) count(ctx context.Context, q *gorm.DB, op string) (int64, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error counting flashcards in DB", "op", op, "error", err)
		return 0, fmt.Errorf("gormFlashcardRepository.%s: %w", op, err)
	}
	return n, nil
}

// Stats はユーザーのカード統計を1クエリで集計します。
func (r *gormFlashcardRepository) Stats(ctx context.Context, db *gorm.DB, userID uuid.UUID, now, dayStart time.Time) (*model.StudyStats, error) {
	var row struct {
		TotalCards        int64
		DueCards          int64
		UnreviewedCards   int64
		ReviewedToday     int64
		AverageDifficulty *float64
	}
	err := db.WithContext(ctx).Model(&model.Flashcard{}).
		Select(`COUNT(*) AS total_cards,
			COALESCE(SUM(CASE WHEN next_review <= ? THEN 1 ELSE 0 END), 0) AS due_cards,
			COALESCE(SUM(CASE WHEN review_count = 0 THEN 1 ELSE 0 END), 0) AS unreviewed_cards,
			COALESCE(SUM(CASE WHEN last_reviewed >= ? THEN 1 ELSE 0 END), 0) AS reviewed_today,
			AVG(difficulty) AS average_difficulty`, now, dayStart).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		middleware.GetLogger(ctx).Error("Error aggregating flashcard stats in DB", "error", err, "user_id", userID.String())
		return nil, fmt.Errorf("gormFlashcardRepository.Stats: %w", err)
	}

	stats := &model.StudyStats{
		TotalCards:      row.TotalCards,
		DueCards:        row.DueCards,
		UnreviewedCards: row.UnreviewedCards,
		ReviewedToday:   row.ReviewedToday,
	}
	if row.AverageDifficulty != nil {
		stats.AverageDifficulty = *row.AverageDifficulty
	}
	return stats, nil
}
