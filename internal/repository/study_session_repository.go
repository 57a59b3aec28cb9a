// internal/repository/study_session_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudySessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *model.StudySession) error
	FindOpenByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.StudySession, error)
	Update(ctx context.Context, tx *gorm.DB, session *model.StudySession) error
	CloseIdle(ctx context.Context, db *gorm.DB, idleSince, now time.Time) (int64, error)
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type gormStudySessionRepository struct{}

func NewGormStudySessionRepository() StudySessionRepository {
	return &gormStudySessionRepository{}
}

func (r *gormStudySessionRepository) Create(ctx context.Context, tx *gorm.DB, session *model.StudySession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if err := tx.WithContext(ctx).Create(session).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error creating study session in DB", "error", err, "user_id", session.UserID.String())
		return fmt.Errorf("gormStudySessionRepository.Create: %w", err)
	}
	return nil
}

// FindOpenByUser は未終了のセッションのうち最新のものを返します。
func (r *gormStudySessionRepository) FindOpenByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.StudySession, error) {
	var session model.StudySession
	err := db.WithContext(ctx).
		Where("user_id = ? AND ended_at IS NULL", userID).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		middleware.GetLogger(ctx).Error("Error finding open study session in DB", "error", err, "user_id", userID.String())
		return nil, fmt.Errorf("gormStudySessionRepository.FindOpenByUser: %w", err)
	}
	return &session, nil
}

func (r *gormStudySessionRepository) Update(ctx context.Context, tx *gorm.DB, session *model.StudySession) error {
	result := tx.WithContext(ctx).Model(&model.StudySession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"last_activity_at": session.LastActivityAt,
			"ended_at":         session.EndedAt,
			"cards_reviewed":   session.CardsReviewed,
			"correct_count":    session.CorrectCount,
			"rating_sum":       session.RatingSum,
		})
	if result.Error != nil {
		middleware.GetLogger(ctx).Error("Error updating study session in DB", "error", result.Error, "session_id", session.ID.String())
		return fmt.Errorf("gormStudySessionRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CloseIdle は idleSince 以降に操作のない未終了セッションを終了させ、件数を返します。
func (r *gormStudySessionRepository) CloseIdle(ctx context.Context, db *gorm.DB, idleSince, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&model.StudySession{}).
		Where("ended_at IS NULL AND last_activity_at < ?", idleSince).
		Update("ended_at", now)
	if result.Error != nil {
		middleware.GetLogger(ctx).Error("Error closing idle study sessions in DB", "error", result.Error)
		return 0, fmt.Errorf("gormStudySessionRepository.CloseIdle: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *gormStudySessionRepository) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.StudySession{}).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error deleting user's study sessions in DB", "error", err, "user_id", userID.String())
		return fmt.Errorf("gormStudySessionRepository.DeleteByUser: %w", err)
	}
	return nil
}
