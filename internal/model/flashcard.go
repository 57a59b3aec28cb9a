// internal/model/flashcard.go
package model

import (
	"time"

	"go_flashcard_study/internal/srs"

	"github.com/google/uuid"
)

// Flashcard は英語/スペイン語の単語カードと、その復習スケジュールを表します
type Flashcard struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index:idx_flashcards_user_next" json:"userId"`
	English string    `gorm:"not null" json:"english"`
	Spanish string    `gorm:"not null" json:"spanish"`

	// 復習状態 (srs.State と相互変換する)
	Difficulty      int        `gorm:"not null;default:0" json:"difficulty"`
	ReviewCount     int        `gorm:"not null;default:0" json:"reviewCount"`
	Streak          int        `gorm:"not null;default:0" json:"streak"`
	EaseFactor      float64    `gorm:"not null;default:2.5" json:"easeFactor"`
	IntervalSeconds int64      `gorm:"not null;default:0" json:"intervalSeconds"`
	LastReviewed    *time.Time `json:"lastReviewed"`
	NextReview      time.Time  `gorm:"not null;index:idx_flashcards_user_next" json:"nextReview"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}

func (f *Flashcard) SchedulingState() srs.State {
	return srs.State{
		Difficulty:   f.Difficulty,
		ReviewCount:  f.ReviewCount,
		Streak:       f.Streak,
		EaseFactor:   f.EaseFactor,
		Interval:     time.Duration(f.IntervalSeconds) * time.Second,
		LastReviewed: f.LastReviewed,
		NextReview:   f.NextReview,
	}
}

func (f *Flashcard) ApplySchedulingState(s srs.State) {
	f.Difficulty = s.Difficulty
	f.ReviewCount = s.ReviewCount
	f.Streak = s.Streak
	f.EaseFactor = s.EaseFactor
	f.IntervalSeconds = int64(s.Interval / time.Second)
	f.LastReviewed = s.LastReviewed
	f.NextReview = s.NextReview
}

// カード作成リクエストDTO。userId は受け取らない (サーバー側で設定)
type CreateFlashcardRequest struct {
	English string `json:"english" validate:"required,notblank"`
	Spanish string `json:"spanish" validate:"required,notblank"`
}

// カード更新（全体）リクエストDTO
type PutFlashcardRequest struct {
	English string `json:"english" validate:"required,notblank"`
	Spanish string `json:"spanish" validate:"required,notblank"`
}

// カード更新（部分）リクエストDTO
type PatchFlashcardRequest struct {
	English *string `json:"english,omitempty" validate:"omitempty,notblank"`
	Spanish *string `json:"spanish,omitempty" validate:"omitempty,notblank"`
}

// ReviewRequest は POST /cards/{id}/review のボディです。
type ReviewRequest struct {
	PerformanceRating srs.Rating `json:"performanceRating"`
}

// FlashcardListQuery は一覧取得の条件です。
type FlashcardListQuery struct {
	Page    int
	Limit   int
	Search  string
	DueOnly bool
}

// ImportResult は Excel 取り込みの結果です。
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}
