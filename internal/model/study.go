// internal/model/study.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// StudySession はひとまとまりの復習を表します。1ユーザーにつき未終了のセッションは1つまで
type StudySession struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	StartedAt      time.Time  `gorm:"not null" json:"startedAt"`
	LastActivityAt time.Time  `gorm:"not null;index" json:"lastActivityAt"`
	EndedAt        *time.Time `gorm:"index" json:"endedAt"`
	CardsReviewed  int        `gorm:"not null;default:0" json:"cardsReviewed"`
	CorrectCount   int        `gorm:"not null;default:0" json:"correctCount"`
	RatingSum      int        `gorm:"not null;default:0" json:"-"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

func (s *StudySession) IsOpen() bool {
	return s.EndedAt == nil
}

// SessionProgress はセッションの進捗です。remaining は現時点で復習対象のカード数
type SessionProgress struct {
	SessionID     uuid.UUID  `json:"sessionId"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	CardsReviewed int        `json:"cardsReviewed"`
	CorrectCount  int        `json:"correctCount"`
	Remaining     int64      `json:"remaining"`
	Accuracy      float64    `json:"accuracy"`
	AverageRating float64    `json:"averageRating"`
}

func NewSessionProgress(s *StudySession, remaining int64) SessionProgress {
	p := SessionProgress{
		SessionID:     s.ID,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		CardsReviewed: s.CardsReviewed,
		CorrectCount:  s.CorrectCount,
		Remaining:     remaining,
	}
	if s.CardsReviewed > 0 {
		p.Accuracy = float64(s.CorrectCount) / float64(s.CardsReviewed)
		p.AverageRating = float64(s.RatingSum) / float64(s.CardsReviewed)
	}
	return p
}

// StudyReviewResponse は POST /study/review/{id} のレスポンスDTO
type StudyReviewResponse struct {
	Flashcard       *Flashcard      `json:"flashcard"`
	SessionProgress SessionProgress `json:"sessionProgress"`
}

// StudyStats はユーザーごとの学習統計です。
type StudyStats struct {
	TotalCards        int64   `json:"totalCards"`
	DueCards          int64   `json:"dueCards"`
	UnreviewedCards   int64   `json:"unreviewedCards"`
	ReviewedToday     int64   `json:"reviewedToday"`
	AverageDifficulty float64 `json:"averageDifficulty"`
}

// AdminStats は GET /admin/stats のレスポンスDTO
type AdminStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	ActiveUsers   int64 `json:"activeUsers"`
	AdminUsers    int64 `json:"adminUsers"`
	TotalCards    int64 `json:"totalCards"`
	ReviewedCards int64 `json:"reviewedCards"`
}
