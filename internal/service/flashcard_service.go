//go:generate mockery --name FlashcardService --output ./mocks --outpkg mocks --case=underscore
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/srs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FlashcardService interface {
	CreateFlashcard(ctx context.Context, userID uuid.UUID, req *model.CreateFlashcardRequest) (*model.Flashcard, error)
	GetFlashcard(ctx context.Context, userID, cardID uuid.UUID) (*model.Flashcard, error)
	ListFlashcards(ctx context.Context, userID uuid.UUID, query model.FlashcardListQuery) (*model.PagedResponse[*model.Flashcard], error)
	PutFlashcard(ctx context.Context, userID, cardID uuid.UUID, req *model.PutFlashcardRequest) (*model.Flashcard, error)
	PatchFlashcard(ctx context.Context, userID, cardID uuid.UUID, req *model.PatchFlashcardRequest) (*model.Flashcard, error)
	DeleteFlashcard(ctx context.Context, userID, cardID uuid.UUID) error
	ReviewFlashcard(ctx context.Context, userID, cardID uuid.UUID, rating srs.Rating) (*model.Flashcard, error)
	ImportFlashcards(ctx context.Context, userID uuid.UUID, r io.Reader) (*model.ImportResult, error)
}

type flashcardService struct {
	db       *gorm.DB // トランザクション用にDB接続を持つ
	cardRepo repository.FlashcardRepository
	reviewer *CardReviewer
	cfg      config.AppConfig
}

func NewFlashcardService(db *gorm.DB, cardRepo repository.FlashcardRepository, reviewer *CardReviewer, cfg config.AppConfig) FlashcardService {
	return &flashcardService{
		db:       db,
		cardRepo: cardRepo,
		reviewer: reviewer,
		cfg:      cfg,
	}
}

func (s *flashcardService) CreateFlashcard(ctx context.Context, userID uuid.UUID, req *model.CreateFlashcardRequest) (*model.Flashcard, error) {
	logger := middleware.GetLogger(ctx)

	english, spanish, err := s.normalizeTexts(req.English, req.Spanish)
	if err != nil {
		return nil, err
	}

	card := s.newFlashcard(userID, english, spanish)
	if err := s.cardRepo.Create(ctx, s.db, card); err != nil {
		return nil, err
	}

	logger.Info("Flashcard created", "card_id", card.ID.String(), "user_id", userID.String())
	return card, nil
}

func (s *flashcardService) GetFlashcard(ctx context.Context, userID, cardID uuid.UUID) (*model.Flashcard, error) {
	card, err := s.cardRepo.FindByID(ctx, s.db, userID, cardID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewNotFoundError("flashcard")
		}
		return nil, err
	}
	return card, nil
}

func (s *flashcardService) ListFlashcards(ctx context.Context, userID uuid.UUID, query model.FlashcardListQuery) (*model.PagedResponse[*model.Flashcard], error) {
	cards, total, err := s.cardRepo.List(ctx, s.db, userID, query, utcNow())
	if err != nil {
		return nil, err
	}
	resp := model.NewPagedResponse(cards, query.Page, query.Limit, total)
	return &resp, nil
}

func (s *flashcardService) PutFlashcard(ctx context.Context, userID, cardID uuid.UUID, req *model.PutFlashcardRequest) (*model.Flashcard, error) {
	english, spanish, err := s.normalizeTexts(req.English, req.Spanish)
	if err != nil {
		return nil, err
	}
	return s.updateText(ctx, userID, cardID, map[string]interface{}{
		"english": english,
		"spanish": spanish,
	})
}

func (s *flashcardService) PatchFlashcard(ctx context.Context, userID, cardID uuid.UUID, req *model.PatchFlashcardRequest) (*model.Flashcard, error) {
	updates := make(map[string]interface{})
	if req.English != nil {
		v, err := s.normalizeText("english", *req.English)
		if err != nil {
			return nil, err
		}
		updates["english"] = v
	}
	if req.Spanish != nil {
		v, err := s.normalizeText("spanish", *req.Spanish)
		if err != nil {
			return nil, err
		}
		updates["spanish"] = v
	}
	return s.updateText(ctx, userID, cardID, updates)
}

// updateText はテキスト項目だけを書き換えます。復習状態には触れません。
func (s *flashcardService) updateText(ctx context.Context, userID, cardID uuid.UUID, updates map[string]interface{}) (*model.Flashcard, error) {
	var updated *model.Flashcard

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = utcNow()
			if err := s.cardRepo.UpdateText(ctx, tx, userID, cardID, updates); err != nil {
				return err
			}
		}
		card, err := s.cardRepo.FindByID(ctx, tx, userID, cardID)
		if err != nil {
			return err
		}
		updated = card
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewNotFoundError("flashcard")
		}
		return nil, err
	}

	middleware.GetLogger(ctx).Info("Flashcard updated", "card_id", cardID.String(), "fields", len(updates))
	return updated, nil
}

func (s *flashcardService) DeleteFlashcard(ctx context.Context, userID, cardID uuid.UUID) error {
	if err := s.cardRepo.Delete(ctx, s.db, userID, cardID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.NewNotFoundError("flashcard")
		}
		return err
	}
	middleware.GetLogger(ctx).Info("Flashcard deleted", "card_id", cardID.String(), "user_id", userID.String())
	return nil
}

// ReviewFlashcard は評価を検証してからカードを読み込み、スケジュールを更新します。
func (s *flashcardService) ReviewFlashcard(ctx context.Context, userID, cardID uuid.UUID, rating srs.Rating) (*model.Flashcard, error) {
	if err := s.reviewer.ValidateRating(rating); err != nil {
		return nil, err
	}

	unlock := s.reviewer.Lock(cardID)
	defer unlock()

	var reviewed *model.Flashcard
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := s.reviewer.ReviewInTx(ctx, tx, userID, cardID, rating, utcNow())
		if err != nil {
			return err
		}
		reviewed = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

func (s *flashcardService) newFlashcard(userID uuid.UUID, english, spanish string) *model.Flashcard {
	now := utcNow()
	card := &model.Flashcard{
		ID:        uuid.New(),
		UserID:    userID,
		English:   english,
		Spanish:   spanish,
		CreatedAt: now,
		UpdatedAt: now,
	}
	card.ApplySchedulingState(s.reviewer.Scheduler().NewState(now))
	return card
}

func (s *flashcardService) normalizeTexts(english, spanish string) (string, string, error) {
	e, err := s.normalizeText("english", english)
	if err != nil {
		return "", "", err
	}
	sp, err := s.normalizeText("spanish", spanish)
	if err != nil {
		return "", "", err
	}
	return e, sp, nil
}

// normalizeText は前後の空白を除き、空文字と長すぎる値を拒否します
func (s *flashcardService) normalizeText(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", model.NewAppError("VALIDATION_ERROR", field+" must not be blank", field, model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(v) > s.cfg.MaxTextLength {
		return "", model.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("%s must be at most %d characters", field, s.cfg.MaxTextLength),
			field, model.ErrInvalidInput)
	}
	return v, nil
}
