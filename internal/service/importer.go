package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ImportFlashcards は .xlsx の先頭シートからカードを取り込みます。
// 1行目は見出しとして読み飛ばし、A列を英語、B列をスペイン語として扱います。
// 不正な行はスキップして errors に記録し、正しい行はまとめて1トランザクションで作成します。
func (s *flashcardService) ImportFlashcards(ctx context.Context, userID uuid.UUID, r io.Reader) (*model.ImportResult, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID.String())

	rows, err := readSheetRows(r)
	if err != nil {
		logger.Warn("Failed to read import workbook", "error", err)
		return nil, model.NewAppError("INVALID_FILE", "file must be a readable .xlsx workbook", "file", model.ErrInvalidInput)
	}

	result := &model.ImportResult{Errors: []model.ImportError{}}
	var cards []*model.Flashcard
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rowNum := i + 1
		if isBlankRow(row) {
			continue
		}
		english, spanish := cell(row, 0), cell(row, 1)
		e, sp, err := s.normalizeTexts(english, spanish)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, model.ImportError{Row: rowNum, Message: errorMessage(err)})
			continue
		}
		cards = append(cards, s.newFlashcard(userID, e, sp))
	}

	if len(cards) > 0 {
		if err := s.cardRepo.CreateBatch(ctx, s.db, cards); err != nil {
			return nil, err
		}
	}
	result.Imported = len(cards)

	logger.Info("Flashcards imported", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func readSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func errorMessage(err error) string {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return appErr.Detail.Message
	}
	return err.Error()
}
