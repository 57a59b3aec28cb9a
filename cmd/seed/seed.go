package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/service"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureAdmin は初期管理者がいなければ作成します。既に同じメールのユーザーがいれば作成しない。
// 戻り値の bool は新規作成したかどうか。
func ensureAdmin(ctx context.Context, db *gorm.DB, userRepo repository.UserRepository, cfg config.AdminConfig) (*model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" || cfg.Password == "" {
		return nil, false, errors.New("admin.email and admin.password are required")
	}

	existing, err := userRepo.FindByEmail(ctx, db, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, err
	}

	hash, err := service.HashPassword(cfg.Password)
	if err != nil {
		return nil, false, err
	}
	username := cfg.Username
	if username == "" {
		username = "admin"
	}
	admin := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := userRepo.Create(ctx, db, admin); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return admin, true, nil
}

// importCards は path の .xlsx を email のユーザーのカードとして取り込みます
func importCards(ctx context.Context, db *gorm.DB, userRepo repository.UserRepository, cards service.FlashcardService, email, path string) (*model.ImportResult, error) {
	user, err := userRepo.FindByEmail(ctx, db, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", email, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return cards.ImportFlashcards(ctx, user.ID, f)
}
