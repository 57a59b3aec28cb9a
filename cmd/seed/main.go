// cmd/seed/main.go
// 初期管理者の作成と、Excel からのカード一括取り込みを行う管理用コマンドです。
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/srs"
)

func main() {
	configDir := flag.String("config", "configs", "config.yaml を置いたディレクトリ")
	cardsPath := flag.String("cards", "", "取り込む .xlsx ファイル (省略可)")
	cardsOwner := flag.String("owner", "", "カードを取り込むユーザーのメールアドレス (省略時は管理者)")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.RFC3339}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		logger.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := repository.NewDB(cfg.Database, logger)
	if err != nil {
		logger.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repository.Migrate(db); err != nil {
		logger.Error("Error migrating database", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := middleware.WithLogger(context.Background(), logger)
	userRepo := repository.NewGormUserRepository()

	admin, created, err := ensureAdmin(ctx, db, userRepo, cfg.Admin)
	if err != nil {
		logger.Error("Error seeding admin user", slog.Any("error", err))
		os.Exit(1)
	}
	if created {
		logger.Info("Admin user created", "user_id", admin.ID.String(), "email", admin.Email)
	} else {
		logger.Info("Admin user already exists", "user_id", admin.ID.String(), "role", string(admin.Role))
	}

	if *cardsPath == "" {
		return
	}
	owner := *cardsOwner
	if owner == "" {
		owner = admin.Email
	}

	scheduler, err := srs.NewScheduler(cfg.SRS.Params())
	if err != nil {
		logger.Error("Invalid SRS parameters", slog.Any("error", err))
		os.Exit(1)
	}
	cardRepo := repository.NewGormFlashcardRepository()
	cards := service.NewFlashcardService(db, cardRepo, service.NewCardReviewer(scheduler, cardRepo), cfg.App)

	result, err := importCards(ctx, db, userRepo, cards, owner, *cardsPath)
	if err != nil {
		logger.Error("Error importing flashcards", slog.Any("error", err))
		os.Exit(1)
	}
	for _, e := range result.Errors {
		logger.Warn("Skipped row", "row", e.Row, "reason", e.Message)
	}
	logger.Info("Import finished", "imported", result.Imported, "skipped", result.Skipped)
}
