// cmd/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/handlers"
	"go_flashcard_study/internal/jobs"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/srs"
)

func main() {
	configDir := flag.String("config", "configs", "config.yaml を置いたディレクトリ")
	flag.Parse()

	//　設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)
	log.Println("Log Config Loading...")

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level, tempLogger)
	log.Println("Log Config Loaded...")
	slog.SetDefault(logger)

	slog.Info("Application starting...", slog.String("version", config.AppVersion))

	// 1. Database
	db, err := repository.NewDB(cfg.Database, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()
	if err := repository.Migrate(db); err != nil {
		slog.Error("Error migrating database", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. Dependency Injection
	userRepo := repository.NewGormUserRepository()
	cardRepo := repository.NewGormFlashcardRepository()
	sessionRepo := repository.NewGormStudySessionRepository()
	tokenRepo := repository.NewGormTokenRepository()

	scheduler, err := srs.NewScheduler(cfg.SRS.Params())
	if err != nil {
		slog.Error("Invalid SRS parameters", slog.Any("error", err))
		os.Exit(1)
	}
	mailer, err := service.NewMailer(context.Background(), cfg)
	if err != nil {
		slog.Error("Error initializing mailer", slog.Any("error", err))
		os.Exit(1)
	}
	reviewer := service.NewCardReviewer(scheduler, cardRepo)

	services := handlers.Services{
		Auth:       service.NewAuthService(db, userRepo, tokenRepo, mailer, cfg),
		Flashcards: service.NewFlashcardService(db, cardRepo, reviewer, cfg.App),
		Study:      service.NewStudyService(db, cardRepo, sessionRepo, reviewer, cfg),
		Admin:      service.NewAdminService(db, userRepo, cardRepo, sessionRepo, tokenRepo),
	}

	// 3. Background jobs
	maintenance := service.NewMaintenanceService(db, sessionRepo, tokenRepo, cfg.Study.SessionIdleTimeout)
	runner := jobs.NewRunner(maintenance, cfg.Study.CleanupInterval, logger)
	if err := runner.Start(); err != nil {
		slog.Error("Error starting background jobs", slog.Any("error", err))
		os.Exit(1)
	}
	defer runner.Stop()

	// 4. Start Server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handlers.NewRouter(cfg, db, services, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", slog.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case err := <-serverErr:
		// defer を走らせるため os.Exit は使わない
		slog.Error("Could not listen on port", slog.String("port", cfg.Server.Port), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	log.Println("Server exiting")
}

// newLogger は設定のログレベルと APP_ENV からハンドラーを選びます。
// dev では tint、それ以外は JSON で出力する。
func newLogger(level string, tempLogger *slog.Logger) *slog.Logger {
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		tempLogger.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", level))
	}

	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		})
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	return slog.New(handler)
}
