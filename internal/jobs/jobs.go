// Package jobs は定期実行の後片付けジョブを管理します。
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go_flashcard_study/internal/middleware"

	"github.com/go-co-op/gocron"
)

// Cleaner は定期ジョブが呼び出す後片付け処理です
type Cleaner interface {
	CloseIdleSessions(ctx context.Context, now time.Time) (int64, error)
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Runner は gocron のスケジューラで Cleaner を一定間隔で実行します。
type Runner struct {
	scheduler *gocron.Scheduler
	cleaner   Cleaner
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewRunner(cleaner Cleaner, interval time.Duration, logger *slog.Logger) *Runner {
	s := gocron.NewScheduler(time.UTC)
	// 前回の実行が終わっていなければ次回分はスキップする
	s.SingletonModeAll()
	return &Runner{
		scheduler: s,
		cleaner:   cleaner,
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start はジョブを登録して非同期に開始します
func (r *Runner) Start() error {
	if r.interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %s", r.interval)
	}
	if _, err := r.scheduler.Every(r.interval).Do(r.runOnce); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	r.scheduler.StartAsync()
	r.logger.Info("Background jobs started", "interval", r.interval.String())
	return nil
}

func (r *Runner) Stop() {
	r.scheduler.Stop()
	r.logger.Info("Background jobs stopped")
}

func (r *Runner) runOnce() {
	ctx := middleware.WithLogger(context.Background(), r.logger.With("job", "cleanup"))
	if err := r.RunCleanup(ctx); err != nil {
		r.logger.Error("Cleanup job failed", "error", err)
	}
}

// RunCleanup は後片付けを1回実行します。片方が失敗しても両方実行します。
func (r *Runner) RunCleanup(ctx context.Context) error {
	now := r.now()
	var firstErr error

	if _, err := r.cleaner.CloseIdleSessions(ctx, now); err != nil {
		firstErr = fmt.Errorf("close idle sessions: %w", err)
	}
	if _, err := r.cleaner.PurgeExpiredTokens(ctx, now); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("purge expired tokens: %w", err)
	}
	return firstErr
}
