package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCleaner struct {
	mock.Mock
}

func (m *mockCleaner) CloseIdleSessions(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCleaner) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) CloseIdleSessions(context.Context, time.Time) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func (c *countingCleaner) PurgeExpiredTokens(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_RunCleanup(t *testing.T) {
	fixedNow := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dbErr := errors.New("db down")

	tests := []struct {
		name       string
		closeErr   error
		purgeErr   error
		wantErrMsg string
	}{
		{name: "正常系: 両方の処理が実行される"},
		{name: "異常系: セッション終了に失敗してもトークン削除は実行される", closeErr: dbErr, wantErrMsg: "close idle sessions"},
		{name: "異常系: トークン削除の失敗が返る", purgeErr: dbErr, wantErrMsg: "purge expired tokens"},
		{name: "異常系: 両方失敗した場合は最初のエラーが返る", closeErr: dbErr, purgeErr: dbErr, wantErrMsg: "close idle sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaner := new(mockCleaner)
			cleaner.On("CloseIdleSessions", mock.Anything, fixedNow).Return(int64(1), tt.closeErr).Once()
			cleaner.On("PurgeExpiredTokens", mock.Anything, fixedNow).Return(int64(2), tt.purgeErr).Once()

			r := NewRunner(cleaner, time.Minute, discardLogger())
			r.now = func() time.Time { return fixedNow }

			err := r.RunCleanup(context.Background())
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.ErrorIs(t, err, dbErr)
			} else {
				assert.NoError(t, err)
			}
			cleaner.AssertExpectations(t)
		})
	}
}

func TestRunner_Start(t *testing.T) {
	t.Run("異常系: 間隔が0以下の場合はエラー", func(t *testing.T) {
		r := NewRunner(&countingCleaner{}, 0, discardLogger())
		err := r.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interval")
	})

	t.Run("正常系: 開始するとジョブが実行される", func(t *testing.T) {
		cleaner := &countingCleaner{}
		r := NewRunner(cleaner, 50*time.Millisecond, discardLogger())
		require.NoError(t, r.Start())
		defer r.Stop()

		assert.Eventually(t, func() bool {
			return cleaner.calls.Load() >= 1
		}, 2*time.Second, 10*time.Millisecond)
	})
}
