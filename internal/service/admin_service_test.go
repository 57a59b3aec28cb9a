package service_test

import (
	"context"
	"testing"
	"time"

	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/srs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_ListAndGetUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", model.RoleAdmin)
	alice := env.createUser(t, "alice", model.RoleUser)
	env.createUser(t, "bob", model.RoleUser)
	createCard(t, env, alice.ID, "dog", "perro")
	createCard(t, env, alice.ID, "cat", "gato")

	tests := []struct {
		name      string
		query     model.UserListQuery
		wantTotal int64
		wantLen   int
	}{
		{name: "正常系: 全件", query: model.UserListQuery{Page: 1, Limit: 10}, wantTotal: 3, wantLen: 3},
		{name: "正常系: ページング", query: model.UserListQuery{Page: 2, Limit: 2}, wantTotal: 3, wantLen: 1},
		{name: "正常系: ロールで絞り込み", query: model.UserListQuery{Page: 1, Limit: 10, Role: model.RoleAdmin}, wantTotal: 1, wantLen: 1},
		{name: "正常系: ユーザー名・メールで検索", query: model.UserListQuery{Page: 1, Limit: 10, Search: "ALI"}, wantTotal: 1, wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.admin.ListUsers(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, page.Pagination.Total)
			assert.Len(t, page.Data, tt.wantLen)
		})
	}

	t.Run("異常系: 不正なロールで絞り込み", func(t *testing.T) {
		_, err := env.admin.ListUsers(ctx, model.UserListQuery{Page: 1, Limit: 10, Role: "owner"})
		requireAppError(t, err, "VALIDATION_ERROR", model.ErrInvalidInput)
	})

	t.Run("正常系: ユーザー詳細にカード枚数が含まれる", func(t *testing.T) {
		detail, err := env.admin.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, detail.ID)
		assert.Equal(t, int64(2), detail.CardCount)

		detail, err = env.admin.GetUser(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), detail.CardCount)
	})

	t.Run("異常系: 存在しないユーザー", func(t *testing.T) {
		_, err := env.admin.GetUser(ctx, uuid.New())
		requireAppError(t, err, "NOT_FOUND", model.ErrNotFound)
	})

	t.Run("正常系: 他ユーザーのカード一覧を取得できる", func(t *testing.T) {
		page, err := env.admin.ListUserFlashcards(ctx, alice.ID, model.FlashcardListQuery{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Pagination.Total)
		for _, c := range page.Data {
			assert.Equal(t, alice.ID, c.UserID)
		}

		_, err = env.admin.ListUserFlashcards(ctx, uuid.New(), model.FlashcardListQuery{Page: 1, Limit: 10})
		requireAppError(t, err, "NOT_FOUND", model.ErrNotFound)
	})
}

func TestAdminService_UpdateUserRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", model.RoleAdmin)
	alice := env.createUser(t, "alice", model.RoleUser)

	t.Run("異常系: 自分自身のロールは変更できない", func(t *testing.T) {
		_, err := env.admin.UpdateUserRole(ctx, admin.ID, admin.ID, model.RoleUser)
		requireAppError(t, err, "SELF_TARGET_FORBIDDEN", model.ErrForbidden)
	})

	t.Run("異常系: 不正なロール", func(t *testing.T) {
		_, err := env.admin.UpdateUserRole(ctx, admin.ID, alice.ID, "owner")
		requireAppError(t, err, "VALIDATION_ERROR", model.ErrInvalidInput)
	})

	t.Run("正常系: 一般ユーザーを管理者にする", func(t *testing.T) {
		updated, err := env.admin.UpdateUserRole(ctx, admin.ID, alice.ID, model.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, updated.Role)
	})

	t.Run("正常系: 他に管理者がいれば降格できる", func(t *testing.T) {
		updated, err := env.admin.UpdateUserRole(ctx, alice.ID, admin.ID, model.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, updated.Role)
	})

	t.Run("異常系: 最後の管理者は降格できない", func(t *testing.T) {
		// 有効な管理者は alice だけになっている
		_, err := env.admin.UpdateUserRole(ctx, admin.ID, alice.ID, model.RoleUser)
		requireAppError(t, err, "LAST_ADMIN", model.ErrConflict)
	})

	t.Run("異常系: 存在しないユーザー", func(t *testing.T) {
		_, err := env.admin.UpdateUserRole(ctx, admin.ID, uuid.New(), model.RoleAdmin)
		requireAppError(t, err, "NOT_FOUND", model.ErrNotFound)
	})
}

func TestAdminService_UpdateUserStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", model.RoleAdmin)
	other := env.createUser(t, "other", model.RoleAdmin)
	alice := env.createUser(t, "alice", model.RoleUser)

	t.Run("異常系: 自分自身は無効化できない", func(t *testing.T) {
		_, err := env.admin.UpdateUserStatus(ctx, admin.ID, admin.ID, false)
		requireAppError(t, err, "SELF_TARGET_FORBIDDEN", model.ErrForbidden)
	})

	t.Run("正常系: 一般ユーザーを無効化して再び有効化する", func(t *testing.T) {
		updated, err := env.admin.UpdateUserStatus(ctx, admin.ID, alice.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		updated, err = env.admin.UpdateUserStatus(ctx, admin.ID, alice.ID, true)
		require.NoError(t, err)
		assert.True(t, updated.IsActive)
	})

	t.Run("正常系: 他に有効な管理者がいれば管理者も無効化できる", func(t *testing.T) {
		updated, err := env.admin.UpdateUserStatus(ctx, admin.ID, other.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
	})

	t.Run("異常系: 最後の有効な管理者は無効化できない", func(t *testing.T) {
		_, err := env.admin.UpdateUserStatus(ctx, other.ID, admin.ID, false)
		requireAppError(t, err, "LAST_ADMIN", model.ErrConflict)
	})
}

func TestAdminService_DeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", model.RoleAdmin)
	alice := env.createUser(t, "alice", model.RoleUser)
	bob := env.createUser(t, "bob", model.RoleUser)

	aliceCard := createCard(t, env, alice.ID, "dog", "perro")
	bobCard := createCard(t, env, bob.ID, "cat", "gato")
	_, err := env.study.Review(ctx, alice.ID, aliceCard.ID, srs.RatingGood)
	require.NoError(t, err)
	require.NoError(t, env.tokenRepo.CreatePasswordResetToken(ctx, env.db, &model.PasswordResetToken{
		Token: "alice-token", UserID: alice.ID, ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))

	t.Run("異常系: 自分自身は削除できない", func(t *testing.T) {
		err := env.admin.DeleteUser(ctx, admin.ID, admin.ID)
		requireAppError(t, err, "SELF_TARGET_FORBIDDEN", model.ErrForbidden)
	})

	t.Run("正常系: 関連データごと削除され、他のユーザーには影響しない", func(t *testing.T) {
		require.NoError(t, env.admin.DeleteUser(ctx, admin.ID, alice.ID))

		_, err := env.admin.GetUser(ctx, alice.ID)
		requireAppError(t, err, "NOT_FOUND", model.ErrNotFound)

		var cards, sessions, tokens int64
		require.NoError(t, env.db.Model(&model.Flashcard{}).Where("user_id = ?", alice.ID).Count(&cards).Error)
		require.NoError(t, env.db.Model(&model.StudySession{}).Where("user_id = ?", alice.ID).Count(&sessions).Error)
		require.NoError(t, env.db.Model(&model.PasswordResetToken{}).Where("user_id = ?", alice.ID).Count(&tokens).Error)
		assert.Zero(t, cards)
		assert.Zero(t, sessions)
		assert.Zero(t, tokens)

		_, err = env.cards.GetFlashcard(ctx, bob.ID, bobCard.ID)
		assert.NoError(t, err)
	})

	t.Run("異常系: 削除済みのユーザー", func(t *testing.T) {
		err := env.admin.DeleteUser(ctx, admin.ID, alice.ID)
		requireAppError(t, err, "NOT_FOUND", model.ErrNotFound)
	})
}

func TestAdminService_GetStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", model.RoleAdmin)
	alice := env.createUser(t, "alice", model.RoleUser)
	bob := env.createUser(t, "bob", model.RoleUser)

	dog := createCard(t, env, alice.ID, "dog", "perro")
	createCard(t, env, alice.ID, "cat", "gato")
	createCard(t, env, bob.ID, "red", "rojo")
	_, err := env.cards.ReviewFlashcard(ctx, alice.ID, dog.ID, srs.RatingGood)
	require.NoError(t, err)
	_, err = env.admin.UpdateUserStatus(ctx, admin.ID, bob.ID, false)
	require.NoError(t, err)

	stats, err := env.admin.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AdminStats{
		TotalUsers:    3,
		ActiveUsers:   2,
		AdminUsers:    1,
		TotalCards:    3,
		ReviewedCards: 1,
	}, *stats)
}
