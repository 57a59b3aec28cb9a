package handlers_test

import (
	"net/http"
	"testing"

	"go_flashcard_study/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudyAPI_SessionFlow(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "alice")
	first := app.createCard(t, token, "one", "uno")
	second := app.createCard(t, token, "two", "dos")

	t.Run("異常系: セッション開始前は current が404", func(t *testing.T) {
		body := app.sendRequest(t, httpRequestDetails{Method: http.MethodGet, Path: "/api/study/sessions/current", Token: token}, http.StatusNotFound)
		verifyErrorResponse(t, body, "NO_ACTIVE_SESSION", "")
	})

	t.Run("正常系: 期限切れカードの一覧", func(t *testing.T) {
		body := app.sendRequest(t, httpRequestDetails{Method: http.MethodGet, Path: "/api/study/due", Token: token}, http.StatusOK)
		var due []*model.Flashcard
		decodeJSON(t, body, &due)
		require.Len(t, due, 2)
		assert.Equal(t, first.ID, due[0].ID)
		assert.Equal(t, second.ID, due[1].ID)
	})

	var sessionID uuid.UUID
	t.Run("正常系: セッション開始は冪等", func(t *testing.T) {
		body := app.sendRequest(t, httpRequestDetails{Method: http.MethodPost, Path: "/api/study/sessions", Token: token}, http.StatusOK)
		var progress model.SessionProgress
		decodeJSON(t, body, &progress)
		assert.NotEqual(t, uuid.Nil, progress.SessionID)
		assert.Equal(t, int64(2), progress.Remaining)
		assert.Zero(t, progress.CardsReviewed)
		sessionID = progress.SessionID

		body = app.sendRequest(t, httpRequestDetails{Method: http.MethodPost, Path: "/api/study/sessions", Token: token}, http.StatusOK)
		decodeJSON(t, body, &progress)
		assert.Equal(t, sessionID, progress.SessionID)
	})

	t.Run("正常系: 復習するとカードと進捗が返る", func(t *testing.T) {
		body := app.sendRequest(t, httpRequestDetails{
			Method: http.MethodPost,
			Path:   "/api/study/review/" + first.ID.String(),
			Token:  token,
			Body:   map[string]int{"performanceRating": 5},
		}, http.StatusOK)
		var resp model.StudyReviewResponse
		decodeJSON(t, body, &resp)
		require.NotNil(t, resp.Flashcard)
		assert.Equal(t, 1, resp.Flashcard.ReviewCount)
		assert.Equal(t, sessionID, resp.SessionProgress.SessionID)
		assert.Equal(t, 1, resp.SessionProgress.CardsReviewed)
		assert.Equal(t, 1, resp.SessionProgress.CorrectCount)
		assert.Equal(t, int64(1), resp.SessionProgress.Remaining)

		body = app.sendRequest(t, httpRequestDetails{
			Method: http.MethodPost,
			Path:   "/api/study/review/" + second.ID.String(),
			Token:  token,
			Body:   map[string]int{"performanceRating": 1},
		}, http.StatusOK)
		decodeJSON(t, body, &resp)
		assert.Equal(t, 2, resp.SessionProgress.CardsReviewed)
		assert.Equal(t, 1, resp.SessionProgress.CorrectCount)
		assert.InDelta(t, 0.5, resp.SessionProgress.Accuracy, 1e-9)
		assert.InDelta(t, 3.0, resp.SessionProgress.AverageRating, 1e-9)
	})

	t.Run("異常系: 不正な評価", func(t *testing.T) {
		body := app.sendRequest(t, httpRequestDetails{
			Method: http.MethodPost,
			Path:   "/api/study/review/" + first.ID.String(),
			Token:  token,
			Body:   map[string]int{"performanceRating": 6},
		}, http.StatusBadRequest)
		verifyErrorResponse(t, body, "INVALID_RATING", "performance rating")
	})

	t.Run("正常系: 統計", func(t *testing.T) {
		body := app.sendRequest(t, httpRequestDetails{Method: http.MethodGet, Path: "/api/study/stats", Token: token}, http.StatusOK)
		var stats model.StudyStats
		decodeJSON(t, body, &stats)
		assert.Equal(t, int64(2), stats.TotalCards)
		assert.Equal(t, int64(0), stats.UnreviewedCards)
		assert.Equal(t, int64(2), stats.ReviewedToday)
	})

	t.Run("正常系: セッション終了", func(t *testing.T) {
		body := app.sendRequest(t, httpRequestDetails{Method: http.MethodGet, Path: "/api/study/sessions/current", Token: token}, http.StatusOK)
		var progress model.SessionProgress
		decodeJSON(t, body, &progress)
		assert.Equal(t, sessionID, progress.SessionID)

		body = app.sendRequest(t, httpRequestDetails{Method: http.MethodPost, Path: "/api/study/sessions/current/end", Token: token}, http.StatusOK)
		decodeJSON(t, body, &progress)
		assert.NotNil(t, progress.EndedAt)
		assert.Equal(t, 2, progress.CardsReviewed)

		app.sendRequest(t, httpRequestDetails{Method: http.MethodPost, Path: "/api/study/sessions/current/end", Token: token}, http.StatusNotFound)
	})
}
