package handlers

import (
	"net/http"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// decodeAndValidate はJSONボディを読み取り、validate タグで検証します。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := webutil.DecodeJSONBody(w, r, dst); err != nil {
		return err
	}
	return webutil.ValidateStruct(dst)
}

// pathID はURLパラメータをUUIDとして読み取ります。
// 形式が不正なIDは存在しないリソースとして扱います。
func pathID(r *http.Request, param, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, model.NewNotFoundError(resource)
	}
	return id, nil
}

// cardListQuery は ?page&limit&search&due を読み取ります。
func cardListQuery(r *http.Request, cfg config.AppConfig) (model.FlashcardListQuery, error) {
	page, limit, err := webutil.Page(r, cfg.DefaultPageSize, cfg.MaxPageSize)
	if err != nil {
		return model.FlashcardListQuery{}, err
	}
	due, err := webutil.QueryBool(r, "due")
	if err != nil {
		return model.FlashcardListQuery{}, err
	}
	return model.FlashcardListQuery{
		Page:    page,
		Limit:   limit,
		Search:  r.URL.Query().Get("search"),
		DueOnly: due,
	}, nil
}

// targetUser はパイプラインで解決済みの対象ユーザーIDを返します。
func targetUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.GetTargetUserID(r)
	if !ok {
		return uuid.Nil, model.NewNotFoundError("user")
	}
	return id, nil
}
