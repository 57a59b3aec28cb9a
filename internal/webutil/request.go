package webutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go_flashcard_study/internal/model"
)

// MaxBodyBytes はJSONボディの上限サイズです。
const MaxBodyBytes = 1 << 20

// DecodeJSONBody はリクエストボディをデコードします。
// 返すエラーは AppError で、元のデコードエラーも errors.Is で辿れます。
// 未知のフィールドは無視します (userId などクライアントが送っても反映しない)。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return model.NewAppError("INVALID_REQUEST_BODY", "request body is required", "", model.ErrInvalidInput)
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewAppError("INVALID_REQUEST_BODY", "request body is required", "", model.ErrInvalidInput)
		}
		return model.NewAppError("INVALID_REQUEST_BODY", "request body is not valid JSON", "", errors.Join(model.ErrInvalidInput, err))
	}
	return nil
}

// QueryInt はクエリ文字列の整数値を返します。未指定なら def、不正なら ErrInvalidInput。
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewAppError("INVALID_QUERY_PARAM", key+" must be an integer", key, model.ErrInvalidInput)
	}
	return v, nil
}

// QueryBool はクエリ文字列の真偽値を返します。
func QueryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, model.NewAppError("INVALID_QUERY_PARAM", key+" must be a boolean", key, model.ErrInvalidInput)
	}
	return v, nil
}

// Page は page/limit を読み取り、範囲外の値を補正します。
func Page(r *http.Request, defaultLimit, maxLimit int) (page, limit int, err error) {
	if page, err = QueryInt(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if limit, err = QueryInt(r, "limit", defaultLimit); err != nil {
		return 0, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}
