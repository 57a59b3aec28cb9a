// internal/middleware/dev_auth.go
package middleware

import (
	"net/http"

	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/webutil"

	"github.com/google/uuid"
)

// DevAuthMiddleware は auth.enabled=false の開発時用ミドルウェアです。
// X-User-ID (必須) と X-User-Role ヘッダーから Principal を作ります。DB での存在確認はしません。
func DevAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := GetLogger(r.Context())

		userIDStr := r.Header.Get("X-User-ID")
		if userIDStr == "" {
			logger.Warn("[DEV AUTH] Failed: X-User-ID header missing")
			webutil.HandleError(w, logger, model.NewAppError("UNAUTHORIZED", "[DEV] X-User-ID header is required", "", model.ErrUnauthorized))
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			logger.Warn("[DEV AUTH] Failed: Invalid X-User-ID format", "value", userIDStr)
			webutil.HandleError(w, logger, model.NewAppError("UNAUTHORIZED", "[DEV] X-User-ID must be a uuid", "", model.ErrUnauthorized))
			return
		}

		role := model.Role(r.Header.Get("X-User-Role"))
		if role == "" {
			role = model.RoleUser
		}
		if !role.IsValid() {
			webutil.HandleError(w, logger, model.NewAppError("UNAUTHORIZED", "[DEV] unknown X-User-Role", "", model.ErrUnauthorized))
			return
		}

		logger.Debug("[DEV AUTH] Principal set to context (no validation)", "user_id", userID.String(), "role", role)
		ctx := model.WithPrincipal(r.Context(), model.Principal{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
