package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RequestContext はパイプラインの各ステージが読み書きするリクエスト情報です。
type RequestContext struct {
	Request      *http.Request
	Principal    model.Principal
	TargetUserID uuid.UUID
	Logger       *slog.Logger
}

// Stage は nil を返せば次へ進み、エラーを返せばそこでレスポンスを返して終了します。
type Stage func(rc *RequestContext) error

// AccessPolicy は権限判定です。service.AuthService が満たします。
type AccessPolicy interface {
	IsAdmin(p model.Principal) bool
	HasRole(p model.Principal, role model.Role) bool
	CanAccessUserResource(p model.Principal, ownerID uuid.UUID) bool
}

type targetUserCtxKey struct{}

// Pipeline はステージを順番に実行するミドルウェアを返します。
func Pipeline(stages ...Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := &RequestContext{
				Request: r,
				Logger:  GetLogger(r.Context()),
			}
			if p, ok := model.PrincipalFromContext(r.Context()); ok {
				rc.Principal = p
			}
			// 外側のパイプラインで解決済みの対象ユーザーを引き継ぐ
			if id, ok := GetTargetUserID(r); ok {
				rc.TargetUserID = id
			}

			for _, stage := range stages {
				if err := stage(rc); err != nil {
					rc.Logger.Warn("Request rejected by pipeline", "error", err)
					webutil.HandleError(w, rc.Logger, err)
					return
				}
			}

			ctx := r.Context()
			if rc.TargetUserID != uuid.Nil {
				ctx = context.WithValue(ctx, targetUserCtxKey{}, rc.TargetUserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTargetUserID は TargetUserFromURL が設定した対象ユーザーIDを返します。
func GetTargetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(targetUserCtxKey{}).(uuid.UUID)
	return id, ok
}

// Authenticated は認証済みであることを要求します。
func Authenticated() Stage {
	return func(rc *RequestContext) error {
		if rc.Principal.UserID == uuid.Nil {
			return model.NewAppError("UNAUTHORIZED", "authentication required", "", model.ErrUnauthorized)
		}
		return nil
	}
}

// RequireRole は呼び出し元が role を持つことを要求します。
func RequireRole(policy AccessPolicy, role model.Role) Stage {
	return func(rc *RequestContext) error {
		if !policy.HasRole(rc.Principal, role) {
			rc.Logger.Warn("Role check failed", "required_role", role, "role", rc.Principal.Role)
			return model.NewAppError("FORBIDDEN", string(role)+" role is required", "", model.ErrForbidden)
		}
		return nil
	}
}

// TargetUserFromURL はURLパラメータ param を対象ユーザーIDとして読み取ります。
// UUIDとして不正な値は存在しないユーザーとして扱います。
func TargetUserFromURL(param string) Stage {
	return func(rc *RequestContext) error {
		raw := chi.URLParam(rc.Request, param)
		id, err := uuid.Parse(raw)
		if err != nil {
			return model.NewNotFoundError("user")
		}
		rc.TargetUserID = id
		rc.Logger = rc.Logger.With("target_user_id", id.String())
		return nil
	}
}

// PreventSelfTarget は自分自身を対象とする操作 (権限変更・無効化・削除) を拒否します。
func PreventSelfTarget(action string) Stage {
	return func(rc *RequestContext) error {
		if rc.TargetUserID != uuid.Nil && rc.TargetUserID == rc.Principal.UserID {
			return model.NewAppError("SELF_TARGET_FORBIDDEN", "you cannot "+action+" your own account", "id", model.ErrForbidden)
		}
		return nil
	}
}

// AuthorizeTargetAccess は対象ユーザーのリソースへのアクセス権を確認します。
func AuthorizeTargetAccess(policy AccessPolicy) Stage {
	return func(rc *RequestContext) error {
		if !policy.CanAccessUserResource(rc.Principal, rc.TargetUserID) {
			return model.NewAppError("FORBIDDEN", "access to this user's resources is not allowed", "", model.ErrForbidden)
		}
		return nil
	}
}
