package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/webutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTAuthMiddleware は Authorization ヘッダーの Bearer トークンを検証し、
// 呼び出し元 (Principal) をコンテキストに設定します。
func JWTAuthMiddleware(cfg config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := GetLogger(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("JWT auth failed: Authorization header missing")
				webutil.HandleError(w, logger, model.NewAppError("UNAUTHORIZED", "authorization header is required", "", model.ErrUnauthorized))
				return
			}

			// "Bearer {token}" の形式を検証
			headerParts := strings.Fields(authHeader)
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
				logger.Warn("JWT auth failed: Invalid Authorization header format")
				webutil.HandleError(w, logger, model.NewAppError("UNAUTHORIZED", "authorization header must be 'Bearer <token>'", "", model.ErrUnauthorized))
				return
			}

			principal, err := ParseToken(headerParts[1], cfg.SecretKey)
			if err != nil {
				logger.Warn("JWT auth failed: Invalid token", "error", err)
				webutil.HandleError(w, logger, model.NewAppError("INVALID_TOKEN", "token is invalid or expired", "", model.ErrUnauthorized))
				return
			}

			ctx := model.WithPrincipal(r.Context(), principal)
			ctx = WithLogger(ctx, logger.With("user_id", principal.UserID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken は HS256 で署名されたトークンを検証し、Principal を返します。
func ParseToken(tokenString, secretKey string) (model.Principal, error) {
	claims := &model.JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return model.Principal{}, err
	}
	if !token.Valid {
		return model.Principal{}, errors.New("token is not valid")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return model.Principal{}, errors.New("subject claim missing")
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return model.Principal{}, errors.New("subject claim is not a uuid")
	}
	role := claims.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.IsValid() {
		return model.Principal{}, errors.New("unknown role claim")
	}
	return model.Principal{UserID: userID, Role: role}, nil
}

// GetPrincipal はコンテキストから認証済みの呼び出し元を取得します。
func GetPrincipal(r *http.Request) (model.Principal, error) {
	p, ok := model.PrincipalFromContext(r.Context())
	if !ok {
		return model.Principal{}, model.NewAppError("UNAUTHORIZED", "authentication required", "", model.ErrUnauthorized)
	}
	return p, nil
}
