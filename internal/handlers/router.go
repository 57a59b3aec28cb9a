package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/webutil"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"gorm.io/gorm"
)

// Services はルーターが公開するサービス群です。
type Services struct {
	Auth       service.AuthService
	Flashcards service.FlashcardService
	Study      service.StudyService
	Admin      service.AdminService
}

// NewRouter は /api 配下のルートと共通ミドルウェアを組み立てます。
// db は /health の疎通確認にだけ使います (nil なら確認しない)。
func NewRouter(cfg *config.Config, db *gorm.DB, svc Services, logger *slog.Logger) http.Handler {
	authHandler := NewAuthHandler(svc.Auth)
	cardHandler := NewFlashcardHandler(svc.Flashcards, cfg.App)
	studyHandler := NewStudyHandler(svc.Study)
	adminHandler := NewAdminHandler(svc.Admin, cfg.App)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID", "X-User-Role"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", healthCheck(db))

	authenticate := middleware.JWTAuthMiddleware(cfg.JWT)
	if !cfg.Auth.Enabled {
		logger.Warn("Authentication is disabled. Using DEV auth middleware (X-User-ID header)")
		authenticate = middleware.DevAuthMiddleware
	}

	r.Route("/api", func(r chi.Router) {
		// --- Public routes ---
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password", authHandler.ResetPassword)

		// --- Protected routes ---
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Pipeline(middleware.Authenticated()))

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/password", authHandler.ChangePassword)

			r.Route("/cards", func(r chi.Router) {
				r.Post("/", cardHandler.CreateFlashcard)
				r.Get("/", cardHandler.ListFlashcards)
				r.Post("/import", cardHandler.ImportFlashcards)
				r.Get("/{id}", cardHandler.GetFlashcard)
				r.Put("/{id}", cardHandler.PutFlashcard)
				r.Patch("/{id}", cardHandler.PatchFlashcard)
				r.Delete("/{id}", cardHandler.DeleteFlashcard)
				r.Post("/{id}/review", cardHandler.ReviewFlashcard)
			})

			r.Route("/study", func(r chi.Router) {
				r.Get("/due", studyHandler.GetDueCards)
				r.Post("/sessions", studyHandler.StartSession)
				r.Get("/sessions/current", studyHandler.GetCurrentSession)
				r.Post("/sessions/current/end", studyHandler.EndSession)
				r.Post("/review/{id}", studyHandler.Review)
				r.Get("/stats", studyHandler.GetStats)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.Pipeline(middleware.RequireRole(svc.Auth, model.RoleAdmin)))

				r.Get("/stats", adminHandler.GetStats)
				r.Get("/users", adminHandler.ListUsers)
				r.Route("/users/{id}", func(r chi.Router) {
					r.Use(middleware.Pipeline(
						middleware.TargetUserFromURL("id"),
						middleware.AuthorizeTargetAccess(svc.Auth),
					))

					r.Get("/", adminHandler.GetUser)
					r.Get("/cards", adminHandler.ListUserFlashcards)
					r.With(middleware.Pipeline(middleware.PreventSelfTarget("change the role of"))).
						Put("/role", adminHandler.UpdateUserRole)
					r.With(middleware.Pipeline(middleware.PreventSelfTarget("change the status of"))).
						Patch("/status", adminHandler.UpdateUserStatus)
					r.With(middleware.Pipeline(middleware.PreventSelfTarget("delete"))).
						Delete("/", adminHandler.DeleteUser)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		webutil.HandleError(w, middleware.GetLogger(r.Context()), model.NewNotFoundError("route"))
	})

	return r
}

func healthCheck(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.GetLogger(r.Context())
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil {
				logger.Error("Health check failed: could not get DB object", "error", err)
				http.Error(w, "Health check failed", http.StatusInternalServerError)
				return
			}
			if err := sqlDB.PingContext(r.Context()); err != nil {
				logger.Error("Health check failed: could not ping DB", "error", err)
				http.Error(w, "Health check failed", http.StatusInternalServerError)
				return
			}
		}
		webutil.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}
