// internal/handlers/flashcard_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/middleware"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/webutil"

	"github.com/google/uuid"
)

// maxImportBytes はアップロードされる .xlsx の上限サイズです。
const maxImportBytes = 10 << 20

type FlashcardHandler struct {
	service service.FlashcardService
	cfg     config.AppConfig
}

func NewFlashcardHandler(s service.FlashcardService, cfg config.AppConfig) *FlashcardHandler {
	return &FlashcardHandler{service: s, cfg: cfg}
}

// owner は呼び出し元のIDと、それを付与したロガーを返します。
func owner(r *http.Request, handler string) (uuid.UUID, *slog.Logger, error) {
	logger := middleware.GetLogger(r.Context()).With("handler", handler)
	principal, err := middleware.GetPrincipal(r)
	if err != nil {
		logger.Warn("Unauthorized access attempt", "error", err)
		return uuid.Nil, logger, err
	}
	return principal.UserID, logger, nil
}

// CreateFlashcard は新しいカードを作成します。所有者は常に呼び出し元です
func (h *FlashcardHandler) CreateFlashcard(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "CreateFlashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.CreateFlashcardRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		logger.Warn("Invalid create flashcard request", "error", err)
		webutil.HandleError(w, logger, err)
		return
	}

	card, err := h.service.CreateFlashcard(r.Context(), userID, &req)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusCreated, card, logger)
}

func (h *FlashcardHandler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "ListFlashcards")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	query, err := cardListQuery(r, h.cfg)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	resp, err := h.service.ListFlashcards(r.Context(), userID, query)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

func (h *FlashcardHandler) GetFlashcard(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "GetFlashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	cardID, err := pathID(r, "id", "flashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	card, err := h.service.GetFlashcard(r.Context(), userID, cardID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

func (h *FlashcardHandler) PutFlashcard(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "PutFlashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	cardID, err := pathID(r, "id", "flashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.PutFlashcardRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		logger.Warn("Invalid put flashcard request", "error", err)
		webutil.HandleError(w, logger, err)
		return
	}

	card, err := h.service.PutFlashcard(r.Context(), userID, cardID, &req)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

// PatchFlashcard は指定されたフィールドだけを更新します
func (h *FlashcardHandler) PatchFlashcard(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "PatchFlashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	cardID, err := pathID(r, "id", "flashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.PatchFlashcardRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		logger.Warn("Invalid patch flashcard request", "error", err)
		webutil.HandleError(w, logger, err)
		return
	}

	card, err := h.service.PatchFlashcard(r.Context(), userID, cardID, &req)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

func (h *FlashcardHandler) DeleteFlashcard(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "DeleteFlashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	cardID, err := pathID(r, "id", "flashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.DeleteFlashcard(r.Context(), userID, cardID); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondNoContent(w)
}

// ReviewFlashcard は評価をスケジューラに渡し、更新後のカードを返します。
// ボディが読めない場合も評価値のエラーとして返します。
func (h *FlashcardHandler) ReviewFlashcard(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "ReviewFlashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	req, err := decodeReviewRequest(w, r)
	if err != nil {
		logger.Warn("Invalid review request", "error", err)
		webutil.HandleError(w, logger, err)
		return
	}

	cardID, err := pathID(r, "id", "flashcard")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	card, err := h.service.ReviewFlashcard(r.Context(), userID, cardID, req.PerformanceRating)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

func decodeReviewRequest(w http.ResponseWriter, r *http.Request) (*model.ReviewRequest, error) {
	var req model.ReviewRequest
	if err := webutil.DecodeJSONBody(w, r, &req); err != nil {
		return nil, model.NewInvalidRatingError(err)
	}
	return &req, nil
}

// ImportFlashcards は multipart の file フィールドで受け取った .xlsx を取り込みます
func (h *FlashcardHandler) ImportFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "ImportFlashcards")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		logger.Warn("Failed to parse multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			webutil.HandleError(w, logger, model.NewAppError("FILE_TOO_LARGE", "file must be at most 10MB", "file", model.ErrInvalidInput))
			return
		}
		webutil.HandleError(w, logger, model.NewAppError("INVALID_REQUEST_BODY", "request must be multipart/form-data", "file", model.ErrInvalidInput))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		webutil.HandleError(w, logger, model.NewAppError("VALIDATION_ERROR", "file is required", "file", model.ErrInvalidInput))
		return
	}
	defer file.Close()
	logger = logger.With("filename", header.Filename, "size", header.Size)

	result, err := h.service.ImportFlashcards(middleware.WithLogger(r.Context(), logger), userID, file)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, result, logger)
}
