package handlers

import (
	"net/http"

	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/webutil"
)

// StudyHandler は学習画面向けのエンドポイントです。
type StudyHandler struct {
	service service.StudyService
}

func NewStudyHandler(s service.StudyService) *StudyHandler {
	return &StudyHandler{service: s}
}

func (h *StudyHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "GetDueCards")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	cards, err := h.service.GetDueCards(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	logger.Debug("Due cards listed", "count", len(cards))
	webutil.RespondWithJSON(w, http.StatusOK, cards, logger)
}

func (h *StudyHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "StartSession")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	progress, err := h.service.StartSession(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, progress, logger)
}

func (h *StudyHandler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "GetCurrentSession")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	progress, err := h.service.GetCurrentSession(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, progress, logger)
}

func (h *StudyHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "EndSession")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	progress, err := h.service.EndSession(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, progress, logger)
}

// Review はカードを復習し、更新後のカードとセッションの進捗を返します
func (h *StudyHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "StudyReview")
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

	resp, err := h.service.Review(r.Context(), userID, cardID, req.PerformanceRating)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

func (h *StudyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, logger, err := owner(r, "GetStudyStats")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, stats, logger)
}
