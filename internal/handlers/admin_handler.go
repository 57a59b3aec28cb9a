package handlers

import (
	"net/http"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/webutil"
)

// AdminHandler は /api/admin 配下のハンドラです。
// 管理者ロールの確認と対象ユーザーIDの解決はパイプラインで済んでいます。
type AdminHandler struct {
	service service.AdminService
	cfg     config.AppConfig
}

func NewAdminHandler(s service.AdminService, cfg config.AppConfig) *AdminHandler {
	return &AdminHandler{service: s, cfg: cfg}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	_, logger, err := owner(r, "AdminListUsers")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	page, limit, err := webutil.Page(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	query := model.UserListQuery{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
		Role:   model.Role(r.URL.Query().Get("role")),
	}

	resp, err := h.service.ListUsers(r.Context(), query)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	_, logger, err := owner(r, "AdminGetUser")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	userID, err := targetUser(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	detail, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, detail, logger)
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	actorID, logger, err := owner(r, "AdminUpdateUserRole")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	userID, err := targetUser(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.UpdateRoleRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		logger.Warn("Invalid update role request", "error", err)
		webutil.HandleError(w, logger, err)
		return
	}

	user, err := h.service.UpdateUserRole(r.Context(), actorID, userID, req.Role)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, user, logger)
}

func (h *AdminHandler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	actorID, logger, err := owner(r, "AdminUpdateUserStatus")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	userID, err := targetUser(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.UpdateStatusRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		logger.Warn("Invalid update status request", "error", err)
		webutil.HandleError(w, logger, err)
		return
	}

	user, err := h.service.UpdateUserStatus(r.Context(), actorID, userID, *req.IsActive)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, user, logger)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, logger, err := owner(r, "AdminDeleteUser")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	userID, err := targetUser(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), actorID, userID); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondNoContent(w)
}

func (h *AdminHandler) ListUserFlashcards(w http.ResponseWriter, r *http.Request) {
	_, logger, err := owner(r, "AdminListUserFlashcards")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	userID, err := targetUser(r)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	query, err := cardListQuery(r, h.cfg)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	resp, err := h.service.ListUserFlashcards(r.Context(), userID, query)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	_, logger, err := owner(r, "AdminGetStats")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, stats, logger)
}
