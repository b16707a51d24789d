package handler

import (
	"net/http"
	"strconv"

	"draftkeeper/internal/api/v1/dto"
	"draftkeeper/internal/middleware"
	"draftkeeper/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	accounts  service.AccountService
	downloads service.DownloadService
	validate  *validator.Validate
	logger    zerolog.Logger
}

func NewUserHandler(accounts service.AccountService, downloads service.DownloadService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, downloads: downloads, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /users/me", authMw(http.HandlerFunc(h.getMe)))
	mux.Handle("PATCH /users/me", authMw(http.HandlerFunc(h.updateMe)))
	mux.Handle("GET /users/me/downloads", authMw(http.HandlerFunc(h.listDownloads)))
}

func (h *UserHandler) getMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	p, err := h.accounts.CurrentProfile(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileResponse(p), h.logger)
}

func (h *UserHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	p, err := h.accounts.UpdateName(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileResponse(p), h.logger)
}

func (h *UserHandler) listDownloads(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	list, err := h.downloads.History(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	items := make([]dto.DownloadHistoryItem, 0, len(list))
	for _, d := range list {
		items = append(items, dto.DownloadHistoryItem{ID: d.ID, DraftID: d.DraftID, DownloadedAt: d.DownloadedAt})
	}
	writeJSON(w, http.StatusOK, items, h.logger)
}
