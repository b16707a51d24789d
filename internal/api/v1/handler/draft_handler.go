package handler

import (
	"net/http"

	"draftkeeper/internal/api/v1/dto"
	"draftkeeper/internal/middleware"
	"draftkeeper/internal/model"
	"draftkeeper/internal/service"

	"github.com/rs/zerolog"
)

// DraftHandler serves the template catalog to signed-in users.
type DraftHandler struct {
	catalog   service.CatalogService
	downloads service.DownloadService
	logger    zerolog.Logger
}

func NewDraftHandler(catalog service.CatalogService, downloads service.DownloadService, logger zerolog.Logger) *DraftHandler {
	return &DraftHandler{catalog: catalog, downloads: downloads, logger: logger}
}

// RegisterRoutes mounts the catalog routes behind auth and the plan gate.
// The download route skips the gate: DownloadService loads the profile once
// and enforces plan selection itself.
func (h *DraftHandler) RegisterRoutes(mux *http.ServeMux, authMw, planGate func(http.Handler) http.Handler) {
	mux.Handle("GET /drafts", chain(http.HandlerFunc(h.list), authMw, planGate))
	mux.Handle("GET /drafts/categories", chain(http.HandlerFunc(h.categories), authMw, planGate))
	mux.Handle("POST /drafts/{id}/download", chain(http.HandlerFunc(h.download), authMw))
}

func (h *DraftHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	drafts, err := h.catalog.Browse(r.Context(), model.CatalogFilter{
		Search:   q.Get("q"),
		Category: q.Get("category"),
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDraftResponses(drafts), h.logger)
}

func (h *DraftHandler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats, h.logger)
}

func (h *DraftHandler) download(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	res, err := h.downloads.Download(r.Context(), id, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.DownloadResponse{
		URL:                    res.URL,
		Draft:                  dto.ToDraftResponse(res.Draft),
		DownloadsThisMonth:     res.Profile.DownloadsThisMonth,
		RemainingFreeDownloads: res.RemainingFreeDownloads,
		UpgradePrompt:          res.UpgradePrompt,
	}, h.logger)
}
