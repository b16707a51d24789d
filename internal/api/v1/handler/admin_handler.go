package handler

import (
	"net/http"

	"draftkeeper/internal/api/v1/dto"
	"draftkeeper/internal/middleware"
	"draftkeeper/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminHandler exposes catalog management to admins.
type AdminHandler struct {
	catalog  service.CatalogService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewAdminHandler(catalog service.CatalogService, v *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, validate: v, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw, adminMw func(http.Handler) http.Handler) {
	mux.Handle("GET /admin/drafts", chain(http.HandlerFunc(h.listDrafts), authMw, adminMw))
	mux.Handle("POST /admin/drafts", chain(http.HandlerFunc(h.createDraft), authMw, adminMw))
	mux.Handle("PATCH /admin/drafts/{id}", chain(http.HandlerFunc(h.updateDraft), authMw, adminMw))
	mux.Handle("DELETE /admin/drafts/{id}", chain(http.HandlerFunc(h.deleteDraft), authMw, adminMw))
	mux.Handle("POST /admin/drafts/{id}/upload-url", chain(http.HandlerFunc(h.uploadURL), authMw, adminMw))
	mux.Handle("GET /admin/stats", chain(http.HandlerFunc(h.stats), authMw, adminMw))
}

func (h *AdminHandler) listDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.catalog.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDraftResponses(drafts), h.logger)
}

func (h *AdminHandler) createDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.CreateDraftRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	d, err := h.catalog.Create(r.Context(), id, service.DraftInput{
		Title:       req.Title,
		Description: req.Description,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		Category:    req.Category,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToDraftResponse(d), h.logger)
}

func (h *AdminHandler) updateDraft(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateDraftRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	d, err := h.catalog.Update(r.Context(), r.PathValue("id"), req.ToModel())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDraftResponse(d), h.logger)
}

func (h *AdminHandler) deleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) uploadURL(w http.ResponseWriter, r *http.Request) {
	var req dto.UploadURLRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	target, err := h.catalog.UploadURL(r.Context(), r.PathValue("id"), req.FileName, req.FileSize)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.UploadURLResponse{
		URL:         target.URL,
		ObjectKey:   target.ObjectKey,
		ContentType: target.ContentType,
	}, h.logger)
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stats, h.logger)
}
