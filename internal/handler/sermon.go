package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/koinonia/koinonia/internal/handler/dto"
	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/service"
)

// Sermons manages preachings and their topic tags.
type Sermons interface {
	CreatePreaching(ctx context.Context, in service.CreatePreachingInput) (*model.Preaching, error)
	GetPreaching(ctx context.Context, id string) (*model.Preaching, error)
	ListPreachings(ctx context.Context, search string) ([]*model.Preaching, error)
	AttachTags(ctx context.Context, preachingID string, names []string) ([]*model.Tag, error)
	ListTags(ctx context.Context, preachingID string) ([]*model.Tag, error)
}

// SermonHandler handles HTTP requests for sermons.
type SermonHandler struct {
	svc       Sermons
	validator *requestValidator
	logger    *slog.Logger
}

// NewSermonHandler creates a new SermonHandler.
func NewSermonHandler(svc Sermons, logger *slog.Logger) *SermonHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SermonHandler{svc: svc, validator: newRequestValidator(), logger: logger}
}

// Create handles POST /api/v1/sermons.
func (h *SermonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSermonRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	p, err := h.svc.CreatePreaching(r.Context(), service.CreatePreachingInput{
		Title:          req.Title,
		YouTubeURL:     req.YouTubeURL,
		YouTubeVideoID: req.YouTubeVideoID,
		Description:    req.Description,
		PreacherName:   req.PreacherName,
		RecordedAt:     req.RecordedAt,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("sermon_created", "preaching_id", p.ID, "youtube_video_id", p.YouTubeVideoID)
	writeJSON(w, http.StatusCreated, p)
}

// List handles GET /api/v1/sermons?q=.
func (h *SermonHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPreachings(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Preaching]{Data: nonNil(list)})
}

// Get handles GET /api/v1/sermons/{id}.
func (h *SermonHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPreaching(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AttachTags handles POST /api/v1/sermons/{id}/tags.
func (h *SermonHandler) AttachTags(w http.ResponseWriter, r *http.Request) {
	var req dto.AttachTagsRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	tags, err := h.svc.AttachTags(r.Context(), chi.URLParam(r, "id"), req.Names)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Tag]{Data: nonNil(tags)})
}

// ListTags handles GET /api/v1/sermons/{id}/tags.
func (h *SermonHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Tag]{Data: nonNil(tags)})
}
