package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/koinonia/koinonia/internal/handler/dto"
	"github.com/koinonia/koinonia/internal/model"
)

// Tags manages topic tags.
type Tags interface {
	UpsertTag(ctx context.Context, name string) (*model.Tag, error)
	ListTags(ctx context.Context) ([]*model.Tag, error)
}

// TagHandler handles HTTP requests for tags.
type TagHandler struct {
	svc       Tags
	validator *requestValidator
	logger    *slog.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(svc Tags, logger *slog.Logger) *TagHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagHandler{svc: svc, validator: newRequestValidator(), logger: logger}
}

// Upsert handles POST /api/v1/tags.
func (h *TagHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertTagRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	tag, err := h.svc.UpsertTag(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// List handles GET /api/v1/tags.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Tag]{Data: nonNil(tags)})
}
