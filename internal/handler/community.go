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

// Communities manages communities and memberships.
type Communities interface {
	CreateCommunity(ctx context.Context, in service.CreateCommunityInput) (*model.Community, error)
	GetCommunity(ctx context.Context, id string) (*model.Community, error)
	ListCommunities(ctx context.Context) ([]*model.Community, error)
	AddMember(ctx context.Context, communityID, userID string) error
	ListMembers(ctx context.Context, communityID string) ([]*model.Member, error)
}

// CommunityHandler handles HTTP requests for communities.
type CommunityHandler struct {
	svc       Communities
	validator *requestValidator
	logger    *slog.Logger
}

// NewCommunityHandler creates a new CommunityHandler.
func NewCommunityHandler(svc Communities, logger *slog.Logger) *CommunityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommunityHandler{svc: svc, validator: newRequestValidator(), logger: logger}
}

// Create handles POST /api/v1/communities.
func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCommunityRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.CreateCommunity(r.Context(), service.CreateCommunityInput{
		Name:        req.Name,
		Description: req.Description,
		PCOGroupID:  req.PCOGroupID,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("community_created", "community_id", c.ID, "pco_group_id", c.PCOGroupID)
	writeJSON(w, http.StatusCreated, c)
}

// List handles GET /api/v1/communities.
func (h *CommunityHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListCommunities(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Community]{Data: nonNil(list)})
}

// Get handles GET /api/v1/communities/{id}.
func (h *CommunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCommunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AddMember handles POST /api/v1/communities/{id}/members.
func (h *CommunityHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req dto.AddMemberRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	communityID := chi.URLParam(r, "id")
	if err := h.svc.AddMember(r.Context(), communityID, req.UserID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/v1/communities/{id}/members.
func (h *CommunityHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.ListMembers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Member]{Data: nonNil(members)})
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
