package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/koinonia/koinonia/internal/auth"
	"github.com/koinonia/koinonia/internal/handler/dto"
	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/service"
)

// Registrar creates users.
type Registrar interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterOutput, error)
}

// Authenticator opens, rotates and closes sessions.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.LoginOutput, error)
	Refresh(ctx context.Context, refreshToken string) (*service.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
}

// UserReader reads and edits user profiles.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, actorID, id string, update model.ProfileUpdate) (*model.User, error)
}

// UserHandler handles HTTP requests for users and sessions.
type UserHandler struct {
	registrar Registrar
	auth      Authenticator
	users     UserReader
	validator *requestValidator
	logger    *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(registrar Registrar, authn Authenticator, users UserReader, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		registrar: registrar,
		auth:      authn,
		users:     users,
		validator: newRequestValidator(),
		logger:    logger,
	}
}

// Register handles POST /api/v1/users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	in := service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Phone != nil {
		in.Phone = *req.Phone
	}

	out, err := h.registrar.Register(r.Context(), in)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_registered", "user_id", out.User.ID)
	writeJSON(w, http.StatusCreated, sessionResponse(out.User, out.Tokens))
}

// Login handles POST /api/v1/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	out, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(out.User, out.Tokens))
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse(tokens))
}

// Logout handles POST /api/v1/auth/logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Get handles GET /api/v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// FindByEmail handles GET /api/v1/users/by-email/search?email=.
func (h *UserHandler) FindByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Update handles PATCH /api/v1/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	actorID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	user, err := h.users.UpdateProfile(r.Context(), actorID, id, req.ToProfileUpdate())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("profile_updated", "user_id", user.ID)
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

func tokenResponse(t *service.Tokens) dto.TokenResponse {
	return dto.NewTokenResponse(t.AccessToken, t.ExpiresAt, t.RefreshToken, t.RefreshExpiresAt)
}

func sessionResponse(u *model.User, t *service.Tokens) dto.SessionResponse {
	return dto.SessionResponse{
		User:          dto.ToUserResponse(u),
		TokenResponse: tokenResponse(t),
	}
}
