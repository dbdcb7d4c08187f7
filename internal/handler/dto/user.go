// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/koinonia/koinonia/internal/model"
)

// RegisterRequest represents the request body for registering a user.
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,max=320"`
	Password  string  `json:"password" validate:"required,min=8,max=256"`
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest represents the request body for a profile update.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// ToProfileUpdate converts the request to a model.ProfileUpdate.
func (r UpdateProfileRequest) ToProfileUpdate() model.ProfileUpdate {
	return model.ProfileUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
	}
}

// RefreshRequest carries a refresh token for rotation or revocation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       *string   `json:"phone,omitempty"`
	PCOPersonID *string   `json:"pco_person_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		PCOPersonID: u.PCOPersonID,
		CreatedAt:   u.CreatedAt,
	}
}

// TokenResponse is a freshly issued credential pair.
type TokenResponse struct {
	AccessToken      string     `json:"access_token"`
	TokenType        string     `json:"token_type"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RefreshToken     string     `json:"refresh_token,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
}

// NewTokenResponse builds a TokenResponse. The refresh fields are omitted
// when no refresh token was issued.
func NewTokenResponse(access string, expiresAt time.Time, refresh string, refreshExpiresAt time.Time) TokenResponse {
	resp := TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}
	if refresh != "" {
		resp.RefreshToken = refresh
		resp.RefreshExpiresAt = &refreshExpiresAt
	}
	return resp
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User *UserResponse `json:"user"`
	TokenResponse
}
