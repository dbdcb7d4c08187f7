package service

import (
	"context"
	"errors"
	"strings"

	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/repository"
)

// UserService handles user reads and profile updates.
type UserService struct {
	users UserStore
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapUserError("get user", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by exact email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, required("email")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, mapUserError("find user by email", err)
	}
	return user, nil
}

// UpdateProfile applies update to user id on behalf of actorID.
// Users may only change their own profile.
func (s *UserService) UpdateProfile(ctx context.Context, actorID, id string, update model.ProfileUpdate) (*model.User, error) {
	if actorID != id {
		return nil, ErrForbidden
	}

	if update.FirstName != nil {
		v := strings.TrimSpace(*update.FirstName)
		if v == "" {
			return nil, invalid("first_name", "must not be blank")
		}
		update.FirstName = &v
	}
	if update.LastName != nil {
		v := strings.TrimSpace(*update.LastName)
		if v == "" {
			return nil, invalid("last_name", "must not be blank")
		}
		update.LastName = &v
	}
	if update.Phone != nil {
		v := strings.TrimSpace(*update.Phone)
		update.Phone = &v
	}

	user, err := s.users.UpdateUserProfile(ctx, id, update)
	if err != nil {
		return nil, mapUserError("update profile", err)
	}
	return user, nil
}

func mapUserError(op string, err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return storageError(op, err)
}
