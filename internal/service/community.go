package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/repository"
)

// CreateCommunityInput defines input for creating a community.
type CreateCommunityInput struct {
	Name        string
	Description *string
	PCOGroupID  string
}

// CommunityService manages communities and their members.
type CommunityService struct {
	store CommunityStore
	now   func() time.Time
}

// NewCommunityService creates a new CommunityService.
func NewCommunityService(store CommunityStore) *CommunityService {
	return &CommunityService{store: store, now: time.Now}
}

// CreateCommunity creates a community mirrored from a directory group.
func (s *CommunityService) CreateCommunity(ctx context.Context, in CreateCommunityInput) (*model.Community, error) {
	name := strings.TrimSpace(in.Name)
	groupID := strings.TrimSpace(in.PCOGroupID)
	if name == "" {
		return nil, required("name")
	}
	if groupID == "" {
		return nil, required("pco_group_id")
	}

	c := &model.Community{
		ID:          ulid.Make().String(),
		Name:        name,
		Description: in.Description,
		PCOGroupID:  groupID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateCommunity(ctx, c); err != nil {
		if errors.Is(err, repository.ErrGroupIDExists) {
			return nil, ErrConflict
		}
		return nil, storageError("create community", err)
	}
	return c, nil
}

// GetCommunity retrieves a community.
func (s *CommunityService) GetCommunity(ctx context.Context, id string) (*model.Community, error) {
	c, err := s.store.GetCommunityByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCommunityNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("get community", err)
	}
	return c, nil
}

// ListCommunities returns all communities, newest first.
func (s *CommunityService) ListCommunities(ctx context.Context) ([]*model.Community, error) {
	list, err := s.store.ListCommunities(ctx)
	if err != nil {
		return nil, storageError("list communities", err)
	}
	return list, nil
}

// AddMember adds a user to a community. Re-adding is a no-op.
func (s *CommunityService) AddMember(ctx context.Context, communityID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return required("user_id")
	}

	if err := s.store.AddMember(ctx, communityID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCommunityNotFound):
			return ErrNotFound
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		default:
			return storageError("add member", err)
		}
	}
	return nil
}

// ListMembers returns a community's members.
func (s *CommunityService) ListMembers(ctx context.Context, communityID string) ([]*model.Member, error) {
	if _, err := s.GetCommunity(ctx, communityID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, communityID)
	if err != nil {
		return nil, storageError("list members", err)
	}
	return members, nil
}
