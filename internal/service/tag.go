package service

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/koinonia/koinonia/internal/model"
)

// TagService manages topic tags.
type TagService struct {
	store TagStore
}

// NewTagService creates a new TagService.
func NewTagService(store TagStore) *TagService {
	return &TagService{store: store}
}

// UpsertTag creates a tag or returns the existing one with the same name.
func (s *TagService) UpsertTag(ctx context.Context, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, required("name")
	}
	tag, err := s.store.UpsertTag(ctx, &model.Tag{ID: ulid.Make().String(), Name: name})
	if err != nil {
		return nil, storageError("upsert tag", err)
	}
	return tag, nil
}

// ListTags returns all tags ordered by name.
func (s *TagService) ListTags(ctx context.Context) ([]*model.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, storageError("list tags", err)
	}
	return tags, nil
}
