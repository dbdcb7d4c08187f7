package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/repository"
)

const maxTagsPerRequest = 50

// CreatePreachingInput defines input for creating a preaching.
type CreatePreachingInput struct {
	Title          string
	YouTubeURL     string
	YouTubeVideoID string
	Description    *string
	PreacherName   *string
	RecordedAt     *time.Time
}

// PreachingService manages sermons and their topic tags.
type PreachingService struct {
	store PreachingStore
	now   func() time.Time
}

// NewPreachingService creates a new PreachingService.
func NewPreachingService(store PreachingStore) *PreachingService {
	return &PreachingService{store: store, now: time.Now}
}

// CreatePreaching stores a new sermon.
func (s *PreachingService) CreatePreaching(ctx context.Context, in CreatePreachingInput) (*model.Preaching, error) {
	p := &model.Preaching{
		ID:             ulid.Make().String(),
		Title:          strings.TrimSpace(in.Title),
		YouTubeURL:     strings.TrimSpace(in.YouTubeURL),
		YouTubeVideoID: strings.TrimSpace(in.YouTubeVideoID),
		Description:    in.Description,
		PreacherName:   in.PreacherName,
		RecordedAt:     in.RecordedAt,
		CreatedAt:      s.now().UTC(),
	}

	switch {
	case p.Title == "":
		return nil, required("title")
	case p.YouTubeURL == "":
		return nil, required("youtube_url")
	case p.YouTubeVideoID == "":
		return nil, required("youtube_video_id")
	}
	if u, err := url.Parse(p.YouTubeURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalid("youtube_url", "must be an http(s) URL")
	}

	if err := s.store.CreatePreaching(ctx, p); err != nil {
		if errors.Is(err, repository.ErrVideoIDExists) {
			return nil, ErrConflict
		}
		return nil, storageError("create preaching", err)
	}
	return p, nil
}

// GetPreaching retrieves a sermon.
func (s *PreachingService) GetPreaching(ctx context.Context, id string) (*model.Preaching, error) {
	p, err := s.store.GetPreachingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPreachingNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("get preaching", err)
	}
	return p, nil
}

// ListPreachings lists sermons, optionally filtered by a search term.
func (s *PreachingService) ListPreachings(ctx context.Context, search string) ([]*model.Preaching, error) {
	list, err := s.store.ListPreachings(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, storageError("list preachings", err)
	}
	return list, nil
}

// AttachTags links tags to a sermon by name, creating missing tags.
func (s *PreachingService) AttachTags(ctx context.Context, preachingID string, names []string) ([]*model.Tag, error) {
	cleaned := normalizeTagNames(names)
	if len(cleaned) == 0 {
		return nil, required("names")
	}
	if len(cleaned) > maxTagsPerRequest {
		return nil, invalid("names", "too many tags")
	}

	candidates := make([]*model.Tag, 0, len(cleaned))
	for _, name := range cleaned {
		candidates = append(candidates, &model.Tag{ID: ulid.Make().String(), Name: name})
	}

	tags, err := s.store.AttachTags(ctx, preachingID, candidates)
	if err != nil {
		if errors.Is(err, repository.ErrPreachingNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("attach tags", err)
	}
	return tags, nil
}

// ListTags returns the tags attached to a sermon.
func (s *PreachingService) ListTags(ctx context.Context, preachingID string) ([]*model.Tag, error) {
	if _, err := s.GetPreaching(ctx, preachingID); err != nil {
		return nil, err
	}
	tags, err := s.store.ListPreachingTags(ctx, preachingID)
	if err != nil {
		return nil, storageError("list preaching tags", err)
	}
	return tags, nil
}

// normalizeTagNames trims names and drops blanks and duplicates, keeping order.
func normalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
