package dto

import "time"

// CreateCommunityRequest represents the request body for creating a community.
type CreateCommunityRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PCOGroupID  string  `json:"pco_group_id" validate:"required,max=100"`
}

// AddMemberRequest represents the request body for adding a community member.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// CreateSermonRequest represents the request body for publishing a sermon.
type CreateSermonRequest struct {
	Title          string     `json:"title" validate:"required,max=300"`
	YouTubeURL     string     `json:"youtube_url" validate:"required,url,max=2048"`
	YouTubeVideoID string     `json:"youtube_video_id" validate:"required,max=64"`
	Description    *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	PreacherName   *string    `json:"preacher_name,omitempty" validate:"omitempty,max=200"`
	RecordedAt     *time.Time `json:"recorded_at,omitempty"`
}

// AttachTagsRequest lists tag names to attach to a sermon.
type AttachTagsRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,max=100"`
}

// UpsertTagRequest represents the request body for creating a tag.
type UpsertTagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Data []T `json:"data"`
}
