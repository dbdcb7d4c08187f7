package model

import "time"

// Preaching is a recorded sermon published on YouTube.
type Preaching struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	YouTubeURL     string     `json:"youtube_url"`
	YouTubeVideoID string     `json:"youtube_video_id"`
	Description    *string    `json:"description,omitempty"`
	PreacherName   *string    `json:"preacher_name,omitempty"`
	RecordedAt     *time.Time `json:"recorded_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Tag is a topic label that can be attached to preachings.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
