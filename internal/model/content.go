package model

import "time"

// GalleryItem is an uploaded photo, optionally tied to a fest or an event.
type GalleryItem struct {
	ID         uint64    `json:"id"`
	FestID     *uint64   `json:"fest_id,omitempty"`
	EventID    *uint64   `json:"event_id,omitempty"`
	Title      string    `json:"title"`
	ImagePath  string    `json:"image_path"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Feedback is a public submission. Rating is 1..5.
type Feedback struct {
	ID        uint64    `json:"id"`
	EventID   *uint64   `json:"event_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMember is an entry of the organising club's roster.
type TeamMember struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Position  string `json:"position"`
	PhotoPath string `json:"photo_path,omitempty"`
	SortOrder int    `json:"sort_order"`
}
