package model

import "time"

// Fest is an edition of the technical fest. It owns its events and
// schedules; deleting a fest cascades to both, but in normal operation a fest
// is deactivated instead.
type Fest struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Year         int       `json:"year"`
	IsActive     bool      `json:"is_active"`
	BrochurePath string    `json:"brochure_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Schedule is one agenda slot of a fest, optionally pointing at an event.
type Schedule struct {
	ID       uint64     `json:"id"`
	FestID   uint64     `json:"fest_id"`
	EventID  *uint64    `json:"event_id,omitempty"`
	Title    string     `json:"title"`
	Venue    string     `json:"venue"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}
