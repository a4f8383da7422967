package model

import "time"

// DefaultLocation is used when an event is created without a venue.
const DefaultLocation = "Main Auditorium"

// Event mirrors the `events` table. RegistrationCount is maintained by the
// participant repository inside the registration transaction and always
// satisfies RegistrationCount <= MaxParticipants.
type Event struct {
	ID                   uint64     `json:"id"`
	FestID               *uint64    `json:"fest_id,omitempty"`
	CoordinatorID        *uint64    `json:"coordinator_id,omitempty"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Location             string     `json:"location"`
	Date                 time.Time  `json:"date"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	FeeCents             uint32     `json:"fee_cents"`
	MaxParticipants      int        `json:"max_participants"`
	RegistrationCount    int        `json:"registration_count"`
	IsTeamEvent          bool       `json:"is_team_event"`
	MinTeamSize          int        `json:"min_team_size"`
	MaxTeamSize          int        `json:"max_team_size"`
	ResultsPublished     bool       `json:"results_published"`
	CustomFields         []string   `json:"custom_fields"`
	ImagePath            string     `json:"image_path,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// EffectiveDeadline is the registration deadline when set, else the event date.
func (e Event) EffectiveDeadline() time.Time {
	if e.RegistrationDeadline != nil {
		return *e.RegistrationDeadline
	}
	return e.Date
}

// RegistrationOpen reports whether now is strictly before the effective deadline.
func (e Event) RegistrationOpen(now time.Time) bool {
	return now.Before(e.EffectiveDeadline())
}

// SpotsLeft never goes below zero.
func (e Event) SpotsLeft() int {
	if n := e.MaxParticipants - e.RegistrationCount; n > 0 {
		return n
	}
	return 0
}

// IsCoordinatedBy reports whether userID is the event's coordinator.
func (e Event) IsCoordinatedBy(userID uint64) bool {
	return e.CoordinatorID != nil && *e.CoordinatorID == userID
}

// HasCustomField reports whether label is one of the declared form fields.
func (e Event) HasCustomField(label string) bool {
	for _, f := range e.CustomFields {
		if f == label {
			return true
		}
	}
	return false
}

// EventFilter narrows event listings. Zero values mean "no filter".
type EventFilter struct {
	FestID        *uint64
	CoordinatorID *uint64
	UpcomingFrom  *time.Time
}

// EventRound is one stage of an event. Number is unique per event and rounds
// are always returned ordered by Number ascending.
type EventRound struct {
	ID             uint64 `json:"id"`
	EventID        uint64 `json:"event_id"`
	Number         int    `json:"round_number"`
	Name           string `json:"name"`
	SelectionLimit int    `json:"selection_limit"`
}

// MaxRound returns the highest defined round number, or 1 when no rounds exist.
func MaxRound(rounds []EventRound) int {
	max := 1
	for _, r := range rounds {
		if r.Number > max {
			max = r.Number
		}
	}
	return max
}
