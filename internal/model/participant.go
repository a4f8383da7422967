package model

import "time"

// Participant is a registration record. UserID stays nil until the
// registrant signs in and the account is linked by email.
type Participant struct {
	ID              uint64            `json:"id"`
	EventID         uint64            `json:"event_id"`
	UserID          *uint64           `json:"user_id,omitempty"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	College         string            `json:"college"`
	TeamName        string            `json:"team_name,omitempty"`
	TeamMembers     []string          `json:"team_members,omitempty"`
	Responses       map[string]string `json:"responses,omitempty"`
	Attended        bool              `json:"attended"`
	CheckinRef      string            `json:"-"`
	CheckinToken    string            `json:"checkin_token,omitempty"`
	QRPath          string            `json:"qr_path,omitempty"`
	CurrentRound    int               `json:"current_round"`
	IsWinner        bool              `json:"is_winner"`
	Rank            *int              `json:"rank,omitempty"`
	CertificatePath string            `json:"certificate_path,omitempty"`
	RegisteredAt    time.Time         `json:"registered_at"`
}

// TeamSize counts the registrant plus the listed members.
func (p Participant) TeamSize() int {
	return 1 + len(p.TeamMembers)
}

// WinnerFilter selects participants flagged as winners.
type WinnerFilter struct {
	EventID       *uint64
	FestID        *uint64
	PublishedOnly bool
}

// Qualifier is the public view of a participant in the round standings.
type Qualifier struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	College      string `json:"college"`
	TeamName     string `json:"team_name,omitempty"`
	CurrentRound int    `json:"current_round"`
}

// PublicView strips contact details and form responses.
func (p Participant) PublicView() Qualifier {
	return Qualifier{
		ID:           p.ID,
		Name:         p.Name,
		College:      p.College,
		TeamName:     p.TeamName,
		CurrentRound: p.CurrentRound,
	}
}
