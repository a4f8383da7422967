// Package registration decides whether a submission may be admitted to an
// event. It has no state and performs no I/O; the participant repository calls
// Validate while holding the event row lock so the count it sees is current.
package registration

import (
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

// Submission is the registrant-supplied part of a registration.
type Submission struct {
	Name        string            `json:"name" validate:"required,max=100"`
	Email       string            `json:"email" validate:"required,email,max=254"`
	Phone       string            `json:"phone" validate:"max=20"`
	College     string            `json:"college" validate:"max=200"`
	TeamName    string            `json:"team_name" validate:"max=100"`
	TeamMembers []string          `json:"team_members" validate:"max=20,dive,required,max=100"`
	Responses   map[string]string `json:"responses"`
}

// Normalize trims whitespace, lower-cases the email and drops blank members.
func (s Submission) Normalize() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Phone = strings.TrimSpace(s.Phone)
	s.College = strings.TrimSpace(s.College)
	s.TeamName = strings.TrimSpace(s.TeamName)
	members := make([]string, 0, len(s.TeamMembers))
	for _, m := range s.TeamMembers {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	s.TeamMembers = members
	return s
}

// Validate runs the admission checks in order and returns the first failure:
// registration window, capacity, team name, team size, custom field keys.
// count is the number of registrations already admitted to ev.
func Validate(ev model.Event, count int, sub Submission, now time.Time) error {
	if !ev.RegistrationOpen(now) {
		return apperr.Validation(apperr.RegistrationClosed,
			"registration for %q closed at %s", ev.Title, ev.EffectiveDeadline().UTC().Format(time.RFC3339))
	}
	if count >= ev.MaxParticipants {
		return apperr.Validation(apperr.EventFull, "%q accepts at most %d participants", ev.Title, ev.MaxParticipants)
	}
	if ev.IsTeamEvent {
		if strings.TrimSpace(sub.TeamName) == "" {
			return apperr.Validation(apperr.TeamNameRequired, "%q is a team event", ev.Title)
		}
		size := 1 + len(sub.TeamMembers)
		if ev.MinTeamSize > 0 && size < ev.MinTeamSize {
			return apperr.Validation(apperr.TeamSizeOutOfRange, "team of %d is below the minimum of %d", size, ev.MinTeamSize)
		}
		if ev.MaxTeamSize > 0 && size > ev.MaxTeamSize {
			return apperr.Validation(apperr.TeamSizeOutOfRange, "team of %d exceeds the maximum of %d", size, ev.MaxTeamSize)
		}
	}
	if unknown := unknownFields(ev, sub.Responses); len(unknown) > 0 {
		return apperr.Validation(apperr.UnknownCustomField, "unknown fields: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func unknownFields(ev model.Event, responses map[string]string) []string {
	var out []string
	for k := range responses {
		if !ev.HasCustomField(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
