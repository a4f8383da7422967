// Package seed imports a fest with its events, rounds and schedule from a
// YAML document. Everything goes through the services, so the same
// validation applies as for API writes.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/service"
)

type File struct {
	Fest      FestSpec       `yaml:"fest"`
	Events    []EventSpec    `yaml:"events"`
	Schedules []ScheduleSpec `yaml:"schedules"`
}

type FestSpec struct {
	Name   string `yaml:"name"`
	Year   int    `yaml:"year"`
	Active *bool  `yaml:"active"`
}

type EventSpec struct {
	Title           string      `yaml:"title"`
	Description     string      `yaml:"description"`
	Location        string      `yaml:"location"`
	Date            time.Time   `yaml:"date"`
	Deadline        *time.Time  `yaml:"registration_deadline"`
	FeeCents        uint32      `yaml:"fee_cents"`
	MaxParticipants int         `yaml:"max_participants"`
	Team            bool        `yaml:"team"`
	MinTeamSize     int         `yaml:"min_team_size"`
	MaxTeamSize     int         `yaml:"max_team_size"`
	CustomFields    []string    `yaml:"custom_fields"`
	Coordinator     string      `yaml:"coordinator"` // existing staff username; empty provisions one
	Rounds          []RoundSpec `yaml:"rounds"`
}

type RoundSpec struct {
	Number         int    `yaml:"number"`
	Name           string `yaml:"name"`
	SelectionLimit int    `yaml:"selection_limit"`
}

type ScheduleSpec struct {
	Title    string     `yaml:"title"`
	Venue    string     `yaml:"venue"`
	StartsAt time.Time  `yaml:"starts_at"`
	EndsAt   *time.Time `yaml:"ends_at"`
	Event    string     `yaml:"event"` // title of an event in the same file
}

// Parse decodes one document and rejects unknown keys.
func Parse(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, fmt.Errorf("seed: empty document")
		}
		return File{}, fmt.Errorf("seed: %w", err)
	}
	return f, nil
}

// Credential is a coordinator account provisioned during the import.
type Credential struct {
	Event    string
	Username string
	Password string
}

type Result struct {
	Fest        model.Fest
	Events      []model.Event
	Schedules   int
	Credentials []Credential
}

type Importer struct {
	Catalog *service.CatalogService
	Content *service.ContentService
	Users   service.UserStore
}

// Import creates the fest and everything under it. It stops at the first
// failure; what was created before stays.
func (im *Importer) Import(ctx context.Context, actor service.Actor, f File) (Result, error) {
	active := true
	if f.Fest.Active != nil {
		active = *f.Fest.Active
	}
	fest, err := im.Catalog.CreateFest(ctx, actor, model.Fest{Name: f.Fest.Name, Year: f.Fest.Year, IsActive: active})
	if err != nil {
		return Result{}, fmt.Errorf("fest %q: %w", f.Fest.Name, err)
	}
	res := Result{Fest: fest}
	byTitle := make(map[string]uint64, len(f.Events))

	for _, spec := range f.Events {
		ev := model.Event{
			FestID:               &fest.ID,
			Title:                spec.Title,
			Description:          spec.Description,
			Location:             spec.Location,
			Date:                 spec.Date,
			RegistrationDeadline: spec.Deadline,
			FeeCents:             spec.FeeCents,
			MaxParticipants:      spec.MaxParticipants,
			IsTeamEvent:          spec.Team,
			MinTeamSize:          spec.MinTeamSize,
			MaxTeamSize:          spec.MaxTeamSize,
			CustomFields:         spec.CustomFields,
		}
		if spec.Coordinator != "" {
			u, err := im.Users.GetByUsername(ctx, spec.Coordinator)
			if err != nil {
				return res, fmt.Errorf("event %q: coordinator %q: %w", spec.Title, spec.Coordinator, err)
			}
			ev.CoordinatorID = &u.ID
		}
		created, err := im.Catalog.CreateEvent(ctx, actor, ev)
		if err != nil {
			return res, fmt.Errorf("event %q: %w", spec.Title, err)
		}
		if created.Coordinator != nil {
			res.Credentials = append(res.Credentials, Credential{
				Event:    created.Event.Title,
				Username: created.Coordinator.Username,
				Password: created.CoordinatorPassword,
			})
		}
		for _, rs := range spec.Rounds {
			_, err := im.Catalog.AddRound(ctx, actor, model.EventRound{
				EventID:        created.Event.ID,
				Number:         rs.Number,
				Name:           rs.Name,
				SelectionLimit: rs.SelectionLimit,
			})
			if err != nil {
				return res, fmt.Errorf("event %q round %d: %w", spec.Title, rs.Number, err)
			}
		}
		byTitle[created.Event.Title] = created.Event.ID
		res.Events = append(res.Events, created.Event)
	}

	for _, spec := range f.Schedules {
		sc := model.Schedule{FestID: fest.ID, Title: spec.Title, Venue: spec.Venue, StartsAt: spec.StartsAt, EndsAt: spec.EndsAt}
		if spec.Event != "" {
			id, ok := byTitle[spec.Event]
			if !ok {
				return res, fmt.Errorf("schedule %q: unknown event %q", spec.Title, spec.Event)
			}
			sc.EventID = &id
		}
		if _, err := im.Content.AddSchedule(ctx, actor, sc); err != nil {
			return res, fmt.Errorf("schedule %q: %w", spec.Title, err)
		}
		res.Schedules++
	}
	return res, nil
}
