package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/logger"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/storage"
)

// Provisioner creates a coordinator account for an event that has none.
type Provisioner interface {
	ProvisionCoordinator(ctx context.Context, eventTitle string) (model.User, string, error)
}

// CatalogService manages fests, events and rounds.
type CatalogService struct {
	Fests       FestStore
	Events      EventStore
	Rounds      RoundStore
	Users       UserStore
	Provisioner Provisioner
	Files       storage.Store
	Clock       Clock
}

func (s *CatalogService) CreateFest(ctx context.Context, actor Actor, f model.Fest) (model.Fest, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.Fest{}, err
	}
	if err := validateFest(&f); err != nil {
		return model.Fest{}, err
	}
	if err := s.Fests.Create(ctx, &f); err != nil {
		return model.Fest{}, err
	}
	return s.Fests.GetByID(ctx, f.ID)
}

func (s *CatalogService) UpdateFest(ctx context.Context, actor Actor, f model.Fest) (model.Fest, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.Fest{}, err
	}
	current, err := s.Fests.GetByID(ctx, f.ID)
	if err != nil {
		return model.Fest{}, err
	}
	if err := validateFest(&f); err != nil {
		return model.Fest{}, err
	}
	if f.BrochurePath == "" {
		f.BrochurePath = current.BrochurePath
	}
	if err := s.Fests.Update(ctx, f); err != nil {
		return model.Fest{}, err
	}
	return s.Fests.GetByID(ctx, f.ID)
}

// DeactivateFest hides a fest from public listings. Fests are never hard
// deleted through the API.
func (s *CatalogService) DeactivateFest(ctx context.Context, actor Actor, id uint64) (model.Fest, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.Fest{}, err
	}
	f, err := s.Fests.GetByID(ctx, id)
	if err != nil {
		return model.Fest{}, err
	}
	f.IsActive = false
	if err := s.Fests.Update(ctx, f); err != nil {
		return model.Fest{}, err
	}
	return f, nil
}

func (s *CatalogService) GetFest(ctx context.Context, id uint64) (model.Fest, error) {
	return s.Fests.GetByID(ctx, id)
}

func (s *CatalogService) ListFests(ctx context.Context, activeOnly bool) ([]model.Fest, error) {
	return s.Fests.List(ctx, activeOnly)
}

// SetBrochure stores an uploaded brochure for the fest.
func (s *CatalogService) SetBrochure(ctx context.Context, actor Actor, festID uint64, data []byte) (model.Fest, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.Fest{}, err
	}
	f, err := s.Fests.GetByID(ctx, festID)
	if err != nil {
		return model.Fest{}, err
	}
	ext, err := uploadExt(data, documentTypes)
	if err != nil {
		return model.Fest{}, err
	}
	key, err := s.Files.Save(ctx, uploadKey("brochures", festID, ext), data)
	if err != nil {
		return model.Fest{}, err
	}
	old := f.BrochurePath
	f.BrochurePath = key
	if err := s.Fests.Update(ctx, f); err != nil {
		return model.Fest{}, err
	}
	s.removeFile(ctx, old)
	return f, nil
}

func validateFest(f *model.Fest) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return apperr.Validation(apperr.MissingField, "fest name is required")
	}
	if f.Year < 2000 || f.Year > 2100 {
		return apperr.Validation(apperr.InvalidInput, "year %d out of range", f.Year)
	}
	return nil
}

// CreatedEvent is returned once on creation. CoordinatorPassword is only
// set when a coordinator account was provisioned for the event.
type CreatedEvent struct {
	Event               model.Event `json:"event"`
	Coordinator         *model.User `json:"coordinator,omitempty"`
	CoordinatorPassword string      `json:"coordinator_password,omitempty"`
}

// CreateEvent adds an event. Without a coordinator one is provisioned and
// its generated password returned in the result.
func (s *CatalogService) CreateEvent(ctx context.Context, actor Actor, ev model.Event) (CreatedEvent, error) {
	if err := requireSuperuser(actor); err != nil {
		return CreatedEvent{}, err
	}
	if err := validateEvent(&ev); err != nil {
		return CreatedEvent{}, err
	}
	if ev.FestID != nil {
		if _, err := s.Fests.GetByID(ctx, *ev.FestID); err != nil {
			return CreatedEvent{}, err
		}
	}
	var out CreatedEvent
	if ev.CoordinatorID != nil {
		if err := s.checkCoordinator(ctx, *ev.CoordinatorID); err != nil {
			return CreatedEvent{}, err
		}
	} else {
		u, password, err := s.Provisioner.ProvisionCoordinator(ctx, ev.Title)
		if err != nil {
			return CreatedEvent{}, fmt.Errorf("provision coordinator: %w", err)
		}
		ev.CoordinatorID = &u.ID
		out.Coordinator, out.CoordinatorPassword = &u, password
		logger.Infof("catalog: provisioned coordinator %q for event %q", u.Username, ev.Title)
	}
	ev.RegistrationCount, ev.ResultsPublished = 0, false
	if err := s.Events.Create(ctx, &ev); err != nil {
		return CreatedEvent{}, err
	}
	created, err := s.Events.GetByID(ctx, ev.ID)
	if err != nil {
		return CreatedEvent{}, err
	}
	out.Event = created
	return out, nil
}

func (s *CatalogService) checkCoordinator(ctx context.Context, userID uint64) error {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Validation(apperr.InvalidInput, "coordinator %d does not exist", userID)
	}
	if err != nil {
		return err
	}
	if !u.IsStaff() {
		return apperr.Validation(apperr.InvalidInput, "user %d is not staff", userID)
	}
	return nil
}

// UpdateEvent replaces the editable fields. Coordinators may edit their own
// events but cannot move them to another fest or coordinator. Capacity can
// not drop below the registrations already admitted.
func (s *CatalogService) UpdateEvent(ctx context.Context, actor Actor, ev model.Event) (model.Event, error) {
	current, err := s.Events.GetByID(ctx, ev.ID)
	if err != nil {
		return model.Event{}, err
	}
	if err := requireManage(actor, current); err != nil {
		return model.Event{}, err
	}
	if !actor.IsSuperuser() {
		ev.FestID, ev.CoordinatorID = current.FestID, current.CoordinatorID
	}
	if err := validateEvent(&ev); err != nil {
		return model.Event{}, err
	}
	if ev.MaxParticipants < current.RegistrationCount {
		return model.Event{}, apperr.Validation(apperr.InvalidInput,
			"max_participants %d is below the %d registrations already admitted", ev.MaxParticipants, current.RegistrationCount)
	}
	if ev.CoordinatorID != nil && !sameID(ev.CoordinatorID, current.CoordinatorID) {
		if err := s.checkCoordinator(ctx, *ev.CoordinatorID); err != nil {
			return model.Event{}, err
		}
	}
	if ev.ImagePath == "" {
		ev.ImagePath = current.ImagePath
	}
	if err := s.Events.Update(ctx, ev); err != nil {
		return model.Event{}, err
	}
	return s.Events.GetByID(ctx, ev.ID)
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *CatalogService) DeleteEvent(ctx context.Context, actor Actor, id uint64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	return s.Events.Delete(ctx, id)
}

// SetEventImage stores an uploaded banner for the event.
func (s *CatalogService) SetEventImage(ctx context.Context, actor Actor, eventID uint64, data []byte) (model.Event, error) {
	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return model.Event{}, err
	}
	ext, err := uploadExt(data, imageTypes)
	if err != nil {
		return model.Event{}, err
	}
	key, err := s.Files.Save(ctx, uploadKey("events", eventID, ext), data)
	if err != nil {
		return model.Event{}, err
	}
	old := ev.ImagePath
	ev.ImagePath = key
	if err := s.Events.Update(ctx, ev); err != nil {
		return model.Event{}, err
	}
	s.removeFile(ctx, old)
	return ev, nil
}

func validateEvent(ev *model.Event) error {
	ev.Title = strings.TrimSpace(ev.Title)
	ev.Location = strings.TrimSpace(ev.Location)
	if ev.Title == "" {
		return apperr.Validation(apperr.MissingField, "title is required")
	}
	if ev.Date.IsZero() {
		return apperr.Validation(apperr.MissingField, "date is required")
	}
	if ev.Location == "" {
		ev.Location = model.DefaultLocation
	}
	if ev.MaxParticipants < 1 {
		return apperr.Validation(apperr.InvalidInput, "max_participants must be at least 1")
	}
	if ev.MinTeamSize < 0 || ev.MaxTeamSize < 0 {
		return apperr.Validation(apperr.InvalidInput, "team sizes cannot be negative")
	}
	if ev.MinTeamSize > 0 && ev.MaxTeamSize > 0 && ev.MinTeamSize > ev.MaxTeamSize {
		return apperr.Validation(apperr.InvalidInput, "min_team_size %d exceeds max_team_size %d", ev.MinTeamSize, ev.MaxTeamSize)
	}
	if ev.RegistrationDeadline != nil && ev.RegistrationDeadline.After(ev.Date) {
		return apperr.Validation(apperr.InvalidInput, "registration deadline is after the event date")
	}
	seen := make(map[string]bool, len(ev.CustomFields))
	fields := make([]string, 0, len(ev.CustomFields))
	for _, f := range ev.CustomFields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	ev.CustomFields = fields
	return nil
}

// EventDetail is the public view of one event.
type EventDetail struct {
	model.Event
	Rounds             []model.EventRound `json:"rounds"`
	IsRegistrationOpen bool               `json:"is_registration_open"`
	SpotsLeft          int                `json:"spots_left"`
}

func (s *CatalogService) GetEvent(ctx context.Context, id uint64) (EventDetail, error) {
	ev, err := s.Events.GetByID(ctx, id)
	if err != nil {
		return EventDetail{}, err
	}
	rounds, err := s.Rounds.ListByEvent(ctx, id)
	if err != nil {
		return EventDetail{}, err
	}
	if rounds == nil {
		rounds = []model.EventRound{}
	}
	return EventDetail{
		Event:              ev,
		Rounds:             rounds,
		IsRegistrationOpen: ev.RegistrationOpen(s.Clock.now()),
		SpotsLeft:          ev.SpotsLeft(),
	}, nil
}

// ListEvents returns events ordered by date. upcoming keeps only events
// that have not started yet.
func (s *CatalogService) ListEvents(ctx context.Context, festID *uint64, upcoming bool) ([]model.Event, error) {
	f := model.EventFilter{FestID: festID}
	if upcoming {
		now := s.Clock.now()
		f.UpcomingFrom = &now
	}
	return s.Events.List(ctx, f)
}

// ManagedEvents lists the events a coordinator runs, or all for superusers.
func (s *CatalogService) ManagedEvents(ctx context.Context, actor Actor) ([]model.Event, error) {
	if !actor.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	switch {
	case actor.IsSuperuser():
		return s.Events.List(ctx, model.EventFilter{})
	case actor.Role == model.RoleCoordinator:
		uid := actor.UserID
		return s.Events.List(ctx, model.EventFilter{CoordinatorID: &uid})
	default:
		return nil, apperr.ErrForbidden
	}
}

// AddRound defines a round. Numbers are unique per event.
func (s *CatalogService) AddRound(ctx context.Context, actor Actor, rd model.EventRound) (model.EventRound, error) {
	ev, err := s.Events.GetByID(ctx, rd.EventID)
	if err != nil {
		return model.EventRound{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return model.EventRound{}, err
	}
	if err := validateRound(&rd); err != nil {
		return model.EventRound{}, err
	}
	if err := s.Rounds.Create(ctx, &rd); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return model.EventRound{}, fmt.Errorf("round %d already exists: %w", rd.Number, apperr.ErrConflict)
		}
		return model.EventRound{}, err
	}
	return rd, nil
}

// UpdateRound and DeleteRound fail with apperr.ErrConflict when the change
// would leave participants above the event's last round.
func (s *CatalogService) UpdateRound(ctx context.Context, actor Actor, rd model.EventRound) (model.EventRound, error) {
	current, err := s.Rounds.GetByID(ctx, rd.ID)
	if err != nil {
		return model.EventRound{}, err
	}
	ev, err := s.Events.GetByID(ctx, current.EventID)
	if err != nil {
		return model.EventRound{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return model.EventRound{}, err
	}
	rd.EventID = current.EventID
	if err := validateRound(&rd); err != nil {
		return model.EventRound{}, err
	}
	if err := s.Rounds.Update(ctx, rd); err != nil {
		return model.EventRound{}, err
	}
	return rd, nil
}

func (s *CatalogService) DeleteRound(ctx context.Context, actor Actor, roundID uint64) error {
	rd, err := s.Rounds.GetByID(ctx, roundID)
	if err != nil {
		return err
	}
	ev, err := s.Events.GetByID(ctx, rd.EventID)
	if err != nil {
		return err
	}
	if err := requireManage(actor, ev); err != nil {
		return err
	}
	return s.Rounds.Delete(ctx, roundID)
}

func (s *CatalogService) ListRounds(ctx context.Context, eventID uint64) ([]model.EventRound, error) {
	if _, err := s.Events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.Rounds.ListByEvent(ctx, eventID)
}

func validateRound(rd *model.EventRound) error {
	rd.Name = strings.TrimSpace(rd.Name)
	if rd.Number < 1 {
		return apperr.Validation(apperr.InvalidRound, "round number must be at least 1")
	}
	if rd.SelectionLimit < 0 {
		return apperr.Validation(apperr.InvalidInput, "selection_limit cannot be negative")
	}
	if rd.Name == "" {
		rd.Name = fmt.Sprintf("Round %d", rd.Number)
	}
	return nil
}

func (s *CatalogService) removeFile(ctx context.Context, key string) {
	if key == "" || s.Files == nil {
		return
	}
	if err := s.Files.Delete(ctx, key); err != nil {
		logger.Warningf("catalog: remove %s: %v", key, err)
	}
}
