package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/checkin"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/qr"
	"github.com/iliyamo/fest-registration/internal/queue"
	"github.com/iliyamo/fest-registration/internal/registration"
	"github.com/iliyamo/fest-registration/internal/storage"
)

// RegistrationService admits participants and manages their records.
// QR, Files and Dispatcher are optional; the registration itself never
// depends on them.
type RegistrationService struct {
	Events       EventStore
	Participants ParticipantStore
	QR           qr.Renderer
	Files        storage.Store
	Dispatcher   queue.Dispatcher
	Clock        Clock
}

// Register validates sub against the event under the store's lock and
// creates the participant. Token, QR and the confirmation are produced
// afterwards on a best-effort basis. A signed-in student is linked right
// away; everyone else is linked on their first sign-in.
func (s *RegistrationService) Register(ctx context.Context, actor Actor, eventID uint64, sub registration.Submission) (model.Participant, error) {
	ctx, span := tracer.Start(ctx, "registration.Register")
	defer span.End()
	span.SetAttributes(attribute.Int64("event.id", int64(eventID)))

	sub = sub.Normalize()
	if sub.Name == "" {
		return model.Participant{}, apperr.Validation(apperr.MissingField, "name is required")
	}
	if sub.Email == "" {
		return model.Participant{}, apperr.Validation(apperr.MissingField, "email is required")
	}

	p := &model.Participant{
		Name:        sub.Name,
		Email:       sub.Email,
		Phone:       sub.Phone,
		College:     sub.College,
		TeamName:    sub.TeamName,
		TeamMembers: sub.TeamMembers,
		Responses:   sub.Responses,
	}
	if actor.Authenticated() && actor.Role == model.RoleStudent {
		uid := actor.UserID
		p.UserID = &uid
	}
	now := s.Clock.now()
	ev, err := s.Participants.Register(ctx, eventID, p, func(ev model.Event, count int) error {
		return registration.Validate(ev, count, sub, now)
	})
	if err != nil {
		return model.Participant{}, err
	}
	logger.Infof("registration: participant %d admitted to event %d (%d/%d)",
		p.ID, ev.ID, ev.RegistrationCount, ev.MaxParticipants)

	s.attachArtifacts(ctx, p, ev)
	s.dispatch(ctx, *p, ev)
	return *p, nil
}

func (s *RegistrationService) attachArtifacts(ctx context.Context, p *model.Participant, ev model.Event) {
	p.CheckinToken = checkin.Format(p.ID, p.Name, ev.Title, p.CheckinRef)
	if s.QR != nil && s.Files != nil {
		png, err := s.QR.Render(p.CheckinToken)
		if err != nil {
			logger.Warningf("registration: qr render for participant %d: %v", p.ID, err)
		} else if key, err := s.Files.Save(ctx, qrKey(p.ID), png); err != nil {
			logger.Warningf("registration: qr save for participant %d: %v", p.ID, err)
		} else {
			p.QRPath = key
		}
	}
	if err := s.Participants.SetArtifacts(ctx, p.ID, p.CheckinToken, p.QRPath); err != nil {
		logger.Warningf("registration: store artifacts for participant %d: %v", p.ID, err)
	}
}

func (s *RegistrationService) dispatch(ctx context.Context, p model.Participant, ev model.Event) {
	if s.Dispatcher == nil {
		return
	}
	msg := queue.ParticipantRegistered{
		ParticipantID:     p.ID,
		EventID:           ev.ID,
		EventTitle:        ev.Title,
		Location:          ev.Location,
		Date:              ev.Date.UTC().Format(time.RFC3339),
		Name:              p.Name,
		Email:             p.Email,
		College:           p.College,
		CheckinToken:      p.CheckinToken,
		QRPath:            p.QRPath,
		RegistrationCount: ev.RegistrationCount,
		MaxParticipants:   ev.MaxParticipants,
		RegisteredAt:      p.RegisteredAt.UTC().Format(time.RFC3339),
	}
	if err := s.Dispatcher.Dispatch(ctx, msg); err != nil {
		logger.Warningf("registration: dispatch for participant %d: %v", p.ID, err)
	}
}

func qrKey(participantID uint64) string {
	return fmt.Sprintf("qr/participant-%d.png", participantID)
}

// ListForEvent returns every registration of an event to its managers.
func (s *RegistrationService) ListForEvent(ctx context.Context, actor Actor, eventID uint64) ([]model.Participant, error) {
	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := requireManage(actor, ev); err != nil {
		return nil, err
	}
	return s.Participants.ListByEvent(ctx, eventID)
}

// Mine returns the registrations linked to the caller's account.
func (s *RegistrationService) Mine(ctx context.Context, actor Actor) ([]model.Participant, error) {
	if !actor.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	return s.Participants.ListByUser(ctx, actor.UserID)
}

// Delete removes a registration and frees its slot.
func (s *RegistrationService) Delete(ctx context.Context, actor Actor, participantID uint64) error {
	p, err := s.Participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	ev, err := s.Events.GetByID(ctx, p.EventID)
	if err != nil {
		return err
	}
	if err := requireManage(actor, ev); err != nil {
		return err
	}
	if err := s.Participants.Delete(ctx, participantID); err != nil {
		return err
	}
	if p.QRPath != "" && s.Files != nil {
		if err := s.Files.Delete(ctx, p.QRPath); err != nil {
			logger.Warningf("registration: remove qr %s: %v", p.QRPath, err)
		}
	}
	return nil
}

// Ticket is what a registrant shows at the venue.
type Ticket struct {
	Participant model.Participant
	Event       model.Event
	Token       string
	QR          []byte
}

// Ticket returns the check-in token and QR image to the registrant or to an
// event manager. Missing artifacts are regenerated on the fly.
func (s *RegistrationService) Ticket(ctx context.Context, actor Actor, participantID uint64) (Ticket, error) {
	p, ev, err := ownedParticipant(ctx, s.Events, s.Participants, actor, participantID)
	if err != nil {
		return Ticket{}, err
	}
	t := Ticket{Participant: p, Event: ev, Token: p.CheckinToken}
	if t.Token == "" {
		t.Token = checkin.Format(p.ID, p.Name, ev.Title, p.CheckinRef)
	}
	if p.QRPath != "" && s.Files != nil {
		if png, err := s.Files.Read(ctx, p.QRPath); err == nil {
			t.QR = png
		}
	}
	if t.QR == nil && s.QR != nil {
		png, err := s.QR.Render(t.Token)
		if err != nil {
			return Ticket{}, fmt.Errorf("render qr: %w", err)
		}
		t.QR = png
	}
	return t, nil
}

// ownedParticipant loads a participant the actor may see: their own (linked)
// registration, or one in an event they manage.
func ownedParticipant(ctx context.Context, events EventStore, participants ParticipantStore, actor Actor, participantID uint64) (model.Participant, model.Event, error) {
	if !actor.Authenticated() {
		return model.Participant{}, model.Event{}, apperr.ErrUnauthorized
	}
	p, err := participants.GetByID(ctx, participantID)
	if err != nil {
		return model.Participant{}, model.Event{}, err
	}
	ev, err := events.GetByID(ctx, p.EventID)
	if err != nil {
		return model.Participant{}, model.Event{}, err
	}
	owner := p.UserID != nil && *p.UserID == actor.UserID
	if !owner && !actor.CanManage(ev) {
		return model.Participant{}, model.Event{}, fmt.Errorf("participant %d: %w", p.ID, apperr.ErrForbidden)
	}
	return p, ev, nil
}
