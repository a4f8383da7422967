package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/checkin"
	"github.com/iliyamo/fest-registration/internal/model"
)

// CheckinService records attendance at the venue.
type CheckinService struct {
	Events       EventStore
	Participants ParticipantStore
}

// Checkin parses a scanned token and marks the participant as attended.
// Scanning the same token again returns the participant unchanged.
func (s *CheckinService) Checkin(ctx context.Context, actor Actor, raw string) (model.Participant, error) {
	ctx, span := tracer.Start(ctx, "checkin.Checkin")
	defer span.End()

	tok, err := checkin.Parse(raw)
	if err != nil {
		return model.Participant{}, err
	}
	p, err := s.Participants.GetByID(ctx, tok.ParticipantID)
	if errors.Is(err, apperr.ErrNotFound) {
		return model.Participant{}, fmt.Errorf("participant %d: %w", tok.ParticipantID, apperr.ErrNotFound)
	}
	if err != nil {
		return model.Participant{}, err
	}
	if tok.Ref != "" && tok.Ref != p.CheckinRef {
		return model.Participant{}, fmt.Errorf("token reference does not match participant %d: %w",
			p.ID, apperr.ErrMalformedInput)
	}
	ev, err := s.Events.GetByID(ctx, p.EventID)
	if err != nil {
		return model.Participant{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return model.Participant{}, err
	}
	if p.Attended {
		return p, nil
	}
	if err := s.Participants.SetAttended(ctx, p.ID, true); err != nil {
		return model.Participant{}, err
	}
	p.Attended = true
	logger.Infof("checkin: participant %d attended event %d", p.ID, ev.ID)
	return p, nil
}

// ToggleAttendance flips the attended flag for manual corrections.
func (s *CheckinService) ToggleAttendance(ctx context.Context, actor Actor, participantID uint64) (model.Participant, error) {
	p, err := s.Participants.GetByID(ctx, participantID)
	if err != nil {
		return model.Participant{}, err
	}
	ev, err := s.Events.GetByID(ctx, p.EventID)
	if err != nil {
		return model.Participant{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return model.Participant{}, err
	}
	p.Attended = !p.Attended
	if err := s.Participants.SetAttended(ctx, p.ID, p.Attended); err != nil {
		return model.Participant{}, err
	}
	return p, nil
}
