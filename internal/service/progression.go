package service

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

// ProgressionService moves participants through rounds and records results.
type ProgressionService struct {
	Events       EventStore
	Rounds       RoundStore
	Participants ParticipantStore
}

// Promote sets current_round to target for the listed participants of the
// event. target must lie in [1, max round]. Without correction nobody is
// moved backwards. The count is how many of the listed participants are at
// target afterwards, so retries report the same number.
func (s *ProgressionService) Promote(ctx context.Context, actor Actor, eventID uint64, ids []uint64, target int, correction bool) (int, error) {
	ctx, span := tracer.Start(ctx, "progression.Promote")
	defer span.End()
	span.SetAttributes(attribute.Int64("event.id", int64(eventID)), attribute.Int("round.target", target),
		attribute.Int("participants.requested", len(ids)))

	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := requireManage(actor, ev); err != nil {
		return 0, err
	}
	rounds, err := s.Rounds.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if max := model.MaxRound(rounds); target < 1 || target > max {
		return 0, apperr.Validation(apperr.InvalidRound, "round %d outside 1..%d", target, max)
	}
	return s.Participants.Promote(ctx, eventID, ids, target, correction)
}

// AssignRank records a placing and marks the participant a winner. Several
// participants may share a rank.
func (s *ProgressionService) AssignRank(ctx context.Context, actor Actor, participantID uint64, rank int) (model.Participant, error) {
	if rank < 1 {
		return model.Participant{}, apperr.Validation(apperr.InvalidRank, "rank must be at least 1, got %d", rank)
	}
	return s.setRank(ctx, actor, participantID, &rank)
}

// ClearRank removes a placing and the winner flag with it.
func (s *ProgressionService) ClearRank(ctx context.Context, actor Actor, participantID uint64) (model.Participant, error) {
	return s.setRank(ctx, actor, participantID, nil)
}

func (s *ProgressionService) setRank(ctx context.Context, actor Actor, participantID uint64, rank *int) (model.Participant, error) {
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
	if err := s.Participants.SetRank(ctx, participantID, rank); err != nil {
		return model.Participant{}, err
	}
	return s.Participants.GetByID(ctx, participantID)
}

// PublishResults makes results public. Publishing twice is a no-op and
// there is no way back.
func (s *ProgressionService) PublishResults(ctx context.Context, actor Actor, eventID uint64) (model.Event, error) {
	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return model.Event{}, err
	}
	if ev.ResultsPublished {
		return ev, nil
	}
	if err := s.Events.SetResultsPublished(ctx, eventID); err != nil {
		return model.Event{}, err
	}
	return s.Events.GetByID(ctx, eventID)
}

// Standing is a public winner entry.
type Standing struct {
	model.Qualifier
	Rank int `json:"rank"`
}

// Results lists the event's winners by rank, then id. Until results are
// published only the event's managers may read them.
func (s *ProgressionService) Results(ctx context.Context, actor Actor, eventID uint64) ([]Standing, error) {
	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.ResultsPublished && !actor.CanManage(ev) {
		return nil, apperr.ErrForbidden
	}
	winners, err := s.Participants.Winners(ctx, model.WinnerFilter{EventID: &eventID})
	if err != nil {
		return nil, err
	}
	out := make([]Standing, 0, len(winners))
	for _, p := range winners {
		if p.Rank == nil {
			continue
		}
		out = append(out, Standing{Qualifier: p.PublicView(), Rank: *p.Rank})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Qualifiers is the always-public round standing: participants that reached
// at least minRound, furthest first. minRound below 1 is treated as 1.
func (s *ProgressionService) Qualifiers(ctx context.Context, eventID uint64, minRound int) ([]model.Qualifier, error) {
	if _, err := s.Events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	if minRound < 1 {
		minRound = 1
	}
	ps, err := s.Participants.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Qualifier, 0, len(ps))
	for _, p := range ps {
		if p.CurrentRound >= minRound {
			out = append(out, p.PublicView())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CurrentRound != out[j].CurrentRound {
			return out[i].CurrentRound > out[j].CurrentRound
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
