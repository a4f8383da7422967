package service

import (
	"context"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/stats"
)

// StatsService exposes the read-only aggregations.
type StatsService struct {
	Events       EventStore
	Participants ParticipantStore
	Feedback     FeedbackStore
}

// EventStats is available to the event's managers.
func (s *StatsService) EventStats(ctx context.Context, actor Actor, eventID uint64) (stats.EventStats, error) {
	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return stats.EventStats{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return stats.EventStats{}, err
	}
	ps, err := s.Participants.ListByEvent(ctx, eventID)
	if err != nil {
		return stats.EventStats{}, err
	}
	fb, err := s.Feedback.List(ctx, &eventID)
	if err != nil {
		return stats.EventStats{}, err
	}
	return stats.ForEvent(eventID, ps, fb), nil
}

// CollegeLeaderboard tallies points over events with published results,
// optionally limited to one fest.
func (s *StatsService) CollegeLeaderboard(ctx context.Context, festID *uint64) ([]stats.CollegeScore, error) {
	winners, err := s.Participants.Winners(ctx, model.WinnerFilter{FestID: festID, PublishedOnly: true})
	if err != nil {
		return nil, err
	}
	return stats.CollegeLeaderboard(winners), nil
}
