package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/fest-registration/internal/model"
)

type Schedules struct{ m *MemStore }

func (s *Schedules) Create(_ context.Context, sc *model.Schedule) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc.ID = s.m.id()
	s.m.schedules[sc.ID] = *sc
	return nil
}

func (s *Schedules) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.schedules[id]; !ok {
		return notFound("schedule", id)
	}
	delete(s.m.schedules, id)
	return nil
}

func (s *Schedules) ListByFest(_ context.Context, festID uint64) ([]model.Schedule, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Schedule
	for _, sc := range s.m.schedules {
		if sc.FestID == festID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type Gallery struct{ m *MemStore }

func (s *Gallery) Create(_ context.Context, g *model.GalleryItem) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	g.ID = s.m.id()
	g.UploadedAt = time.Now().UTC()
	s.m.gallery[g.ID] = *g
	return nil
}

func (s *Gallery) GetByID(_ context.Context, id uint64) (model.GalleryItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	g, ok := s.m.gallery[id]
	if !ok {
		return model.GalleryItem{}, notFound("gallery item", id)
	}
	return g, nil
}

func (s *Gallery) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.gallery[id]; !ok {
		return notFound("gallery item", id)
	}
	delete(s.m.gallery, id)
	return nil
}

func (s *Gallery) List(_ context.Context, eventID *uint64) ([]model.GalleryItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.GalleryItem
	for _, g := range s.m.gallery {
		if eventID != nil && (g.EventID == nil || *g.EventID != *eventID) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type FeedbackStore struct{ m *MemStore }

func (s *FeedbackStore) Create(_ context.Context, f *model.Feedback) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f.ID = s.m.id()
	f.CreatedAt = time.Now().UTC()
	s.m.feedback[f.ID] = *f
	return nil
}

func (s *FeedbackStore) List(_ context.Context, eventID *uint64) ([]model.Feedback, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Feedback
	for _, f := range s.m.feedback {
		if eventID != nil && (f.EventID == nil || *f.EventID != *eventID) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type TeamMembers struct{ m *MemStore }

func (s *TeamMembers) Create(_ context.Context, tm *model.TeamMember) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	tm.ID = s.m.id()
	s.m.team[tm.ID] = *tm
	return nil
}

func (s *TeamMembers) Update(_ context.Context, tm model.TeamMember) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.team[tm.ID]; !ok {
		return notFound("team member", tm.ID)
	}
	s.m.team[tm.ID] = tm
	return nil
}

func (s *TeamMembers) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.team[id]; !ok {
		return notFound("team member", id)
	}
	delete(s.m.team, id)
	return nil
}

func (s *TeamMembers) List(_ context.Context) ([]model.TeamMember, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := make([]model.TeamMember, 0, len(s.m.team))
	for _, tm := range s.m.team {
		out = append(out, tm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
