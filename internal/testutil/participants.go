package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

type Participants struct{ m *MemStore }

func copyParticipant(p model.Participant) model.Participant {
	if p.TeamMembers != nil {
		p.TeamMembers = append([]string(nil), p.TeamMembers...)
	}
	if p.Responses != nil {
		r := make(map[string]string, len(p.Responses))
		for k, v := range p.Responses {
			r[k] = v
		}
		p.Responses = r
	}
	if p.Rank != nil {
		rank := *p.Rank
		p.Rank = &rank
	}
	if p.UserID != nil {
		uid := *p.UserID
		p.UserID = &uid
	}
	return p
}

// Register holds the store lock across count, admit and insert, which is
// what the row lock gives the MySQL implementation.
func (s *Participants) Register(_ context.Context, eventID uint64, p *model.Participant, admit func(model.Event, int) error) (model.Event, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ev, ok := s.m.events[eventID]
	if !ok {
		return model.Event{}, notFound("event", eventID)
	}
	count := 0
	for _, other := range s.m.participants {
		if other.EventID == eventID {
			count++
		}
	}
	if err := admit(copyEvent(ev), count); err != nil {
		return copyEvent(ev), err
	}
	if p.CheckinRef == "" {
		p.CheckinRef = uuid.NewString()
	}
	p.ID = s.m.id()
	p.EventID = eventID
	p.CurrentRound = 1
	p.Attended, p.IsWinner, p.Rank = false, false, nil
	p.RegisteredAt = time.Now().UTC()
	s.m.participants[p.ID] = copyParticipant(*p)
	ev.RegistrationCount = count + 1
	s.m.events[eventID] = ev
	return copyEvent(ev), nil
}

func (s *Participants) GetByID(_ context.Context, id uint64) (model.Participant, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.participants[id]
	if !ok {
		return model.Participant{}, notFound("participant", id)
	}
	return copyParticipant(p), nil
}

func (s *Participants) filter(keep func(model.Participant) bool) []model.Participant {
	var out []model.Participant
	for _, p := range s.m.participants {
		if keep(p) {
			out = append(out, copyParticipant(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Participants) ListByEvent(_ context.Context, eventID uint64) ([]model.Participant, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.filter(func(p model.Participant) bool { return p.EventID == eventID }), nil
}

func (s *Participants) ListByUser(_ context.Context, userID uint64) ([]model.Participant, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := s.filter(func(p model.Participant) bool { return p.UserID != nil && *p.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Participants) FindByCredential(_ context.Context, credential string) ([]model.Participant, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, nil
	}
	return s.filter(func(p model.Participant) bool {
		return strings.EqualFold(p.Email, credential) || (p.Phone != "" && p.Phone == credential)
	}), nil
}

func (s *Participants) LinkUserByEmail(_ context.Context, email string, userID uint64) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for id, p := range s.m.participants {
		if p.UserID == nil && strings.EqualFold(p.Email, strings.TrimSpace(email)) {
			uid := userID
			p.UserID = &uid
			s.m.participants[id] = p
			n++
		}
	}
	return n, nil
}

func (s *Participants) update(id uint64, fn func(*model.Participant)) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.participants[id]
	if !ok {
		return nil
	}
	fn(&p)
	s.m.participants[id] = p
	return nil
}

func (s *Participants) SetArtifacts(_ context.Context, id uint64, token, qrPath string) error {
	return s.update(id, func(p *model.Participant) { p.CheckinToken, p.QRPath = token, qrPath })
}

func (s *Participants) SetAttended(_ context.Context, id uint64, attended bool) error {
	return s.update(id, func(p *model.Participant) { p.Attended = attended })
}

func (s *Participants) SetCertificatePath(_ context.Context, id uint64, path string) error {
	return s.update(id, func(p *model.Participant) { p.CertificatePath = path })
}

func (s *Participants) SetRank(_ context.Context, id uint64, rank *int) error {
	return s.update(id, func(p *model.Participant) {
		if rank == nil {
			p.Rank, p.IsWinner = nil, false
			return
		}
		r := *rank
		p.Rank, p.IsWinner = &r, true
	})
}

func (s *Participants) Promote(_ context.Context, eventID uint64, ids []uint64, target int, allowDecrease bool) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if ceiling := s.m.maxRound(eventID); target < 1 || target > ceiling {
		return 0, apperr.Validation(apperr.InvalidRound, "round must be between 1 and %d", ceiling)
	}
	seen := map[uint64]bool{}
	n := 0
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := s.m.participants[id]
		if !ok || p.EventID != eventID {
			continue
		}
		if p.CurrentRound <= target || allowDecrease {
			p.CurrentRound = target
			s.m.participants[id] = p
		}
		if p.CurrentRound == target {
			n++
		}
	}
	return n, nil
}

func (s *Participants) Winners(_ context.Context, f model.WinnerFilter) ([]model.Participant, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := s.filter(func(p model.Participant) bool {
		if !p.IsWinner {
			return false
		}
		if f.EventID != nil && p.EventID != *f.EventID {
			return false
		}
		ev := s.m.events[p.EventID]
		if f.FestID != nil && (ev.FestID == nil || *ev.FestID != *f.FestID) {
			return false
		}
		return !f.PublishedOnly || ev.ResultsPublished
	})
	rank := func(p model.Participant) int {
		if p.Rank == nil {
			return 1 << 30
		}
		return *p.Rank
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		if rank(out[i]) != rank(out[j]) {
			return rank(out[i]) < rank(out[j])
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Participants) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.participants[id]
	if !ok {
		return notFound("participant", id)
	}
	delete(s.m.participants, id)
	if ev, ok := s.m.events[p.EventID]; ok && ev.RegistrationCount > 0 {
		ev.RegistrationCount--
		s.m.events[p.EventID] = ev
	}
	return nil
}

// SeedParticipant inserts p directly, bypassing admission. The event's
// count is bumped to match.
func (m *MemStore) SeedParticipant(p model.Participant) model.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	if p.CurrentRound == 0 {
		p.CurrentRound = 1
	}
	if p.CheckinRef == "" {
		p.CheckinRef = uuid.NewString()
	}
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = time.Now().UTC()
	}
	m.participants[p.ID] = copyParticipant(p)
	if ev, ok := m.events[p.EventID]; ok {
		ev.RegistrationCount++
		m.events[p.EventID] = ev
	}
	return copyParticipant(p)
}
