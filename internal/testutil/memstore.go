// Package testutil provides an in-memory implementation of the service
// store interfaces for tests. It mirrors the MySQL repositories' ordering
// and error behaviour, including the locked check-then-insert in Register.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

type refreshRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// MemStore holds every table behind one mutex.
type MemStore struct {
	mu     sync.Mutex
	nextID uint64

	users        map[uint64]model.User
	tokens       map[string]refreshRow
	fests        map[uint64]model.Fest
	events       map[uint64]model.Event
	rounds       map[uint64]model.EventRound
	participants map[uint64]model.Participant
	schedules    map[uint64]model.Schedule
	gallery      map[uint64]model.GalleryItem
	feedback     map[uint64]model.Feedback
	team         map[uint64]model.TeamMember
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:        map[uint64]model.User{},
		tokens:       map[string]refreshRow{},
		fests:        map[uint64]model.Fest{},
		events:       map[uint64]model.Event{},
		rounds:       map[uint64]model.EventRound{},
		participants: map[uint64]model.Participant{},
		schedules:    map[uint64]model.Schedule{},
		gallery:      map[uint64]model.GalleryItem{},
		feedback:     map[uint64]model.Feedback{},
		team:         map[uint64]model.TeamMember{},
	}
}

func (m *MemStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, apperr.ErrNotFound)
}

func (m *MemStore) Users() *Users { return &Users{m} }
func (m *MemStore) Tokens() *Tokens { return &Tokens{m} }
func (m *MemStore) Fests() *Fests { return &Fests{m} }
func (m *MemStore) Events() *Events { return &Events{m} }
func (m *MemStore) Rounds() *Rounds { return &Rounds{m} }
func (m *MemStore) Participants() *Participants { return &Participants{m} }
func (m *MemStore) Schedules() *Schedules { return &Schedules{m} }
func (m *MemStore) Gallery() *Gallery { return &Gallery{m} }
func (m *MemStore) Feedback() *FeedbackStore { return &FeedbackStore{m} }
func (m *MemStore) TeamMembers() *TeamMembers { return &TeamMembers{m} }

// --- users / tokens

type Users struct{ m *MemStore }

func (s *Users) Create(_ context.Context, u model.User) (uint64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.m.users {
		if existing.Username == u.Username {
			return 0, fmt.Errorf("create user: %w", apperr.ErrConflict)
		}
	}
	u.ID = s.m.id()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	s.m.users[u.ID] = u
	return u.ID, nil
}

func (s *Users) GetByUsername(_ context.Context, username string) (model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	username = strings.ToLower(strings.TrimSpace(username))
	for _, u := range s.m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, notFound("user", username)
}

func (s *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return model.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Users) List(_ context.Context) ([]model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := make([]model.User, 0, len(s.m.users))
	for _, u := range s.m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type Tokens struct{ m *MemStore }

func (s *Tokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.tokens[hash] = refreshRow{userID: userID, exp: exp}
	return nil
}

func (s *Tokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.tokens[hash]
	if !ok || row.revoked || time.Now().After(row.exp) {
		return 0, notFound("refresh token", "")
	}
	return row.userID, nil
}

func (s *Tokens) Rotate(_ context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.tokens[oldHash]
	if !ok || row.revoked || row.userID != userID {
		return notFound("refresh token", "")
	}
	row.revoked = true
	s.m.tokens[oldHash] = row
	s.m.tokens[newHash] = refreshRow{userID: userID, exp: exp}
	return nil
}

func (s *Tokens) RevokeByHash(_ context.Context, hash string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if row, ok := s.m.tokens[hash]; ok {
		row.revoked = true
		s.m.tokens[hash] = row
	}
	return nil
}

func (s *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for h, row := range s.m.tokens {
		if row.userID == userID {
			row.revoked = true
			s.m.tokens[h] = row
		}
	}
	return nil
}

// ActiveTokens counts unrevoked refresh tokens of a user.
func (m *MemStore) ActiveTokens(userID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.tokens {
		if row.userID == userID && !row.revoked {
			n++
		}
	}
	return n
}

// --- fests / events / rounds

type Fests struct{ m *MemStore }

func (s *Fests) Create(_ context.Context, f *model.Fest) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f.ID = s.m.id()
	f.CreatedAt = time.Now().UTC()
	s.m.fests[f.ID] = *f
	return nil
}

func (s *Fests) Update(_ context.Context, f model.Fest) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.fests[f.ID]
	if !ok {
		return notFound("fest", f.ID)
	}
	f.CreatedAt = cur.CreatedAt
	s.m.fests[f.ID] = f
	return nil
}

func (s *Fests) GetByID(_ context.Context, id uint64) (model.Fest, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f, ok := s.m.fests[id]
	if !ok {
		return model.Fest{}, notFound("fest", id)
	}
	return f, nil
}

func (s *Fests) List(_ context.Context, activeOnly bool) ([]model.Fest, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Fest
	for _, f := range s.m.fests {
		if activeOnly && !f.IsActive {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type Events struct{ m *MemStore }

func copyEvent(e model.Event) model.Event {
	if e.CustomFields != nil {
		e.CustomFields = append([]string(nil), e.CustomFields...)
	}
	return e
}

func (s *Events) Create(_ context.Context, e *model.Event) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if e.FestID != nil {
		if _, ok := s.m.fests[*e.FestID]; !ok {
			return notFound("fest", *e.FestID)
		}
	}
	if strings.TrimSpace(e.Location) == "" {
		e.Location = model.DefaultLocation
	}
	e.ID = s.m.id()
	e.RegistrationCount = 0
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	s.m.events[e.ID] = copyEvent(*e)
	return nil
}

func (s *Events) Update(_ context.Context, e model.Event) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.events[e.ID]
	if !ok {
		return notFound("event", e.ID)
	}
	if e.MaxParticipants < cur.RegistrationCount {
		return apperr.Validation(apperr.InvalidInput,
			"max_participants %d is below the %d registrations already admitted", e.MaxParticipants, cur.RegistrationCount)
	}
	e.RegistrationCount = cur.RegistrationCount
	e.ResultsPublished = cur.ResultsPublished
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s.m.events[e.ID] = copyEvent(e)
	return nil
}

func (s *Events) GetByID(_ context.Context, id uint64) (model.Event, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.events[id]
	if !ok {
		return model.Event{}, notFound("event", id)
	}
	return copyEvent(e), nil
}

func (s *Events) List(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Event
	for _, e := range s.m.events {
		if f.FestID != nil && (e.FestID == nil || *e.FestID != *f.FestID) {
			continue
		}
		if f.CoordinatorID != nil && !e.IsCoordinatedBy(*f.CoordinatorID) {
			continue
		}
		if f.UpcomingFrom != nil && e.Date.Before(*f.UpcomingFrom) {
			continue
		}
		out = append(out, copyEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete cascades to rounds and participants like the foreign keys do.
func (s *Events) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.events[id]; !ok {
		return notFound("event", id)
	}
	delete(s.m.events, id)
	for rid, r := range s.m.rounds {
		if r.EventID == id {
			delete(s.m.rounds, rid)
		}
	}
	for pid, p := range s.m.participants {
		if p.EventID == id {
			delete(s.m.participants, pid)
		}
	}
	return nil
}

func (s *Events) SetResultsPublished(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.events[id]
	if !ok {
		return notFound("event", id)
	}
	e.ResultsPublished = true
	s.m.events[id] = e
	return nil
}

type Rounds struct{ m *MemStore }

func (s *Rounds) clash(r model.EventRound) bool {
	for _, other := range s.m.rounds {
		if other.ID != r.ID && other.EventID == r.EventID && other.Number == r.Number {
			return true
		}
	}
	return false
}

func (s *Rounds) Create(_ context.Context, r *model.EventRound) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.events[r.EventID]; !ok {
		return notFound("event", r.EventID)
	}
	if s.clash(*r) {
		return fmt.Errorf("create round: %w", apperr.ErrConflict)
	}
	r.ID = s.m.id()
	s.m.rounds[r.ID] = *r
	return nil
}

func (s *Rounds) Update(_ context.Context, r model.EventRound) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.rounds[r.ID]; !ok {
		return notFound("round", r.ID)
	}
	if s.clash(r) {
		return fmt.Errorf("update round: %w", apperr.ErrConflict)
	}
	old := s.m.rounds[r.ID]
	r.EventID = old.EventID
	s.m.rounds[r.ID] = r
	if err := s.m.checkRoundCeiling(r.EventID); err != nil {
		s.m.rounds[r.ID] = old
		return fmt.Errorf("update round: %w", err)
	}
	return nil
}

func (s *Rounds) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	old, ok := s.m.rounds[id]
	if !ok {
		return notFound("round", id)
	}
	delete(s.m.rounds, id)
	if err := s.m.checkRoundCeiling(old.EventID); err != nil {
		s.m.rounds[id] = old
		return fmt.Errorf("delete round: %w", err)
	}
	return nil
}

// maxRound is the highest round number of the event, 1 when it has none.
// Callers hold m.mu.
func (m *MemStore) maxRound(eventID uint64) int {
	ceiling := 1
	for _, r := range m.rounds {
		if r.EventID == eventID && r.Number > ceiling {
			ceiling = r.Number
		}
	}
	return ceiling
}

func (m *MemStore) checkRoundCeiling(eventID uint64) error {
	ceiling := m.maxRound(eventID)
	for _, p := range m.participants {
		if p.EventID == eventID && p.CurrentRound > ceiling {
			return fmt.Errorf("participants are in round %d but the last round would be %d: %w",
				p.CurrentRound, ceiling, apperr.ErrConflict)
		}
	}
	return nil
}

func (s *Rounds) GetByID(_ context.Context, id uint64) (model.EventRound, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	r, ok := s.m.rounds[id]
	if !ok {
		return model.EventRound{}, notFound("round", id)
	}
	return r, nil
}

func (s *Rounds) ListByEvent(_ context.Context, eventID uint64) ([]model.EventRound, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.EventRound
	for _, r := range s.m.rounds {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
