package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/utils"
)

// smallest valid PNG header the content sniffer recognises
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestCreateEventProvisionsCoordinator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.catalog.CreateEvent(ctx, f.admin, model.Event{
		Title: "Circuit Clash", Date: f.now.Add(24 * time.Hour), MaxParticipants: 20,
	})
	require.NoError(t, err)
	require.NotNil(t, created.Coordinator)
	assert.NotEmpty(t, created.CoordinatorPassword)
	assert.Equal(t, model.DefaultLocation, created.Event.Location)
	assert.Equal(t, created.Coordinator.ID, *created.Event.CoordinatorID)

	u, err := f.store.Users().GetByID(ctx, created.Coordinator.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCoordinator, u.Role)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, created.CoordinatorPassword))

	s, err := f.auth.Login(ctx, u.Username, created.CoordinatorPassword)
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.User.ID)
}

func TestCreateEventWithExistingCoordinator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coord, err := f.auth.CreateUser(ctx, f.admin, NewUser{Username: "lead", Password: "password-1"})
	require.NoError(t, err)

	created, err := f.catalog.CreateEvent(ctx, f.admin, model.Event{
		Title: "Quiz", Date: f.now.Add(time.Hour), MaxParticipants: 5, CoordinatorID: &coord.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, created.Coordinator)
	assert.Empty(t, created.CoordinatorPassword)

	missing := uint64(9999)
	_, err = f.catalog.CreateEvent(ctx, f.admin, model.Event{
		Title: "Quiz 2", Date: f.now.Add(time.Hour), MaxParticipants: 5, CoordinatorID: &missing,
	})
	assert.True(t, apperr.HasReason(err, apperr.InvalidInput))
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[string]model.Event{
		"no title":      {Date: f.now, MaxParticipants: 1},
		"no date":       {Title: "X", MaxParticipants: 1},
		"no capacity":   {Title: "X", Date: f.now},
		"team inverted": {Title: "X", Date: f.now, MaxParticipants: 1, IsTeamEvent: true, MinTeamSize: 4, MaxTeamSize: 2},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.catalog.CreateEvent(ctx, f.admin, ev)
			_, ok := apperr.ReasonOf(err)
			assert.True(t, ok, "got %v", err)
		})
	}

	_, coord := f.event(t, model.Event{})
	_, err := f.catalog.CreateEvent(ctx, coord, model.Event{Title: "X", Date: f.now, MaxParticipants: 1})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateEventByCoordinator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{MaxParticipants: 3})
	f.register(t, ev.ID, "A", "a@college.edu")
	f.register(t, ev.ID, "B", "b@college.edu")

	festID := uint64(77)
	ev.FestID = &festID
	ev.Description = "Bring your own bot"
	updated, err := f.catalog.UpdateEvent(ctx, coord, ev)
	require.NoError(t, err)
	assert.Equal(t, "Bring your own bot", updated.Description)
	assert.Nil(t, updated.FestID, "coordinators cannot move events between fests")

	ev.MaxParticipants = 1
	_, err = f.catalog.UpdateEvent(ctx, coord, ev)
	assert.True(t, apperr.HasReason(err, apperr.InvalidInput))
}

func TestEventDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{MaxParticipants: 2})
	_, err := f.catalog.AddRound(ctx, coord, model.EventRound{EventID: ev.ID, Number: 2, Name: "Final"})
	require.NoError(t, err)
	_, err = f.catalog.AddRound(ctx, coord, model.EventRound{EventID: ev.ID, Number: 1})
	require.NoError(t, err)
	f.register(t, ev.ID, "A", "a@college.edu")

	d, err := f.catalog.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, d.IsRegistrationOpen)
	assert.Equal(t, 1, d.SpotsLeft)
	require.Len(t, d.Rounds, 2)
	assert.Equal(t, 1, d.Rounds[0].Number)
	assert.Equal(t, "Round 1", d.Rounds[0].Name)

	f.now = ev.Date
	d, err = f.catalog.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, d.IsRegistrationOpen)
}

func TestRoundNumbersAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	_, err := f.catalog.AddRound(ctx, coord, model.EventRound{EventID: ev.ID, Number: 1})
	require.NoError(t, err)
	_, err = f.catalog.AddRound(ctx, coord, model.EventRound{EventID: ev.ID, Number: 1})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.catalog.AddRound(ctx, coord, model.EventRound{EventID: ev.ID, Number: 0})
	assert.True(t, apperr.HasReason(err, apperr.InvalidRound))
}

func TestRoundEditsKeepParticipantsWithinLastRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	withRounds(t, f, coord, ev.ID, 3)
	p := f.register(t, ev.ID, "Asha", "asha@college.edu")
	_, err := f.progress.Promote(ctx, coord, ev.ID, []uint64{p.ID}, 3, false)
	require.NoError(t, err)

	rounds, err := f.catalog.ListRounds(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	last := rounds[2]

	assert.ErrorIs(t, f.catalog.DeleteRound(ctx, coord, last.ID), apperr.ErrConflict)

	_, err = f.catalog.UpdateRound(ctx, coord, model.EventRound{ID: last.ID, Number: 2, Name: "Final"})
	assert.ErrorIs(t, err, apperr.ErrConflict, "round 2 already exists")
	require.NoError(t, f.catalog.DeleteRound(ctx, coord, rounds[1].ID))
	_, err = f.catalog.UpdateRound(ctx, coord, model.EventRound{ID: last.ID, Number: 2, Name: "Final"})
	assert.ErrorIs(t, err, apperr.ErrConflict, "participant would sit above the last round")

	got, err := f.catalog.ListRounds(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1].Number)
	stored, err := f.store.Participants().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentRound)

	_, err = f.catalog.UpdateRound(ctx, coord, model.EventRound{ID: last.ID, Number: 4, Name: "Final"})
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteRound(ctx, coord, rounds[0].ID))
}

func TestFestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fest, err := f.catalog.CreateFest(ctx, f.admin, model.Fest{Name: "TechNova", Year: 2026, IsActive: true})
	require.NoError(t, err)

	_, err = f.catalog.CreateFest(ctx, f.admin, model.Fest{Name: "Old", Year: 1999})
	assert.True(t, apperr.HasReason(err, apperr.InvalidInput))

	withBrochure, err := f.catalog.SetBrochure(ctx, f.admin, fest.ID, []byte("%PDF-1.4 brochure"))
	require.NoError(t, err)
	assert.True(t, f.files.Has(withBrochure.BrochurePath))

	_, err = f.catalog.DeactivateFest(ctx, f.admin, fest.ID)
	require.NoError(t, err)
	active, err := f.catalog.ListFests(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := f.catalog.ListFests(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetEventImageRejectsNonImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	_, err := f.catalog.SetEventImage(ctx, coord, ev.ID, []byte("plain text"))
	assert.True(t, apperr.HasReason(err, apperr.InvalidInput))

	updated, err := f.catalog.SetEventImage(ctx, coord, ev.ID, pngBytes)
	require.NoError(t, err)
	assert.True(t, f.files.Has(updated.ImagePath))
}

func TestManagedEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, coord := f.event(t, model.Event{Title: "Mine"})
	f.event(t, model.Event{Title: "Theirs"})

	mine, err := f.catalog.ManagedEvents(ctx, coord)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Mine", mine[0].Title)

	all, err := f.catalog.ManagedEvents(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
