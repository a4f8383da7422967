package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

func withRounds(t *testing.T, f *fixture, coord Actor, eventID uint64, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := f.catalog.AddRound(context.Background(), coord, model.EventRound{EventID: eventID, Number: i})
		require.NoError(t, err)
	}
}

func TestPromoteListedParticipantsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	withRounds(t, f, coord, ev.ID, 3)
	var ids []uint64
	for _, name := range []string{"A", "B", "C", "D"} {
		ids = append(ids, f.register(t, ev.ID, name, name+"@college.edu").ID)
	}

	n, err := f.progress.Promote(ctx, coord, ev.ID, ids[:3], 2, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, id := range ids[:3] {
		p, err := f.store.Participants().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, p.CurrentRound)
	}
	untouched, err := f.store.Participants().GetByID(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, 1, untouched.CurrentRound)

	n, err = f.progress.Promote(ctx, coord, ev.ID, ids[:3], 2, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "promote is idempotent")
}

func TestPromoteBoundsAndCorrection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	withRounds(t, f, coord, ev.ID, 2)
	p := f.register(t, ev.ID, "E", "e@college.edu")

	_, err := f.progress.Promote(ctx, coord, ev.ID, []uint64{p.ID}, 3, false)
	assert.True(t, apperr.HasReason(err, apperr.InvalidRound))
	_, err = f.progress.Promote(ctx, coord, ev.ID, []uint64{p.ID}, 0, false)
	assert.True(t, apperr.HasReason(err, apperr.InvalidRound))

	_, err = f.progress.Promote(ctx, coord, ev.ID, []uint64{p.ID}, 2, false)
	require.NoError(t, err)
	n, err := f.progress.Promote(ctx, coord, ev.ID, []uint64{p.ID}, 1, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.progress.Promote(ctx, coord, ev.ID, []uint64{p.ID}, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPromoteWithoutRoundsStaysAtOne(t *testing.T) {
	f := newFixture(t)
	ev, coord := f.event(t, model.Event{})
	p := f.register(t, ev.ID, "F", "f@college.edu")
	_, err := f.progress.Promote(context.Background(), coord, ev.ID, []uint64{p.ID}, 2, false)
	assert.True(t, apperr.HasReason(err, apperr.InvalidRound))
}

func TestPromoteIsScopedToCoordinator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	other, otherCoord := f.event(t, model.Event{Title: "Other"})
	withRounds(t, f, coord, ev.ID, 2)
	p := f.register(t, ev.ID, "G", "g@college.edu")
	q := f.register(t, other.ID, "H", "h@college.edu")

	_, err := f.progress.Promote(ctx, otherCoord, ev.ID, []uint64{p.ID}, 2, false)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// ids from another event are ignored
	n, err := f.progress.Promote(ctx, coord, ev.ID, []uint64{p.ID, q.ID}, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stillOne, err := f.store.Participants().GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stillOne.CurrentRound)
}

func TestRankAndResultsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	p := f.register(t, ev.ID, "Ivy", "ivy@college.edu")
	q := f.register(t, ev.ID, "Jon", "jon@college.edu")

	ranked, err := f.progress.AssignRank(ctx, coord, p.ID, 1)
	require.NoError(t, err)
	assert.True(t, ranked.IsWinner)
	require.NotNil(t, ranked.Rank)
	assert.Equal(t, 1, *ranked.Rank)

	_, err = f.progress.AssignRank(ctx, coord, q.ID, 0)
	assert.True(t, apperr.HasReason(err, apperr.InvalidRank))
	// ties are allowed
	_, err = f.progress.AssignRank(ctx, coord, q.ID, 1)
	require.NoError(t, err)

	_, err = f.progress.Results(ctx, Actor{}, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.progress.Results(ctx, Actor{UserID: 77, Role: model.RoleStudent}, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	early, err := f.progress.Results(ctx, coord, ev.ID)
	require.NoError(t, err)
	assert.Len(t, early, 2)

	published, err := f.progress.PublishResults(ctx, coord, ev.ID)
	require.NoError(t, err)
	assert.True(t, published.ResultsPublished)
	_, err = f.progress.PublishResults(ctx, coord, ev.ID)
	require.NoError(t, err)

	public, err := f.progress.Results(ctx, Actor{}, ev.ID)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, p.ID, public[0].ID)
	assert.Equal(t, 1, public[0].Rank)
	assert.Equal(t, q.ID, public[1].ID)

	cleared, err := f.progress.ClearRank(ctx, coord, q.ID)
	require.NoError(t, err)
	assert.False(t, cleared.IsWinner)
	assert.Nil(t, cleared.Rank)
}

func TestQualifiersArePublic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, coord := f.event(t, model.Event{})
	withRounds(t, f, coord, ev.ID, 3)
	a := f.register(t, ev.ID, "A", "a@college.edu")
	b := f.register(t, ev.ID, "B", "b@college.edu")
	f.register(t, ev.ID, "C", "c@college.edu")
	_, err := f.progress.Promote(ctx, coord, ev.ID, []uint64{a.ID, b.ID}, 2, false)
	require.NoError(t, err)
	_, err = f.progress.Promote(ctx, coord, ev.ID, []uint64{b.ID}, 3, false)
	require.NoError(t, err)

	qs, err := f.progress.Qualifiers(ctx, ev.ID, 2)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, b.ID, qs[0].ID)
	assert.Equal(t, 3, qs[0].CurrentRound)
	assert.Equal(t, a.ID, qs[1].ID)

	all, err := f.progress.Qualifiers(ctx, ev.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
