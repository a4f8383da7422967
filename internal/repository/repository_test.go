package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

func TestWrapErr(t *testing.T) {
	assert.NoError(t, wrapErr("op", nil))
	assert.ErrorIs(t, wrapErr("op", sql.ErrNoRows), apperr.ErrNotFound)
	assert.ErrorIs(t, wrapErr("op", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), apperr.ErrConflict)

	other := errors.New("boom")
	err := wrapErr("op", other)
	assert.ErrorIs(t, err, other)
	assert.Equal(t, "op: boom", err.Error())
}

func TestInClauseAndUniqueIDs(t *testing.T) {
	ids := uniqueIDs([]uint64{3, 1, 3, 0, 2, 1})
	assert.Equal(t, []uint64{3, 1, 2}, ids)

	in, args := inClause(ids)
	assert.Equal(t, "(?,?,?)", in)
	assert.Equal(t, []any{uint64(3), uint64(1), uint64(2)}, args)
}

func TestJSONColumns(t *testing.T) {
	v, err := jsonColumn([]string(nil))
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = jsonColumn(map[string]string{"Year": "3"})
	require.NoError(t, err)
	assert.Equal(t, `{"Year":"3"}`, v)

	var dst map[string]string
	require.NoError(t, decodeJSON(nil, &dst))
	assert.Nil(t, dst)
	require.NoError(t, decodeJSON([]byte(`{"Year":"3"}`), &dst))
	assert.Equal(t, "3", dst["Year"])
}

// openTestDB connects to the database named by FEST_TEST_DSN, which must
// already be migrated. The integration tests are skipped without it.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("FEST_TEST_DSN")
	if dsn == "" {
		t.Skip("FEST_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())
	return db
}

func TestRegisterRespectsCapacityUnderConcurrency(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	events := NewEventRepo(db)
	participants := NewParticipantRepo(db)

	ev := &model.Event{Title: "Hackathon", Date: time.Now().Add(48 * time.Hour), MaxParticipants: 5}
	require.NoError(t, events.Create(ctx, ev))
	t.Cleanup(func() { _ = events.Delete(ctx, ev.ID) })

	admit := func(e model.Event, count int) error {
		if count >= e.MaxParticipants {
			return apperr.Validation(apperr.EventFull, "no spots left")
		}
		return nil
	}

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		full     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &model.Participant{Name: fmt.Sprintf("P%d", i), Email: fmt.Sprintf("p%d@x.edu", i)}
			_, err := participants.Register(ctx, ev.ID, p, admit)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case apperr.HasReason(err, apperr.EventFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, admitted)
	assert.Equal(t, attempts-5, full)
	got, err := events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.RegistrationCount)
}

func TestPromoteIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	events := NewEventRepo(db)
	participants := NewParticipantRepo(db)

	ev := &model.Event{Title: "Quiz", Date: time.Now().Add(48 * time.Hour), MaxParticipants: 10}
	require.NoError(t, events.Create(ctx, ev))
	t.Cleanup(func() { _ = events.Delete(ctx, ev.ID) })
	rounds := NewRoundRepo(db)
	for i := 1; i <= 2; i++ {
		require.NoError(t, rounds.Create(ctx, &model.EventRound{EventID: ev.ID, Number: i, Name: fmt.Sprintf("R%d", i)}))
	}

	var ids []uint64
	for i := 0; i < 3; i++ {
		p := &model.Participant{Name: fmt.Sprintf("Q%d", i), Email: fmt.Sprintf("q%d@x.edu", i)}
		_, err := participants.Register(ctx, ev.ID, p, func(model.Event, int) error { return nil })
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	n, err := participants.Promote(ctx, ev.ID, ids[:2], 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = participants.Promote(ctx, ev.ID, ids[:2], 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// not a correction: the two at round 2 are not moved back
	n, err = participants.Promote(ctx, ev.ID, ids, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, participants.Delete(ctx, ids[2]))
	got, err := events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RegistrationCount)
}

func TestRotateRefreshOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)
	tokens := NewTokenRepo(db)

	uid, err := users.Create(ctx, model.User{
		Username:     fmt.Sprintf("rot%d", time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         model.RoleCoordinator,
		IsActive:     true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.ExecContext(ctx, "DELETE FROM users WHERE id=?", uid) })

	exp := time.Now().Add(time.Hour)
	old := fmt.Sprintf("%064d", uid)
	require.NoError(t, tokens.StoreRefresh(ctx, uid, old, exp))

	require.NoError(t, tokens.Rotate(ctx, uid, old, "n1"+old[2:], exp))
	err = tokens.Rotate(ctx, uid, old, "n2"+old[2:], exp)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = tokens.ValidateRefresh(ctx, old)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	got, err := tokens.ValidateRefresh(ctx, "n1"+old[2:])
	require.NoError(t, err)
	assert.Equal(t, uid, got)
	_, err = tokens.ValidateRefresh(ctx, "n2"+old[2:])
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRoundChangesKeepParticipantsWithinLastRound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	events := NewEventRepo(db)
	rounds := NewRoundRepo(db)
	participants := NewParticipantRepo(db)

	ev := &model.Event{Title: "Relay", Date: time.Now().Add(48 * time.Hour), MaxParticipants: 10}
	require.NoError(t, events.Create(ctx, ev))
	t.Cleanup(func() { _ = events.Delete(ctx, ev.ID) })
	var all []model.EventRound
	for i := 1; i <= 3; i++ {
		rd := model.EventRound{EventID: ev.ID, Number: i, Name: fmt.Sprintf("R%d", i)}
		require.NoError(t, rounds.Create(ctx, &rd))
		all = append(all, rd)
	}
	top := all[2]
	p := &model.Participant{Name: "Runner", Email: "runner@x.edu"}
	_, err := participants.Register(ctx, ev.ID, p, func(model.Event, int) error { return nil })
	require.NoError(t, err)

	_, err = participants.Promote(ctx, ev.ID, []uint64{p.ID}, 4, false)
	assert.True(t, apperr.HasReason(err, apperr.InvalidRound))
	_, err = participants.Promote(ctx, ev.ID, []uint64{p.ID}, 3, false)
	require.NoError(t, err)

	assert.ErrorIs(t, rounds.Delete(ctx, top.ID), apperr.ErrConflict)
	renumbered := top
	renumbered.Number = 5
	require.NoError(t, rounds.Update(ctx, renumbered))
	require.NoError(t, rounds.Delete(ctx, all[1].ID))
	renumbered.Number = 2
	assert.ErrorIs(t, rounds.Update(ctx, renumbered), apperr.ErrConflict)

	got, err := rounds.GetByID(ctx, top.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Number)
}

func TestEventUpdateKeepsCapacityAboveCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	events := NewEventRepo(db)
	participants := NewParticipantRepo(db)

	ev := &model.Event{Title: "Debate", Date: time.Now().Add(48 * time.Hour), MaxParticipants: 5}
	require.NoError(t, events.Create(ctx, ev))
	t.Cleanup(func() { _ = events.Delete(ctx, ev.ID) })
	for i := 0; i < 2; i++ {
		p := &model.Participant{Name: fmt.Sprintf("D%d", i), Email: fmt.Sprintf("d%d@x.edu", i)}
		_, err := participants.Register(ctx, ev.ID, p, func(model.Event, int) error { return nil })
		require.NoError(t, err)
	}

	shrunk := *ev
	shrunk.MaxParticipants = 1
	err := events.Update(ctx, shrunk)
	assert.True(t, apperr.HasReason(err, apperr.InvalidInput))

	shrunk.MaxParticipants = 2
	require.NoError(t, events.Update(ctx, shrunk))
	got, err := events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MaxParticipants)
	assert.Equal(t, 2, got.RegistrationCount)
}
