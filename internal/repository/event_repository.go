package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

// EventRepo manages the events table. custom_fields is a JSON array of
// labels.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = `id,fest_id,coordinator_id,title,description,location,date,registration_deadline,
fee_cents,max_participants,registration_count,is_team_event,min_team_size,max_team_size,
results_published,custom_fields,image_path,created_at,updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var (
		e           model.Event
		fest, coord sql.NullInt64
		deadline    sql.NullTime
		fields      []byte
	)
	err := row.Scan(&e.ID, &fest, &coord, &e.Title, &e.Description, &e.Location, &e.Date, &deadline,
		&e.FeeCents, &e.MaxParticipants, &e.RegistrationCount, &e.IsTeamEvent, &e.MinTeamSize, &e.MaxTeamSize,
		&e.ResultsPublished, &fields, &e.ImagePath, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	e.FestID = uintPtr(fest)
	e.CoordinatorID = uintPtr(coord)
	e.RegistrationDeadline = timePtr(deadline)
	if err := decodeJSON(fields, &e.CustomFields); err != nil {
		return e, err
	}
	return e, nil
}

// Create inserts e and fills in its ID. RegistrationCount always starts at 0.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	fields, err := jsonColumn(e.CustomFields)
	if err != nil {
		return err
	}
	if strings.TrimSpace(e.Location) == "" {
		e.Location = model.DefaultLocation
	}
	res, err := r.DB.ExecContext(ctx, `INSERT INTO events
		(fest_id, coordinator_id, title, description, location, date, registration_deadline, fee_cents,
		 max_participants, is_team_event, min_team_size, max_team_size, custom_fields, image_path)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		nullUint(e.FestID), nullUint(e.CoordinatorID), e.Title, e.Description, e.Location, e.Date.UTC(),
		timeArg(e.RegistrationDeadline), e.FeeCents, e.MaxParticipants, e.IsTeamEvent,
		e.MinTeamSize, e.MaxTeamSize, fields, e.ImagePath)
	if err != nil {
		return wrapErr("create event", err)
	}
	e.RegistrationCount = 0
	e.ID, err = lastID(res)
	return err
}

// Update overwrites the editable columns. registration_count and
// results_published have their own write paths and are left untouched. The
// capacity check runs under the row lock Register takes, so max_participants
// never drops below an admitted count.
func (r *EventRepo) Update(ctx context.Context, e model.Event) error {
	fields, err := jsonColumn(e.CustomFields)
	if err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("update event", err)
	}
	defer tx.Rollback()

	current, err := lockEventTx(ctx, tx, e.ID)
	if err != nil {
		return err
	}
	if e.MaxParticipants < current.RegistrationCount {
		return apperr.Validation(apperr.InvalidInput,
			"max_participants %d is below the %d registrations already admitted", e.MaxParticipants, current.RegistrationCount)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE events SET
		fest_id=?, coordinator_id=?, title=?, description=?, location=?, date=?, registration_deadline=?,
		fee_cents=?, max_participants=?, is_team_event=?, min_team_size=?, max_team_size=?,
		custom_fields=?, image_path=? WHERE id=?`,
		nullUint(e.FestID), nullUint(e.CoordinatorID), e.Title, e.Description, e.Location, e.Date.UTC(),
		timeArg(e.RegistrationDeadline), e.FeeCents, e.MaxParticipants, e.IsTeamEvent,
		e.MinTeamSize, e.MaxTeamSize, fields, e.ImagePath, e.ID); err != nil {
		return wrapErr("update event", err)
	}
	return wrapErr("update event", tx.Commit())
}

func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id=?", id))
	return e, wrapErr("get event", err)
}

// lockEventTx reads the event and holds its row lock until tx ends.
func lockEventTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	e, err := scanEvent(tx.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id=? FOR UPDATE", id))
	return e, wrapErr("lock event", err)
}

// List returns events ordered by date ascending.
func (r *EventRepo) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.FestID != nil {
		where = append(where, "fest_id=?")
		args = append(args, *f.FestID)
	}
	if f.CoordinatorID != nil {
		where = append(where, "coordinator_id=?")
		args = append(args, *f.CoordinatorID)
	}
	if f.UpcomingFrom != nil {
		where = append(where, "date>=?")
		args = append(args, f.UpcomingFrom.UTC())
	}
	q := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, q+" ORDER BY date, id", args...)
	if err != nil {
		return nil, wrapErr("list events", err)
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapErr("scan event", err)
		}
		out = append(out, e)
	}
	return out, wrapErr("list events", rows.Err())
}

// Delete removes the event; rounds and participants cascade.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
	return rowsAffectedOrNotFound("delete event", res, err)
}

// SetResultsPublished only ever moves the flag from 0 to 1.
func (r *EventRepo) SetResultsPublished(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "UPDATE events SET results_published=1 WHERE id=?", id); err != nil {
		return wrapErr("publish results", err)
	}
	_, err := r.GetByID(ctx, id)
	return err
}
