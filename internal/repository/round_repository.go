package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

// RoundRepo manages event_rounds. (event_id, round_number) is unique.
type RoundRepo struct{ DB *sql.DB }

func NewRoundRepo(db *sql.DB) *RoundRepo { return &RoundRepo{DB: db} }

const roundColumns = "id,event_id,round_number,name,selection_limit"

func scanRound(row interface{ Scan(...any) error }) (model.EventRound, error) {
	var rd model.EventRound
	err := row.Scan(&rd.ID, &rd.EventID, &rd.Number, &rd.Name, &rd.SelectionLimit)
	return rd, err
}

// Create inserts rd. A clashing round number yields apperr.ErrConflict.
func (r *RoundRepo) Create(ctx context.Context, rd *model.EventRound) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO event_rounds (event_id, round_number, name, selection_limit) VALUES (?,?,?,?)",
		rd.EventID, rd.Number, rd.Name, rd.SelectionLimit)
	if err != nil {
		return wrapErr("create round", err)
	}
	rd.ID, err = lastID(res)
	return err
}

// Update renumbers or renames a round. Like Delete it is refused with
// apperr.ErrConflict when participants would be left above the event's
// highest round.
func (r *RoundRepo) Update(ctx context.Context, rd model.EventRound) error {
	return r.changeLocked(ctx, rd.ID, "update round", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE event_rounds SET round_number=?, name=?, selection_limit=? WHERE id=?",
			rd.Number, rd.Name, rd.SelectionLimit, rd.ID)
		return wrapErr("update round", err)
	})
}

func (r *RoundRepo) Delete(ctx context.Context, id uint64) error {
	return r.changeLocked(ctx, id, "delete round", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM event_rounds WHERE id=?", id)
		return rowsAffectedOrNotFound("delete round", res, err)
	})
}

// changeLocked applies change under the event row lock that Register and
// Promote also take, then checks the round ceiling before committing.
func (r *RoundRepo) changeLocked(ctx context.Context, roundID uint64, op string, change func(*sql.Tx) error) error {
	var eventID uint64
	if err := r.DB.QueryRowContext(ctx, "SELECT event_id FROM event_rounds WHERE id=?", roundID).Scan(&eventID); err != nil {
		return wrapErr(op, err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(op, err)
	}
	defer tx.Rollback()

	if _, err := lockEventTx(ctx, tx, eventID); err != nil {
		return err
	}
	if err := change(tx); err != nil {
		return err
	}
	ceiling, err := maxRoundTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	var top int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(current_round),1) FROM participants WHERE event_id=?", eventID).Scan(&top); err != nil {
		return wrapErr(op, err)
	}
	if top > ceiling {
		return fmt.Errorf("%s: participants are in round %d but the last round would be %d: %w",
			op, top, ceiling, apperr.ErrConflict)
	}
	return wrapErr(op, tx.Commit())
}

// maxRoundTx is the highest defined round number, 1 when the event has none.
func maxRoundTx(ctx context.Context, tx *sql.Tx, eventID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(round_number),1) FROM event_rounds WHERE event_id=?", eventID).Scan(&n)
	return n, wrapErr("max round", err)
}

func (r *RoundRepo) GetByID(ctx context.Context, id uint64) (model.EventRound, error) {
	rd, err := scanRound(r.DB.QueryRowContext(ctx, "SELECT "+roundColumns+" FROM event_rounds WHERE id=?", id))
	return rd, wrapErr("get round", err)
}

// ListByEvent returns the rounds ordered by round number.
func (r *RoundRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.EventRound, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+roundColumns+" FROM event_rounds WHERE event_id=? ORDER BY round_number", eventID)
	if err != nil {
		return nil, wrapErr("list rounds", err)
	}
	defer rows.Close()
	var out []model.EventRound
	for rows.Next() {
		rd, err := scanRound(rows)
		if err != nil {
			return nil, wrapErr("scan round", err)
		}
		out = append(out, rd)
	}
	return out, wrapErr("list rounds", rows.Err())
}
