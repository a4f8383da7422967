package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

// ParticipantRepo manages the participants table. Writes that touch
// events.registration_count run in a transaction holding the event row lock.
type ParticipantRepo struct{ DB *sql.DB }

func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{DB: db} }

const participantColumns = "p.id,p.event_id,p.user_id,p.name,p.email,p.phone,p.college,p.team_name," +
	"p.team_members,p.responses,p.attended,p.checkin_ref,p.checkin_token,p.qr_path,p.current_round," +
	"p.is_winner,p.`rank`,p.certificate_path,p.registered_at"

func scanParticipant(row interface{ Scan(...any) error }) (model.Participant, error) {
	var (
		p                  model.Participant
		userID, rank       sql.NullInt64
		members, responses []byte
	)
	err := row.Scan(&p.ID, &p.EventID, &userID, &p.Name, &p.Email, &p.Phone, &p.College, &p.TeamName,
		&members, &responses, &p.Attended, &p.CheckinRef, &p.CheckinToken, &p.QRPath, &p.CurrentRound,
		&p.IsWinner, &rank, &p.CertificatePath, &p.RegisteredAt)
	if err != nil {
		return p, err
	}
	p.UserID = uintPtr(userID)
	p.Rank = intPtr(rank)
	if err := decodeJSON(members, &p.TeamMembers); err != nil {
		return p, err
	}
	if err := decodeJSON(responses, &p.Responses); err != nil {
		return p, err
	}
	return p, nil
}

func collectParticipants(rows *sql.Rows, err error) ([]model.Participant, error) {
	if err != nil {
		return nil, wrapErr("query participants", err)
	}
	defer rows.Close()
	var out []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, wrapErr("scan participant", err)
		}
		out = append(out, p)
	}
	return out, wrapErr("query participants", rows.Err())
}

// Register runs admission and insertion as one unit. The event row is locked
// with SELECT ... FOR UPDATE, the current registrations are counted and
// admit decides with that count. On success p is inserted with round 1, the
// event's registration_count is bumped and the updated event is returned.
// An admit error is returned unchanged and nothing is written.
func (r *ParticipantRepo) Register(ctx context.Context, eventID uint64, p *model.Participant,
	admit func(ev model.Event, count int) error) (model.Event, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, wrapErr("begin register", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := lockEventTx(ctx, tx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE event_id=?", eventID).Scan(&count); err != nil {
		return ev, wrapErr("count participants", err)
	}
	if err := admit(ev, count); err != nil {
		return ev, err
	}

	members, err := jsonColumn(p.TeamMembers)
	if err != nil {
		return ev, err
	}
	responses, err := jsonColumn(p.Responses)
	if err != nil {
		return ev, err
	}
	if p.CheckinRef == "" {
		p.CheckinRef = uuid.NewString()
	}
	p.EventID = eventID
	p.CurrentRound = 1
	p.Attended, p.IsWinner, p.Rank = false, false, nil
	p.RegisteredAt = time.Now().UTC().Truncate(time.Second)

	res, err := tx.ExecContext(ctx, `INSERT INTO participants
		(event_id, user_id, name, email, phone, college, team_name, team_members, responses,
		 checkin_ref, current_round, registered_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,1,?)`,
		eventID, nullUint(p.UserID), p.Name, p.Email, p.Phone, p.College, p.TeamName, members, responses,
		p.CheckinRef, p.RegisteredAt)
	if err != nil {
		return ev, wrapErr("insert participant", err)
	}
	if p.ID, err = lastID(res); err != nil {
		return ev, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE events SET registration_count=? WHERE id=?", count+1, eventID); err != nil {
		return ev, wrapErr("bump registration count", err)
	}
	if err := tx.Commit(); err != nil {
		return ev, wrapErr("commit register", err)
	}
	committed = true
	ev.RegistrationCount = count + 1
	return ev, nil
}

func (r *ParticipantRepo) GetByID(ctx context.Context, id uint64) (model.Participant, error) {
	p, err := scanParticipant(r.DB.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participants p WHERE p.id=?", id))
	return p, wrapErr("get participant", err)
}

// ListByEvent returns registrations in insertion order.
func (r *ParticipantRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Participant, error) {
	return collectParticipants(r.DB.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants p WHERE p.event_id=? ORDER BY p.id", eventID))
}

// ListByUser returns the registrations linked to an account, newest first.
func (r *ParticipantRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Participant, error) {
	return collectParticipants(r.DB.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants p WHERE p.user_id=? ORDER BY p.registered_at DESC, p.id DESC",
		userID))
}

// FindByCredential matches email case-insensitively or phone exactly.
// Results are ordered by id so the first element is the oldest record.
func (r *ParticipantRepo) FindByCredential(ctx context.Context, credential string) ([]model.Participant, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, nil
	}
	return collectParticipants(r.DB.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants p WHERE LOWER(p.email)=LOWER(?) OR (p.phone<>'' AND p.phone=?) ORDER BY p.id",
		credential, credential))
}

// LinkUserByEmail links the not yet linked participants with email to userID.
func (r *ParticipantRepo) LinkUserByEmail(ctx context.Context, email string, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE participants SET user_id=? WHERE LOWER(email)=LOWER(?) AND user_id IS NULL",
		userID, strings.TrimSpace(email))
	if err != nil {
		return 0, wrapErr("link participants", err)
	}
	return res.RowsAffected()
}

// SetArtifacts stores the check-in token and QR image key.
func (r *ParticipantRepo) SetArtifacts(ctx context.Context, id uint64, token, qrPath string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE participants SET checkin_token=?, qr_path=? WHERE id=?", token, qrPath, id)
	return wrapErr("set artifacts", err)
}

func (r *ParticipantRepo) SetAttended(ctx context.Context, id uint64, attended bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE participants SET attended=? WHERE id=?", attended, id)
	return wrapErr("set attended", err)
}

func (r *ParticipantRepo) SetCertificatePath(ctx context.Context, id uint64, path string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE participants SET certificate_path=? WHERE id=?", path, id)
	return wrapErr("set certificate", err)
}

// SetRank writes rank and keeps is_winner in step: a rank makes the
// participant a winner, clearing it (nil) removes the flag.
func (r *ParticipantRepo) SetRank(ctx context.Context, id uint64, rank *int) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE participants SET `rank`=?, is_winner=? WHERE id=?", nullInt(rank), rank != nil, id)
	return wrapErr("set rank", err)
}

// Promote moves the listed participants of eventID to target. Rows already
// above target are left alone unless allowDecrease is set. Ids outside the
// event are ignored. The result is how many of the requested participants
// sit at target afterwards, so repeating the call returns the same number.
func (r *ParticipantRepo) Promote(ctx context.Context, eventID uint64, ids []uint64, target int, allowDecrease bool) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	in, idArgs := inClause(ids)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapErr("begin promote", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := lockEventTx(ctx, tx, eventID); err != nil {
		return 0, err
	}
	ceiling, err := maxRoundTx(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}
	if target < 1 || target > ceiling {
		return 0, apperr.Validation(apperr.InvalidRound, "round must be between 1 and %d", ceiling)
	}

	q := "UPDATE participants SET current_round=? WHERE event_id=? AND id IN " + in
	args := append([]any{target, eventID}, idArgs...)
	if !allowDecrease {
		q += " AND current_round<=?"
		args = append(args, target)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return 0, wrapErr("promote", err)
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE event_id=? AND current_round=? AND id IN "+in,
		append([]any{eventID, target}, idArgs...)...).Scan(&n); err != nil {
		return 0, wrapErr("count promoted", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, wrapErr("commit promote", err)
	}
	committed = true
	return n, nil
}

// Winners lists participants flagged is_winner, ordered by event, rank, id.
func (r *ParticipantRepo) Winners(ctx context.Context, f model.WinnerFilter) ([]model.Participant, error) {
	q := "SELECT " + participantColumns + " FROM participants p JOIN events e ON e.id=p.event_id WHERE p.is_winner=1"
	var args []any
	if f.EventID != nil {
		q += " AND p.event_id=?"
		args = append(args, *f.EventID)
	}
	if f.FestID != nil {
		q += " AND e.fest_id=?"
		args = append(args, *f.FestID)
	}
	if f.PublishedOnly {
		q += " AND e.results_published=1"
	}
	return collectParticipants(r.DB.QueryContext(ctx, q+" ORDER BY p.event_id, p.`rank`, p.id", args...))
}

// Delete removes a registration and frees its slot in the same transaction.
func (r *ParticipantRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin delete participant", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var eventID uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT event_id FROM participants WHERE id=?", id).Scan(&eventID); err != nil {
		return wrapErr("delete participant", err)
	}
	if _, err := lockEventTx(ctx, tx, eventID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM participants WHERE id=?", id); err != nil {
		return wrapErr("delete participant", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE events SET registration_count=GREATEST(registration_count-1,0) WHERE id=?", eventID); err != nil {
		return wrapErr("release registration slot", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit delete participant", err)
	}
	committed = true
	return nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// inClause returns "(?,?,...)" and the matching args.
func inClause(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf("(%s)", strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")), args
}
