package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/fest-registration/internal/model"
)

// ScheduleRepo manages fest agenda entries.
type ScheduleRepo struct{ DB *sql.DB }

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{DB: db} }

func (r *ScheduleRepo) Create(ctx context.Context, s *model.Schedule) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO schedules (fest_id, event_id, title, venue, starts_at, ends_at) VALUES (?,?,?,?,?,?)",
		s.FestID, nullUint(s.EventID), s.Title, s.Venue, s.StartsAt.UTC(), timeArg(s.EndsAt))
	if err != nil {
		return wrapErr("create schedule", err)
	}
	s.ID, err = lastID(res)
	return err
}

func (r *ScheduleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM schedules WHERE id=?", id)
	return rowsAffectedOrNotFound("delete schedule", res, err)
}

// ListByFest returns the agenda in chronological order.
func (r *ScheduleRepo) ListByFest(ctx context.Context, festID uint64) ([]model.Schedule, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,fest_id,event_id,title,venue,starts_at,ends_at FROM schedules WHERE fest_id=? ORDER BY starts_at, id",
		festID)
	if err != nil {
		return nil, wrapErr("list schedules", err)
	}
	defer rows.Close()
	var out []model.Schedule
	for rows.Next() {
		var (
			s     model.Schedule
			event sql.NullInt64
			ends  sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.FestID, &event, &s.Title, &s.Venue, &s.StartsAt, &ends); err != nil {
			return nil, wrapErr("scan schedule", err)
		}
		s.EventID = uintPtr(event)
		s.EndsAt = timePtr(ends)
		out = append(out, s)
	}
	return out, wrapErr("list schedules", rows.Err())
}

// GalleryRepo stores gallery metadata; the image bytes live in storage.
type GalleryRepo struct{ DB *sql.DB }

func NewGalleryRepo(db *sql.DB) *GalleryRepo { return &GalleryRepo{DB: db} }

func (r *GalleryRepo) Create(ctx context.Context, g *model.GalleryItem) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO gallery_items (fest_id, event_id, title, image_path) VALUES (?,?,?,?)",
		nullUint(g.FestID), nullUint(g.EventID), g.Title, g.ImagePath)
	if err != nil {
		return wrapErr("create gallery item", err)
	}
	g.ID, err = lastID(res)
	return err
}

func (r *GalleryRepo) GetByID(ctx context.Context, id uint64) (model.GalleryItem, error) {
	var (
		g           model.GalleryItem
		fest, event sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,fest_id,event_id,title,image_path,uploaded_at FROM gallery_items WHERE id=?", id).
		Scan(&g.ID, &fest, &event, &g.Title, &g.ImagePath, &g.UploadedAt)
	g.FestID, g.EventID = uintPtr(fest), uintPtr(event)
	return g, wrapErr("get gallery item", err)
}

func (r *GalleryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM gallery_items WHERE id=?", id)
	return rowsAffectedOrNotFound("delete gallery item", res, err)
}

// List returns items newest first, optionally restricted to one event.
func (r *GalleryRepo) List(ctx context.Context, eventID *uint64) ([]model.GalleryItem, error) {
	q := "SELECT id,fest_id,event_id,title,image_path,uploaded_at FROM gallery_items"
	var args []any
	if eventID != nil {
		q += " WHERE event_id=?"
		args = append(args, *eventID)
	}
	rows, err := r.DB.QueryContext(ctx, q+" ORDER BY uploaded_at DESC, id DESC", args...)
	if err != nil {
		return nil, wrapErr("list gallery", err)
	}
	defer rows.Close()
	var out []model.GalleryItem
	for rows.Next() {
		var (
			g           model.GalleryItem
			fest, event sql.NullInt64
		)
		if err := rows.Scan(&g.ID, &fest, &event, &g.Title, &g.ImagePath, &g.UploadedAt); err != nil {
			return nil, wrapErr("scan gallery item", err)
		}
		g.FestID, g.EventID = uintPtr(fest), uintPtr(event)
		out = append(out, g)
	}
	return out, wrapErr("list gallery", rows.Err())
}

type FeedbackRepo struct{ DB *sql.DB }

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo { return &FeedbackRepo{DB: db} }

func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO feedback (event_id, name, email, message, rating) VALUES (?,?,?,?,?)",
		nullUint(f.EventID), f.Name, f.Email, f.Message, f.Rating)
	if err != nil {
		return wrapErr("create feedback", err)
	}
	f.ID, err = lastID(res)
	return err
}

// List returns feedback newest first; a nil eventID returns everything.
func (r *FeedbackRepo) List(ctx context.Context, eventID *uint64) ([]model.Feedback, error) {
	q := "SELECT id,event_id,name,email,message,rating,created_at FROM feedback"
	var args []any
	if eventID != nil {
		q += " WHERE event_id=?"
		args = append(args, *eventID)
	}
	rows, err := r.DB.QueryContext(ctx, q+" ORDER BY created_at DESC, id DESC", args...)
	if err != nil {
		return nil, wrapErr("list feedback", err)
	}
	defer rows.Close()
	var out []model.Feedback
	for rows.Next() {
		var (
			f     model.Feedback
			event sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &event, &f.Name, &f.Email, &f.Message, &f.Rating, &f.CreatedAt); err != nil {
			return nil, wrapErr("scan feedback", err)
		}
		f.EventID = uintPtr(event)
		out = append(out, f)
	}
	return out, wrapErr("list feedback", rows.Err())
}

type TeamMemberRepo struct{ DB *sql.DB }

func NewTeamMemberRepo(db *sql.DB) *TeamMemberRepo { return &TeamMemberRepo{DB: db} }

func (r *TeamMemberRepo) Create(ctx context.Context, m *model.TeamMember) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO team_members (name, position, photo_path, sort_order) VALUES (?,?,?,?)",
		m.Name, m.Position, m.PhotoPath, m.SortOrder)
	if err != nil {
		return wrapErr("create team member", err)
	}
	m.ID, err = lastID(res)
	return err
}

func (r *TeamMemberRepo) Update(ctx context.Context, m model.TeamMember) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE team_members SET name=?, position=?, photo_path=?, sort_order=? WHERE id=?",
		m.Name, m.Position, m.PhotoPath, m.SortOrder, m.ID)
	if err != nil {
		return wrapErr("update team member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		return wrapErr("update team member",
			r.DB.QueryRowContext(ctx, "SELECT 1 FROM team_members WHERE id=?", m.ID).Scan(&one))
	}
	return nil
}

func (r *TeamMemberRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM team_members WHERE id=?", id)
	return rowsAffectedOrNotFound("delete team member", res, err)
}

// List returns the roster by sort order.
func (r *TeamMemberRepo) List(ctx context.Context) ([]model.TeamMember, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,position,photo_path,sort_order FROM team_members ORDER BY sort_order, id")
	if err != nil {
		return nil, wrapErr("list team", err)
	}
	defer rows.Close()
	var out []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Position, &m.PhotoPath, &m.SortOrder); err != nil {
			return nil, wrapErr("scan team member", err)
		}
		out = append(out, m)
	}
	return out, wrapErr("list team", rows.Err())
}
