package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/fest-registration/internal/model"
)

// FestRepo manages the fests table.
type FestRepo struct{ DB *sql.DB }

func NewFestRepo(db *sql.DB) *FestRepo { return &FestRepo{DB: db} }

const festColumns = "id,name,year,is_active,brochure_path,created_at"

func scanFest(row interface{ Scan(...any) error }) (model.Fest, error) {
	var f model.Fest
	err := row.Scan(&f.ID, &f.Name, &f.Year, &f.IsActive, &f.BrochurePath, &f.CreatedAt)
	return f, err
}

// Create inserts f and fills in its ID.
func (r *FestRepo) Create(ctx context.Context, f *model.Fest) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO fests (name, year, is_active, brochure_path) VALUES (?,?,?,?)",
		f.Name, f.Year, f.IsActive, f.BrochurePath)
	if err != nil {
		return wrapErr("create fest", err)
	}
	f.ID, err = lastID(res)
	return err
}

// Update overwrites the editable columns.
func (r *FestRepo) Update(ctx context.Context, f model.Fest) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE fests SET name=?, year=?, is_active=?, brochure_path=? WHERE id=?",
		f.Name, f.Year, f.IsActive, f.BrochurePath, f.ID); err != nil {
		return wrapErr("update fest", err)
	}
	// affected rows is 0 for a no-op update, so existence is checked separately
	_, err := r.GetByID(ctx, f.ID)
	return err
}

func (r *FestRepo) GetByID(ctx context.Context, id uint64) (model.Fest, error) {
	f, err := scanFest(r.DB.QueryRowContext(ctx, "SELECT "+festColumns+" FROM fests WHERE id=?", id))
	return f, wrapErr("get fest", err)
}

// List returns fests newest year first.
func (r *FestRepo) List(ctx context.Context, activeOnly bool) ([]model.Fest, error) {
	q := "SELECT " + festColumns + " FROM fests"
	if activeOnly {
		q += " WHERE is_active=1"
	}
	rows, err := r.DB.QueryContext(ctx, q+" ORDER BY year DESC, id DESC")
	if err != nil {
		return nil, wrapErr("list fests", err)
	}
	defer rows.Close()
	var out []model.Fest
	for rows.Next() {
		f, err := scanFest(rows)
		if err != nil {
			return nil, wrapErr("scan fest", err)
		}
		out = append(out, f)
	}
	return out, wrapErr("list fests", rows.Err())
}
