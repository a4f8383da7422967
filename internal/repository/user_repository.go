package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/fest-registration/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,role,is_active,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts user and returns its ID. The password must already be
// hashed. A taken username yields apperr.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, is_active) VALUES (?,?,?,?,?)",
		strings.ToLower(strings.TrimSpace(u.Username)), strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash, u.Role, u.IsActive)
	if err != nil {
		return 0, wrapErr("create user", err)
	}
	return lastID(res)
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
	return u, wrapErr("get user", err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, wrapErr("get user", err)
}

// List returns every account, staff first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY FIELD(role,'SUPERUSER','COORDINATOR','STUDENT'), id")
	if err != nil {
		return nil, wrapErr("list users", err)
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapErr("scan user", err)
		}
		out = append(out, u)
	}
	return out, wrapErr("list users", rows.Err())
}
