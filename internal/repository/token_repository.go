package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

// TokenRepo stores refresh tokens by SHA-256 hash. Raw values never reach
// the database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return wrapErr("store refresh", err)
}

// ValidateRefresh returns the owner of a live token. Revoked, expired and
// unknown hashes are all apperr.ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_tokens
		WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		tokenHash).Scan(&userID)
	if err != nil {
		return 0, wrapErr("validate refresh", err)
	}
	return userID, nil
}

// Rotate revokes oldHash and stores newHash in one transaction. If oldHash
// was already revoked by a concurrent call nothing is written and
// apperr.ErrNotFound is returned.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("rotate refresh", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP()
		WHERE token_hash=? AND user_id=? AND revoked_at IS NULL`,
		oldHash, userID)
	if err != nil {
		return wrapErr("rotate refresh", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("rotate refresh: %w", apperr.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, exp.UTC()); err != nil {
		return wrapErr("rotate refresh", err)
	}
	return wrapErr("rotate refresh", tx.Commit())
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return wrapErr("revoke refresh", err)
}

// RevokeAllForUser signs a user out everywhere.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return wrapErr("revoke refresh", err)
}
