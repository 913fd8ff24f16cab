package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepository handles userTokens/{uid}, one device token per user
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save registers or replaces the device token of userID
func (r *TokenRepository) Save(ctx context.Context, userID, token string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_tokens (user_id, token, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		userID, token, now.UnixMilli())
	if err != nil {
		return storageErr("save device token", err)
	}
	return nil
}

// Get returns the device token of userID, or "" when none is registered
func (r *TokenRepository) Get(ctx context.Context, userID string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM user_tokens WHERE user_id = ?`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storageErr("get device token", err)
	}
	return token, nil
}
