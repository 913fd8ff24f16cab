package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nearu/nearu-backend/internal/models"
)

// MatchRequestRepository handles the matchRequests collection
type MatchRequestRepository struct {
	db *sql.DB
}

// NewMatchRequestRepository creates a new match request repository
func NewMatchRequestRepository(db *sql.DB) *MatchRequestRepository {
	return &MatchRequestRepository{db: db}
}

func scanMatchRequest(row rowScanner) (models.MatchRequest, error) {
	var (
		m         models.MatchRequest
		status    string
		createdAt int64
	)
	if err := row.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &status, &m.Message, &createdAt); err != nil {
		return m, err
	}
	m.Status = models.MatchRequestStatus(status)
	m.CreatedAt = time.UnixMilli(createdAt)
	return m, nil
}

// Create inserts a new request
func (r *MatchRequestRepository) Create(ctx context.Context, m *models.MatchRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_requests (id, from_user_id, to_user_id, status, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.FromUserID, m.ToUserID, string(m.Status), m.Message, m.CreatedAt.UnixMilli())
	if err != nil {
		return storageErr("create match request", err)
	}
	return nil
}

// Get retrieves a request by id. A missing request yields nil, nil.
func (r *MatchRequestRepository) Get(ctx context.Context, id string) (*models.MatchRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, from_user_id, to_user_id, status, message, created_at FROM match_requests WHERE id = ?`, id)
	m, err := scanMatchRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get match request", err)
	}
	return &m, nil
}

// ListPending returns the pending requests addressed to userID, oldest first
func (r *MatchRequestRepository) ListPending(ctx context.Context, userID string) ([]models.MatchRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, from_user_id, to_user_id, status, message, created_at FROM match_requests
		 WHERE to_user_id = ? AND status = ? ORDER BY created_at ASC`,
		userID, string(models.MatchPending))
	if err != nil {
		return nil, storageErr("list match requests", err)
	}
	defer rows.Close()

	requests := []models.MatchRequest{}
	for rows.Next() {
		m, err := scanMatchRequest(rows)
		if err != nil {
			return nil, storageErr("scan match request", err)
		}
		requests = append(requests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list match requests", err)
	}
	return requests, nil
}

// HasPending reports whether from already has a pending request to to
func (r *MatchRequestRepository) HasPending(ctx context.Context, from, to string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_requests WHERE from_user_id = ? AND to_user_id = ? AND status = ?`,
		from, to, string(models.MatchPending)).Scan(&n)
	if err != nil {
		return false, storageErr("check pending match request", err)
	}
	return n > 0, nil
}

// HasAccepted reports whether either user accepted a request from the other
func (r *MatchRequestRepository) HasAccepted(ctx context.Context, a, b string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_requests WHERE status = ?
		 AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))`,
		string(models.MatchAccepted), a, b, b, a).Scan(&n)
	if err != nil {
		return false, storageErr("check accepted match request", err)
	}
	return n > 0, nil
}

// Respond moves a pending request to status. Requests that are no longer
// pending yield ErrConflict.
func (r *MatchRequestRepository) Respond(ctx context.Context, id string, status models.MatchRequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE match_requests SET status = ? WHERE id = ? AND status = ?`,
		string(status), id, string(models.MatchPending))
	if err != nil {
		return storageErr("update match request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("update match request", err)
	}
	if n == 0 {
		return fmt.Errorf("match request %s is not pending: %w", id, models.ErrConflict)
	}
	return nil
}
