package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nearu/nearu-backend/internal/database"
	"github.com/nearu/nearu-backend/internal/models"
)

// CrossingRepository handles the pathCrossings collection
type CrossingRepository struct {
	db *sql.DB
}

// NewCrossingRepository creates a new crossing repository
func NewCrossingRepository(db *sql.DB) *CrossingRepository {
	return &CrossingRepository{db: db}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getCrossing(ctx context.Context, q queryer, pairID string) (*models.CrossingRecord, error) {
	var (
		rec        = models.CrossingRecord{PairID: pairID}
		eventsJSON string
		unlockedAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT events_json, last_processed_ms, unlocked_at, updated_at FROM path_crossings WHERE pair_id = ?`,
		pairID,
	).Scan(&eventsJSON, &rec.State.LastProcessedMs, &unlockedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get crossing state", err)
	}

	if err := json.Unmarshal([]byte(eventsJSON), &rec.State.Events); err != nil {
		return nil, fmt.Errorf("failed to decode crossing events for %s: %w", pairID, err)
	}
	if unlockedAt.Valid {
		v := unlockedAt.Int64
		rec.UnlockedAt = &v
	}
	return &rec, nil
}

func putCrossing(ctx context.Context, q queryer, rec *models.CrossingRecord) error {
	events := rec.State.Events
	if events == nil {
		events = []models.CrossingEvent{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode crossing events: %w", err)
	}

	var unlockedAt sql.NullInt64
	if rec.UnlockedAt != nil {
		unlockedAt = sql.NullInt64{Int64: *rec.UnlockedAt, Valid: true}
	}

	query := `INSERT INTO path_crossings (pair_id, events_json, last_processed_ms, unlocked_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pair_id) DO UPDATE SET
			events_json = excluded.events_json,
			last_processed_ms = excluded.last_processed_ms,
			unlocked_at = excluded.unlocked_at,
			updated_at = excluded.updated_at`
	_, err = q.ExecContext(ctx, query, rec.PairID, string(eventsJSON), rec.State.LastProcessedMs, unlockedAt, rec.UpdatedAt)
	if err != nil {
		return storageErr("save crossing state", err)
	}
	return nil
}

// Get retrieves the record for a pair. A pair with no history yields nil, nil.
func (r *CrossingRepository) Get(ctx context.Context, pairID string) (*models.CrossingRecord, error) {
	return getCrossing(ctx, r.db, pairID)
}

// Save overwrites the whole record; concurrent writers are last-write-wins
func (r *CrossingRepository) Save(ctx context.Context, rec *models.CrossingRecord) error {
	return putCrossing(ctx, r.db, rec)
}

// Update runs a read-modify-write of one pair inside a single write transaction.
// fn receives nil when the pair has no record; returning nil skips the write.
func (r *CrossingRepository) Update(
	ctx context.Context,
	pairID string,
	fn func(current *models.CrossingRecord) (*models.CrossingRecord, error),
) (*models.CrossingRecord, error) {
	var result *models.CrossingRecord

	err := database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getCrossing(ctx, tx, pairID)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		next.PairID = pairID
		if err := putCrossing(ctx, tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
